// Package catalogsvc is the service front controlling index updates and
// serving catalog queries over virtualized paths: a coalescing command
// channel drives reindexing, while queries translate real catalog rows
// back into the virtual namespace before they leave the package.
package catalogsvc

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "catalogsvc")

type command int

const (
	commandReindex command = iota
	commandExit
)

// CommandSender lets any goroutine request a reindex or ask the service
// loop to exit. A reindex request never blocks; an exit request blocks while
// the command buffer is full.
type CommandSender struct {
	mu sync.Mutex
	ch chan command
}

func newCommandSender(ch chan command) *CommandSender {
	return &CommandSender{ch: ch}
}

// TriggerReindex enqueues a reindex request. The channel is buffered, so a
// burst of calls coalesces into however many the update loop happens to
// drain in one pass (see drainAndUpdate).
func (s *CommandSender) TriggerReindex() error {
	return s.send(commandReindex)
}

// Exit asks the update loop to stop after finishing any update in
// progress.
func (s *CommandSender) Exit() error {
	return s.send(commandExit)
}

func (s *CommandSender) send(c command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c == commandExit {
		// Exit must never be dropped: unlike a reindex, there's no pending
		// entry in the channel that already satisfies it, so this blocks
		// until the channel has room, which the running loop makes each
		// time it receives a command.
		s.ch <- c
		return nil
	}

	select {
	case s.ch <- c:
		return nil
	default:
		// Channel full: a reindex is already pending, which satisfies the
		// caller's intent just as well as a second queued entry would.
		return nil
	}
}
