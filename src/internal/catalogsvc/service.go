package catalogsvc

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gitlab.com/mipimipi/muscat/src/internal/catalog"
	"gitlab.com/mipimipi/muscat/src/internal/index"
	"gitlab.com/mipimipi/muscat/src/internal/metadata"
	"gitlab.com/mipimipi/muscat/src/internal/vfs"
)

// Service wires a catalog.Store and a vfs.Mapper together and exposes both
// the index-update command loop and the virtualized query surface.
type Service struct {
	Store  catalog.Store
	Mapper *vfs.Mapper
	Reader metadata.Reader

	sender *CommandSender
	cmdCh  chan command
}

// New constructs a Service. reader defaults to metadata.Read when nil.
func New(store catalog.Store, mapper *vfs.Mapper, reader metadata.Reader) *Service {
	if reader == nil {
		reader = metadata.Read
	}
	ch := make(chan command, 8)
	return &Service{
		Store:  store,
		Mapper: mapper,
		Reader: reader,
		sender: newCommandSender(ch),
		cmdCh:  ch,
	}
}

// Commands returns the handle other components use to trigger a reindex or
// ask the service to stop.
func (s *Service) Commands() *CommandSender {
	return s.sender
}

// Run starts the command loop and blocks until it is told to exit, either
// via CommandSender.Exit or an OS termination signal. It also starts the
// self-triggering goroutine, which periodically requests a reindex on the
// interval configured in misc_settings.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	var wg sync.WaitGroup
	wg.Add(1)
	go s.selfTrigger(ctx, &wg)

	for {
		select {
		case sig := <-interrupt:
			log.Tracef("signal received: %v", sig)
			cancel()
			wg.Wait()
			return nil

		case cmd, ok := <-s.cmdCh:
			if !ok || cmd == commandExit {
				cancel()
				wg.Wait()
				return nil
			}
			if exit := s.drainAndUpdate(ctx); exit {
				cancel()
				wg.Wait()
				return nil
			}
			if ctx.Err() != nil {
				wg.Wait()
				return nil
			}
		}
	}
}

// drainAndUpdate flushes any further pending commands already queued behind
// the one that just woke the loop — a burst of reindex requests runs the
// update exactly once — then performs the update. If an Exit is observed
// anywhere in the drain, the update is skipped and drainAndUpdate reports
// true so Run terminates the loop, mirroring the head-of-queue Exit case.
func (s *Service) drainAndUpdate(ctx context.Context) bool {
	for {
		select {
		case cmd := <-s.cmdCh:
			if cmd == commandExit {
				return true
			}
		default:
			goto update
		}
	}
update:
	if err := index.Update(ctx, s.Store, s.Mapper, s.Reader); err != nil {
		log.WithError(err).Error("error while updating index")
	}
	return false
}

// selfTrigger periodically requests a reindex, sleeping for the duration
// configured live in misc_settings (re-read every cycle, so an operator
// changing the interval takes effect on the next wakeup without a
// restart).
func (s *Service) selfTrigger(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		if err := s.sender.TriggerReindex(); err != nil {
			log.WithError(err).Error("error writing to index command channel")
			return
		}

		sleep := s.sleepDuration(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func (s *Service) sleepDuration(ctx context.Context) time.Duration {
	settings, err := s.Store.MiscSettings(ctx)
	if err != nil {
		log.WithError(err).Error("could not retrieve index sleep duration")
		return 1800 * time.Second
	}
	return time.Duration(settings.IndexSleepDurationSeconds) * time.Second
}
