package main

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"

	l "github.com/sirupsen/logrus"

	"gitlab.com/mipimipi/muscat/src/internal/config"
)

const logFilename = "muscat.log"

// setupLogging sets up logging into a file in logDir at level logLevel. If
// the log file does not exist yet, it is created and chowned to the
// muscat system user.
func setupLogging(logDir, logLevel string) (err error) {
	level, err := l.ParseLevel(logLevel)
	if err != nil {
		return
	}

	path := filepath.Join(logDir, logFilename)

	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o666)
	if err != nil {
		return
	}

	if !existed {
		if chownErr := chownToMuscat(f, path); chownErr != nil {
			// Non-fatal: the process may not be running as root, or the
			// muscat user may not exist on this host (e.g. local dev).
			l.WithError(chownErr).Warn("could not chown log file to muscat user")
		}
	}

	l.SetOutput(f)
	l.SetLevel(level)
	return
}

func chownToMuscat(f *os.File, path string) error {
	u, err := user.Lookup(config.UserName)
	if err != nil {
		return err
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return err
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	stat := info.Sys().(*syscall.Stat_t)
	if uid != int(stat.Uid) || gid != int(stat.Gid) {
		return f.Chown(uid, gid)
	}
	return nil
}
