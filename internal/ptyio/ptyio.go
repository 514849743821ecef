// Package ptyio runs a launcher child on a pseudo terminal and bridges it
// to the launcher's own terminal.
package ptyio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/randomizedcoder/go-linux-launcher/internal/spawn"
)

// Session is a pty pair. The slave side becomes the child's stdio; the
// launcher keeps the master.
type Session struct {
	master *os.File
	slave  *os.File
	logger *slog.Logger

	closeOnce sync.Once
}

// Open allocates a pty pair. When stdin is a terminal its size is copied
// to the new pty.
func Open(logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}

	s := &Session{master: master, slave: slave, logger: logger}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if err := pty.InheritSize(os.Stdin, master); err != nil {
			logger.Debug("pty_size_failed", "error", err)
		}
	}

	logger.Debug("pty_opened", "slave", slave.Name())
	return s, nil
}

// Stdio returns the slave for all three standard streams.
func (s *Session) Stdio() spawn.Stdio {
	return spawn.Stdio{Stdin: s.slave, Stdout: s.slave, Stderr: s.slave}
}

// Master returns the launcher side of the pair.
func (s *Session) Master() *os.File {
	return s.master
}

// SlaveName returns the device path of the child side.
func (s *Session) SlaveName() string {
	return s.slave.Name()
}

// SetSize sets the terminal size seen by the child.
func (s *Session) SetSize(rows, cols uint16) error {
	return pty.Setsize(s.master, &pty.Winsize{Rows: rows, Cols: cols})
}

// CloseSlave releases the launcher's copy of the slave. Call it once the
// child has been started so that reads from the master end when the
// child exits.
func (s *Session) CloseSlave() error {
	if s.slave == nil {
		return nil
	}
	err := s.slave.Close()
	s.slave = nil
	return err
}

// Attach copies in to the child and the child's output to out until the
// child side is closed or ctx is done. A terminal in is switched to raw
// mode for the duration, and its window size follows SIGWINCH.
func (s *Session) Attach(ctx context.Context, in *os.File, out io.Writer) error {
	inFd := int(in.Fd())
	if term.IsTerminal(inFd) {
		old, err := term.MakeRaw(inFd)
		if err != nil {
			return fmt.Errorf("raw mode: %w", err)
		}
		defer term.Restore(inFd, old)

		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		defer signal.Stop(winch)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-winch:
					if !ok {
						return
					}
					if err := pty.InheritSize(in, s.master); err != nil {
						s.logger.Debug("pty_resize_failed", "error", err)
					}
				}
			}
		}()
	}

	// The input copy blocks in Read on in and is abandoned when the
	// output side ends.
	go func() {
		if _, err := io.Copy(s.master, in); err != nil && !isClosed(err) {
			s.logger.Debug("pty_input_ended", "error", err)
		}
	}()

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(out, s.master)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil && !isClosed(err) {
			return fmt.Errorf("pty output: %w", err)
		}
		return nil
	}
}

// Close releases both sides.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = errors.Join(s.CloseSlave(), s.master.Close())
	})
	return err
}

// isClosed reports errors that mean the other side went away. Linux
// returns EIO from the master once every slave descriptor is closed.
func isClosed(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF)
}
