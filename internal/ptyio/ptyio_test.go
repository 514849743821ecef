//go:build linux

package ptyio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
)

func openTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := Open(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Stdio(t *testing.T) {
	s := openTestSession(t)

	stdio := s.Stdio()
	if stdio.Stdin == nil || stdio.Stdin != stdio.Stdout || stdio.Stdout != stdio.Stderr {
		t.Errorf("Stdio() = %+v, want the slave three times", stdio)
	}
	if !strings.HasPrefix(s.SlaveName(), "/dev/pts/") {
		t.Errorf("SlaveName() = %q", s.SlaveName())
	}
}

func TestSetSize(t *testing.T) {
	s := openTestSession(t)

	if err := s.SetSize(40, 132); err != nil {
		t.Fatalf("SetSize: %v", err)
	}
	rows, cols, err := pty.Getsize(s.Master())
	if err != nil {
		t.Fatalf("Getsize: %v", err)
	}
	if rows != 40 || cols != 132 {
		t.Errorf("size = %dx%d, want 40x132", rows, cols)
	}
}

func TestAttach_CopiesOutputUntilSlaveCloses(t *testing.T) {
	s := openTestSession(t)

	// Play the child: write to the slave, then go away.
	slave := s.Stdio().Stdout
	child, err := os.OpenFile(slave.Name(), os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open slave: %v", err)
	}
	if err := s.CloseSlave(); err != nil {
		t.Fatalf("CloseSlave: %v", err)
	}

	in, inW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	defer inW.Close()

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Attach(ctx, in, &out) }()

	if _, err := child.Write([]byte("hello from child\n")); err != nil {
		t.Fatalf("write slave: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	child.Close()

	if err := <-errCh; err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !strings.Contains(out.String(), "hello from child") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAttach_ContextCancel(t *testing.T) {
	s := openTestSession(t)

	in, inW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	defer inW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Attach(ctx, in, io.Discard) }()

	cancel()
	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("Attach = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Attach ignored cancellation")
	}
}

func TestClose_Idempotent(t *testing.T) {
	s := openTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
