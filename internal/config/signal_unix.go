//go:build unix

package config

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const maxSignal = 64

func signalNum(name string) syscall.Signal {
	return unix.SignalNum(name)
}
