//go:build !unix

package config

import "syscall"

const maxSignal = 64

var signalNames = map[string]syscall.Signal{
	"SIGHUP":  syscall.SIGHUP,
	"SIGINT":  syscall.SIGINT,
	"SIGKILL": syscall.SIGKILL,
	"SIGTERM": syscall.SIGTERM,
}

func signalNum(name string) syscall.Signal {
	return signalNames[name]
}
