//go:build !linux

package supervisor

import "syscall"

func waitTerminated(int) error {
	return ErrUnsupported
}

func reap(int) (Result, error) {
	return Result{}, ErrUnsupported
}

func kill(int, syscall.Signal) error {
	return ErrUnsupported
}
