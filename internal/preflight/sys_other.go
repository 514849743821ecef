//go:build !unix

package preflight

import "errors"

func canExecute(string) error {
	return errors.ErrUnsupported
}

func fdLimit() (int, bool) {
	return 0, false
}

func processLimit() (int, bool) {
	return 0, false
}
