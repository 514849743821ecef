//go:build !unix

package spawn

// Init is a no-op where launcher children cannot exist.
func Init() {}

func (s *Spawner) start(p payload, _ Request) (int, error) {
	s.logger.Error("launch_failed", "binary", p.Path, "error", ErrUnsupported)
	return InvalidPID, &CreationError{Path: p.Path, Err: ErrUnsupported}
}
