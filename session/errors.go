package session

import (
	"errors"
	"fmt"

	"github.com/pixl-project/retroplayer/coreif"
)

var (
	// ErrContractMismatch is returned by Create when a core reports values
	// that differ from its descriptor.
	ErrContractMismatch = errors.New("core does not match its descriptor")

	// ErrNotReady is returned when the core has not been created.
	ErrNotReady = errors.New("core is not ready")

	// ErrNotPlaying is returned when no content is loaded.
	ErrNotPlaying = errors.New("no content is loaded")

	// ErrWrongCore is returned when content is requested for a different
	// core than this session's.
	ErrWrongCore = errors.New("content requested another core")

	// ErrNoGame is returned when opening without content on a core that
	// needs some.
	ErrNoGame = errors.New("core requires content")

	// ErrUnsupported is returned when the core did not register a callback or
	// cannot have callbacks invoked.
	ErrUnsupported = errors.New("not supported by core")
)

// FaultError reports a core call that panicked instead of returning.
type FaultError struct {
	Call  string
	Value any
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: core fault: %v", e.Call, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *FaultError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// guard runs fn, converting a panic into a *FaultError. Failures are logged
// with the call name and core identity and never escape as panics.
func guard[T any](s *Session, call string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{Call: call, Value: r}
			s.log.Error().
				Str("call", call).
				Str("client", s.clientName()).
				Interface("panic", r).
				Msg("exception caught while calling core")
			s.log.Error().Msgf("Please contact the developer of this add-on: %s", s.desc.Author)
		}
	}()

	result, err = fn()
	if err != nil {
		s.log.Error().
			Str("call", call).
			Str("client", s.clientName()).
			Stringer("status", coreif.StatusOf(err)).
			Err(err).
			Msg("core returned an error")
	}
	return result, err
}

// guardErr is guard for calls without a result.
func guardErr(s *Session, call string, fn func() error) error {
	_, err := guard(s, call, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
