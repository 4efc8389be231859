package emulator

import (
	"context"
	"fmt"
	"time"

	"emuram/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// State is the attachment state of a Session
type State int

const (
	Unattached State = iota
	Discovering
	Attached
	// Degraded means keep-alive succeeded but the RAM pointer currently reads null
	Degraded
	// Lost means keep-alive failed; the next Update runs discovery again
	Lost
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Discovering:
		return "discovering"
	case Attached:
		return "attached"
	case Degraded:
		return "degraded"
	case Lost:
		return "lost"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session drives one Locator against one process. It owns the locator's
// state exclusively and is not safe for concurrent use.
type Session[R any] struct {
	proc    process.Process
	locator Locator[R]
	isNull  func(R) bool
	ram     R
	state   State
	log     *logger.Logger
}

// NewSession binds a fresh locator to proc. isNull reports whether a RamBase
// is the transient null placeholder; it may be nil.
func NewSession[R any](name string, proc process.Process, locator Locator[R], isNull func(R) bool) *Session[R] {
	if isNull == nil {
		isNull = func(R) bool { return false }
	}
	return &Session[R]{
		proc:    proc,
		locator: locator,
		isNull:  isNull,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "session-"+name)),
	}
}

// Update runs discovery when nothing is located yet, then the liveness
// check. It returns true while RAM is usable (Attached or Degraded).
func (s *Session[R]) Update() bool {
	if s.state != Attached && s.state != Degraded {
		s.state = Discovering
		ram, ok := s.locator.FindRAM(s.proc)
		if !ok {
			s.state = Unattached
			return false
		}
		s.ram = ram
		s.log.Infoln("RAM located:", ram)
	}

	ram := s.ram
	if !s.locator.KeepAlive(s.proc, &ram) {
		var zero R
		s.ram = zero
		s.setState(Lost)
		return false
	}

	s.ram = ram
	if s.isNull(ram) {
		s.setState(Degraded)
	} else {
		s.setState(Attached)
	}
	return true
}

func (s *Session[R]) setState(next State) {
	if next == s.state {
		return
	}
	switch next {
	case Degraded:
		s.log.Warn("RAM pointer is null, waiting for the emulator")
	case Lost:
		s.log.Infoln("RAM lost, will rediscover")
	default:
		s.log.Debugln("state", s.state, "->", next)
	}
	s.state = next
}

// RAM returns the located RamBase while Attached or Degraded
func (s *Session[R]) RAM() (R, bool) {
	if s.state != Attached && s.state != Degraded {
		var zero R
		return zero, false
	}
	return s.ram, true
}

func (s *Session[R]) State() State {
	return s.state
}

func (s *Session[R]) Process() process.Process {
	return s.proc
}

// Run calls Update every interval until ctx is done or the process exits,
// passing each result to fn.
func (s *Session[R]) Run(ctx context.Context, interval time.Duration, fn func(ram R, ok bool)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok := s.Update()
		ram, _ := s.RAM()
		if fn != nil {
			fn(ram, ok)
		}
		if !s.proc.IsOpen() {
			return process.ErrProcessNotOpen
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
