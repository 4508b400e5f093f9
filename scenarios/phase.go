package scenarios

import "fmt"

// Phase is where a scenario is in its life cycle.
//
//	Setup -> Navigated -> Acting -> Asserted -> Done
//
// Acting and Asserted may alternate, since a scenario can check a page and then keep using it.
// Any failure moves the scenario to Failed. Done and Failed are terminal.
type Phase int

const (
	PhaseSetup Phase = iota
	PhaseNavigated
	PhaseActing
	PhaseAsserted
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseNavigated:
		return "navigated"
	case PhaseActing:
		return "acting"
	case PhaseAsserted:
		return "asserted"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

var allowedTransitions = map[Phase][]Phase{
	PhaseSetup:     {PhaseNavigated, PhaseDone},
	PhaseNavigated: {PhaseActing, PhaseAsserted, PhaseDone},
	PhaseActing:    {PhaseActing, PhaseAsserted, PhaseDone},
	PhaseAsserted:  {PhaseActing, PhaseAsserted, PhaseDone},
}

// CanMoveTo reports whether a scenario in phase p may move to phase next. Moving to Failed is
// always allowed from a non-terminal phase.
func (p Phase) CanMoveTo(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	for _, allowed := range allowedTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}
