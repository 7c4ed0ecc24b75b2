package service

import "github.com/marschhuynh/agentcore/internal/domain/entity"

// LoopDetector guards against a turn spinning on the same tool call
// repeatedly (SPEC_FULL.md §1.3). Disabled by its zero value (Threshold<=0).
type LoopDetector struct {
	Threshold int // identical (name, arguments) calls in a row before tripping

	lastName string
	lastArgs string
	repeats  int
}

// Observe records one dispatched tool call and reports whether the loop
// guard has tripped.
func (d *LoopDetector) Observe(name, argumentsJSON string) bool {
	if d.Threshold <= 0 {
		return false
	}
	if name == d.lastName && argumentsJSON == d.lastArgs {
		d.repeats++
	} else {
		d.lastName, d.lastArgs, d.repeats = name, argumentsJSON, 1
	}
	return d.repeats >= d.Threshold
}

// CostGuard bounds a turn by an accumulated soft token budget
// (SPEC_FULL.md §1.3). Disabled by its zero value (Budget<=0).
type CostGuard struct {
	Budget int
	spent  int
}

func (g *CostGuard) Add(usage entity.Usage) {
	g.spent += usage.TotalTokens
}

func (g *CostGuard) Exceeded() bool {
	return g.Budget > 0 && g.spent >= g.Budget
}
