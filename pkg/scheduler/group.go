package scheduler

import (
	"math"

	"github.com/jdziat/fixed-tick/pkg/core"
)

// tolerance is the fraction of an interval treated as rounding noise when
// deciding whether a tick is due, so that e.g. three deltas of 1/3s at 1/s
// fire once.
const tolerance = 1e-9

// rateGroup holds every action registered at one rate and the elapsed time
// not yet converted into ticks.
type rateGroup struct {
	rate        float64
	interval    float64
	accumulated float64

	index map[core.Action]struct{}
	order []core.Action // registration order
}

func newRateGroup(rate float64) *rateGroup {
	return &rateGroup{
		rate:     rate,
		interval: 1 / rate,
		index:    make(map[core.Action]struct{}),
	}
}

// add inserts a and reports whether it was absent.
func (g *rateGroup) add(a core.Action) bool {
	if _, ok := g.index[a]; ok {
		return false
	}
	g.index[a] = struct{}{}
	g.order = append(g.order, a)
	return true
}

// remove deletes a and reports whether it was present.
func (g *rateGroup) remove(a core.Action) bool {
	if _, ok := g.index[a]; !ok {
		return false
	}
	delete(g.index, a)
	for i, x := range g.order {
		if x == a {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return true
}

func (g *rateGroup) has(a core.Action) bool {
	_, ok := g.index[a]
	return ok
}

func (g *rateGroup) empty() bool { return len(g.index) == 0 }

// actions returns a copy of the registered actions in registration order.
func (g *rateGroup) actions() []core.Action {
	out := make([]core.Action, len(g.order))
	copy(out, g.order)
	return out
}

func (g *rateGroup) due() bool {
	return g.accumulated >= g.interval-g.interval*tolerance
}

// consume removes one interval from the accumulator. The accumulator never
// goes below zero.
func (g *rateGroup) consume() {
	g.accumulated -= g.interval
	if g.accumulated < 0 {
		g.accumulated = 0
	}
}

// discard drops every whole interval still due and returns how many.
func (g *rateGroup) discard() int {
	n := int(math.Floor(g.accumulated / g.interval))
	g.accumulated -= float64(n) * g.interval
	for g.due() {
		g.consume()
		n++
	}
	if g.accumulated < 0 {
		g.accumulated = 0
	}
	return n
}
