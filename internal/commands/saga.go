package commands

import (
	"context"
	"fmt"
	"log"
)

// step pairs an action with the compensation that undoes it. A nil
// compensation means the action leaves nothing to undo.
type step struct {
	name       string
	action     func(context.Context) error
	compensate func(context.Context) error
}

// saga is an ordered list of steps approximating a transaction across
// systems that share none. There are always exactly two participants here
// (the local store and the platform), so a full two-phase commit is
// unnecessary.
type saga struct {
	steps []step
}

func (s *saga) add(name string, action, compensate func(context.Context) error) {
	s.steps = append(s.steps, step{name: name, action: action, compensate: compensate})
}

// run executes the actions in order. On failure it runs the compensations of
// already-applied steps in reverse and returns the original error. A failed
// compensation is logged; the original failure still propagates.
func (s *saga) run(ctx context.Context) error {
	for i, st := range s.steps {
		if err := st.action(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if s.steps[j].compensate == nil {
					continue
				}
				if cerr := s.steps[j].compensate(ctx); cerr != nil {
					log.Printf("WARN: commands: compensate %q: %v", s.steps[j].name, cerr)
				}
			}
			return fmt.Errorf("%s: %w", st.name, err)
		}
	}
	return nil
}
