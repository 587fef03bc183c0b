// Package fsm holds closed transition tables for entity status machines.
package fsm

import (
	"errors"
	"fmt"

	"seeker-engine/pkg/errutil"
)

// ErrIllegalTransition is matched by every *TransitionError.
var ErrIllegalTransition = errors.New("illegal state transition")

type TransitionError struct {
	Machine string
	From    string
	Event   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot apply %q in state %q", e.Machine, e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func (e *TransitionError) Status() errutil.CoreStatus {
	return errutil.StatusConflict
}

type Rule[S, E comparable] struct {
	From  S
	Event E
	To    S
}

// Machine is an immutable {state x event -> state} table. Pairs that are
// not in the table are rejected.
type Machine[S, E comparable] struct {
	name  string
	table map[S]map[E]S
}

func New[S, E comparable](name string, rules ...Rule[S, E]) *Machine[S, E] {
	table := make(map[S]map[E]S, len(rules))
	for _, r := range rules {
		if table[r.From] == nil {
			table[r.From] = make(map[E]S)
		}
		table[r.From][r.Event] = r.To
	}
	return &Machine[S, E]{name: name, table: table}
}

func (m *Machine[S, E]) Next(from S, event E) (S, error) {
	if to, ok := m.table[from][event]; ok {
		return to, nil
	}

	var zero S
	return zero, &TransitionError{
		Machine: m.name,
		From:    fmt.Sprint(from),
		Event:   fmt.Sprint(event),
	}
}

func (m *Machine[S, E]) Can(from S, event E) bool {
	_, ok := m.table[from][event]
	return ok
}

// IsTerminal reports whether no event leaves s.
func (m *Machine[S, E]) IsTerminal(s S) bool {
	return len(m.table[s]) == 0
}
