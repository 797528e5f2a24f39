// Package accumulator implements a single-register calculator engine driven by
// discrete input tokens.
//
// An Accumulator is not safe for concurrent use. Callers that share one across
// goroutines go through session.Controller, which owns it on a single goroutine.
package accumulator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Control tokens. Every token that is not an operator or one of these is
// appended to the number being typed.
const (
	TokenEquals    = "="
	TokenClear     = "ac"
	TokenBackspace = "<"
)

// HistoryEntry is one completed computation.
type HistoryEntry struct {
	Left     float64
	Operator Operator
	Right    float64
	Result   float64
}

// String renders the entry as "<left> <op> <right> = <result>".
func (e HistoryEntry) String() string {
	return fmt.Sprintf("%s %s %s = %s",
		FormatNumber(e.Left), e.Operator, FormatNumber(e.Right), FormatNumber(e.Result))
}

// pending is the left operand and operator captured while the right operand
// is typed. Holding both behind one pointer keeps them set and cleared together.
type pending struct {
	left float64
	op   Operator
}

// Accumulator holds the calculator state.
type Accumulator struct {
	current string
	pending *pending
	history []HistoryEntry
}

// New returns an accumulator in its identity state: display "0", nothing
// pending, empty history.
func New() *Accumulator {
	return &Accumulator{}
}

// Submit feeds one input token to the accumulator.
//
// Only ErrDivisionByZero and ErrInvalidOperation are reported; both leave the
// state untouched. Operators with nothing typed, and "=" without a pending
// operator or with unparseable number text, are ignored.
func (a *Accumulator) Submit(token string) error {
	if op, ok := ParseOperator(token); ok {
		a.acceptOperator(op)
		return nil
	}

	switch token {
	case TokenEquals:
		return a.evaluate()
	case TokenClear:
		a.Clear()
	case TokenBackspace:
		a.backspace()
	default:
		a.current += token
	}

	return nil
}

func (a *Accumulator) acceptOperator(op Operator) {
	if a.current == "" {
		return
	}

	left, err := ParseNumber(a.current)
	if err != nil {
		return
	}

	a.pending = &pending{left: left, op: op}
	a.current = ""
}

func (a *Accumulator) evaluate() error {
	if a.pending == nil {
		return nil
	}

	right, err := ParseNumber(a.current)
	if err != nil {
		return nil
	}

	result, err := Apply(a.pending.op, a.pending.left, right)
	if err != nil {
		return err
	}

	a.history = append(a.history, HistoryEntry{
		Left:     a.pending.left,
		Operator: a.pending.op,
		Right:    right,
		Result:   result,
	})
	a.current = FormatNumber(result)
	a.pending = nil

	return nil
}

// Clear resets the number being typed and any pending operation. History is kept.
func (a *Accumulator) Clear() {
	a.current = ""
	a.pending = nil
}

func (a *Accumulator) backspace() {
	if a.current == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(a.current)
	a.current = a.current[:len(a.current)-size]
}

// Display returns the text currently shown: "0" when nothing is typed.
func (a *Accumulator) Display() string {
	if a.current == "" {
		return "0"
	}
	return a.current
}

// CurrentNumber returns the raw text of the number being typed.
func (a *Accumulator) CurrentNumber() string {
	return a.current
}

// Pending returns the captured left operand and operator, if any.
func (a *Accumulator) Pending() (float64, Operator, bool) {
	if a.pending == nil {
		return 0, 0, false
	}
	return a.pending.left, a.pending.op, true
}

// Entries returns a copy of the history, oldest first.
func (a *Accumulator) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(a.history))
	copy(out, a.history)
	return out
}

// HistoryLen returns the number of completed computations.
func (a *Accumulator) HistoryLen() int {
	return len(a.history)
}

// Last returns the most recent history entry.
func (a *Accumulator) Last() (HistoryEntry, bool) {
	if len(a.history) == 0 {
		return HistoryEntry{}, false
	}
	return a.history[len(a.history)-1], true
}

// History returns the rendered history, oldest first.
func (a *Accumulator) History() []string {
	out := make([]string, len(a.history))
	for i, e := range a.history {
		out[i] = e.String()
	}
	return out
}

// ---------------------------------------------------------------------------
// Replay
// ---------------------------------------------------------------------------

// Replay makes the result of a rendered history entry the number being typed.
// Text without a "=" separator, or whose result does not parse, yields "0".
func (a *Accumulator) Replay(rendered string) {
	a.current = ResultOf(rendered)
}

// ReplayEntry makes e.Result the number being typed.
func (a *Accumulator) ReplayEntry(e HistoryEntry) {
	a.current = FormatNumber(e.Result)
}

// ReplayAt replays the history entry at index.
func (a *Accumulator) ReplayAt(index int) error {
	if index < 0 || index >= len(a.history) {
		return fmt.Errorf("%w: index %d of %d", ErrEntryNotFound, index, len(a.history))
	}
	a.ReplayEntry(a.history[index])
	return nil
}

// ResultOf extracts the result text from a rendered history entry.
func ResultOf(rendered string) string {
	i := strings.LastIndex(rendered, TokenEquals)
	if i < 0 {
		return "0"
	}

	result := strings.TrimSpace(rendered[i+len(TokenEquals):])
	if _, err := ParseNumber(result); err != nil {
		return "0"
	}

	return result
}
