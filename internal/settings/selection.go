package settings

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptySelection is returned when a toggle would deselect the last
	// enabled option. The selection is left unchanged.
	ErrEmptySelection = errors.New("at least one option must remain selected")
	// ErrUnknownOption is returned for values outside the option list.
	ErrUnknownOption = errors.New("unknown option")
)

// Selection is an immutable non-empty multi-select over a fixed option list.
// Every operation returns a new value; the zero Selection is invalid and only
// exists so structs can be declared before being filled from defaults.
type Selection[T ~string] struct {
	options []T
	mask    uint32
}

// NewSelection creates a selection over options with the given values on.
func NewSelection[T ~string](options []T, selected ...T) (Selection[T], error) {
	s := Selection[T]{options: options}
	for _, v := range selected {
		i := s.index(v)
		if i < 0 {
			return Selection[T]{}, fmt.Errorf("%w: %q", ErrUnknownOption, v)
		}
		s.mask |= 1 << i
	}
	if s.mask == 0 {
		return Selection[T]{}, ErrEmptySelection
	}
	return s, nil
}

func mustSelection[T ~string](options []T, selected ...T) Selection[T] {
	s, err := NewSelection(options, selected...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Selection[T]) index(v T) int {
	for i, o := range s.options {
		if o == v {
			return i
		}
	}
	return -1
}

// Has reports whether v is selected.
func (s Selection[T]) Has(v T) bool {
	i := s.index(v)
	return i >= 0 && s.mask&(1<<i) != 0
}

// Len returns the number of selected options.
func (s Selection[T]) Len() int {
	n := 0
	for m := s.mask; m != 0; m &= m - 1 {
		n++
	}
	return n
}

// Options returns the full option list.
func (s Selection[T]) Options() []T { return s.options }

// Selected returns the selected values in option order.
func (s Selection[T]) Selected() []T {
	out := make([]T, 0, len(s.options))
	for i, o := range s.options {
		if s.mask&(1<<i) != 0 {
			out = append(out, o)
		}
	}
	return out
}

// Toggle flips v. Deselecting the last selected option is refused with
// ErrEmptySelection and the original selection is returned.
func (s Selection[T]) Toggle(v T) (Selection[T], error) {
	i := s.index(v)
	if i < 0 {
		return s, fmt.Errorf("%w: %q", ErrUnknownOption, v)
	}
	next := s
	next.mask ^= 1 << i
	if next.mask == 0 {
		return s, ErrEmptySelection
	}
	return next, nil
}

func (s Selection[T]) String() string {
	parts := make([]string, 0, len(s.options))
	for _, v := range s.Selected() {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, "+")
}

func (s Selection[T]) MarshalYAML() (any, error) {
	out := make([]string, 0, len(s.options))
	for _, v := range s.Selected() {
		out = append(out, string(v))
	}
	return out, nil
}

// UnmarshalYAML replaces the selected set, keeping the receiver's option
// list, so the receiver must already hold a default.
func (s *Selection[T]) UnmarshalYAML(node *yaml.Node) error {
	var values []string
	if err := node.Decode(&values); err != nil {
		return err
	}
	selected := make([]T, len(values))
	for i, v := range values {
		selected[i] = T(strings.ToLower(strings.TrimSpace(v)))
	}
	next, err := NewSelection(s.options, selected...)
	if err != nil {
		return err
	}
	*s = next
	return nil
}
