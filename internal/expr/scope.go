package expr

import "bquad/internal/value"

// Scope is one of the two mutable name tables (locals, globals) the
// Expression Parser consults and grows while walking a function body.
type Scope struct {
	names map[string]value.TypeTag
}

func NewScope() *Scope { return &Scope{names: map[string]value.TypeTag{}} }

func (s *Scope) Declare(name string, t value.TypeTag) { s.names[name] = t }

func (s *Scope) Lookup(name string) (value.TypeTag, bool) {
	t, ok := s.names[name]
	return t, ok
}

func (s *Scope) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}
