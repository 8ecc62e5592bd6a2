// Package typecheck implements the Type Checker: for every VARIABLE
// quadruple recorded in a function's Frame, it validates the assignment
// shape (scalar, pointer, address-of, dereference, trivial-vector, indexed
// vector) against the Object Table's locals and vectors, rejecting
// ill-typed combinations with the same diagnostics the original raises.
package typecheck

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"bquad/internal/diag"
	"bquad/internal/frame"
	"bquad/internal/quad"
	"bquad/internal/value"
)

// Checker validates one function's Frame against the shared Object Table.
type Checker struct {
	objects *frame.ObjectTable
	fr      *frame.Frame
}

func New(objects *frame.ObjectTable, fr *frame.Frame) *Checker {
	return &Checker{objects: objects, fr: fr}
}

// CheckProgram validates every function frame concurrently: once the
// Context Pass seals a frame at FUNC_END, each frame's own Locals and
// Instructions are exclusively its own, so validation fans out across
// goroutines instead of running as part of the single linear scan. The
// Object Table's Vectors and Strings remain shared across frames, which
// is what SharedMu guards against in CheckFrame below.
func CheckProgram(ctx context.Context, objects *frame.ObjectTable) error {
	g, _ := errgroup.WithContext(ctx)
	for _, name := range objects.FunctionOrder {
		fr := objects.Functions[name]
		g.Go(func() error {
			return New(objects, fr).CheckFrame()
		})
	}
	return g.Wait()
}

// CheckFrame walks the frame's instruction stream and re-validates every
// assignment shape in isolation; the Context Pass has already resolved and
// recorded each lvalue's DataType, so this stage re-derives the same
// classification the original's lhs/rhs predicates perform inline.
func (c *Checker) CheckFrame() error {
	for _, q := range c.fr.Instructions {
		if q.Op != quad.VARIABLE {
			continue
		}
		if isTemporary(q.A) {
			continue
		}
		// checkAssignment may read or write a vector's Data map or intern a
		// string literal, both owned by the shared Object Table rather than
		// this frame; a global vector referenced by more than one function
		// is visible to more than one concurrently-running CheckFrame call,
		// so each assignment check is serialized against the rest of the
		// program via SharedMu. c.fr.Locals itself needs no such lock — it
		// is this frame's own map, touched by no other goroutine.
		c.objects.SharedMu.Lock()
		err := c.checkAssignment(q.A, c.expandTemporary(q.B))
		c.objects.SharedMu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

func isTemporary(name string) bool {
	return strings.HasPrefix(name, "_t") || strings.HasPrefix(name, "_p")
}

// expandTemporary chases an rvalue through the frame's temporary map to the
// underlying expression text, so an assignment like `p = _t1` is classified
// by what _t1 computes ("&s", a literal, a binary form) rather than by the
// opaque temporary name. Temporaries are write-once, so the chain is finite.
func (c *Checker) expandTemporary(rhs string) string {
	for isTemporary(rhs) {
		text, ok := c.fr.Temporaries[rhs]
		if !ok {
			return rhs
		}
		rhs = text
	}
	return rhs
}

func (c *Checker) locals() map[string]value.DataType { return c.fr.Locals }

func (c *Checker) isVector(name string) bool {
	label := name
	if strings.Contains(name, "[") {
		label, _ = splitOffset(name)
	}
	_, ok := c.objects.Vectors[label]
	return ok
}

func (c *Checker) isPointer(name string) bool {
	if dt, ok := c.locals()[name]; ok && dataTypeIsPointer(dt) {
		return true
	}
	return strings.HasPrefix(name, "&") || isRvalueStringLiteral(name) || isRvaluePointerLiteral(name)
}

func dataTypeIsPointer(dt value.DataType) bool {
	return dt.Type == value.TagWord || dt.Type == value.TagString ||
		strings.HasPrefix(string(dt.Value), "&") || string(dt.Value) == "NULL"
}

func isRvalueStringLiteral(text string) bool {
	if len(text) < 2 || text[0] != '(' {
		return false
	}
	return strings.Contains(text, ":string:")
}

// isRvaluePointerLiteral recognizes a canonical word literal, the
// pointer-sized placeholder a parameter declaration assigns.
func isRvaluePointerLiteral(text string) bool {
	if len(text) < 2 || text[0] != '(' {
		return false
	}
	return strings.Contains(text, ":word:")
}

func isDereference(name string) bool { return strings.HasPrefix(name, "*") }

func splitOffset(name string) (label, offset string) {
	i := strings.IndexByte(name, '[')
	j := strings.LastIndexByte(name, ']')
	if i < 0 || j < 0 || j < i {
		return name, ""
	}
	return name[:i], name[i+1 : j]
}

// checkAssignment dispatches on (is-pointer, is-vector, is-dereference) of
// lhs and rhs, matching the order of checks in type_safe_assign_pointer_or_
// vector_lvalue.
func (c *Checker) checkAssignment(lhs, rhs string) error {
	if rhs == "NULL" {
		return diag.New(diag.InvalidPointerAssign,
			"invalid pointer dereference assignment, right-hand-side is a NULL pointer!").WithSymbol(lhs)
	}
	if strings.Contains(rhs, ":null:") {
		// The canonical null literal is the uninitialized marker, freely
		// assignable into any slot.
		return nil
	}
	if c.isTrivialVectorAssignment(lhs, rhs) {
		return c.checkTrivialVector(lhs, rhs)
	}
	if c.isPointer(lhs) || c.isPointer(rhs) {
		if !isDereference(rhs) {
			return c.checkPointer(lhs, rhs)
		}
	}
	if c.isVector(lhs) || c.isVector(rhs) {
		return c.checkVector(lhs, rhs)
	}
	if isDereference(lhs) || isDereference(rhs) {
		return c.checkDereference(lhs, rhs)
	}
	return c.checkScalar(lhs, rhs)
}

// isTrivialVectorAssignment reports whether either side is a vector holding
// exactly one element.
func (c *Checker) isTrivialVectorAssignment(lhs, rhs string) bool {
	if v, ok := c.objects.Vectors[lhs]; ok && len(v.Data) == 1 {
		return true
	}
	if v, ok := c.objects.Vectors[rhs]; ok && len(v.Data) == 1 {
		return true
	}
	return false
}

func (c *Checker) checkTrivialVector(lhs, rhs string) error {
	lv, lok := c.objects.Vectors[lhs]
	rv, rok := c.objects.Vectors[rhs]
	switch {
	case lok && rok:
		return c.compareVectorSlots(lv, rv, "0", "0")
	case lok:
		rdt, ok := c.locals()[rhs]
		if !ok {
			return nil
		}
		ldt := lv.Data["0"]
		if !typeEqual(ldt, rdt) {
			return diag.New(diag.InvalidVectorAssign,
				fmt.Sprintf("invalid vector assignment, left-hand-side '%s' with type '%s' is not the same type (%s)",
					lv.Symbol, ldt.Type, rdt.Type)).WithSymbol(rhs)
		}
		lv.Data["0"] = rdt
		return nil
	case rok:
		ldt, ok := c.locals()[lhs]
		rdt := rv.Data["0"]
		if ok && !typeEqual(ldt, rdt) {
			return diag.New(diag.InvalidVectorAssign,
				fmt.Sprintf("invalid lvalue assignment to a vector, left-hand-side '%s' with type '%s' is not the same type (%s)",
					lhs, ldt.Type, rdt.Type)).WithSymbol(rv.Symbol)
		}
		c.locals()[lhs] = rdt
		return nil
	}
	return nil
}

// checkPointer mirrors type_safe_assign_pointer: pointer-to-pointer,
// pointer-to-address-of, pointer-to-string-literal, and pointer-to-
// string-in-vector are all permitted; everything else is rejected with the
// side-specific "is not a pointer" diagnostic.
func (c *Checker) checkPointer(lhs, rhs string) error {
	lhsPtr := c.isPointer(lhs)
	rhsPtr := c.isPointer(rhs)

	if lhsPtr && strings.HasPrefix(rhs, "&") {
		target := rhs[1:]
		if dt, ok := c.locals()[target]; ok && dt.Type == value.TagString {
			return diag.New(diag.InvalidPointerAssign,
				fmt.Sprintf("invalid pointer assignment, right-hand-side '%s' is a pointer to string pointer, which is not allowed", rhs)).
				WithSymbol(lhs)
		}
		if isRvalueStringLiteral(target) {
			// &"..." taken directly on a string literal.
			return diag.New(diag.InvalidPointerAssign,
				fmt.Sprintf("invalid pointer assignment, right-hand-side '%s' is a pointer to string pointer, which is not allowed", rhs)).
				WithSymbol(lhs)
		}
		return nil
	}
	if lhsPtr && rhsPtr {
		return nil // pointer to pointer
	}
	if lhsPtr && isRvalueStringLiteral(rhs) {
		c.objects.Strings[rhs] = true // intern the literal into the translation unit's string set
		return nil
	}
	if lhsPtr && c.isVector(rhs) {
		label, offset := splitOffset(rhs)
		if v, ok := c.objects.Vectors[label]; ok {
			if dt, ok := v.Data[offset]; ok && dt.Type == value.TagString {
				return nil
			}
		}
	}

	if !lhsPtr {
		return diag.New(diag.InvalidPointerAssign,
			fmt.Sprintf("invalid pointer assignment, left-hand-side '%s' is not a pointer", lhs)).WithSymbol(rhs)
	}
	return diag.New(diag.InvalidPointerAssign,
		fmt.Sprintf("invalid pointer assignment, right-hand-side '%s' is not a pointer", rhs)).WithSymbol(lhs)
}

// checkDereference mirrors type_safe_assign_dereference.
func (c *Checker) checkDereference(lhs, rhs string) error {
	lhsTarget := strings.TrimPrefix(lhs, "*")
	rhsTarget := strings.TrimPrefix(rhs, "*")

	if isDereference(lhs) {
		// Writing through a pointer that still holds its uninitialized
		// null marker.
		if ldt, ok := c.locals()[lhsTarget]; ok && ldt.Type == value.TagNull {
			return diag.New(diag.InvalidPointerAssign,
				"invalid pointer dereference, right-hand-side is a null pointer").WithSymbol(lhs)
		}
	}
	if isDereference(rhs) {
		rdt, ok := c.locals()[rhsTarget]
		if ok && rdt.Type == value.TagNull {
			return diag.New(diag.InvalidPointerAssign,
				"invalid pointer dereference, right-hand-side is a null pointer").WithSymbol(lhs)
		}
	}
	if !c.isPointer(lhsTarget) && !isDereference(rhs) {
		return diag.New(diag.InvalidPointerAssign,
			"invalid pointer dereference, left-hand-side is not a pointer").WithSymbol(lhsTarget)
	}
	if !c.isPointer(rhsTarget) && !isDereference(lhs) {
		return diag.New(diag.InvalidPointerAssign,
			"invalid pointer dereference, right-hand-side is not a pointer").WithSymbol(lhsTarget)
	}
	if isDereference(lhs) {
		if rdt, ok := c.locals()[rhs]; !ok || rdt.Type != value.TagNull {
			c.locals()[lhsTarget] = c.locals()[rhs]
			return nil
		}
	}
	ldt, lok := c.locals()[lhsTarget]
	rdt, rok := c.locals()[rhsTarget]
	if lok && rok && ldt.Type != value.TagNull && !typeEqual(ldt, rdt) {
		return diag.New(diag.InvalidPointerAssign,
			fmt.Sprintf("invalid dereference assignment, dereference rvalue of left-hand-side with type '%s' is not the same type (%s)",
				ldt.Type, rdt.Type)).WithSymbol(lhs)
	}
	c.locals()[lhsTarget] = rdt
	return nil
}

// checkVector mirrors type_safe_assign_vector: vector<->vector indexed
// assignment, and mixed vector<->scalar assignment.
func (c *Checker) checkVector(lhs, rhs string) error {
	lLabel, lOffset := lhs, "0"
	if strings.Contains(lhs, "[") {
		lLabel, lOffset = splitOffset(lhs)
		if err := c.checkBounds(lhs); err != nil {
			return err
		}
	}
	rLabel, rOffset := rhs, "0"
	if strings.Contains(rhs, "[") {
		rLabel, rOffset = splitOffset(rhs)
		if err := c.checkBounds(rhs); err != nil {
			return err
		}
	}

	lv, lIsVec := c.objects.Vectors[lLabel]
	rv, rIsVec := c.objects.Vectors[rLabel]

	switch {
	case lIsVec && rIsVec:
		if err := c.compareVectorSlots(lv, rv, lOffset, rOffset); err != nil {
			return err
		}
		lv.Data[lOffset] = rv.Data[rOffset]
		return nil
	case lIsVec:
		rdt, ok := c.locals()[rLabel]
		if !ok {
			return nil
		}
		ldt := lv.Data[lOffset]
		if !typeEqual(ldt, rdt) {
			return diag.New(diag.InvalidVectorAssign,
				fmt.Sprintf("invalid vector assignment, left-hand-side '%s' with type '%s' is not the same type (%s)",
					lv.Symbol, ldt.Type, rdt.Type)).WithSymbol(rLabel)
		}
		lv.Data[lOffset] = rdt
		return nil
	case rIsVec:
		rdt := rv.Data[rOffset]
		ldt, ok := c.locals()[lLabel]
		if ok && !typeEqual(ldt, rdt) {
			return diag.New(diag.InvalidVectorAssign,
				fmt.Sprintf("invalid lvalue assignment to a vector, left-hand-side '%s' with type '%s' is not the same type (%s)",
					lLabel, ldt.Type, rdt.Type)).WithSymbol(rv.Symbol)
		}
		c.locals()[lLabel] = rdt
		return nil
	}
	return nil
}

func (c *Checker) compareVectorSlots(lv, rv *frame.Vector, lOffset, rOffset string) error {
	ldt, lok := lv.Data[lOffset]
	rdt, rok := rv.Data[rOffset]
	if !lok || !rok {
		return nil
	}
	if typeEqual(ldt, rdt) {
		return nil
	}
	if lOffset == rOffset {
		return diag.New(diag.InvalidVectorAssign,
			fmt.Sprintf("invalid vector assignment, left-hand-side '%s' with type '%s' is not the same type (%s)",
				lv.Symbol, ldt.Type, rdt.Type)).WithSymbol(rv.Symbol)
	}
	return diag.New(diag.InvalidVectorAssign,
		fmt.Sprintf("invalid vector assignment, left-hand-side '%s' at index '%s' with type '%s' is not the same type as right-hand-side vector '%s' at index '%s' (%s)",
			lv.Symbol, lOffset, ldt.Type, rv.Symbol, rOffset, rdt.Type)).WithSymbol(lv.Symbol)
}

func (c *Checker) checkScalar(lhs, rhs string) error {
	ldt, lok := c.locals()[lhs]
	if lok && ldt.Type == value.TagNull {
		return nil
	}
	if c.isPointer(lhs) && c.isPointer(rhs) {
		return nil
	}
	rdt, rok := c.locals()[rhs]
	if !lok || !rok {
		return nil
	}
	if !typeEqual(ldt, rdt) {
		return diag.New(diag.InvalidRvalueType,
			fmt.Sprintf("invalid assignment, right-hand-side '%s' with type '%s' is not the same type (%s)",
				rhs, rdt.Type, ldt.Type)).WithSymbol(lhs)
	}
	return nil
}

func typeEqual(a, b value.DataType) bool { return a.Type == b.Type }

// checkBounds mirrors is_boundary_out_of_range: the subscript must name an
// existing vector and resolve to an in-range numeric offset, or an
// identifier already declared as a local or scalar parameter.
func (c *Checker) checkBounds(subscript string) error {
	label, offset := splitOffset(subscript)
	v, ok := c.objects.Vectors[label]
	if !ok {
		return diag.New(diag.InvalidVectorAssign,
			fmt.Sprintf("invalid vector assignment, vector identifier '%s' does not exist", label)).WithSymbol(subscript)
	}
	if n, err := strconv.Atoi(offset); err == nil {
		if n > frame.MaxVectorSize {
			return diag.New(diag.OutOfRangeVector,
				fmt.Sprintf("invalid rvalue, integer offset '%d' is a buffer-overflow", n)).WithSymbol(subscript)
		}
		if n > v.Size-1 {
			return diag.New(diag.OutOfRangeVector,
				fmt.Sprintf("invalid out-of-range vector assignment '%s' at index '%d'", label, n)).WithSymbol(subscript)
		}
		return nil
	}
	if _, declared := c.locals()[offset]; !declared && !c.fr.IsParameter(offset) {
		return diag.New(diag.OutOfRangeVector,
			fmt.Sprintf("invalid vector offset '%s'", offset)).WithSymbol(subscript)
	}
	return nil
}
