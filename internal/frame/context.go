package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"bquad/internal/diag"
	"bquad/internal/quad"
	"bquad/internal/value"
)

// pass holds the mutable state of the single linear scan.
type pass struct {
	objects *ObjectTable
	active  *Frame
	cleaned quad.Stream
}

// Run executes the Context Pass over a raw quadruple stream, returning the
// populated Object Table and the GOTO-deduplicated stream.
func Run(stream quad.Stream) (*ObjectTable, quad.Stream, error) {
	p := &pass{objects: NewObjectTable()}
	for _, q := range stream {
		if err := p.step(q); err != nil {
			return nil, nil, err
		}
	}
	return p.objects, p.cleaned, nil
}

func (p *pass) lastOp() quad.Instruction {
	if len(p.cleaned) == 0 {
		return quad.NOOP
	}
	return p.cleaned[len(p.cleaned)-1].Op
}

func (p *pass) step(q quad.Quadruple) error {
	switch q.Op {
	case quad.GOTO:
		if p.lastOp() == quad.GOTO {
			// Consecutive GOTOs: the second is dropped.
			return nil
		}
		p.append(q)
		return nil
	case quad.FUNC_START:
		return p.onFuncStart(q)
	case quad.FUNC_END:
		return p.onFuncEnd(q)
	case quad.LABEL:
		p.append(q)
		if p.active != nil {
			if p.active.Labels[q.A] {
				return diag.New(diag.DuplicateSymbol,
					"symbol of symbolic label is already defined").
					WithSymbol(q.A).WithFunction(p.active.Label)
			}
			p.active.Labels[q.A] = true
		}
		return nil
	case quad.VARIABLE:
		p.append(q)
		return p.onVariable(q)
	case quad.POP:
		p.append(q)
		if p.active != nil && q.A != "" {
			p.active.Parameters = append(p.active.Parameters, q.A)
		}
		return nil
	case quad.RETURN:
		p.append(q)
		if p.active != nil && q.A != "" {
			p.active.RetSymbol = q.A
			p.active.RetValue = p.returnValueText(q.A)
		}
		return nil
	default:
		p.append(q)
		return nil
	}
}

func (p *pass) append(q quad.Quadruple) { p.cleaned = append(p.cleaned, q) }

// returnValueText resolves the textual rvalue behind a returned symbol for
// the frame's ret slot: a temporary's recorded text, a local's canonical
// form, or the raw name when neither is known yet.
func (p *pass) returnValueText(name string) string {
	if text, ok := p.active.Temporaries[name]; ok {
		return text
	}
	if dt, ok := p.active.Locals[name]; ok {
		return dt.String()
	}
	return name
}

func (p *pass) onFuncStart(q quad.Quadruple) error {
	// FUNC_START is preceded by the function's own LABEL; this
	// pairing is fragile under reordering, a limitation inherited
	// unchanged from the source design.
	if len(p.cleaned) == 0 || p.cleaned[len(p.cleaned)-1].Op != quad.LABEL {
		return diag.New(diag.InvalidRvalueType, "FUNC_START not preceded by a LABEL")
	}
	label := p.cleaned[len(p.cleaned)-1].A
	if _, exists := p.objects.Functions[label]; exists {
		return diag.New(diag.DuplicateSymbol, "function is already defined").WithSymbol(label)
	}
	f := newFrame(label)
	f.AddressLocation[0] = len(p.cleaned) - 1
	p.active = f
	p.append(q)
	return nil
}

func (p *pass) onFuncEnd(q quad.Quadruple) error {
	p.append(q)
	if p.active == nil {
		return diag.New(diag.InvalidRvalueType, "FUNC_END without an active function")
	}
	p.active.AddressLocation[1] = len(p.cleaned)
	p.active.Instructions = append(quad.Stream{}, p.cleaned[p.active.AddressLocation[0]:p.active.AddressLocation[1]]...)
	p.sealTemporaries(p.active)
	p.objects.addFunction(p.active.Label, p.active)
	p.active = nil
	return nil
}

// sealTemporaries folds the live temporaries' sizes into the frame's byte
// total. A temporary allocates nothing at its defining VARIABLE quadruple,
// but it still occupies frame storage, so the running total picks it up
// once the function is sealed. Temporaries whose rvalue cannot resolve to
// a size here (the "RET" marker a call emits) are skipped.
func (p *pass) sealTemporaries(f *Frame) {
	for name := range f.Temporaries {
		dt, err := p.resolveTemporaryChain(name, f)
		if err != nil {
			continue
		}
		f.Allocation += uint32(dt.Bytes)
	}
}

// isTemporary matches the "_tN" / "_pN_M" temporary-name invariant.
func isTemporary(name string) bool {
	return strings.HasPrefix(name, "_t") || strings.HasPrefix(name, "_p")
}

func (p *pass) onVariable(q quad.Quadruple) error {
	lhs, rhs := q.A, q.B
	active := p.active

	if isTemporary(lhs) {
		if active != nil {
			active.Temporaries[lhs] = rhs
		}
		return nil
	}

	if size, ok := vectorDeclSize(rhs); ok {
		// A vector_lvalue/vector_definition declaration: registers a Vector
		// in the Object Table instead of a scalar Local, regardless of
		// whether it is function-local or file-scope.
		p.objects.addVector(lhs, newVector(lhs, size))
		return nil
	}

	if strings.Contains(lhs, "[") || strings.Contains(rhs, "[") {
		return p.onVectorSlotAssign(lhs, rhs, active)
	}

	if active == nil {
		// A top-level VARIABLE outside any frame hoists a global symbol.
		dt, err := p.resolveRValue(rhs, nil)
		if err != nil {
			return err
		}
		p.objects.Hoisted[lhs] = dt
		return nil
	}

	if strings.HasPrefix(rhs, "_t") {
		dt, err := p.resolveTemporaryChain(rhs, active)
		if err != nil {
			return err
		}
		p.reallocate(active, lhs, dt)
		return nil
	}

	if global, ok := p.objects.Hoisted[rhs]; ok {
		p.reallocate(active, lhs, global)
		return nil
	}

	dt, err := p.resolveRValue(rhs, active)
	if err != nil {
		return err
	}
	p.reallocate(active, lhs, dt)
	return nil
}

// vectorDeclSize recognizes the "(size:vector:8)" marker the IR Builder
// emits for a vector_lvalue/vector_definition declaration, distinguishing
// it from an ordinary scalar assignment so the Context Pass routes it to
// the Object Table's Vectors map instead of a Frame's Locals.
func vectorDeclSize(rhs string) (int, bool) {
	dt, err := parseCanonical(rhs)
	if err != nil || dt.Type != "vector" {
		return 0, false
	}
	n, err := strconv.Atoi(string(dt.Value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// onVectorSlotAssign handles a VARIABLE quadruple where either side is a
// "name[offset]" subscript, recording the resolved element type into the
// Object Table's Vector rather than the Frame's scalar Locals.
func (p *pass) onVectorSlotAssign(lhs, rhs string, active *Frame) error {
	if label, offset, ok := splitVectorSlot(lhs); ok {
		dt, err := p.resolveVectorRHS(rhs, active)
		if err != nil {
			return err
		}
		if v, ok := p.objects.Vectors[label]; ok {
			v.Data[offset] = dt
		}
		return nil
	}
	if label, offset, ok := splitVectorSlot(rhs); ok {
		v, ok := p.objects.Vectors[label]
		if !ok || active == nil {
			return nil
		}
		dt := v.Data[offset]
		p.reallocate(active, lhs, dt)
		return nil
	}
	return nil
}

func splitVectorSlot(name string) (label, offset string, ok bool) {
	i := strings.IndexByte(name, '[')
	j := strings.LastIndexByte(name, ']')
	if i < 0 || j < 0 || j < i {
		return "", "", false
	}
	return name[:i], name[i+1 : j], true
}

// resolveVectorRHS resolves the value assigned into a vector slot: another
// vector slot, a temporary chain, a hoisted global, or a plain rvalue.
func (p *pass) resolveVectorRHS(rhs string, active *Frame) (value.DataType, error) {
	if label, offset, ok := splitVectorSlot(rhs); ok {
		if v, ok := p.objects.Vectors[label]; ok {
			return v.Data[offset], nil
		}
		return value.DataType{}, nil
	}
	if strings.HasPrefix(rhs, "_t") && active != nil {
		return p.resolveTemporaryChain(rhs, active)
	}
	if global, ok := p.objects.Hoisted[rhs]; ok {
		return global, nil
	}
	return p.resolveRValue(rhs, active)
}

// reallocate records lhs's new DataType, subtracting its prior size first
// when this is a re-declaration.
func (p *pass) reallocate(f *Frame, lhs string, dt value.DataType) {
	if prior, exists := f.Locals[lhs]; exists {
		f.Allocation -= uint32(prior.Bytes)
	}
	f.Allocation += uint32(dt.Bytes)
	f.Locals[lhs] = dt
}

func (p *pass) resolveTemporaryChain(name string, f *Frame) (value.DataType, error) {
	text, ok := f.Temporaries[name]
	if !ok {
		return value.DataType{}, diag.New(diag.UndeclaredIdentifier,
			fmt.Sprintf("temporary %q was never recorded", name)).WithFunction(f.Label)
	}
	if strings.HasPrefix(text, "_t") {
		return p.resolveTemporaryChain(text, f)
	}
	return p.resolveRValue(text, f)
}

var unaryPrefixes = []string{"++", "--", "~", "&", "*", "+", "-"}

// resolveRValue resolves a textual rvalue to its (value, type, size)
// tuple: via a temporary/hoisted/local lookup when the text names one, via
// binary- or unary-expression resolution when the text is a compound form,
// otherwise via parsing the canonical literal wire format.
func (p *pass) resolveRValue(text string, f *Frame) (value.DataType, error) {
	if f != nil && isTemporary(text) {
		return p.resolveTemporaryChain(text, f)
	}
	if global, ok := p.objects.Hoisted[text]; ok {
		return global, nil
	}
	if f != nil {
		if dt, ok := f.Locals[text]; ok {
			return dt, nil
		}
	}
	if op, lhsText, rhsText, ok := splitBinary(text); ok {
		lhs, err := p.resolveRValue(lhsText, f)
		if err != nil {
			return value.DataType{}, err
		}
		rhs, err := p.resolveRValue(rhsText, f)
		if err != nil {
			return value.DataType{}, err
		}
		return combineBinary(op, lhs, rhs), nil
	}
	if op, operand, post, ok := splitUnary(text); ok {
		return p.resolveUnary(op, operand, post, f)
	}
	dt, err := parseCanonical(text)
	if err != nil {
		return value.DataType{}, diag.New(diag.InvalidRvalueType,
			fmt.Sprintf("cannot resolve rvalue %q", text))
	}
	if uint64(dt.Bytes) > math.MaxUint32 {
		return value.DataType{}, diag.New(diag.AllocationOverflow,
			fmt.Sprintf("symbol size %d exceeds u32::MAX", dt.Bytes))
	}
	return dt, nil
}

// splitBinary mirrors original_source/credence/typeinfo.h's
// from_rvalue_binary_expression: the left operand runs up to the first
// space, the right operand starts after the last space, and the operator
// symbol is whatever sits between them. emitBinary (internal/temp) always
// renders its rvalue text in exactly this "lhs op rhs" shape.
func splitBinary(text string) (op value.Operator, lhs, rhs string, ok bool) {
	first := strings.IndexByte(text, ' ')
	last := strings.LastIndexByte(text, ' ')
	if first < 0 || first == last {
		return value.OpNone, "", "", false
	}
	o, found := value.Symbols[text[first+1:last]]
	if !found {
		return value.OpNone, "", "", false
	}
	return o, text[:first], text[last+1:], true
}

var relationalOps = map[value.Operator]bool{
	value.OpEq: true, value.OpNeq: true, value.OpLt: true, value.OpGt: true,
	value.OpLe: true, value.OpGe: true, value.OpLogOr: true, value.OpLogAnd: true,
}

// combineBinary derives a binary expression's result type from its resolved
// operand types: relational/logical operators always yield bool; arithmetic
// and bitwise operators promote to whichever operand has the larger storage
// size, keeping the left operand's type on a tie.
func combineBinary(op value.Operator, lhs, rhs value.DataType) value.DataType {
	if relationalOps[op] {
		return value.DataType{Type: value.TagBool, Bytes: 1}
	}
	if rhs.Bytes > lhs.Bytes {
		return value.DataType{Type: rhs.Type, Bytes: rhs.Bytes}
	}
	return value.DataType{Type: lhs.Type, Bytes: lhs.Bytes}
}

func splitUnary(text string) (op, operand string, postfix bool, ok bool) {
	for _, prefix := range unaryPrefixes {
		if strings.HasPrefix(text, prefix) && len(text) > len(prefix) {
			return prefix, text[len(prefix):], false, true
		}
	}
	for _, suffix := range []string{"++", "--"} {
		if strings.HasSuffix(text, suffix) && len(text) > len(suffix) {
			return suffix, text[:len(text)-len(suffix)], true, true
		}
	}
	return "", "", false, false
}

func (p *pass) resolveUnary(op, operand string, _ bool, f *Frame) (value.DataType, error) {
	switch op {
	case "*":
		if f == nil || !f.IsPointer(operand) {
			return value.DataType{}, diag.New(diag.InvalidUnaryOperator,
				"dereference requires a pointer operand").WithSymbol(operand)
		}
		return f.Locals[operand], nil
	case "&":
		if _, err := parseCanonical(operand); err == nil {
			// Address of a literal operand is structurally a word; whether
			// the pointee is permissible is the Type Checker's call.
			return value.DataType{Value: value.TypeTag("&" + operand), Type: value.TagWord, Bytes: value.WordSize}, nil
		}
		if f == nil || !f.isDefinedLocal(operand) {
			return value.DataType{}, diag.New(diag.InvalidUnaryOperator,
				"address-of requires a declared operand").WithSymbol(operand)
		}
		return value.DataType{Value: value.TypeTag("&" + operand), Type: value.TagWord, Bytes: value.WordSize}, nil
	case "+", "-", "++", "--", "~":
		if f == nil || !f.isDefinedLocal(operand) || !value.IsIntegral(f.Locals[operand].Type) {
			return value.DataType{}, diag.New(diag.InvalidUnaryOperator,
				"invalid numeric unary expression").WithSymbol(operand)
		}
		return f.Locals[operand], nil
	default:
		return value.DataType{}, diag.New(diag.InvalidUnaryOperator,
			fmt.Sprintf("unknown unary operator %q", op))
	}
}

func (f *Frame) isDefinedLocal(name string) bool {
	_, ok := f.Locals[name]
	return ok
}

// parseCanonical decodes the "(value:type:bytes)" wire format, splitting
// from the right so a quoted string value may itself contain ':'.
func parseCanonical(text string) (value.DataType, error) {
	if len(text) < 2 || text[0] != '(' || text[len(text)-1] != ')' {
		return value.DataType{}, fmt.Errorf("not a canonical literal: %q", text)
	}
	inner := text[1 : len(text)-1]
	lastColon := strings.LastIndex(inner, ":")
	if lastColon < 0 {
		return value.DataType{}, fmt.Errorf("malformed canonical literal: %q", text)
	}
	rest := inner[:lastColon]
	bytesPart := inner[lastColon+1:]
	secondColon := strings.LastIndex(rest, ":")
	if secondColon < 0 {
		return value.DataType{}, fmt.Errorf("malformed canonical literal: %q", text)
	}
	valuePart := strings.Trim(rest[:secondColon], `"`)
	typePart := rest[secondColon+1:]
	bytes, err := strconv.Atoi(bytesPart)
	if err != nil {
		return value.DataType{}, fmt.Errorf("malformed canonical literal size: %w", err)
	}
	return value.DataType{Value: value.TypeTag(valuePart), Type: value.TypeTag(typePart), Bytes: bytes}, nil
}
