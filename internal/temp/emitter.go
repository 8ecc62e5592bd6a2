// Package temp implements the Temporary Emitter: it drains the
// Shunting-Yard Queue's postfix token stream and materializes IR
// quadruples, minting fresh temporaries for intermediate results and
// _pN_M slots for call arguments.
package temp

import (
	"fmt"

	"bquad/internal/expr"
	"bquad/internal/quad"
	"bquad/internal/shunt"
	"bquad/internal/value"
)

// Emitter owns the monotonic temporary/label counters for one function
// body; a fresh Emitter is created per frame by the IR Builder.
type Emitter struct {
	tempCounter  int
	labelCounter int
	Quads        quad.Stream
}

func New() *Emitter { return &Emitter{} }

func (e *Emitter) NewTemp() string {
	e.tempCounter++
	return fmt.Sprintf("_t%d", e.tempCounter)
}

func (e *Emitter) NewLabel() string {
	e.labelCounter++
	return fmt.Sprintf("_L%d", e.labelCounter)
}

func (e *Emitter) emit(q quad.Quadruple) { e.Quads = append(e.Quads, q) }

// Append records a statement-level control-flow quadruple (LABEL, GOTO,
// IF, CMP, RETURN, LEAVE, ...) emitted directly by the IR Builder, keeping
// it in the same ordered stream as this function's expression-level
// quadruples.
func (e *Emitter) Append(q quad.Quadruple) { e.emit(q) }

func operandText(x expr.Expr) string {
	switch n := x.(type) {
	case *expr.Literal:
		return n.Data.String()
	case *expr.LValueExpr:
		return n.LV.Name
	case *expr.Array:
		if len(n.Items) == 0 {
			return "(null:null:8)"
		}
		return n.Items[0].String()
	default:
		return ""
	}
}

func pop(stack *[]string) string {
	n := len(*stack)
	v := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return v
}

var prefixUnary = map[value.Operator]string{
	value.OpAddrOf: "&", value.OpDeref: "*",
	value.OpUMinus: "-", value.OpUPlus: "+",
	value.OpLogNot: "!", value.OpBitNot: "~",
	value.OpPreInc: "++", value.OpPreDec: "--",
}

var postfixUnary = map[value.Operator]string{
	value.OpPostInc: "++", value.OpPostDec: "--",
}

// Emit consumes a flattened Expression (the postfix token stream from
// internal/shunt) and returns the emitter's whole accumulated quadruple
// stream, with this expression's quadruples appended, plus the name of the
// operand holding the result.
func (e *Emitter) Emit(tokens []shunt.Token) (quad.Stream, string) {
	var operands []string
	argSlots := map[int][]string{}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.Kind {
		case shunt.TokOperand:
			operands = append(operands, operandText(t.Operand))
		case shunt.TokOperator:
			if t.Op == value.OpTernary && i+1 < len(tokens) &&
				tokens[i+1].Kind == shunt.TokOperator && tokens[i+1].Op == value.OpAssign {
				e.emitTernaryAssign(&operands)
				i++ // the ASSIGN token is consumed here: each branch already wrote into the lvalue
				continue
			}
			e.emitOperator(t, &operands, argSlots)
		}
	}
	if len(operands) == 0 {
		return e.Quads, ""
	}
	return e.Quads, operands[len(operands)-1]
}

func (e *Emitter) emitOperator(t shunt.Token, operands *[]string, argSlots map[int][]string) {
	switch t.Op {
	case value.OpPush:
		v := pop(operands)
		slot := fmt.Sprintf("_p%d_%d", t.CallIndex, t.ArgIndex)
		e.emit(quad.New(quad.VARIABLE, slot, v, ""))
		argSlots[t.CallIndex] = append(argSlots[t.CallIndex], slot)
	case value.OpCall:
		for _, slot := range argSlots[t.CallIndex] {
			e.emit(quad.New(quad.PUSH, slot, "", ""))
		}
		e.emit(quad.New(quad.CALL, t.Callee.Name, fmt.Sprintf("%d", t.ArgCount), ""))
		result := e.NewTemp()
		e.emit(quad.New(quad.VARIABLE, result, "RET", ""))
		*operands = append(*operands, result)
	case value.OpAssign:
		rhs := pop(operands)
		lhs := pop(operands)
		e.emit(quad.New(quad.VARIABLE, lhs, rhs, ""))
		*operands = append(*operands, lhs)
	case value.OpTernary:
		e.emitTernary(operands)
	default:
		if sym, ok := prefixUnary[t.Op]; ok {
			e.emitUnary(t.Op, sym, false, operands)
			return
		}
		if sym, ok := postfixUnary[t.Op]; ok {
			e.emitUnary(t.Op, sym, true, operands)
			return
		}
		e.emitBinary(t.Op, operands)
	}
}

// emitUnary handles prefix/postfix unary operators. In-place operators
// (++/-- in either position) mutate their operand instead of allocating a
// fresh temporary.
func (e *Emitter) emitUnary(op value.Operator, sym string, post bool, operands *[]string) {
	x := pop(operands)
	var text string
	if post {
		text = x + sym
	} else {
		text = sym + x
	}
	if value.IsInPlaceUnary(op) {
		e.emit(quad.New(quad.VARIABLE, x, text, ""))
		*operands = append(*operands, x)
		return
	}
	result := e.NewTemp()
	e.emit(quad.New(quad.VARIABLE, result, text, ""))
	*operands = append(*operands, result)
}

func (e *Emitter) emitBinary(op value.Operator, operands *[]string) {
	rhs := pop(operands)
	lhs := pop(operands)
	result := e.NewTemp()
	text := fmt.Sprintf("%s %s %s", lhs, op.String(), rhs)
	e.emit(quad.New(quad.VARIABLE, result, text, ""))
	*operands = append(*operands, result)
}

// emitTernary lowers the 4-slot [cond, else, then, else-val] frame into
// the IF/GOTO/LABEL idiom. Unlike the statement-level if/while lowering
// (internal/ir), no separate CMP quadruple precedes the IF here: the
// ternary's IF quadruple embeds the zero-comparison directly
// ("IF _t1 == (0:int:4) GOTO _L1") rather than referencing a prior CMP.
func (e *Emitter) emitTernary(operands *[]string) {
	elseVal2 := pop(operands)
	thenVal := pop(operands)
	_ = pop(operands) // else (false-branch marker), same source expr as elseVal2
	cond := pop(operands)

	result := e.NewTemp()
	lfalse := e.NewLabel()
	ljoin := e.NewLabel()

	e.emit(quad.New(quad.IF, fmt.Sprintf("%s == (0:int:4)", cond), lfalse, ""))
	e.emit(quad.New(quad.VARIABLE, result, thenVal, ""))
	e.emit(quad.New(quad.GOTO, ljoin, "", ""))
	e.emit(quad.New(quad.LABEL, lfalse, "", ""))
	e.emit(quad.New(quad.VARIABLE, result, elseVal2, ""))
	e.emit(quad.New(quad.LABEL, ljoin, "", ""))

	*operands = append(*operands, result)
}

// emitTernaryAssign lowers `lhs = cond ? then : else` without a shared
// result temporary: each branch writes directly into lhs, matching the
// worked ternary-assignment example, whose branches end in `x = (2:int:4)`
// and `x = (3:int:4)` with no trailing mov out of a temporary. Writing
// twice into the same lhs is safe because only one branch ever executes.
func (e *Emitter) emitTernaryAssign(operands *[]string) {
	elseVal2 := pop(operands)
	thenVal := pop(operands)
	_ = pop(operands) // else (false-branch marker), same source expr as elseVal2
	cond := pop(operands)
	lhs := pop(operands)

	lfalse := e.NewLabel()
	ljoin := e.NewLabel()

	e.emit(quad.New(quad.IF, fmt.Sprintf("%s == (0:int:4)", cond), lfalse, ""))
	e.emit(quad.New(quad.VARIABLE, lhs, thenVal, ""))
	e.emit(quad.New(quad.GOTO, ljoin, "", ""))
	e.emit(quad.New(quad.LABEL, lfalse, "", ""))
	e.emit(quad.New(quad.VARIABLE, lhs, elseVal2, ""))
	e.emit(quad.New(quad.LABEL, ljoin, "", ""))

	*operands = append(*operands, lhs)
}
