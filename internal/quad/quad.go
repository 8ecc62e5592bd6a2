// Package quad defines the IR's instruction tuple: the Instruction enum
// and the Quadruple struct every later stage (Context Pass, Type Checker,
// Backend Visitor) reads.
package quad

import "strings"

// Instruction is the quadruple opcode.
type Instruction int

const (
	NOOP Instruction = iota
	FUNC_START
	FUNC_END
	LABEL
	GOTO
	IF
	PUSH
	POP
	CALL
	CMP
	VARIABLE
	RETURN
	LEAVE
	EOL
)

// String renders an instruction the way the IR textual form spells it,
// matching the original's operator<<(Instruction) table exactly.
func (i Instruction) String() string {
	switch i {
	case FUNC_START:
		return "BeginFunc"
	case FUNC_END:
		return "EndFunc"
	case VARIABLE:
		return "="
	case CMP:
		return "CMP"
	case RETURN:
		return "RET"
	case LEAVE:
		return "LEAVE"
	case IF:
		return "IF"
	case PUSH:
		return "PUSH"
	case POP:
		return "POP"
	case CALL:
		return "CALL"
	case GOTO:
		return "GOTO"
	case EOL:
		return ";"
	default:
		return ""
	}
}

// Quadruple is the 4-tuple (Instruction, a, b, c). Represented as a named
// struct rather than a bare tuple, since Go has none and a struct keeps
// the textual-canonicalization invariant enforceable per field.
type Quadruple struct {
	Op Instruction
	A  string
	B  string
	C  string
}

func New(op Instruction, a, b, c string) Quadruple { return Quadruple{Op: op, A: a, B: b, C: c} }

// Stream is the flat sequence of quadruples produced by the IR Builder and
// consumed by the Context Pass.
type Stream []Quadruple

// String renders the whole stream as newline-separated IR text.
func (s Stream) String() string {
	var sb strings.Builder
	for _, q := range s {
		sb.WriteString(q.Text())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Text renders one quadruple in the IR textual form.
func (q Quadruple) Text() string {
	switch q.Op {
	case LABEL:
		return q.A + ":"
	case FUNC_START:
		return "BeginFunc"
	case FUNC_END:
		return "EndFunc"
	case VARIABLE:
		if q.C != "" {
			return q.A + " = " + q.B + " " + q.C
		}
		return q.A + " = " + q.B
	case GOTO:
		return "GOTO " + q.A
	case IF:
		return "IF " + q.A + " GOTO " + q.B
	case PUSH:
		return "PUSH " + q.A
	case POP:
		if q.A != "" {
			return "POP " + q.A
		}
		return "POP"
	case CALL:
		return "CALL " + q.A
	case RETURN:
		return "RET " + q.A
	case LEAVE:
		return "LEAVE"
	case CMP:
		return "CMP " + q.A + " " + q.B
	default:
		return ""
	}
}
