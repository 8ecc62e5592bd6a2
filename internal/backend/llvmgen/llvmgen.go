// Package llvmgen is a reference code generation target: it implements
// backend.Visitor by building a github.com/llir/llvm module, one llir basic
// block per LABEL quadruple, following the block-construction idiom of a
// disassembler-to-LLVM translator (entry block, per-label blocks, explicit
// terminators) rather than emitting native assembly text directly.
package llvmgen

import (
	"fmt"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"bquad/internal/backend"
	"bquad/internal/frame"
	"bquad/internal/quad"
)

// Module implements backend.Visitor; Walk drives it one quadruple at a
// time per function, exactly as any native-ISA target would.
var _ backend.Visitor = (*Module)(nil)

// Module wraps the llir module under construction plus the per-function
// translation state the Visitor methods mutate as they walk one frame's
// instruction stream.
type Module struct {
	M *ir.Module

	funcs map[string]*ir.Func // raw B function name -> declared llir.Func

	fn            *ir.Func
	blocks        map[string]*ir.Block
	cur           *ir.Block
	locals        map[string]*ir.InstAlloca
	pending       []llvalue.Value // pushed call arguments, in PUSH order
	lastCallValue llvalue.Value   // result of the most recent FromCall, read back by the "RET" operand marker
	paramIndex    int             // next fn parameter a POP quadruple binds
	err           error
}

func New() *Module {
	return &Module{M: ir.NewModule(), locals: map[string]*ir.InstAlloca{}, funcs: map[string]*ir.Func{}}
}

// Translate lowers every function recorded in the Object Table into one
// llir.Func apiece, in declaration order. Signatures are declared in a
// first pass so a CALL to a function defined later in the same translation
// unit still resolves.
func Translate(objects *frame.ObjectTable) (*ir.Module, error) {
	m := New()
	for _, name := range objects.FunctionOrder {
		fr := objects.Functions[name]
		i64 := types.I64
		params := make([]*ir.Param, 0, len(fr.Parameters))
		for _, p := range fr.Parameters {
			params = append(params, ir.NewParam(p, i64))
		}
		m.funcs[rawName(fr.Label)] = m.M.NewFunc(fr.Label, i64, params...)
	}
	for _, name := range objects.FunctionOrder {
		if err := m.translateFunction(objects.Functions[name]); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return m.M, nil
}

// rawName strips the "__" mangling prefix function labels carry to
// recover the plain callee name a CALL quadruple's operand names.
func rawName(label string) string {
	if len(label) >= 2 && label[:2] == "__" {
		return label[2:]
	}
	return label
}

func (m *Module) translateFunction(fr *frame.Frame) error {
	fn, ok := m.funcs[rawName(fr.Label)]
	if !ok {
		return fmt.Errorf("llvmgen: no declared signature for function %q", fr.Label)
	}
	m.fn = fn
	m.blocks = map[string]*ir.Block{}
	m.locals = map[string]*ir.InstAlloca{}
	m.pending = nil
	m.paramIndex = 0
	m.err = nil

	entry := fn.NewBlock("entry")
	m.cur = entry

	// Pre-create a block for every label so forward GOTO/IF targets resolve.
	for _, inst := range fr.Instructions {
		if inst.Op == quad.LABEL {
			m.blocks[inst.A] = fn.NewBlock(sanitize(inst.A))
		}
	}

	backend.Walk(m, fr.Instructions)
	if m.err != nil {
		return m.err
	}
	if m.cur.Term == nil {
		m.cur.NewRet(constant.NewInt(types.I64, 0))
	}
	return nil
}

func sanitize(label string) string {
	return fmt.Sprintf("L_%s", label)
}

// FromFuncStart and FromFuncEnd are no-ops: the Func/Block structure
// already represents frame boundaries, and (per the original's own
// fragile FUNC_START/LABEL pairing, preserved in internal/frame) the name
// argument here is not populated — translateFunction resolves the function
// being built from the Frame passed to it directly.
func (m *Module) FromFuncStart(string) {}
func (m *Module) FromFuncEnd()         {}

func (m *Module) FromLabel(inst quad.Quadruple) {
	blk, ok := m.blocks[inst.A]
	if !ok {
		return
	}
	if m.cur.Term == nil {
		m.cur.NewBr(blk)
	}
	m.cur = blk
}

func (m *Module) FromMov(inst quad.Quadruple) {
	v := m.operand(inst.B)
	m.cur.NewStore(v, m.local(inst.A))
}

func (m *Module) FromGoto(inst quad.Quadruple) {
	if blk, ok := m.blocks[inst.A]; ok {
		m.cur.NewBr(blk)
	}
}

// FromIf branches to the quadruple's GOTO target when the zero-comparison
// fails and otherwise falls through into a fresh continuation block, which
// becomes the current block for the then-body quadruples that follow. The
// true and false targets are always two distinct blocks; reusing the
// current block as a target would leave its terminator set while later
// quadruples still append to it.
func (m *Module) FromIf(inst quad.Quadruple) {
	blk, ok := m.blocks[inst.B]
	if !ok {
		return
	}
	cond := m.cur.NewICmp(enum.IPredNE, m.operand(inst.A), constant.NewInt(types.I64, 0))
	next := m.fn.NewBlock("")
	m.cur.NewCondBr(cond, next, blk)
	m.cur = next
}

func (m *Module) FromReturn(inst quad.Quadruple) {
	if inst.A == "" {
		m.cur.NewRet(constant.NewInt(types.I64, 0))
		return
	}
	m.cur.NewRet(m.operand(inst.A))
}

// FromPush loads the pushed slot's current value and queues it; PUSH
// quadruples are emitted by internal/temp in call-argument order, so the
// queue drains in the same order FromCall expects.
func (m *Module) FromPush(inst quad.Quadruple) {
	m.pending = append(m.pending, m.operand(inst.A))
}

// FromCall resolves the callee (declaring an external signature on demand
// for a function this translation unit never defines, e.g. an extrn'd
// runtime symbol) and emits a real llir call, draining exactly ArgCount
// pending pushed arguments. The result is held for the VARIABLE quadruple
// that immediately follows ("_tN = RET"), matching internal/temp's call
// lowering.
func (m *Module) FromCall(inst quad.Quadruple) {
	n, err := strconv.Atoi(inst.B)
	if err != nil || n < 0 || n > len(m.pending) {
		n = len(m.pending)
	}
	args := append([]llvalue.Value{}, m.pending[len(m.pending)-n:]...)
	m.pending = m.pending[:len(m.pending)-n]

	fn, ok := m.funcs[inst.A]
	if !ok {
		params := make([]*ir.Param, len(args))
		for i := range args {
			params[i] = ir.NewParam("", types.I64)
		}
		fn = m.M.NewFunc(inst.A, types.I64, params...)
		m.funcs[inst.A] = fn
	}
	m.lastCallValue = m.cur.NewCall(fn, args...)
}

// FromPop binds the next incoming function parameter into the named local
// slot; the IR builder emits one POP per parameter in declaration order,
// so paramIndex walks fn.Params in lockstep.
func (m *Module) FromPop(inst quad.Quadruple) {
	if inst.A == "" || m.paramIndex >= len(m.fn.Params) {
		return
	}
	m.cur.NewStore(m.fn.Params[m.paramIndex], m.local(inst.A))
	m.paramIndex++
}

func (m *Module) FromCmp(quad.Quadruple) {}
func (m *Module) FromLeave()             {}

// FromJmpE and FromLocal satisfy backend.Visitor's full contract but are
// never reached through Walk: no quad.Instruction lowers to JMP_E or LOCAL,
// matching the original's own x86_64 target, which declared but never
// implemented either hook either.
func (m *Module) FromJmpE(quad.Quadruple) {}
func (m *Module) FromLocal(quad.Quadruple) {}

func (m *Module) local(name string) *ir.InstAlloca {
	if alloc, ok := m.locals[name]; ok {
		return alloc
	}
	alloc := m.cur.NewAlloca(types.I64)
	alloc.SetName(name)
	m.locals[name] = alloc
	return alloc
}

// operand resolves a textual rvalue to an llir value: the "RET" marker
// internal/temp emits right after a CALL resolves to the call's result; a
// declared local resolves to its loaded value; anything else falls back to
// a numeric constant (or zero for non-numeric literal text) since this
// backend is a reference target, not a complete code generator.
func (m *Module) operand(text string) llvalue.Value {
	if text == "RET" && m.lastCallValue != nil {
		return m.lastCallValue
	}
	if alloc, ok := m.locals[text]; ok {
		return m.cur.NewLoad(types.I64, alloc)
	}
	var n int64
	if _, err := fmt.Sscanf(text, "%d", &n); err == nil {
		return constant.NewInt(types.I64, n)
	}
	return constant.NewInt(types.I64, 0)
}
