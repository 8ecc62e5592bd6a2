// Package backend defines the capability boundary the type-checked IR and
// its Frames are handed to: a Visitor interface each concrete target (an
// LLVM reference backend, or a future native ISA) implements by walking one
// function's quadruple stream.
package backend

import "bquad/internal/quad"

// Visitor is the pure-interface boundary every code generation target
// implements, one method per quadruple shape. Each architecture's emission
// logic lives entirely behind this interface; nothing upstream of it is
// architecture aware.
//
// FromJmpE and FromLocal round out the contract the original's
// IR_Visitor<IR,Instructions> template declares (target/common/visitor.h's
// from_jmp_e_ita/from_locl_ita) even though neither JMP_E nor LOCAL appears
// in this repository's core Instruction enum: the original's own x86_64
// target left them unimplemented too, so Walk never dispatches to
// them generically — a target may still call them directly when lowering a
// VARIABLE/IF quadruple into an equality-jump or a stack-local reservation
// of its own.
type Visitor interface {
	FromFuncStart(name string)
	FromFuncEnd()
	FromCmp(inst quad.Quadruple)
	FromMov(inst quad.Quadruple)
	FromReturn(inst quad.Quadruple)
	FromLeave()
	FromLabel(inst quad.Quadruple)
	FromCall(inst quad.Quadruple)
	FromGoto(inst quad.Quadruple)
	FromIf(inst quad.Quadruple)
	FromJmpE(inst quad.Quadruple)
	FromPush(inst quad.Quadruple)
	FromLocal(inst quad.Quadruple)
	FromPop(inst quad.Quadruple)
}

// Walk drives a Visitor over one function's instruction stream, dispatching
// each quadruple to the matching From* method.
func Walk(v Visitor, stream quad.Stream) {
	for _, inst := range stream {
		switch inst.Op {
		case quad.FUNC_START:
			v.FromFuncStart(inst.A)
		case quad.FUNC_END:
			v.FromFuncEnd()
		case quad.CMP:
			v.FromCmp(inst)
		case quad.VARIABLE:
			v.FromMov(inst)
		case quad.RETURN:
			v.FromReturn(inst)
		case quad.LEAVE:
			v.FromLeave()
		case quad.LABEL:
			v.FromLabel(inst)
		case quad.CALL:
			v.FromCall(inst)
		case quad.GOTO:
			v.FromGoto(inst)
		case quad.IF:
			v.FromIf(inst)
		case quad.PUSH:
			v.FromPush(inst)
		case quad.POP:
			v.FromPop(inst)
		}
	}
}
