// Package ir implements the IR Builder statement layer: it walks
// the AST at the statement level (block, auto, extrn, if, while, switch,
// goto, label, return, rvalue-statement) and stitches the Temporary
// Emitter's expression-level quadruples with control-flow quadruples
// (LABEL, GOTO, IF, CMP, PUSH, POP, CALL, RETURN, LEAVE, FUNC_START,
// FUNC_END).
package ir

import (
	"fmt"

	"bquad/internal/bast"
	"bquad/internal/diag"
	"bquad/internal/expr"
	"bquad/internal/quad"
	"bquad/internal/shunt"
	"bquad/internal/temp"
	"bquad/internal/value"
)

// Builder drives the whole-program lowering: one Object Table-visible
// Globals scope shared by every function, each function getting its own
// locals scope and temporary/label counter.
type Builder struct {
	Symbols bast.SymMap
	Globals *expr.Scope
}

func NewBuilder(symbols bast.SymMap) *Builder {
	return &Builder{Symbols: symbols, Globals: expr.NewScope()}
}

// BuildProgram lowers the translation unit's root node (an array of
// function and vector definitions) into one flat quadruple stream.
func (b *Builder) BuildProgram(root bast.Node) (quad.Stream, error) {
	defs, err := root.RootNodes()
	if err != nil {
		return nil, err
	}
	// Pre-pass: hoist every function/vector name so forward references
	// resolve regardless of definition order, matching the Object Table's
	// hoisted_symbols role.
	for _, d := range defs {
		name, err := d.RootString()
		if err != nil {
			continue
		}
		if d.Tag == "function_definition" || d.Tag == "vector_definition" {
			b.Globals.Declare(name, value.TagWord)
		}
	}

	var out quad.Stream
	for _, d := range defs {
		switch d.Tag {
		case "function_definition":
			fnStream, err := b.buildFunction(d)
			if err != nil {
				return nil, err
			}
			out = append(out, fnStream...)
		case "vector_definition":
			q, err := buildGlobalVector(d)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		default:
			return nil, diag.New(diag.InvalidRvalueType, fmt.Sprintf("unrecognized top-level definition %q", d.Tag))
		}
	}
	return out, nil
}

// buildGlobalVector lowers a file-scope vector_definition into the same
// "(size:vector:8)" marker buildAuto emits for a local vector declaration,
// but outside any function's instruction range, so the Context Pass
// registers it against the Object Table rather than a Frame.
func buildGlobalVector(d bast.Node) (quad.Quadruple, error) {
	name, err := d.RootString()
	if err != nil {
		return quad.Quadruple{}, err
	}
	sizeText := "0"
	if d.HasLeft() {
		sizeNode, err := d.LeftNode()
		if err != nil {
			return quad.Quadruple{}, err
		}
		if sizeNode.Tag == "number_literal" {
			sizeText, _ = sizeNode.RootString()
		}
	}
	return quad.New(quad.VARIABLE, name, fmt.Sprintf("(%s:vector:8)", sizeText), ""), nil
}

func (b *Builder) buildFunction(d bast.Node) (quad.Stream, error) {
	name, err := d.RootString()
	if err != nil {
		return nil, err
	}
	locals := expr.NewScope()
	parser := &expr.Parser{Locals: locals, Globals: b.Globals, Symbols: b.Symbols}
	em := temp.New()

	var paramQuads quad.Stream
	if d.HasLeft() {
		params, err := d.LeftNodes()
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			pname, err := p.RootString()
			if err != nil {
				return nil, err
			}
			locals.Declare(pname, value.TagWord)
			// The VARIABLE quad registers the parameter as a pointer-sized
			// word local; the POP quad that follows binds the incoming
			// argument and records declaration order in the frame.
			paramQuads = append(paramQuads, quad.New(quad.VARIABLE, pname, value.Canonical("", value.TagWord, value.WordSize), ""))
			paramQuads = append(paramQuads, quad.New(quad.POP, pname, "", ""))
		}
	}

	if d.HasRight() {
		body, err := d.RightNode()
		if err != nil {
			return nil, err
		}
		if err := b.buildStmt(body, parser, em); err != nil {
			return nil, fmt.Errorf("in function %s: %w", name, err)
		}
	}

	var out quad.Stream
	out = append(out, quad.New(quad.LABEL, "__"+name, "", ""))
	out = append(out, quad.New(quad.FUNC_START, "", "", ""))
	out = append(out, paramQuads...)
	out = append(out, em.Quads...)
	out = append(out, quad.New(quad.FUNC_END, "", "", ""))
	return out, nil
}

func (b *Builder) buildStmt(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	switch node.Tag {
	case "block_statement":
		stmts, err := node.RootNodes()
		if err != nil {
			return err
		}
		for _, s := range stmts {
			if err := b.buildStmt(s, parser, em); err != nil {
				return err
			}
		}
		return nil
	case "auto_statement":
		return b.buildAuto(node, parser, em)
	case "extrn_statement":
		return b.buildExtrn(node, parser)
	case "if_statement":
		return b.buildIf(node, parser, em)
	case "while_statement":
		return b.buildWhile(node, parser, em)
	case "switch_statement":
		return b.buildSwitch(node, parser, em)
	case "goto_statement":
		label, err := node.RootString()
		if err != nil {
			return err
		}
		em.Append(quad.New(quad.GOTO, label, "", ""))
		return nil
	case "label_statement":
		label, err := node.RootString()
		if err != nil {
			return err
		}
		em.Append(quad.New(quad.LABEL, label, "", ""))
		if node.HasLeft() {
			inner, err := node.LeftNode()
			if err != nil {
				return err
			}
			return b.buildStmt(inner, parser, em)
		}
		return nil
	case "return_statement":
		return b.buildReturn(node, parser, em)
	case "rvalue_statement":
		return b.buildRvalueStatement(node, parser, em)
	default:
		return diag.New(diag.InvalidRvalueType, fmt.Sprintf("unrecognized statement node %q", node.Tag))
	}
}

func (b *Builder) buildAuto(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	decls, err := node.RootNodes()
	if err != nil {
		return err
	}
	for _, d := range decls {
		switch d.Tag {
		case "lvalue":
			name, err := d.RootString()
			if err != nil {
				return err
			}
			parser.Locals.Declare(name, value.TagNull)
			em.Append(quad.New(quad.VARIABLE, name, "(null:null:8)", ""))
		case "vector_lvalue":
			name, err := d.RootString()
			if err != nil {
				return err
			}
			parser.Locals.Declare(name, value.TagWord)
			sizeText := "0"
			if d.HasLeft() {
				sizeNode, err := d.LeftNode()
				if err != nil {
					return err
				}
				if sizeNode.Tag == "number_literal" {
					sizeText, _ = sizeNode.RootString()
				}
			}
			em.Append(quad.New(quad.VARIABLE, name, fmt.Sprintf("(%s:vector:8)", sizeText), ""))
		default:
			return diag.New(diag.InvalidRvalueType, fmt.Sprintf("unrecognized auto declarator %q", d.Tag))
		}
	}
	return nil
}

func (b *Builder) buildExtrn(node bast.Node, parser *expr.Parser) error {
	names, err := node.RootNodes()
	if err != nil {
		return err
	}
	for _, n := range names {
		name, err := n.RootString()
		if err != nil {
			return err
		}
		parser.Locals.Declare(name, value.TagWord)
	}
	return nil
}

func (b *Builder) buildReturn(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	if node.HasRoot() {
		rnode, err := node.RootNode()
		if err != nil {
			return err
		}
		rexpr, err := parser.Parse(rnode)
		if err != nil {
			return err
		}
		_, result := em.Emit(shunt.Flatten(rexpr))
		em.Append(quad.New(quad.RETURN, result, "", ""))
	} else {
		em.Append(quad.New(quad.RETURN, "", "", ""))
	}
	em.Append(quad.New(quad.LEAVE, "", "", ""))
	return nil
}

func (b *Builder) buildRvalueStatement(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	rnode, err := node.RootNode()
	if err != nil {
		return err
	}
	rexpr, err := parser.Parse(rnode)
	if err != nil {
		return err
	}
	em.Emit(shunt.Flatten(rexpr))
	return nil
}

// buildIf lowers `if (cond) then [else]`. The condition is evaluated, then
// a CMP against literal zero precedes an IF that jumps to the false
// branch when the condition fails.
func (b *Builder) buildIf(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	condNode, err := node.RootNode()
	if err != nil {
		return err
	}
	condExpr, err := parser.Parse(condNode)
	if err != nil {
		return err
	}
	_, condResult := em.Emit(shunt.Flatten(condExpr))
	lfalse := em.NewLabel()
	em.Append(quad.New(quad.CMP, condResult, "(0:int:4)", ""))
	em.Append(quad.New(quad.IF, condResult, lfalse, ""))

	thenNode, err := node.LeftNode()
	if err != nil {
		return err
	}
	if err := b.buildStmt(thenNode, parser, em); err != nil {
		return err
	}

	if node.HasRight() {
		ljoin := em.NewLabel()
		em.Append(quad.New(quad.GOTO, ljoin, "", ""))
		em.Append(quad.New(quad.LABEL, lfalse, "", ""))
		elseNode, err := node.RightNode()
		if err != nil {
			return err
		}
		if err := b.buildStmt(elseNode, parser, em); err != nil {
			return err
		}
		em.Append(quad.New(quad.LABEL, ljoin, "", ""))
		return nil
	}
	em.Append(quad.New(quad.LABEL, lfalse, "", ""))
	return nil
}

func (b *Builder) buildWhile(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	ltop := em.NewLabel()
	lfalse := em.NewLabel()
	em.Append(quad.New(quad.LABEL, ltop, "", ""))

	condNode, err := node.RootNode()
	if err != nil {
		return err
	}
	condExpr, err := parser.Parse(condNode)
	if err != nil {
		return err
	}
	_, condResult := em.Emit(shunt.Flatten(condExpr))
	em.Append(quad.New(quad.CMP, condResult, "(0:int:4)", ""))
	em.Append(quad.New(quad.IF, condResult, lfalse, ""))

	bodyNode, err := node.LeftNode()
	if err != nil {
		return err
	}
	if err := b.buildStmt(bodyNode, parser, em); err != nil {
		return err
	}
	em.Append(quad.New(quad.GOTO, ltop, "", ""))
	em.Append(quad.New(quad.LABEL, lfalse, "", ""))
	return nil
}

// buildSwitch degenerates to a chain of equality comparisons.
func (b *Builder) buildSwitch(node bast.Node, parser *expr.Parser, em *temp.Emitter) error {
	exprNode, err := node.RootNode()
	if err != nil {
		return err
	}
	switchExpr, err := parser.Parse(exprNode)
	if err != nil {
		return err
	}
	_, switchVal := em.Emit(shunt.Flatten(switchExpr))

	cases, err := node.LeftNodes()
	if err != nil {
		return err
	}
	ljoin := em.NewLabel()
	for _, c := range cases {
		caseNode, err := c.RootNode()
		if err != nil {
			return err
		}
		caseExpr, err := parser.Parse(caseNode)
		if err != nil {
			return err
		}
		_, caseVal := em.Emit(shunt.Flatten(caseExpr))
		eqTemp := em.NewTemp()
		em.Append(quad.New(quad.VARIABLE, eqTemp, fmt.Sprintf("%s %s %s", switchVal, value.OpEq, caseVal), ""))
		lnext := em.NewLabel()
		em.Append(quad.New(quad.IF, eqTemp, lnext, ""))
		if c.HasLeft() {
			body, err := c.LeftNode()
			if err != nil {
				return err
			}
			if err := b.buildStmt(body, parser, em); err != nil {
				return err
			}
		}
		em.Append(quad.New(quad.GOTO, ljoin, "", ""))
		em.Append(quad.New(quad.LABEL, lnext, "", ""))
	}
	if node.HasRight() {
		def, err := node.RightNode()
		if err != nil {
			return err
		}
		if err := b.buildStmt(def, parser, em); err != nil {
			return err
		}
	}
	em.Append(quad.New(quad.LABEL, ljoin, "", ""))
	return nil
}
