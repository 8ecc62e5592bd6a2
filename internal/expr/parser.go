package expr

import (
	"fmt"
	"strings"

	"bquad/internal/bast"
	"bquad/internal/diag"
	"bquad/internal/value"
)

// unaryTags are the five AST tags the parser recognizes as unary
// expressions.
var unaryTags = map[string]bool{
	"pre_inc_dec_expression":  true,
	"post_inc_dec_expression": true,
	"address_of_expression":   true,
	"unary_indirection":       true,
	"unary_expression":        true,
}

// Parser maps AST nodes to Expression trees, consulting (and growing) two
// mutable name tables and the companion source-symbol map for diagnostics
// and forward-function hoisting.
type Parser struct {
	Locals  *Scope
	Globals *Scope
	Symbols bast.SymMap
}

func New(symbols bast.SymMap) *Parser {
	return &Parser{Locals: NewScope(), Globals: NewScope(), Symbols: symbols}
}

// isDefined consults locals/globals first; if absent, falls back to the
// source-symbol map only to recognize forward function declarations. The
// two tables answer different questions (has this name been declared vs
// does this name exist in the source at all) and both are treated as
// authoritative for their purpose.
func (p *Parser) isDefined(name string) bool {
	return p.Locals.Has(name) || p.Globals.Has(name) || p.Symbols.IsFunction(name)
}

func (p *Parser) Parse(node bast.Node) (Expr, error) {
	switch node.Tag {
	case "number_literal":
		return p.parseNumberLiteral(node)
	case "string_literal":
		return p.parseStringLiteral(node)
	case "constant_literal":
		return p.parseConstantLiteral(node)
	case "lvalue":
		return p.parseLValue(node)
	case "vector_lvalue":
		return p.parseVectorLValue(node)
	case "indirect_lvalue":
		return p.parseIndirectLValue(node)
	case "function_expression":
		return p.parseFunctionExpression(node)
	case "evaluated_expression":
		return p.parseEvaluatedExpression(node)
	case "relation_expression":
		return p.parseRelationExpression(node)
	case "ternary_expression":
		return p.parseTernaryExpression(node)
	case "assignment_expression":
		return p.parseAssignmentExpression(node)
	default:
		if unaryTags[node.Tag] {
			return p.parseUnary(node)
		}
		return nil, diag.New(diag.InvalidRvalueType,
			fmt.Sprintf("unrecognized expression node tag %q", node.Tag))
	}
}

func (p *Parser) parseNumberLiteral(node bast.Node) (Expr, error) {
	text, err := node.RootString()
	if err != nil {
		return nil, err
	}
	return &Literal{Data: value.DataType{Value: value.TypeTag(text), Type: value.TagInt, Bytes: 4}}, nil
}

func unescape(s string) string {
	replacer := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`, `\"`, `"`)
	return replacer.Replace(s)
}

func (p *Parser) parseStringLiteral(node bast.Node) (Expr, error) {
	raw, err := node.RootString()
	if err != nil {
		return nil, err
	}
	text := unescape(raw)
	return &Literal{Data: value.DataType{Value: value.TypeTag(text), Type: value.TagString, Bytes: len(text)}}, nil
}

func (p *Parser) parseConstantLiteral(node bast.Node) (Expr, error) {
	text, err := node.RootString()
	if err != nil {
		return nil, err
	}
	decoded := unescape(text)
	if len(decoded) == 0 {
		return nil, diag.New(diag.InvalidRvalueType, "empty constant_literal")
	}
	return &Literal{Data: value.DataType{Value: value.TypeTag(decoded[:1]), Type: value.TagChar, Bytes: 1}}, nil
}

func (p *Parser) parseLValue(node bast.Node) (Expr, error) {
	name, err := node.RootString()
	if err != nil {
		return nil, err
	}
	if t, ok := p.Locals.Lookup(name); ok {
		return &LValueExpr{LV: value.LValue{Name: name, Type: t}}, nil
	}
	if t, ok := p.Globals.Lookup(name); ok {
		return &LValueExpr{LV: value.LValue{Name: name, Type: t}}, nil
	}
	if p.Symbols.IsFunction(name) {
		p.Globals.Declare(name, value.TagWord)
		return &LValueExpr{LV: value.LValue{Name: name, Type: value.TagWord}}, nil
	}
	derr := diag.New(diag.UndeclaredIdentifier, fmt.Sprintf("identifier %q not defined", name)).WithSymbol(name)
	if info, ok := p.Symbols[name]; ok {
		derr = derr.WithSpan(diag.SourceSpan{Line: info.Line, Column: info.Column, EndLine: info.EndPos, EndColumn: info.EndColumn})
	}
	return nil, derr
}

// textualOperand renders an already-parsed operand's canonical text, used
// to build the "name[offset]" subscript spelling the Type Checker later
// re-parses.
func textualOperand(e Expr) string {
	switch n := e.(type) {
	case *Literal:
		return string(n.Data.Value)
	case *LValueExpr:
		return n.LV.Name
	default:
		return ""
	}
}

func (p *Parser) parseVectorLValue(node bast.Node) (Expr, error) {
	name, err := node.RootString()
	if err != nil {
		return nil, err
	}
	if !p.isDefined(name) {
		return nil, diag.New(diag.UndeclaredIdentifier, fmt.Sprintf("identifier %q not defined", name)).WithSymbol(name)
	}
	offsetNode, err := node.LeftNode()
	if err != nil {
		return nil, err
	}
	offsetExpr, err := p.Parse(offsetNode)
	if err != nil {
		return nil, err
	}
	offsetText := textualOperand(offsetExpr)
	t, _ := p.Locals.Lookup(name)
	if t == "" {
		t, _ = p.Globals.Lookup(name)
	}
	return &LValueExpr{LV: value.LValue{Name: fmt.Sprintf("%s[%s]", name, offsetText), Type: t}}, nil
}

func (p *Parser) parseIndirectLValue(node bast.Node) (Expr, error) {
	child, err := node.LeftNode()
	if err != nil {
		return nil, err
	}
	inner, err := p.Parse(child)
	if err != nil {
		return nil, err
	}
	lv, ok := inner.(*LValueExpr)
	if !ok {
		return nil, diag.New(diag.InvalidRvalueType, "indirect_lvalue operand is not an lvalue")
	}
	return &LValueExpr{LV: value.LValue{Name: "*" + lv.LV.Name, Type: lv.LV.Type}}, nil
}

func (p *Parser) parseFunctionExpression(node bast.Node) (Expr, error) {
	calleeName, err := node.RootString()
	if err != nil {
		return nil, err
	}
	var args []Expr
	if node.HasRight() {
		argNodes, err := node.RightNodes()
		if err != nil {
			return nil, err
		}
		for _, an := range argNodes {
			ax, err := p.Parse(an)
			if err != nil {
				return nil, err
			}
			args = append(args, ax)
		}
	}
	if len(args) == 0 {
		// Empty-argument convention: a single element list whose sole
		// element is the null token.
		args = []Expr{&Literal{Data: value.DataType{Value: "null", Type: value.TagNull, Bytes: value.WordSize}}}
	}
	calleeType, _ := p.Globals.Lookup(calleeName)
	if calleeType == "" {
		calleeType = value.TagWord
	}
	return &Call{Callee: value.LValue{Name: calleeName, Type: calleeType}, Args: args}, nil
}

func (p *Parser) parseEvaluatedExpression(node bast.Node) (Expr, error) {
	inner, err := node.RootNode()
	if err != nil {
		return nil, err
	}
	x, err := p.Parse(inner)
	if err != nil {
		return nil, err
	}
	return &Group{X: x}, nil
}

func (p *Parser) parseRelationExpression(node bast.Node) (Expr, error) {
	opText, err := node.RootString()
	if err != nil {
		return nil, err
	}
	op, ok := value.Symbols[opText]
	if !ok {
		return nil, diag.New(diag.InvalidBinaryOperator, fmt.Sprintf("unknown binary operator %q", opText))
	}
	left, err := node.LeftNode()
	if err != nil {
		return nil, err
	}
	right, err := node.RightNode()
	if err != nil {
		return nil, err
	}
	if right.Tag == "ternary_expression" {
		return p.parseTernaryFrom(left, right)
	}
	lhs, err := p.Parse(left)
	if err != nil {
		return nil, err
	}
	rhs, err := p.Parse(right)
	if err != nil {
		return nil, err
	}
	return &Relation{Op: op, Items: []Expr{lhs, rhs}}, nil
}

func (p *Parser) parseTernaryExpression(node bast.Node) (Expr, error) {
	cond, err := node.RootNode()
	if err != nil {
		return nil, err
	}
	return p.parseTernaryFrom(cond, node)
}

// parseTernaryFrom builds the ternary's 3-slot Relation [cond, then, else];
// the "false-branch" and "else-value" slots denote the same source
// expression, so a literal 4-slot reading would be redundant (see
// DESIGN.md).
func (p *Parser) parseTernaryFrom(condNode bast.Node, ternaryNode bast.Node) (Expr, error) {
	cond, err := p.Parse(condNode)
	if err != nil {
		return nil, err
	}
	thenNode, err := ternaryNode.LeftNode()
	if err != nil {
		return nil, err
	}
	elseNode, err := ternaryNode.RightNode()
	if err != nil {
		return nil, err
	}
	thenExpr, err := p.Parse(thenNode)
	if err != nil {
		return nil, err
	}
	elseExpr, err := p.Parse(elseNode)
	if err != nil {
		return nil, err
	}
	return &Relation{Op: value.OpTernary, Items: []Expr{cond, thenExpr, elseExpr}}, nil
}

func (p *Parser) parseAssignmentExpression(node bast.Node) (Expr, error) {
	lhsNode, err := node.LeftNode()
	if err != nil {
		return nil, err
	}
	lhsExpr, err := p.Parse(lhsNode)
	if err != nil {
		return nil, err
	}
	lv, ok := lhsExpr.(*LValueExpr)
	if !ok {
		return nil, diag.New(diag.InvalidRvalueType, "assignment left-hand-side is not an lvalue")
	}
	rhsNode, err := node.RightNode()
	if err != nil {
		return nil, err
	}
	rhs, err := p.Parse(rhsNode)
	if err != nil {
		return nil, err
	}
	return &Assign{LV: lv.LV, RHS: rhs}, nil
}

var otherUnary = map[string]value.Operator{
	"!": value.OpLogNot,
	"~": value.OpBitNot,
	"*": value.OpDeref,
	"-": value.OpUMinus,
	"+": value.OpUPlus,
}

func (p *Parser) operandNode(node bast.Node) (bast.Node, error) {
	if node.HasLeft() {
		return node.LeftNode()
	}
	return node.RightNode()
}

func (p *Parser) parseUnary(node bast.Node) (Expr, error) {
	operand, err := p.operandNode(node)
	if err != nil {
		return nil, err
	}
	operandExpr, err := p.Parse(operand)
	if err != nil {
		return nil, err
	}

	switch node.Tag {
	case "address_of_expression":
		return &Unary{Op: value.OpAddrOf, X: operandExpr}, nil
	case "unary_indirection":
		return &Unary{Op: value.OpDeref, X: operandExpr}, nil
	case "pre_inc_dec_expression", "post_inc_dec_expression":
		opText, err := node.RootString()
		if err != nil {
			return nil, err
		}
		post := node.Tag == "post_inc_dec_expression"
		switch opText {
		case "++":
			op := value.OpPreInc
			if post {
				op = value.OpPostInc
			}
			return &Unary{Op: op, X: operandExpr, Post: post}, nil
		case "--":
			op := value.OpPreDec
			if post {
				op = value.OpPostDec
			}
			return &Unary{Op: op, X: operandExpr, Post: post}, nil
		default:
			return nil, diag.New(diag.InvalidUnaryOperator, fmt.Sprintf("unknown inc/dec operator %q", opText))
		}
	case "unary_expression":
		opText, err := node.RootString()
		if err != nil {
			return nil, err
		}
		op, ok := otherUnary[opText]
		if !ok {
			return nil, diag.New(diag.InvalidUnaryOperator, fmt.Sprintf("unknown unary operator %q", opText))
		}
		return &Unary{Op: op, X: operandExpr}, nil
	default:
		return nil, diag.New(diag.InvalidUnaryOperator, fmt.Sprintf("unrecognized unary tag %q", node.Tag))
	}
}
