package ir

import (
	"encoding/json"
	"testing"

	"bquad/internal/bast"
	"bquad/internal/quad"
)

func rawStr(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func rawNode(n bast.Node) json.RawMessage {
	b, _ := json.Marshal(n)
	return b
}

func rawNodes(ns []bast.Node) json.RawMessage {
	b, _ := json.Marshal(ns)
	return b
}

func lvalueNode(name string) bast.Node {
	return bast.Node{Tag: "lvalue", Root: rawStr(name)}
}

func numberNode(n string) bast.Node {
	return bast.Node{Tag: "number_literal", Root: rawStr(n)}
}

func countOp(stream quad.Stream, op quad.Instruction) int {
	n := 0
	for _, q := range stream {
		if q.Op == op {
			n++
		}
	}
	return n
}

func TestBuildProgramSimpleFunction(t *testing.T) {
	// main() { auto x; x = 1; return x; }
	autoStmt := bast.Node{Tag: "auto_statement", Root: rawNodes([]bast.Node{lvalueNode("x")})}
	assign := bast.Node{Tag: "assignment_expression", Left: rawNode(lvalueNode("x")), Right: rawNode(numberNode("1"))}
	rvalueStmt := bast.Node{Tag: "rvalue_statement", Root: rawNode(assign)}
	returnStmt := bast.Node{Tag: "return_statement", Root: rawNode(lvalueNode("x"))}
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{autoStmt, rvalueStmt, returnStmt})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("main"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Op != quad.LABEL || out[0].A != "__main" {
		t.Errorf("expected leading LABEL __main, got %+v", out[0])
	}
	if countOp(out, quad.FUNC_START) != 1 || countOp(out, quad.FUNC_END) != 1 {
		t.Errorf("expected exactly one FUNC_START/FUNC_END pair, got stream %+v", out)
	}
	if countOp(out, quad.RETURN) != 1 || countOp(out, quad.LEAVE) != 1 {
		t.Errorf("expected one RETURN and one LEAVE, got stream %+v", out)
	}
	last := out[len(out)-1]
	if last.Op != quad.FUNC_END {
		t.Errorf("expected stream to end with FUNC_END, got %+v", last)
	}
}

func TestBuildProgramDeclaresParameters(t *testing.T) {
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "return_statement", Root: rawNode(lvalueNode("a"))},
	})}
	fn := bast.Node{
		Tag:   "function_definition",
		Root:  rawStr("f"),
		Left:  rawNodes([]bast.Node{lvalueNode("a"), lvalueNode("b")}),
		Right: rawNode(body),
	}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	var pops []string
	for _, q := range out {
		if q.Op == quad.VARIABLE && q.A == "a" {
			found = true
		}
		if q.Op == quad.POP {
			pops = append(pops, q.A)
		}
	}
	if !found {
		t.Error("expected parameter a to be emitted as a VARIABLE quad")
	}
	if len(pops) != 2 || pops[0] != "a" || pops[1] != "b" {
		t.Errorf("expected one POP per parameter in declaration order, got %v", pops)
	}
}

func TestBuildIfEmitsCmpAndIf(t *testing.T) {
	thenStmt := bast.Node{Tag: "rvalue_statement", Root: rawNode(bast.Node{
		Tag: "assignment_expression", Left: rawNode(lvalueNode("x")), Right: rawNode(numberNode("2")),
	})}
	ifStmt := bast.Node{Tag: "if_statement", Root: rawNode(lvalueNode("x")), Left: rawNode(thenStmt)}
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "auto_statement", Root: rawNodes([]bast.Node{lvalueNode("x")})},
		ifStmt,
	})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("f"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countOp(out, quad.CMP) != 1 {
		t.Errorf("expected one CMP quad for the if condition, got stream %+v", out)
	}
	if countOp(out, quad.IF) != 1 {
		t.Errorf("expected one IF quad, got stream %+v", out)
	}
}

func TestBuildIfElseJoinsAtLabel(t *testing.T) {
	thenStmt := bast.Node{Tag: "rvalue_statement", Root: rawNode(bast.Node{
		Tag: "assignment_expression", Left: rawNode(lvalueNode("x")), Right: rawNode(numberNode("1")),
	})}
	elseStmt := bast.Node{Tag: "rvalue_statement", Root: rawNode(bast.Node{
		Tag: "assignment_expression", Left: rawNode(lvalueNode("x")), Right: rawNode(numberNode("2")),
	})}
	ifStmt := bast.Node{Tag: "if_statement", Root: rawNode(lvalueNode("x")), Left: rawNode(thenStmt), Right: rawNode(elseStmt)}
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "auto_statement", Root: rawNodes([]bast.Node{lvalueNode("x")})},
		ifStmt,
	})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("f"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countOp(out, quad.LABEL) < 3 {
		t.Errorf("expected at least 2 labels (false-branch + join) besides the function label, got %+v", out)
	}
	if countOp(out, quad.GOTO) != 1 {
		t.Errorf("expected one GOTO over the else branch, got %+v", out)
	}
}

func TestBuildWhileLoopsBackToTop(t *testing.T) {
	bodyStmt := bast.Node{Tag: "rvalue_statement", Root: rawNode(bast.Node{
		Tag: "assignment_expression", Left: rawNode(lvalueNode("x")), Right: rawNode(numberNode("1")),
	})}
	whileStmt := bast.Node{Tag: "while_statement", Root: rawNode(lvalueNode("x")), Left: rawNode(bodyStmt)}
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "auto_statement", Root: rawNodes([]bast.Node{lvalueNode("x")})},
		whileStmt,
	})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("f"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countOp(out, quad.GOTO) != 1 {
		t.Errorf("expected one backward GOTO for the while loop, got %+v", out)
	}
	if countOp(out, quad.CMP) != 1 || countOp(out, quad.IF) != 1 {
		t.Errorf("expected one CMP/IF pair for the loop condition, got %+v", out)
	}
}

func TestBuildGotoAndLabelStatements(t *testing.T) {
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "goto_statement", Root: rawStr("done")},
		{Tag: "label_statement", Root: rawStr("done")},
	})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("f"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawGoto, sawLabel bool
	for _, q := range out {
		if q.Op == quad.GOTO && q.A == "done" {
			sawGoto = true
		}
		if q.Op == quad.LABEL && q.A == "done" {
			sawLabel = true
		}
	}
	if !sawGoto || !sawLabel {
		t.Errorf("expected explicit goto/label round-trip, got %+v", out)
	}
}

func vectorLValueNode(name, size string) bast.Node {
	return bast.Node{Tag: "vector_lvalue", Root: rawStr(name), Left: rawNode(numberNode(size))}
}

func TestBuildAutoVectorEmitsVectorMarker(t *testing.T) {
	body := bast.Node{Tag: "block_statement", Root: rawNodes([]bast.Node{
		{Tag: "auto_statement", Root: rawNodes([]bast.Node{vectorLValueNode("v", "10")})},
	})}
	fn := bast.Node{Tag: "function_definition", Root: rawStr("f"), Right: rawNode(body)}
	root := bast.Node{Root: rawNodes([]bast.Node{fn})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, q := range out {
		if q.Op == quad.VARIABLE && q.A == "v" && q.B == "(10:vector:8)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a (10:vector:8) declaration marker for v, got %+v", out)
	}
}

func TestBuildProgramGlobalVectorEmitsMarkerOutsideFrame(t *testing.T) {
	vecDef := bast.Node{Tag: "vector_definition", Root: rawStr("g"), Left: rawNode(numberNode("4"))}
	root := bast.Node{Root: rawNodes([]bast.Node{vecDef})}

	b := NewBuilder(bast.SymMap{})
	out, err := b.BuildProgram(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Op != quad.VARIABLE || out[0].A != "g" || out[0].B != "(4:vector:8)" {
		t.Errorf("expected a single top-level (4:vector:8) marker for g, got %+v", out)
	}
}

func TestBuildProgramUnrecognizedTopLevelErrors(t *testing.T) {
	root := bast.Node{Root: rawNodes([]bast.Node{{Tag: "not_a_real_definition", Root: rawStr("x")}})}
	b := NewBuilder(bast.SymMap{})
	if _, err := b.BuildProgram(root); err == nil {
		t.Error("expected error for unrecognized top-level definition tag")
	}
}
