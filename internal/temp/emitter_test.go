package temp

import (
	"testing"

	"bquad/internal/expr"
	"bquad/internal/quad"
	"bquad/internal/shunt"
	"bquad/internal/value"
)

func lv(name string) *expr.LValueExpr {
	return &expr.LValueExpr{LV: value.LValue{Name: name, Type: value.TagInt}}
}

func TestEmitBinaryMintsTemporary(t *testing.T) {
	tree := &expr.Relation{Op: value.OpAdd, Items: []expr.Expr{lv("x"), lv("y")}}
	em := New()
	_, result := em.Emit(shunt.Flatten(tree))
	if result != "_t1" {
		t.Errorf("expected result temporary _t1, got %q", result)
	}
	if len(em.Quads) != 1 {
		t.Fatalf("expected 1 quadruple, got %d", len(em.Quads))
	}
	got := em.Quads[0]
	want := quad.New(quad.VARIABLE, "_t1", "x + y", "")
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEmitAssignReturnsLHS(t *testing.T) {
	assign := &expr.Assign{LV: value.LValue{Name: "x"}, RHS: lv("y")}
	em := New()
	_, result := em.Emit(shunt.Flatten(assign))
	if result != "x" {
		t.Errorf("expected assignment to yield lhs name, got %q", result)
	}
	if len(em.Quads) != 1 || em.Quads[0].A != "x" || em.Quads[0].B != "y" {
		t.Errorf("unexpected quad stream: %+v", em.Quads)
	}
}

func TestEmitTernaryNoSeparateCmp(t *testing.T) {
	ternary := &expr.Relation{Op: value.OpTernary, Items: []expr.Expr{lv("c"), lv("t"), lv("e")}}
	em := New()
	_, result := em.Emit(shunt.Flatten(ternary))
	if result != "_t1" {
		t.Errorf("expected ternary result temp _t1, got %q", result)
	}
	for _, q := range em.Quads {
		if q.Op == quad.CMP {
			t.Errorf("ternary emission must not produce a separate CMP quad, got %+v", em.Quads)
		}
	}
	if em.Quads[0].Op != quad.IF {
		t.Errorf("expected first ternary quad to be IF, got %+v", em.Quads[0])
	}
}

func TestEmitTernaryAssignWritesDirectlyIntoLHS(t *testing.T) {
	cond := &expr.Relation{Op: value.OpGt, Items: []expr.Expr{lv("a"), &expr.Literal{Data: value.DataType{Value: "1", Type: value.TagInt, Bytes: 4}}}}
	ternary := &expr.Relation{Op: value.OpTernary, Items: []expr.Expr{
		cond,
		&expr.Literal{Data: value.DataType{Value: "2", Type: value.TagInt, Bytes: 4}},
		&expr.Literal{Data: value.DataType{Value: "3", Type: value.TagInt, Bytes: 4}},
	}}
	assign := &expr.Assign{LV: value.LValue{Name: "x"}, RHS: ternary}

	em := New()
	_, result := em.Emit(shunt.Flatten(assign))
	if result != "x" {
		t.Errorf("expected assignment-ternary to yield lhs name, got %q", result)
	}
	for _, q := range em.Quads {
		if q.Op == quad.CMP {
			t.Errorf("ternary emission must not produce a separate CMP quad, got %+v", em.Quads)
		}
		if q.Op == quad.VARIABLE && (q.A == "_t2" || q.A == "_t3") {
			t.Errorf("ternary-as-assignment must not mint a shared result temporary, got %+v", q)
		}
	}
	var sawThen, sawElse bool
	for _, q := range em.Quads {
		if q.Op == quad.VARIABLE && q.A == "x" && q.B == "(2:int:4)" {
			sawThen = true
		}
		if q.Op == quad.VARIABLE && q.A == "x" && q.B == "(3:int:4)" {
			sawElse = true
		}
	}
	if !sawThen || !sawElse {
		t.Errorf("expected both branches to assign directly into x, got %+v", em.Quads)
	}
	if em.Quads[len(em.Quads)-1].Op != quad.LABEL {
		t.Errorf("expected stream to end at the join LABEL with no trailing mov, got %+v", em.Quads[len(em.Quads)-1])
	}
}

func TestEmitCallProducesPushCallSequence(t *testing.T) {
	call := &expr.Call{Callee: value.LValue{Name: "f"}, Args: []expr.Expr{lv("a"), lv("b")}}
	em := New()
	_, result := em.Emit(shunt.Flatten(call))
	if result != "_t1" {
		// _p0_1, _p0_2 assignments don't mint temps; only the RET-assignment does.
		t.Errorf("expected call result in _t1, got %q", result)
	}
	var pushCount, callCount int
	for _, q := range em.Quads {
		switch q.Op {
		case quad.PUSH:
			pushCount++
		case quad.CALL:
			callCount++
			if q.A != "f" || q.B != "2" {
				t.Errorf("expected CALL f with arg count 2, got %+v", q)
			}
		}
	}
	if pushCount != 2 || callCount != 1 {
		t.Errorf("expected 2 PUSH and 1 CALL, got %d PUSH %d CALL", pushCount, callCount)
	}
}
