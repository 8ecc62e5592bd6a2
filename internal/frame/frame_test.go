package frame

import (
	"testing"

	"bquad/internal/value"
)

func TestFrameIsParameter(t *testing.T) {
	f := newFrame("main")
	f.Parameters = []string{"argc", "argv"}
	if !f.IsParameter("argc") {
		t.Error("expected argc to be a parameter")
	}
	if f.IsParameter("x") {
		t.Error("expected x to not be a parameter")
	}
}

func TestFrameIsPointerByTag(t *testing.T) {
	f := newFrame("main")
	f.Locals["p"] = value.DataType{Type: value.TagWord, Bytes: 8}
	f.Locals["n"] = value.DataType{Type: value.TagInt, Bytes: 4}
	if !f.IsPointer("p") {
		t.Error("expected word-typed local to be a pointer")
	}
	if f.IsPointer("n") {
		t.Error("expected int-typed local to not be a pointer")
	}
	if f.IsPointer("missing") {
		t.Error("expected undeclared local to not be a pointer")
	}
}

func TestFrameIsPointerByAddrOfValue(t *testing.T) {
	f := newFrame("main")
	f.Locals["q"] = value.DataType{Type: value.TagInt, Value: "&x", Bytes: 4}
	if !f.IsPointer("q") {
		t.Error("expected &-prefixed value to denote a pointer regardless of type tag")
	}
}

func TestFrameIsPointerByNullLiteral(t *testing.T) {
	f := newFrame("main")
	f.Locals["q"] = value.DataType{Type: value.TagInt, Value: "NULL", Bytes: 4}
	if !f.IsPointer("q") {
		t.Error("expected literal NULL value to denote a pointer")
	}
}

func TestNewVectorSeedsZeroSlot(t *testing.T) {
	v := newVector("a", 10)
	dt, ok := v.Data["0"]
	if !ok {
		t.Fatal("expected vector to seed a '0' slot")
	}
	if dt.Type != value.TagNull {
		t.Errorf("expected seeded slot to be null-typed, got %q", dt.Type)
	}
}

func TestObjectTableAddFunctionPreservesOrder(t *testing.T) {
	o := NewObjectTable()
	o.addFunction("b", newFrame("b"))
	o.addFunction("a", newFrame("a"))
	if len(o.FunctionOrder) != 2 || o.FunctionOrder[0] != "b" || o.FunctionOrder[1] != "a" {
		t.Errorf("expected insertion order preserved, got %v", o.FunctionOrder)
	}
	if o.Functions["a"] == nil || o.Functions["b"] == nil {
		t.Error("expected both functions registered")
	}
}

func TestObjectTableAddVectorPreservesOrder(t *testing.T) {
	o := NewObjectTable()
	o.addVector("v1", newVector("v1", 4))
	o.addVector("v2", newVector("v2", 8))
	if len(o.VectorOrder) != 2 || o.VectorOrder[0] != "v1" {
		t.Errorf("expected vector insertion order preserved, got %v", o.VectorOrder)
	}
}
