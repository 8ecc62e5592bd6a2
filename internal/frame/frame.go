// Package frame implements the Context/Frame Pass and the Object Table /
// Vector types it populates: a single linear scan over the quadruple
// stream assembling per-function Frame objects and eliminating trivially
// dead consecutive GOTOs.
package frame

import (
	"sync"

	"bquad/internal/quad"
	"bquad/internal/value"
)

// MaxVectorSize is the hard cap on any vector's declared size.
const MaxVectorSize = 1000

// Frame is the per-function record tracked by the Context Pass.
type Frame struct {
	Label           string
	Labels          map[string]bool
	Locals          map[string]value.DataType
	Parameters      []string
	Temporaries     map[string]string
	RetValue        string
	RetSymbol       string
	Allocation      uint32
	Instructions    quad.Stream
	AddressLocation [2]int
}

func newFrame(label string) *Frame {
	return &Frame{
		Label:       label,
		Labels:      map[string]bool{},
		Locals:      map[string]value.DataType{},
		Temporaries: map[string]string{},
	}
}

// IsParameter reports whether name was declared as a function parameter.
func (f *Frame) IsParameter(name string) bool {
	for _, p := range f.Parameters {
		if p == name {
			return true
		}
	}
	return false
}

// IsPointer derives the pointer predicate from the stored DataType: a
// "word"/"string" type tag, or a value beginning with "&", or the literal
// text "NULL" all denote pointer storage.
func (f *Frame) IsPointer(name string) bool {
	dt, ok := f.Locals[name]
	if !ok {
		return false
	}
	return dataTypeIsPointer(dt)
}

func dataTypeIsPointer(dt value.DataType) bool {
	if dt.Type == value.TagWord || dt.Type == value.TagString {
		return true
	}
	v := string(dt.Value)
	return len(v) > 0 && v[0] == '&' || v == "NULL"
}

// Vector is a fixed-size array symbol.
type Vector struct {
	Symbol string
	Size   int
	Data   map[string]value.DataType
}

func newVector(symbol string, size int) *Vector {
	v := &Vector{Symbol: symbol, Size: size, Data: map[string]value.DataType{}}
	// A vector's key "0" is always present to allow trivial scalar-to-
	// vector assignment.
	v.Data["0"] = value.DataType{Type: value.TagNull, Bytes: value.WordSize}
	return v
}

// ObjectTable is the per-translation-unit owner of every Frame, Vector,
// interned string literal, and the hoisted symbol table. Functions,
// Vectors and Hoisted are populated only by the single-threaded Context
// Pass and are read-only by the time the Type Checker runs; Strings and
// each Vector's Data map, by contrast, are still mutated during type
// checking (string interning, indexed vector assignment), and the Type
// Checker validates independent frames concurrently, so SharedMu guards
// those two specifically — a global vector or a literal string can be
// touched by more than one function's frame.
type ObjectTable struct {
	Functions     map[string]*Frame
	FunctionOrder []string
	Vectors       map[string]*Vector
	VectorOrder   []string
	Strings       map[string]bool
	Hoisted       map[string]value.DataType

	SharedMu sync.Mutex
}

func NewObjectTable() *ObjectTable {
	return &ObjectTable{
		Functions: map[string]*Frame{},
		Vectors:   map[string]*Vector{},
		Strings:   map[string]bool{},
		Hoisted:   map[string]value.DataType{},
	}
}

func (o *ObjectTable) addFunction(label string, f *Frame) {
	o.Functions[label] = f
	o.FunctionOrder = append(o.FunctionOrder, label)
}

func (o *ObjectTable) addVector(name string, v *Vector) {
	o.Vectors[name] = v
	o.VectorOrder = append(o.VectorOrder, name)
}
