// Package value implements the literal/operator data model shared by every
// later stage of the pipeline: the precedence table, the operator enum, the
// typed literal/DataType pair, and the canonical "(value:type:bytes)" wire
// format quadruples use to carry rvalues as plain strings.
package value

import "fmt"

// TypeTag names a storage type the way the symbol table and canonical
// literal form refer to it.
type TypeTag string

const (
	TagInt    TypeTag = "int"
	TagLong   TypeTag = "long"
	TagFloat  TypeTag = "float"
	TagDouble TypeTag = "double"
	TagBool   TypeTag = "bool"
	TagChar   TypeTag = "char"
	TagByte   TypeTag = "byte"
	TagWord   TypeTag = "word"
	TagString TypeTag = "string"
	TagNull   TypeTag = "null"
)

// WordSize is the pointer size this compiler assumes throughout: word,
// null and string-reference storage are all pointer-sized.
const WordSize = 8

// FixedSize reports the byte size for types whose size does not depend on
// the literal's value. String size is the caller's responsibility (it is
// the decoded byte length of the literal).
func FixedSize(t TypeTag) (int, bool) {
	switch t {
	case TagInt:
		return 4, true
	case TagLong:
		return 8, true
	case TagFloat:
		return 4, true
	case TagDouble:
		return 8, true
	case TagBool, TagChar, TagByte:
		return 1, true
	case TagWord, TagNull:
		return WordSize, true
	default:
		return 0, false
	}
}

// IsIntegral reports whether a type participates in the integral unary
// operators (+, -, ++, --, ~) per the Context Pass's resolution rules.
func IsIntegral(t TypeTag) bool {
	switch t {
	case TagInt, TagDouble, TagFloat, TagLong:
		return true
	default:
		return false
	}
}

// DataType is the symbol table's value: a textual rvalue, its type tag and
// its byte size. This is the pair everything downstream pattern-matches
// against; the Expression Parser builds one directly for each AST leaf
// literal. It is distinct from Literal, which converts to a DataType
// through its DataType method.
type DataType struct {
	Value TypeTag
	Type  TypeTag
	Bytes int
}

// Literal is a parsed AST leaf value before it is folded into a DataType.
type Literal struct {
	Text  string
	Tag   TypeTag
	Bytes int
}

func (l Literal) DataType() DataType {
	return DataType{Value: TypeTag(l.Text), Type: l.Tag, Bytes: l.Bytes}
}

// Canonical renders a DataType in the wire format every quadruple operand
// uses: "(value:type:bytes)", with strings double-quoted and the two
// special markers "word" pointer and "null" rendered the way the rest of
// the pipeline expects to find them on re-parse.
func Canonical(value string, tag TypeTag, bytes int) string {
	switch tag {
	case TagNull:
		return "(null:null:8)"
	case TagString:
		return fmt.Sprintf("(%q:string:%d)", value, bytes)
	case TagWord:
		if value == "" {
			return "(__WORD__:word:8)"
		}
		return fmt.Sprintf("(%s:word:%d)", value, bytes)
	default:
		return fmt.Sprintf("(%s:%s:%d)", value, tag, bytes)
	}
}

func (d DataType) String() string {
	return Canonical(string(d.Value), d.Type, d.Bytes)
}

// LValue is an assignable name: a plain identifier, a dereferenced
// identifier ("*p"), or a subscript form ("v[k]").
type LValue struct {
	Name string
	Type TypeTag
}

func (l LValue) String() string { return l.Name }

// IsDereference reports whether the lvalue text is a pointer dereference.
func (l LValue) IsDereference() bool {
	return len(l.Name) > 0 && l.Name[0] == '*'
}
