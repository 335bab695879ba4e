package reshape

import "github.com/nysm-ir/planir/internal/expr"

// Reshape is a sealed interface over the two record-constructor shapes.
//
// This is a sealed interface - only Doc and Arr in this package implement
// it. The marker method pattern seals the type so backends can switch
// exhaustively.
type Reshape interface {
	reshapeNode() // Marker method - seals interface to this package
}

// Elem is a sealed interface over the value side of a Doc/Arr entry: either
// a leaf expression or a nested Reshape.
type Elem interface {
	elemNode()
}

// ExprElem wraps a leaf expression.
type ExprElem struct {
	Expr expr.Expr
}

func (ExprElem) elemNode() {}

// ReshapeElem wraps a nested Reshape, producing a sub-document or
// sub-array at this field/index.
type ReshapeElem struct {
	Reshape Reshape
}

func (ReshapeElem) elemNode() {}

// DocField is one ordered entry of a Doc.
type DocField struct {
	Name  string
	Value Elem
}

// Doc is a document-shaped reshape: an ordered mapping from field name to
// expression-or-reshape.
//
// Semantics:
//
//	Project{Reshape: Doc{Fields: []DocField{
//	  {Name: "total", Value: ExprElem{Expr: ...}},
//	  {Name: "meta", Value: ReshapeElem{Reshape: Doc{...}}},
//	}}}
//
// produces a document with fields "total" and "meta" in that order,
// regardless of how the fields were computed.
type Doc struct {
	Fields []DocField
}

func (Doc) reshapeNode() {}

// ArrField is one ordered entry of an Arr.
type ArrField struct {
	Index int
	Value Elem
}

// Arr is an array-shaped reshape: an ordered mapping from positional index
// to expression-or-reshape.
type Arr struct {
	Elements []ArrField
}

func (Arr) reshapeNode() {}

// Field looks up a top-level field by name in a Doc, returning its value
// and whether it was found. Preserves no ordering guarantee by itself —
// callers needing order should iterate Fields directly.
func (d Doc) Field(name string) (Elem, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names of a Doc in declaration order.
func (d Doc) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// WithField returns a copy of d with name's value set to v, preserving the
// position of an existing field or appending a new one at the end.
func (d Doc) WithField(name string, v Elem) Doc {
	out := Doc{Fields: append([]DocField(nil), d.Fields...)}
	for i, f := range out.Fields {
		if f.Name == name {
			out.Fields[i].Value = v
			return out
		}
	}
	out.Fields = append(out.Fields, DocField{Name: name, Value: v})
	return out
}

// WithoutFields returns a copy of d with every field whose name is in drop
// removed, preserving the relative order of the remaining fields.
func (d Doc) WithoutFields(drop map[string]bool) Doc {
	out := Doc{Fields: make([]DocField, 0, len(d.Fields))}
	for _, f := range d.Fields {
		if drop[f.Name] {
			continue
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}
