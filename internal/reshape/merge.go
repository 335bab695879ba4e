package reshape

import "github.com/nysm-ir/planir/internal/expr"

// Merge combines two reshapes into one, field by field. Two reshapes merge
// successfully when no leaf field is defined by both with conflicting
// values; on any conflict, Merge fails (ok is false) and the caller is
// expected to wrap both originals under distinct labels instead (as the
// merge algorithm does under lEft/rIght).
//
// Merge never mutates its arguments.
func Merge(a, b Reshape) (merged Reshape, ok bool) {
	ad, aIsDoc := a.(Doc)
	bd, bIsDoc := b.(Doc)
	if aIsDoc && bIsDoc {
		return mergeDocs(ad, bd)
	}

	aa, aIsArr := a.(Arr)
	ba, bIsArr := b.(Arr)
	if aIsArr && bIsArr {
		return mergeArrs(aa, ba)
	}

	// A Doc and an Arr (or any other combination) can never share a shape.
	return nil, false
}

func mergeDocs(a, b Doc) (Reshape, bool) {
	out := Doc{Fields: append([]DocField(nil), a.Fields...)}

	for _, bf := range b.Fields {
		af, exists := a.Field(bf.Name)
		if !exists {
			out.Fields = append(out.Fields, bf)
			continue
		}

		merged, ok := mergeElem(af, bf.Value)
		if !ok {
			return nil, false
		}
		out = out.WithField(bf.Name, merged)
	}

	return out, true
}

func mergeArrs(a, b Arr) (Reshape, bool) {
	byIndex := make(map[int]Elem, len(a.Elements))
	order := make([]int, 0, len(a.Elements))
	for _, f := range a.Elements {
		byIndex[f.Index] = f.Value
		order = append(order, f.Index)
	}

	for _, bf := range b.Elements {
		existing, exists := byIndex[bf.Index]
		if !exists {
			byIndex[bf.Index] = bf.Value
			order = append(order, bf.Index)
			continue
		}
		merged, ok := mergeElem(existing, bf.Value)
		if !ok {
			return nil, false
		}
		byIndex[bf.Index] = merged
	}

	out := Arr{Elements: make([]ArrField, len(order))}
	for i, idx := range order {
		out.Elements[i] = ArrField{Index: idx, Value: byIndex[idx]}
	}
	return out, true
}

// mergeElem merges two Elem values occupying the same field/index.
// Two leaf expressions conflict unless they are the same expression;
// two sub-reshapes recurse; a leaf and a sub-reshape always conflict.
func mergeElem(a, b Elem) (Elem, bool) {
	ae, aIsExpr := a.(ExprElem)
	be, bIsExpr := b.(ExprElem)
	if aIsExpr && bIsExpr {
		if exprEqual(ae.Expr, be.Expr) {
			return a, true
		}
		return nil, false
	}

	ar, aIsReshape := a.(ReshapeElem)
	br, bIsReshape := b.(ReshapeElem)
	if aIsReshape && bIsReshape {
		merged, ok := Merge(ar.Reshape, br.Reshape)
		if !ok {
			return nil, false
		}
		return ReshapeElem{Reshape: merged}, true
	}

	return nil, false
}

// exprEqual is a structural equality check sufficient for merge conflict
// detection. It does not attempt semantic equivalence (e.g. commuted
// operands) — only identical expressions merge without conflict.
func exprEqual(a, b expr.Expr) bool {
	return expr.Equal(a, b)
}
