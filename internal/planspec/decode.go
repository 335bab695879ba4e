package planspec

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/reshape"
	"github.com/nysm-ir/planir/internal/stage"
)

func stringField(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", fmt.Errorf("missing required field %q", field)
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalStringField(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	return fv.String()
}

func intField(v cue.Value, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, fmt.Errorf("missing required field %q", field)
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalIntField(v cue.Value, field string) (*int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &n, nil
}

func optionalFloatField(v cue.Value, field string) (*float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &f, nil
}

func optionalBoolField(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	return fv.Bool()
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func floatList(v cue.Value) ([]float64, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []float64
	for iter.Next() {
		f, err := iter.Value().Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, f)
	}
	return out, nil
}

// literal decodes a plan "lit" value into the constrained IR literal
// algebra — no floats, matching the IR's own CP-5 restriction.
func literal(v cue.Value) (ir.IRValue, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewIRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewIRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NewIRBool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var out ir.IRArray
		for iter.Next() {
			elem, err := literal(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.IRObject{}
		for iter.Next() {
			elem, err := literal(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &PlanError{Message: "float literals are forbidden — use an int", Pos: v.Pos()}
	default:
		return nil, &PlanError{Message: fmt.Sprintf("unsupported literal kind %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

var exprOps = map[string]expr.Op{
	"add": expr.OpAdd, "subtract": expr.OpSubtract, "multiply": expr.OpMultiply, "divide": expr.OpDivide,
	"eq": expr.OpEq, "neq": expr.OpNeq, "lt": expr.OpLt, "lte": expr.OpLte, "gt": expr.OpGt, "gte": expr.OpGte,
	"and": expr.OpAnd, "or": expr.OpOr,
}

// buildExpr decodes a plan expression node. Each shape is distinguished by
// which key is present: "lit" (Literal), "var" (Var, dot-joined path),
// "op"/"left"/"right" (BinOp), "not" (Not), "cond" (Cond), or "jswhere"
// (the raw $where escape hatch).
func buildExpr(v cue.Value) (expr.Expr, error) {
	if lit := v.LookupPath(cue.ParsePath("lit")); lit.Exists() {
		val, err := literal(lit)
		if err != nil {
			return nil, err
		}
		return expr.Literal{Value: val}, nil
	}
	if varPath := v.LookupPath(cue.ParsePath("var")); varPath.Exists() {
		path, err := varPath.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return expr.Var{Path: expr.Field(splitPath(path)...)}, nil
	}
	if opVal := v.LookupPath(cue.ParsePath("op")); opVal.Exists() {
		opStr, err := opVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op, ok := exprOps[opStr]
		if !ok {
			return nil, &PlanError{Message: fmt.Sprintf("unknown expr op %q", opStr), Pos: v.Pos()}
		}
		left, err := buildExprField(v, "left")
		if err != nil {
			return nil, err
		}
		right, err := buildExprField(v, "right")
		if err != nil {
			return nil, err
		}
		return expr.BinOp{Op: op, Left: left, Right: right}, nil
	}
	if notVal := v.LookupPath(cue.ParsePath("not")); notVal.Exists() {
		arg, err := buildExpr(notVal)
		if err != nil {
			return nil, err
		}
		return expr.Not{Arg: arg}, nil
	}
	if condVal := v.LookupPath(cue.ParsePath("cond")); condVal.Exists() {
		ifExpr, err := buildExprField(condVal, "if")
		if err != nil {
			return nil, err
		}
		thenExpr, err := buildExprField(condVal, "then")
		if err != nil {
			return nil, err
		}
		elseExpr, err := buildExprField(condVal, "else")
		if err != nil {
			return nil, err
		}
		return expr.Cond{If: ifExpr, Then: thenExpr, Else: elseExpr}, nil
	}
	if jsWhere := v.LookupPath(cue.ParsePath("jswhere")); jsWhere.Exists() {
		code, err := jsWhere.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return expr.JSWhere{Code: code}, nil
	}
	return nil, &PlanError{Message: "unrecognized expression shape", Pos: v.Pos()}
}

func buildExprField(v cue.Value, field string) (expr.Expr, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, &PlanError{Message: fmt.Sprintf("missing required field %q", field), Pos: v.Pos()}
	}
	return buildExpr(fv)
}

func exprField(v cue.Value, field string) (expr.Expr, error) {
	return buildExprField(v, field)
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// elem decodes a reshape.Elem node: either {expr: ...} for a leaf
// expression, or {doc: ...}/{arr: ...} for a nested reshape.
func elem(v cue.Value) (reshape.Elem, error) {
	if exprVal := v.LookupPath(cue.ParsePath("expr")); exprVal.Exists() {
		e, err := buildExpr(exprVal)
		if err != nil {
			return nil, err
		}
		return reshape.ExprElem{Expr: e}, nil
	}
	if v.LookupPath(cue.ParsePath("doc")).Exists() || v.LookupPath(cue.ParsePath("arr")).Exists() {
		r, err := buildReshape(v)
		if err != nil {
			return nil, err
		}
		return reshape.ReshapeElem{Reshape: r}, nil
	}
	return nil, &PlanError{Message: "unrecognized reshape-elem shape (expected \"expr\", \"doc\", or \"arr\")", Pos: v.Pos()}
}

func buildReshape(v cue.Value) (reshape.Reshape, error) {
	if docVal := v.LookupPath(cue.ParsePath("doc")); docVal.Exists() {
		iter, err := docVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var fields []reshape.DocField
		for iter.Next() {
			val, err := elem(iter.Value())
			if err != nil {
				return nil, err
			}
			fields = append(fields, reshape.DocField{Name: iter.Label(), Value: val})
		}
		return reshape.Doc{Fields: fields}, nil
	}
	if arrVal := v.LookupPath(cue.ParsePath("arr")); arrVal.Exists() {
		iter, err := arrVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var elems []reshape.ArrField
		idx := 0
		for iter.Next() {
			val, err := elem(iter.Value())
			if err != nil {
				return nil, err
			}
			elems = append(elems, reshape.ArrField{Index: idx, Value: val})
			idx++
		}
		return reshape.Arr{Elements: elems}, nil
	}
	return nil, &PlanError{Message: "expected \"doc\" or \"arr\"", Pos: v.Pos()}
}

var groupKinds = map[string]expr.GroupKind{
	"sum": expr.GroupSum, "avg": expr.GroupAvg, "push": expr.GroupPush, "addToSet": expr.GroupAddToSet,
	"first": expr.GroupFirst, "last": expr.GroupLast, "max": expr.GroupMax, "min": expr.GroupMin,
}

func groupedEntries(v cue.Value) ([]stage.GroupedEntry, error) {
	if !v.Exists() {
		return nil, &PlanError{Message: "group step requires \"grouped\""}
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []stage.GroupedEntry
	for iter.Next() {
		entry := iter.Value()
		kindStr, err := stringField(entry, "kind")
		if err != nil {
			return nil, &PlanError{Message: err.Error(), Pos: entry.Pos()}
		}
		kind, ok := groupKinds[kindStr]
		if !ok {
			return nil, &PlanError{Message: fmt.Sprintf("unknown group accumulator kind %q", kindStr), Pos: entry.Pos()}
		}
		arg, err := exprField(entry, "arg")
		if err != nil {
			return nil, err
		}
		out = append(out, stage.GroupedEntry{Name: iter.Label(), Op: expr.Accumulate{Kind: kind, Arg: arg}})
	}
	return out, nil
}

func sortKeys(v cue.Value) ([]stage.SortKey, error) {
	if !v.Exists() {
		return nil, &PlanError{Message: "sort step requires \"keys\""}
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []stage.SortKey
	for iter.Next() {
		entry := iter.Value()
		field, err := stringField(entry, "field")
		if err != nil {
			return nil, &PlanError{Message: err.Error(), Pos: entry.Pos()}
		}
		desc, err := optionalBoolField(entry, "desc")
		if err != nil {
			return nil, &PlanError{Message: err.Error(), Pos: entry.Pos()}
		}
		out = append(out, stage.SortKey{Field: expr.Field(splitPath(field)...), Descending: desc})
	}
	return out, nil
}
