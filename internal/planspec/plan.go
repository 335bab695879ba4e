// Package planspec parses a CUE plan document into the workflow.Op graph
// the rest of the pipeline operates on. A plan names a set of steps and
// the one step whose output is the graph's result; each step's "src" (or
// "head"/"tails"/"sources" for the multi-source kinds) refers to another
// step by name, so the graph is built by resolving "result" and walking
// backwards, memoizing as it goes.
package planspec

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/nysm-ir/planir/internal/expr"
	"github.com/nysm-ir/planir/internal/ir"
	"github.com/nysm-ir/planir/internal/jsir"
	"github.com/nysm-ir/planir/internal/workflow"
)

// PlanError reports a problem compiling one named step of a plan.
type PlanError struct {
	Step    string
	Message string
	Pos     token.Pos
}

func (e *PlanError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: step %q: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Step, e.Message)
	}
	if e.Step != "" {
		return fmt.Sprintf("step %q: %s", e.Step, e.Message)
	}
	return e.Message
}

// Load reads the CUE package rooted at dir and compiles its plan into an
// Op graph.
func Load(dir string) (workflow.Op, error) {
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir, Package: "_"}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &PlanError{Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &PlanError{Message: fmt.Sprintf("loading plan: %v", inst.Err)}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &PlanError{Message: fmt.Sprintf("building plan: %v", err)}
	}
	return Build(value)
}

// Build compiles an already-loaded CUE value into an Op graph. Split out
// from Load so tests can drive it from cuecontext.New().CompileString
// without a filesystem fixture.
func Build(value cue.Value) (workflow.Op, error) {
	stepsVal := value.LookupPath(cue.ParsePath("step"))
	if !stepsVal.Exists() {
		return nil, &PlanError{Message: "plan has no \"step\" block"}
	}
	resultVal := value.LookupPath(cue.ParsePath("result"))
	if !resultVal.Exists() {
		return nil, &PlanError{Message: "plan has no \"result\" field"}
	}
	resultName, err := resultVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := stepsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	raw := map[string]cue.Value{}
	for iter.Next() {
		raw[iter.Label()] = iter.Value()
	}

	b := &builder{raw: raw, built: map[string]workflow.Op{}, building: map[string]bool{}}
	return b.resolve(resultName)
}

type builder struct {
	raw      map[string]cue.Value
	built    map[string]workflow.Op
	building map[string]bool
}

func (b *builder) resolve(name string) (workflow.Op, error) {
	if op, ok := b.built[name]; ok {
		return op, nil
	}
	if b.building[name] {
		return nil, &PlanError{Step: name, Message: "cyclic step reference"}
	}
	v, ok := b.raw[name]
	if !ok {
		return nil, &PlanError{Step: name, Message: "no such step"}
	}
	b.building[name] = true
	op, err := b.build(name, v)
	delete(b.building, name)
	if err != nil {
		return nil, err
	}
	b.built[name] = op
	return op, nil
}

func (b *builder) srcOp(name string, v cue.Value) (workflow.Op, error) {
	srcName, err := stringField(v, "src")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	return b.resolve(srcName)
}

func (b *builder) build(name string, v cue.Value) (workflow.Op, error) {
	kind, err := stringField(v, "kind")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}

	switch kind {
	case "read":
		collection, err := stringField(v, "collection")
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		return workflow.MakeRead(collection), nil

	case "pure":
		litVal := v.LookupPath(cue.ParsePath("value"))
		if !litVal.Exists() {
			return nil, &PlanError{Step: name, Message: "pure step requires \"value\"", Pos: v.Pos()}
		}
		lit, err := literal(litVal)
		if err != nil {
			return nil, err
		}
		return workflow.MakePure(lit), nil

	case "match":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		sel, err := exprField(v, "selector")
		if err != nil {
			return nil, err
		}
		return workflow.MakeMatch(src, sel), nil

	case "sort":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		keys, err := sortKeys(v.LookupPath(cue.ParsePath("keys")))
		if err != nil {
			return nil, err
		}
		return workflow.MakeSort(src, keys), nil

	case "limit":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		n, err := intField(v, "count")
		if err != nil {
			return nil, err
		}
		return workflow.MakeLimit(src, n), nil

	case "skip":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		n, err := intField(v, "count")
		if err != nil {
			return nil, err
		}
		return workflow.MakeSkip(src, n), nil

	case "project":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		shapeVal := v.LookupPath(cue.ParsePath("shape"))
		if !shapeVal.Exists() {
			return nil, &PlanError{Step: name, Message: "project step requires \"shape\"", Pos: v.Pos()}
		}
		r, err := buildReshape(shapeVal)
		if err != nil {
			return nil, err
		}
		return workflow.MakeProject(src, r), nil

	case "redact":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		cond, err := exprField(v, "cond")
		if err != nil {
			return nil, err
		}
		return workflow.MakeRedact(src, cond), nil

	case "unwind":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		field, err := stringField(v, "field")
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		return workflow.MakeUnwind(src, expr.Field(splitPath(field)...)), nil

	case "group":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		byVal := v.LookupPath(cue.ParsePath("by"))
		if !byVal.Exists() {
			return nil, &PlanError{Step: name, Message: "group step requires \"by\"", Pos: v.Pos()}
		}
		by, err := elem(byVal)
		if err != nil {
			return nil, err
		}
		grouped, err := groupedEntries(v.LookupPath(cue.ParsePath("grouped")))
		if err != nil {
			return nil, err
		}
		return workflow.MakeGroup(src, grouped, by), nil

	case "geonear":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		return buildGeoNear(name, src, v)

	case "map":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		fn, err := buildFn(v)
		if err != nil {
			return nil, err
		}
		return workflow.MakeMap(src, fn), nil

	case "flatmap":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		fn, err := buildFn(v)
		if err != nil {
			return nil, err
		}
		return workflow.MakeFlatMap(src, fn), nil

	case "reduce":
		src, err := b.srcOp(name, v)
		if err != nil {
			return nil, err
		}
		fn, err := buildFn(v)
		if err != nil {
			return nil, err
		}
		return workflow.MakeReduce(src, fn), nil

	case "foldleft":
		headName, err := stringField(v, "head")
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		head, err := b.resolve(headName)
		if err != nil {
			return nil, err
		}
		tailNames, err := stringList(v.LookupPath(cue.ParsePath("tails")))
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		tails := make([]workflow.Op, len(tailNames))
		for i, tn := range tailNames {
			tails[i], err = b.resolve(tn)
			if err != nil {
				return nil, err
			}
		}
		op, err := workflow.MakeFoldLeft(head, tails)
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		return op, nil

	case "join":
		srcNames, err := stringList(v.LookupPath(cue.ParsePath("sources")))
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		sources := make([]workflow.Op, len(srcNames))
		for i, sn := range srcNames {
			sources[i], err = b.resolve(sn)
			if err != nil {
				return nil, err
			}
		}
		op, err := workflow.MakeJoin(sources)
		if err != nil {
			return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
		}
		return op, nil

	default:
		return nil, &PlanError{Step: name, Message: fmt.Sprintf("unknown step kind %q", kind), Pos: v.Pos()}
	}
}

func buildGeoNear(name string, src workflow.Op, v cue.Value) (workflow.Op, error) {
	coords, err := floatList(v.LookupPath(cue.ParsePath("coordinates")))
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	distanceField, err := stringField(v, "distanceField")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	limit, err := optionalIntField(v, "limit")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	maxDist, err := optionalFloatField(v, "maxDistance")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	query := expr.Expr(expr.Literal{Value: ir.IRBool(true)})
	if v.LookupPath(cue.ParsePath("query")).Exists() {
		query, err = exprField(v, "query")
		if err != nil {
			return nil, err
		}
	}
	spherical, _ := optionalBoolField(v, "spherical")
	multiplier, err := optionalFloatField(v, "multiplier")
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	includeLocs, _ := optionalStringField(v, "includeLocs")
	uniqueDocs, _ := optionalBoolField(v, "uniqueDocs")

	op, err := workflow.MakeGeoNear(src, coords, distanceField, limit, maxDist, query, spherical, multiplier, includeLocs, uniqueDocs)
	if err != nil {
		return nil, &PlanError{Step: name, Message: err.Error(), Pos: v.Pos()}
	}
	return op, nil
}

// buildFn compiles a step's "fn" block into a UDF function. Params names
// the (key, value) / (key, values) argument list; jsBody is a single raw
// JS expression spliced verbatim into the function's return statement —
// the same escape hatch crush uses to splice a JSWhere's raw code.
func buildFn(v cue.Value) (jsir.Func, error) {
	fnVal := v.LookupPath(cue.ParsePath("fn"))
	if !fnVal.Exists() {
		return jsir.Func{}, &PlanError{Message: "UDF step requires \"fn\"", Pos: v.Pos()}
	}
	params, err := stringList(fnVal.LookupPath(cue.ParsePath("params")))
	if err != nil {
		return jsir.Func{}, &PlanError{Message: err.Error(), Pos: fnVal.Pos()}
	}
	body, err := stringField(fnVal, "jsBody")
	if err != nil {
		return jsir.Func{}, &PlanError{Message: err.Error(), Pos: fnVal.Pos()}
	}
	return jsir.Func{
		Params: params,
		Body:   []jsir.Node{jsir.Return{Value: jsir.Ident{Name: "(" + body + ")"}}},
	}, nil
}

func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &PlanError{Message: first.Error(), Pos: positions[0]}
	}
	return err
}
