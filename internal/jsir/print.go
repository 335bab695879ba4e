package jsir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nysm-ir/planir/internal/ir"
)

// Print renders n as JS source text. It is the only consumer of the AST —
// the execution layer receives strings, never nodes, so map/reduce/
// finalizer bodies stay opaque and serializable.
func Print(n Node) string {
	var b strings.Builder
	printNode(&b, n, 0)
	return b.String()
}

func printNode(b *strings.Builder, n Node, indent int) {
	switch v := n.(type) {
	case Literal:
		b.WriteString(printLiteral(v.Value))
	case Ident:
		b.WriteString(v.Name)
	case Member:
		printNode(b, v.Object, indent)
		switch {
		case v.Index != nil:
			b.WriteString("[")
			printNode(b, v.Index, indent)
			b.WriteString("]")
		case v.Computed:
			b.WriteString("[")
			b.WriteString(strconv.Quote(v.Property))
			b.WriteString("]")
		default:
			b.WriteString(".")
			b.WriteString(v.Property)
		}
	case Call:
		printNode(b, v.Callee, indent)
		b.WriteString("(")
		for i, a := range v.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, a, indent)
		}
		b.WriteString(")")
	case Func:
		b.WriteString("function(")
		b.WriteString(strings.Join(v.Params, ", "))
		b.WriteString(") {\n")
		printBlock(b, v.Body, indent+1)
		writeIndent(b, indent)
		b.WriteString("}")
	case BinOp:
		printNode(b, v.Left, indent)
		b.WriteString(" ")
		b.WriteString(v.Op)
		b.WriteString(" ")
		printNode(b, v.Right, indent)
	case UnaryOp:
		b.WriteString(v.Op)
		b.WriteString("(")
		printNode(b, v.Arg, indent)
		b.WriteString(")")
	case Assign:
		printNode(b, v.Target, indent)
		b.WriteString(" = ")
		printNode(b, v.Value, indent)
		b.WriteString(";")
	case VarDecl:
		b.WriteString("var ")
		b.WriteString(v.Name)
		if v.Init != nil {
			b.WriteString(" = ")
			printNode(b, v.Init, indent)
		}
		b.WriteString(";")
	case ForIn:
		b.WriteString("for (var ")
		b.WriteString(v.Var)
		b.WriteString(" in ")
		printNode(b, v.Object, indent)
		b.WriteString(") {\n")
		printBlock(b, v.Body, indent+1)
		writeIndent(b, indent)
		b.WriteString("}")
	case If:
		b.WriteString("if (")
		printNode(b, v.Cond, indent)
		b.WriteString(") {\n")
		printBlock(b, v.Then, indent+1)
		writeIndent(b, indent)
		b.WriteString("}")
		if len(v.Else) > 0 {
			b.WriteString(" else {\n")
			printBlock(b, v.Else, indent+1)
			writeIndent(b, indent)
			b.WriteString("}")
		}
	case Return:
		b.WriteString("return")
		if v.Value != nil {
			b.WriteString(" ")
			printNode(b, v.Value, indent)
		}
		b.WriteString(";")
	case ObjectLit:
		b.WriteString("{")
		for i, p := range v.Props {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(p.Key))
			b.WriteString(": ")
			printNode(b, p.Value, indent)
		}
		b.WriteString("}")
	case ArrayLit:
		b.WriteString("[")
		for i, e := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			printNode(b, e, indent)
		}
		b.WriteString("]")
	default:
		b.WriteString(fmt.Sprintf("/* unsupported node %T */", n))
	}
}

func printBlock(b *strings.Builder, stmts []Node, indent int) {
	for _, s := range stmts {
		writeIndent(b, indent)
		printNode(b, s, indent)
		b.WriteString("\n")
	}
}

func writeIndent(b *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		b.WriteString("  ")
	}
}

func printLiteral(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRNull:
		return "null"
	case ir.IRString:
		return strconv.Quote(string(val))
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		if val {
			return "true"
		}
		return "false"
	case ir.IRArray:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = printLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.IRObject:
		keys := val.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ": " + printLiteral(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "undefined"
	}
}
