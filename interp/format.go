package interp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gookit/color"

	"github.com/quasar-dev/quasar/ast"
)

// FormatScope renders the final bindings, sorted by name for stable output.
func FormatScope(scope map[string]ast.Conform) string {
	names := make([]string, 0, len(scope))
	for name := range scope {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString("  ")
		b.WriteString(color.Bold.Sprint(name))
		b.WriteString(" = ")
		b.WriteString(FormatConform(scope[name]))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatConform renders a possibility set, coloring certain values green and
// fanned-out sets yellow.
func FormatConform(c ast.Conform) string {
	if v, ok := c.AsCertain(); ok {
		return color.Green.Sprint(v.String())
	}
	return color.Yellow.Sprint(c.String())
}

// FormatProgram renders the remaining statements, one per line. Used by the
// debug dump before execution starts.
func FormatProgram(p ast.Program) string {
	var b strings.Builder
	for _, stmt := range p.Statements {
		b.WriteString("  ")
		b.WriteString(stmt.Variable)
		b.WriteString(" = ")
		b.WriteString(formatExpr(stmt.Expr))
		b.WriteString("\n")
	}
	b.WriteString("  return ")
	b.WriteString(p.ReturnVar)
	b.WriteString("\n")
	return b.String()
}

func formatExpr(e ast.Expression) string {
	switch e := e.(type) {
	case ast.Primitive:
		return e.Value.String()
	case ast.AbstractPrimitive:
		return e.Value.String()
	case ast.AbstractList:
		return "abstract-list"
	case ast.Variable:
		return e.Name
	case ast.Tuple:
		return "(" + strings.Join(e.Vars, ", ") + ")"
	case ast.Projection:
		return fmt.Sprintf("%s[%d]", e.Var, e.Index)
	case ast.ExternalCall:
		return fmt.Sprintf("%s(%s)", e.Function, e.Argument)
	case ast.Fold:
		return fmt.Sprintf("fold(%s, %s)", e.List, e.Initial)
	case ast.If:
		if e.Else != nil {
			return fmt.Sprintf("if %s then ... else ...", e.Condition)
		}
		return fmt.Sprintf("if %s then ...", e.Condition)
	case ast.Join:
		return "join(" + strings.Join(e.Vars, ", ") + ")"
	case ast.PendingCall:
		return color.Cyan.Sprint(e.ID)
	}
	return "?"
}
