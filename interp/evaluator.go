package interp

import (
	"github.com/rs/zerolog/log"

	"github.com/quasar-dev/quasar/ast"
)

// EvaluateValues runs one value-resolution pass: literals, tuple
// construction, and join unification. Split from ApplyRules so the structural
// rules and the value rules alternate the way the executor interleaves them
// with polling.
func EvaluateValues(state *ExecutionState) (bool, error) {
	changed := false
	var newStatements []ast.Statement

	statements := state.Program.Statements
	for _, stmt := range statements {
		switch expr := stmt.Expr.(type) {
		case ast.Primitive:
			state.Set(stmt.Variable, ast.Certain(expr.Value))
			changed = true

		case ast.AbstractPrimitive:
			state.Set(stmt.Variable, expr.Value)
			changed = true

		case ast.Tuple:
			elements := make([]ast.Value, 0, len(expr.Vars))
			allResolved := true
			for _, name := range expr.Vars {
				value, ok := state.Lookup(name)
				if !ok {
					allResolved = false
					break
				}
				// Tuples reject uncertain components; uncertainty is lifted
				// only at Join.
				certain, ok := value.AsCertain()
				if !ok {
					allResolved = false
					break
				}
				elements = append(elements, certain)
			}
			if allResolved {
				state.Set(stmt.Variable, ast.Certain(ast.TupleValue(elements)))
				changed = true
			} else {
				newStatements = append(newStatements, stmt)
			}

		case ast.Join:
			var joined ast.Conform
			allResolved := true
			first := true
			for _, name := range expr.Vars {
				value, ok := state.Lookup(name)
				if !ok {
					allResolved = false
					break
				}
				if first {
					joined = value
					first = false
				} else {
					joined = joined.Union(value)
				}
			}
			if allResolved && !first {
				state.Set(stmt.Variable, joined)
				changed = true
				log.Trace().Str("var", stmt.Variable).Stringer("value", joined).Msg("evaluate: join resolved")
			} else {
				newStatements = append(newStatements, stmt)
			}

		default:
			newStatements = append(newStatements, stmt)
		}
	}

	if changed {
		state.Program.Statements = newStatements
	}
	return changed, nil
}
