package interp

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/quasar-dev/quasar/ast"
)

// ApplyRules runs one structural rewrite pass: variable substitution, tuple
// projection, conditional expansion, and fold unrolling. The pass iterates
// over a snapshot of the statement list, so a rule never observes output
// emitted within the same pass. Returns whether anything changed.
func ApplyRules(state *ExecutionState) (bool, error) {
	changed := false
	var newStatements []ast.Statement

	statements := state.Program.Statements
	for _, stmt := range statements {
		switch expr := stmt.Expr.(type) {
		case ast.Variable:
			if value, ok := state.Lookup(expr.Name); ok {
				state.Set(stmt.Variable, value)
				changed = true
				log.Trace().Str("var", stmt.Variable).Str("from", expr.Name).Msg("rewrite: variable resolved")
			} else {
				newStatements = append(newStatements, stmt)
			}

		case ast.Projection:
			value, ok := state.Lookup(expr.Var)
			if !ok {
				newStatements = append(newStatements, stmt)
				continue
			}
			certain, ok := value.AsCertain()
			if !ok {
				newStatements = append(newStatements, stmt)
				continue
			}
			tuple, ok := certain.(ast.TupleValue)
			if !ok {
				return false, newError(TypeError, "projection applied to %s, not a tuple", certain.Kind())
			}
			if expr.Index >= len(tuple) {
				return false, newError(InvalidOperation, "tuple index %d out of bounds for %d elements", expr.Index, len(tuple))
			}
			state.Set(stmt.Variable, ast.Certain(tuple[expr.Index]))
			changed = true
			log.Trace().Str("var", stmt.Variable).Int("index", expr.Index).Msg("rewrite: projection resolved")

		case ast.If:
			cond, ok := state.Lookup(expr.Condition)
			if !ok {
				newStatements = append(newStatements, stmt)
				continue
			}
			hasTrue := cond.Contains(ast.BoolTrue)
			hasFalse := cond.Contains(ast.BoolFalse)

			switch {
			case hasTrue && !hasFalse:
				expandBlock(stmt.Variable, expr.Then, &newStatements)
				changed = true
			case !hasTrue && hasFalse:
				if expr.Else != nil {
					expandBlock(stmt.Variable, *expr.Else, &newStatements)
				}
				changed = true
			case hasTrue && hasFalse:
				thenVar := stmt.Variable + "_then"
				elseVar := stmt.Variable + "_else"
				expandBlock(thenVar, expr.Then, &newStatements)
				if expr.Else != nil {
					expandBlock(elseVar, *expr.Else, &newStatements)
				}
				newStatements = append(newStatements, ast.Statement{
					Variable: stmt.Variable,
					Expr:     ast.Join{Vars: []string{thenVar, elseVar}},
				})
				changed = true
				log.Trace().Str("var", stmt.Variable).Msg("rewrite: conditional fanned out")
			default:
				// The condition holds no boolean at all; it can never fire.
				return false, newError(TypeError, "condition %q holds no boolean possibility: %s", expr.Condition, cond)
			}

		case ast.Fold:
			listValue, listOK := state.Lookup(expr.List)
			initValue, initOK := state.Lookup(expr.Initial)
			if !listOK || !initOK {
				newStatements = append(newStatements, stmt)
				continue
			}
			certainList, ok := listValue.AsCertain()
			if !ok {
				newStatements = append(newStatements, stmt)
				continue
			}
			if _, ok := initValue.AsCertain(); !ok {
				newStatements = append(newStatements, stmt)
				continue
			}
			elements, ok := certainList.(ast.ListValue)
			if !ok {
				newStatements = append(newStatements, stmt)
				continue
			}

			accumulatorVar := expr.Initial
			for i, element := range elements {
				iterVar := fmt.Sprintf("%s_iter_%d", stmt.Variable, i)
				accVar := fmt.Sprintf("%s_acc_%d", stmt.Variable, i)
				tupleVar := fmt.Sprintf("%s_tuple_%d", stmt.Variable, i)

				state.Set(iterVar, ast.Certain(element))
				newStatements = append(newStatements, ast.Statement{
					Variable: tupleVar,
					Expr:     ast.Tuple{Vars: []string{accumulatorVar, iterVar}},
				})
				expandBlockWithParam(accVar, expr.Block, tupleVar, &newStatements)
				accumulatorVar = accVar
			}
			newStatements = append(newStatements, ast.Statement{
				Variable: stmt.Variable,
				Expr:     ast.Variable{Name: accumulatorVar},
			})
			changed = true
			log.Trace().Str("var", stmt.Variable).Int("elements", len(elements)).Msg("rewrite: fold unrolled")

		case ast.PendingCall:
			// Resolved by the poller, not by rewriting.
			newStatements = append(newStatements, stmt)

		default:
			newStatements = append(newStatements, stmt)
		}
	}

	if changed {
		state.Program.Statements = newStatements
	}
	return changed, nil
}

// expandBlock inlines a block that takes no meaningful parameter (a
// conditional branch). The formal parameter is bound to a fresh empty tuple
// so substitution still has a source name.
func expandBlock(resultVar string, block ast.Block, statements *[]ast.Statement) {
	emptyTupleVar := resultVar + "_empty"
	*statements = append(*statements, ast.Statement{
		Variable: emptyTupleVar,
		Expr:     ast.Tuple{Vars: []string{}},
	})
	expandBlockWithParam(resultVar, block, emptyTupleVar, statements)
}

// expandBlockWithParam inlines a block body, renaming the formal parameter to
// paramVar and the declared return variable to resultVar. Other names are
// kept verbatim: a block is a closed template over the program's namespace.
func expandBlockWithParam(resultVar string, block ast.Block, paramVar string, statements *[]ast.Statement) {
	subst := func(name string) string {
		if name == block.Parameter {
			return paramVar
		}
		return name
	}

	for _, blockStmt := range block.Body {
		variable := blockStmt.Variable
		if variable == block.ReturnVar {
			variable = resultVar
		}
		*statements = append(*statements, ast.Statement{
			Variable: variable,
			Expr:     substituteExpression(blockStmt.Expr, subst),
		})
	}

	// Guarantee the result gets bound even when the body never assigns the
	// return variable last (or at all).
	if len(block.Body) == 0 || block.Body[len(block.Body)-1].Variable != block.ReturnVar {
		*statements = append(*statements, ast.Statement{
			Variable: resultVar,
			Expr:     ast.Variable{Name: subst(block.ReturnVar)},
		})
	}
}

// substituteExpression renames referenced variables through subst. Blocks
// nested inside Fold and If are left alone: their formal parameter scopes
// lexically to the immediately enclosing block, so substitution must not
// descend.
func substituteExpression(expr ast.Expression, subst func(string) string) ast.Expression {
	switch e := expr.(type) {
	case ast.Variable:
		return ast.Variable{Name: subst(e.Name)}
	case ast.Tuple:
		vars := make([]string, len(e.Vars))
		for i, v := range e.Vars {
			vars[i] = subst(v)
		}
		return ast.Tuple{Vars: vars}
	case ast.ExternalCall:
		return ast.ExternalCall{Function: e.Function, Argument: subst(e.Argument)}
	case ast.Projection:
		return ast.Projection{Index: e.Index, Var: subst(e.Var)}
	case ast.Fold:
		return ast.Fold{List: subst(e.List), Initial: subst(e.Initial), Block: e.Block}
	case ast.If:
		return ast.If{Condition: subst(e.Condition), Then: e.Then, Else: e.Else}
	case ast.Join:
		vars := make([]string, len(e.Vars))
		for i, v := range e.Vars {
			vars[i] = subst(v)
		}
		return ast.Join{Vars: vars}
	default:
		return expr
	}
}
