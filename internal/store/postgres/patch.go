package postgres

import (
	"fmt"
	"strings"
)

// patch accumulates the columns whose incoming value differs from the
// row currently stored, so a repository writes only what changed
// instead of rewriting every column on every import pass (spec §4.3's
// set_if_changed discipline, §8: "importing the same upstream snapshot
// twice produces no net mutations on the second pass").
type patch struct {
	sets []setClause
}

type setClause struct {
	col  string
	expr string // "" for a plain placeholder; otherwise a template with one "?" per arg
	args []interface{}
}

func newPatch() *patch { return &patch{} }

func (p *patch) empty() bool { return len(p.sets) == 0 }

// set stages col = value unconditionally.
func (p *patch) set(col string, value interface{}) {
	p.sets = append(p.sets, setClause{col: col, args: []interface{}{value}})
}

// setExpr stages col = expr, where expr is a SQL fragment containing
// one "?" per entry in args, filled in with sequential placeholders
// when the statement is built.
func (p *patch) setExpr(col, expr string, args ...interface{}) {
	p.sets = append(p.sets, setClause{col: col, expr: expr, args: args})
}

// setNow stages col = now(), with no bound argument.
func (p *patch) setNow(col string) {
	p.sets = append(p.sets, setClause{col: col, expr: "now()"})
}

// setIfChanged stages col = next only when next differs from current.
func setIfChanged[T comparable](p *patch, col string, current, next T) {
	if current == next {
		return
	}
	p.set(col, next)
}

// buildUpdate renders "UPDATE table SET <diffed columns> WHERE
// <whereTemplate>", substituting sequential $N placeholders for every
// "?" in both the staged expressions and whereTemplate, and returns
// the matching argument list. Callers must check p.empty() first.
func (p *patch) buildUpdate(table, whereTemplate string, whereArgs ...interface{}) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}
	for i, c := range p.sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		if c.expr == "" {
			args = append(args, c.args[0])
			fmt.Fprintf(&sb, "%s = $%d", c.col, len(args))
			continue
		}
		expr := c.expr
		for _, a := range c.args {
			args = append(args, a)
			expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		fmt.Fprintf(&sb, "%s = %s", c.col, expr)
	}

	where := whereTemplate
	for _, a := range whereArgs {
		args = append(args, a)
		where = strings.Replace(where, "?", fmt.Sprintf("$%d", len(args)), 1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, sb.String(), where), args
}

// floatPtrEqual compares two possibly-nil float64 pointers by value.
func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// intPtrEqual compares two possibly-nil int pointers by value.
func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
