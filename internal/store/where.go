package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/measurestats/internal/core"
)

// Placeholder renders the n-th (1-based) bind parameter of a statement.
type Placeholder func(n int) string

// Dollar renders PostgreSQL-style "$n" placeholders.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders SQLite-style "?" placeholders.
func Question(int) string { return "?" }

// WhereBuilder accumulates AND-ed conditions and their bind arguments.
type WhereBuilder struct {
	conditions  []string
	args        []any
	argIndex    int
	placeholder Placeholder
	convert     func(any) any
}

// NewWhereBuilder creates an empty builder using the given placeholder style.
func NewWhereBuilder(p Placeholder) *WhereBuilder {
	if p == nil {
		p = Dollar
	}
	return &WhereBuilder{argIndex: 1, placeholder: p}
}

// WithArgConverter sets a function applied to every bound value, for drivers
// that store some Go types differently (e.g. time as integer nanoseconds).
func (wb *WhereBuilder) WithArgConverter(fn func(any) any) *WhereBuilder {
	wb.convert = fn
	return wb
}

// Add adds an equality condition. Empty values are skipped.
func (wb *WhereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.add(column, core.OpEquals, value)
}

// AddCondition adds one core.Condition. The field and operator are checked
// against the known sets so no caller-supplied text reaches the SQL.
func (wb *WhereBuilder) AddCondition(c core.Condition) error {
	if !knownField(c.Field) {
		return fmt.Errorf("unknown filter field %q", c.Field)
	}
	switch c.Op {
	case core.OpEquals, core.OpGreaterEq, core.OpLessEq:
	default:
		return fmt.Errorf("unsupported filter operator %q", c.Op)
	}
	wb.add(string(c.Field), c.Op, c.Value)
	return nil
}

// AddFilters adds every condition of fs in clause order.
func (wb *WhereBuilder) AddFilters(fs core.FilterSet) error {
	for _, c := range fs.Conditions() {
		if err := wb.AddCondition(c); err != nil {
			return err
		}
	}
	return nil
}

func (wb *WhereBuilder) add(column string, op core.FilterOperator, value any) {
	if wb.convert != nil {
		value = wb.convert(value)
	}
	wb.conditions = append(wb.conditions,
		fmt.Sprintf("%s %s %s", quoteIdentifier(column), op, wb.placeholder(wb.argIndex)))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// Build returns the WHERE clause (with leading space) and its arguments.
// With no conditions it returns "" and nil.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the index the next bound argument will receive.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Placeholder renders the placeholder for argument n in this builder's style.
func (wb *WhereBuilder) Placeholder(n int) string {
	return wb.placeholder(n)
}

func knownField(f core.Field) bool {
	switch f {
	case core.FieldFileName, core.FieldFirstStart, core.FieldAvgValue, core.FieldAvgExecutionTime:
		return true
	}
	return false
}

// quoteIdentifier double-quotes an SQL identifier, escaping embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
