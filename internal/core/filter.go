package core

import (
	"fmt"
	"strings"
	"time"
)

// Field names a filterable summary attribute. The value doubles as the
// column name in every store.
type Field string

const (
	FieldFileName         Field = "file_name"
	FieldFirstStart       Field = "first_start"
	FieldAvgValue         Field = "avg_value"
	FieldAvgExecutionTime Field = "avg_execution_time"
)

// FilterOperator represents a comparison operator for a condition.
type FilterOperator string

const (
	OpEquals    FilterOperator = "="
	OpGreaterEq FilterOperator = ">="
	OpLessEq    FilterOperator = "<="
)

// Condition is one comparison "Field Op Value". Value is a string,
// float64 or time.Time depending on the field.
type Condition struct {
	Field Field
	Op    FilterOperator
	Value any
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Op, c.Value)
}

// Clause is one filter criterion. A clause owns its conditions; stores render
// them, and Match evaluates the same criterion in memory.
type Clause interface {
	Conditions() []Condition
	Match(s Summary) bool
}

// EqualClause matches a text field exactly.
type EqualClause struct {
	Field Field
	Value string
}

func (c EqualClause) Conditions() []Condition {
	return []Condition{{Field: c.Field, Op: OpEquals, Value: c.Value}}
}

func (c EqualClause) Match(s Summary) bool {
	v, ok := textField(s, c.Field)
	return ok && v == c.Value
}

// NumberRange is an inclusive range on a numeric field. A nil bound is open.
type NumberRange struct {
	Field    Field
	From, To *float64
}

func (c NumberRange) Conditions() []Condition {
	var conds []Condition
	if c.From != nil {
		conds = append(conds, Condition{Field: c.Field, Op: OpGreaterEq, Value: *c.From})
	}
	if c.To != nil {
		conds = append(conds, Condition{Field: c.Field, Op: OpLessEq, Value: *c.To})
	}
	return conds
}

func (c NumberRange) Match(s Summary) bool {
	v, ok := numberField(s, c.Field)
	if !ok {
		return false
	}
	if c.From != nil && v < *c.From {
		return false
	}
	if c.To != nil && v > *c.To {
		return false
	}
	return true
}

// TimeRange is an inclusive range on a timestamp field. Bounds are held in UTC.
type TimeRange struct {
	Field    Field
	From, To *time.Time
}

func (c TimeRange) Conditions() []Condition {
	var conds []Condition
	if c.From != nil {
		conds = append(conds, Condition{Field: c.Field, Op: OpGreaterEq, Value: c.From.UTC()})
	}
	if c.To != nil {
		conds = append(conds, Condition{Field: c.Field, Op: OpLessEq, Value: c.To.UTC()})
	}
	return conds
}

func (c TimeRange) Match(s Summary) bool {
	if c.Field != FieldFirstStart {
		return false
	}
	v := s.FirstStart
	if c.From != nil && v.Before(*c.From) {
		return false
	}
	if c.To != nil && v.After(*c.To) {
		return false
	}
	return true
}

// FilterSet represents all active clauses (combined with AND logic).
// The zero value matches everything.
type FilterSet struct {
	Clauses []Clause
}

// Conditions flattens all clause conditions in clause order.
func (fs FilterSet) Conditions() []Condition {
	var conds []Condition
	for _, c := range fs.Clauses {
		conds = append(conds, c.Conditions()...)
	}
	return conds
}

// Match reports whether s satisfies every clause.
func (fs FilterSet) Match(s Summary) bool {
	for _, c := range fs.Clauses {
		if !c.Match(s) {
			return false
		}
	}
	return true
}

// Empty reports whether the set has no clauses.
func (fs FilterSet) Empty() bool {
	return len(fs.Clauses) == 0
}

// BuildFilters turns a SummaryFilter into a FilterSet with one clause per
// present criterion, in a fixed order: file name, first start, average
// value, average execution time. A blank or whitespace-only file name is
// treated as absent.
func BuildFilters(f SummaryFilter) FilterSet {
	var fs FilterSet

	if strings.TrimSpace(f.FileName) != "" {
		fs.Clauses = append(fs.Clauses, EqualClause{Field: FieldFileName, Value: f.FileName})
	}
	if f.FirstStartFrom != nil || f.FirstStartTo != nil {
		fs.Clauses = append(fs.Clauses, TimeRange{
			Field: FieldFirstStart,
			From:  utcPtr(f.FirstStartFrom),
			To:    utcPtr(f.FirstStartTo),
		})
	}
	if f.AvgValueFrom != nil || f.AvgValueTo != nil {
		fs.Clauses = append(fs.Clauses, NumberRange{Field: FieldAvgValue, From: f.AvgValueFrom, To: f.AvgValueTo})
	}
	if f.AvgExecutionTimeFrom != nil || f.AvgExecutionTimeTo != nil {
		fs.Clauses = append(fs.Clauses, NumberRange{Field: FieldAvgExecutionTime, From: f.AvgExecutionTimeFrom, To: f.AvgExecutionTimeTo})
	}

	return fs
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func textField(s Summary, f Field) (string, bool) {
	if f == FieldFileName {
		return s.FileName, true
	}
	return "", false
}

func numberField(s Summary, f Field) (float64, bool) {
	switch f {
	case FieldAvgValue:
		return s.AvgValue, true
	case FieldAvgExecutionTime:
		return s.AvgExecutionTime, true
	default:
		return 0, false
	}
}
