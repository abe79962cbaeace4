package dataset

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Filter keeps records for which a boolean expression holds. The expression
// sees Tool, Description, Requestor and Status, plus Row (the sheet row
// number) and Fields (every column keyed by header name), e.g.
//
//	Status != "Withdrawn" && Fields["Owner"] == "Procurement"
type Filter struct {
	source  string
	program *vm.Program
}

// filterEnv is the type the expression is compiled against.
type filterEnv struct {
	Row         int
	Tool        string
	Description string
	Requestor   string
	Status      string
	Fields      map[string]string
}

// NewFilter compiles an expression. An empty expression keeps every record.
func NewFilter(expression string) (*Filter, error) {
	f := &Filter{source: expression}
	if expression == "" {
		return f, nil
	}
	program, err := expr.Compile(expression, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expression, err)
	}
	f.program = program
	return f, nil
}

// Match evaluates the filter for one record.
func (f *Filter) Match(r Record) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, filterEnv{
		Row:         r.Row,
		Tool:        r.Tool,
		Description: r.Description,
		Requestor:   r.Requestor,
		Status:      r.Status,
		Fields:      r.Fields,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on row %d: %w", f.source, r.Row, err)
	}
	keep, _ := out.(bool)
	return keep, nil
}

// Apply returns the records the filter keeps, in order.
func (f *Filter) Apply(records []Record) ([]Record, error) {
	if f == nil || f.program == nil {
		return records, nil
	}
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
