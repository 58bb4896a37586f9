package odata

import (
	"math"
	"strings"

	"github.com/zodata/odata-serve/internal/filter"
	"github.com/zodata/odata-serve/internal/tabular"
)

// RawQueryParams carries the system query options exactly as extracted
// from the request. Skip and Top are parsed to integers by the transport
// layer, which rejects malformed values before the pipeline runs.
type RawQueryParams struct {
	Select  string
	OrderBy string
	Skip    *uint64
	Top     *uint64
	Filter  *string
}

// OrderBy is one sort key of a query plan.
type OrderBy struct {
	Column    string
	Ascending bool
}

// QueryPlan is the decoded, translated form of the query options.
type QueryPlan struct {
	Select  []string
	OrderBy []OrderBy
	Skip    *uint64
	Top     *uint64
	Filter  tabular.Expr
}

// Decode parses the raw options into a plan. Splitting keeps tokens
// verbatim: nothing is trimmed, only empty tokens are dropped.
func (r RawQueryParams) Decode() (*QueryPlan, error) {
	plan := &QueryPlan{Skip: r.Skip, Top: r.Top}

	for _, tok := range strings.Split(r.Select, ",") {
		if tok != "" {
			plan.Select = append(plan.Select, tok)
		}
	}

	for _, tok := range strings.Split(r.OrderBy, ",") {
		if tok == "" {
			continue
		}
		column, ascending := tok, true
		if c, ok := strings.CutSuffix(tok, " asc"); ok {
			column = c
		} else if c, ok := strings.CutSuffix(tok, " desc"); ok {
			column, ascending = c, false
		}
		plan.OrderBy = append(plan.OrderBy, OrderBy{Column: column, Ascending: ascending})
	}

	if r.Filter != nil {
		parsed, err := filter.Parse(*r.Filter)
		if err != nil {
			return nil, &FilterParsingError{Message: err.Error()}
		}
		translated, err := TranslateFilter(parsed)
		if err != nil {
			return nil, err
		}
		plan.Filter = translated
	}

	return plan, nil
}

// ApplyQueryPlan runs the plan against a table view, in this exact
// order: alias the key column, project, short-circuit on key addressing,
// filter, sort, paginate. Projection happens first so the key alias can
// participate in every later step while the visible columns are already
// restricted to the selection.
func ApplyQueryPlan(
	plan *QueryPlan,
	frame *tabular.Frame,
	addr *CollectionAddr,
	keyColumn string,
	keyAlias string,
	defaultRows int,
	maxRows int,
) (*tabular.Frame, error) {
	f, err := frame.WithColumn(keyAlias, keyColumn)
	if err != nil {
		return nil, err
	}

	if len(plan.Select) > 0 {
		names := make([]string, 0, len(plan.Select)+1)
		names = append(names, plan.Select...)
		names = append(names, keyAlias)
		if f, err = f.Select(names); err != nil {
			return nil, err
		}
	}

	// Addressing by key ignores filter, order and pagination.
	if addr.Key != "" {
		return f.Filter(tabular.Eq(tabular.Col(keyAlias), tabular.Lit(tabular.StringScalar(addr.Key))))
	}

	if plan.Filter != nil {
		if f, err = f.Filter(plan.Filter); err != nil {
			return nil, err
		}
	}

	if len(plan.OrderBy) > 0 {
		keys := make([]tabular.SortKey, len(plan.OrderBy))
		for i, ob := range plan.OrderBy {
			keys[i] = tabular.SortKey{Column: ob.Column, Ascending: ob.Ascending, NullsFirst: true}
		}
		if f, err = f.Sort(keys); err != nil {
			return nil, err
		}
	}

	skip := 0
	if plan.Skip != nil {
		skip = clampToInt(*plan.Skip)
	}
	fetch := defaultRows
	if plan.Top != nil {
		fetch = clampToInt(*plan.Top)
	}
	if fetch > maxRows {
		fetch = maxRows
	}
	return f.Limit(skip, fetch), nil
}

func clampToInt(v uint64) int {
	if v > math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}
