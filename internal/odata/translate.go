package odata

import (
	"fmt"

	"github.com/zodata/odata-serve/internal/filter"
	"github.com/zodata/odata-serve/internal/tabular"
)

var compareOperators = map[filter.CompareOp]tabular.Operator{
	filter.OpEq: tabular.OpEq,
	filter.OpNe: tabular.OpNotEq,
	filter.OpLt: tabular.OpLt,
	filter.OpGt: tabular.OpGt,
	filter.OpLe: tabular.OpLtEq,
	filter.OpGe: tabular.OpGtEq,
}

// TranslateFilter maps a parsed $filter tree onto an engine expression,
// structure-preserving. Functions and time-of-day literals have no
// engine counterpart and are rejected.
func TranslateFilter(e filter.Expr) (tabular.Expr, error) {
	switch e := e.(type) {
	case *filter.OrExpr:
		l, err := TranslateFilter(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := TranslateFilter(e.Right)
		if err != nil {
			return nil, err
		}
		return tabular.Or(l, r), nil

	case *filter.AndExpr:
		l, err := TranslateFilter(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := TranslateFilter(e.Right)
		if err != nil {
			return nil, err
		}
		return tabular.And(l, r), nil

	case *filter.NotExpr:
		operand, err := TranslateFilter(e.Operand)
		if err != nil {
			return nil, err
		}
		return tabular.Not(operand), nil

	case *filter.CompareExpr:
		op, ok := compareOperators[e.Op]
		if !ok {
			return nil, fmt.Errorf("unhandled compare operator %q", e.Op)
		}
		l, err := TranslateFilter(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := TranslateFilter(e.Right)
		if err != nil {
			return nil, err
		}
		return &tabular.BinaryExpr{Left: l, Op: op, Right: r}, nil

	case *filter.InExpr:
		operand, err := TranslateFilter(e.Operand)
		if err != nil {
			return nil, err
		}
		list := make([]tabular.Expr, len(e.List))
		for i, el := range e.List {
			if list[i], err = TranslateFilter(el); err != nil {
				return nil, err
			}
		}
		return &tabular.InListExpr{Operand: operand, List: list}, nil

	case *filter.IdentExpr:
		return tabular.Col(e.Name), nil

	case *filter.LiteralExpr:
		scalar, err := translateValue(e.Value)
		if err != nil {
			return nil, err
		}
		return tabular.Lit(scalar), nil

	case *filter.CallExpr:
		return nil, &UnsupportedFeature{Feature: "Function within the filter is not supported"}

	default:
		return nil, fmt.Errorf("unhandled filter expression %T", e)
	}
}

func translateValue(v filter.Value) (tabular.Scalar, error) {
	switch v := v.(type) {
	case *filter.StringValue:
		return tabular.StringScalar(v.Value), nil

	case *filter.BoolValue:
		return tabular.BoolScalar(v.Value), nil

	case *filter.NullValue:
		return tabular.NullScalar(), nil

	case *filter.NumberValue:
		// The grammar carries arbitrary decimals but filter constants
		// must be 64-bit integers.
		if !v.Value.IsInteger() {
			return tabular.Scalar{}, &FilterParsingError{Message: "Failed to parse number"}
		}
		bi := v.Value.BigInt()
		if !bi.IsInt64() {
			return tabular.Scalar{}, &FilterParsingError{Message: "Failed to parse number"}
		}
		return tabular.Int64Scalar(bi.Int64()), nil

	case *filter.DateTimeValue:
		return tabular.EpochSecondsScalar(v.Value.Unix()), nil

	case *filter.DateValue:
		return tabular.EpochSecondsScalar(v.Value.Unix()), nil

	case *filter.UUIDValue:
		return tabular.StringScalar(v.Value.String()), nil

	case *filter.TimeValue:
		return tabular.Scalar{}, &UnsupportedFeature{Feature: "Time value in filter is not supported"}

	default:
		return tabular.Scalar{}, fmt.Errorf("unhandled filter value %T", v)
	}
}
