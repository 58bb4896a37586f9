package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Evaluation follows SQL three-valued logic: comparisons touching a null
// operand are null, and Filter keeps only rows that evaluate strictly true.

type tri int8

const (
	triFalse tri = iota
	triTrue
	triNull
)

type operandKind int8

const (
	opndNull operandKind = iota
	opndBool
	opndInt
	opndFloat
	opndString
	// opndTime carries an instant or date as whole epoch seconds, the
	// granularity filter literals arrive in.
	opndTime
)

type operand struct {
	kind operandKind
	b    bool
	i    int64
	f    float64
	s    string
}

func (f *Frame) evalPredicate(e Expr, src int) (tri, error) {
	switch e := e.(type) {
	case *BinaryExpr:
		switch e.Op {
		case OpAnd:
			l, err := f.evalPredicate(e.Left, src)
			if err != nil {
				return triNull, err
			}
			if l == triFalse {
				return triFalse, nil
			}
			r, err := f.evalPredicate(e.Right, src)
			if err != nil {
				return triNull, err
			}
			if r == triFalse {
				return triFalse, nil
			}
			if l == triNull || r == triNull {
				return triNull, nil
			}
			return triTrue, nil
		case OpOr:
			l, err := f.evalPredicate(e.Left, src)
			if err != nil {
				return triNull, err
			}
			if l == triTrue {
				return triTrue, nil
			}
			r, err := f.evalPredicate(e.Right, src)
			if err != nil {
				return triNull, err
			}
			if r == triTrue {
				return triTrue, nil
			}
			if l == triNull || r == triNull {
				return triNull, nil
			}
			return triFalse, nil
		default:
			l, err := f.evalOperand(e.Left, src)
			if err != nil {
				return triNull, err
			}
			r, err := f.evalOperand(e.Right, src)
			if err != nil {
				return triNull, err
			}
			return compareOperands(l, e.Op, r)
		}
	case *NotExpr:
		v, err := f.evalPredicate(e.Operand, src)
		if err != nil {
			return triNull, err
		}
		switch v {
		case triTrue:
			return triFalse, nil
		case triFalse:
			return triTrue, nil
		default:
			return triNull, nil
		}
	case *InListExpr:
		item, err := f.evalOperand(e.Operand, src)
		if err != nil {
			return triNull, err
		}
		sawNull := false
		for _, el := range e.List {
			v, err := f.evalOperand(el, src)
			if err != nil {
				return triNull, err
			}
			eq, err := compareOperands(item, OpEq, v)
			if err != nil {
				return triNull, err
			}
			switch eq {
			case triTrue:
				return triTrue, nil
			case triNull:
				sawNull = true
			}
		}
		if sawNull {
			return triNull, nil
		}
		return triFalse, nil
	case *ColumnExpr, *LiteralExpr:
		v, err := f.evalOperand(e, src)
		if err != nil {
			return triNull, err
		}
		return asBoolean(v)
	default:
		return triNull, fmt.Errorf("unsupported expression node %T", e)
	}
}

func (f *Frame) evalOperand(e Expr, src int) (operand, error) {
	switch e := e.(type) {
	case *ColumnExpr:
		i := f.schema.Index(e.Name)
		if i < 0 {
			return operand{}, fmt.Errorf("column %q not found", e.Name)
		}
		return columnOperand(f.cols[i], src)
	case *LiteralExpr:
		return scalarOperand(e.Value), nil
	default:
		return operand{}, fmt.Errorf("expression node %T cannot be used as a value", e)
	}
}

func columnOperand(col Column, row int) (operand, error) {
	if col.IsNull(row) {
		return operand{kind: opndNull}, nil
	}
	switch col.DataType() {
	case Boolean:
		return operand{kind: opndBool, b: col.Value(row).(bool)}, nil
	case Int8:
		return operand{kind: opndInt, i: int64(col.Value(row).(int8))}, nil
	case Int16:
		return operand{kind: opndInt, i: int64(col.Value(row).(int16))}, nil
	case Int32:
		return operand{kind: opndInt, i: int64(col.Value(row).(int32))}, nil
	case Int64:
		return operand{kind: opndInt, i: col.Value(row).(int64)}, nil
	case UInt8:
		return operand{kind: opndInt, i: int64(col.Value(row).(uint8))}, nil
	case UInt16:
		return operand{kind: opndInt, i: int64(col.Value(row).(uint16))}, nil
	case UInt32:
		return operand{kind: opndInt, i: int64(col.Value(row).(uint32))}, nil
	case UInt64:
		v := col.Value(row).(uint64)
		if v > math.MaxInt64 {
			return operand{kind: opndFloat, f: float64(v)}, nil
		}
		return operand{kind: opndInt, i: int64(v)}, nil
	case Float32:
		return operand{kind: opndFloat, f: float64(col.Value(row).(float32))}, nil
	case Float64:
		return operand{kind: opndFloat, f: col.Value(row).(float64)}, nil
	case Utf8, LargeUtf8:
		return operand{kind: opndString, s: col.Value(row).(string)}, nil
	case Timestamp:
		return operand{kind: opndTime, i: col.Value(row).(time.Time).Unix()}, nil
	case Date32:
		return operand{kind: opndTime, i: int64(col.Value(row).(int32)) * 86400}, nil
	case Date64:
		return operand{kind: opndTime, i: col.Value(row).(int64) / 1000}, nil
	default:
		return operand{}, fmt.Errorf("type %s is not supported in expressions", col.DataType())
	}
}

func scalarOperand(s Scalar) operand {
	switch s.Kind {
	case ScalarBool:
		return operand{kind: opndBool, b: s.Bool}
	case ScalarInt64:
		return operand{kind: opndInt, i: s.Int64}
	case ScalarEpochSeconds:
		return operand{kind: opndTime, i: s.Int64}
	case ScalarString:
		return operand{kind: opndString, s: s.Str}
	default:
		return operand{kind: opndNull}
	}
}

func asBoolean(v operand) (tri, error) {
	switch v.kind {
	case opndNull:
		return triNull, nil
	case opndBool:
		if v.b {
			return triTrue, nil
		}
		return triFalse, nil
	default:
		return triNull, fmt.Errorf("expression is not a boolean predicate")
	}
}

func compareOperands(l operand, op Operator, r operand) (tri, error) {
	if l.kind == opndNull || r.kind == opndNull {
		return triNull, nil
	}

	c, ok, err := orderOperands(l, r)
	if err != nil {
		return triNull, err
	}
	if !ok {
		// Coercion failed (e.g. a non-numeric key string against a numeric
		// column): the comparison matches nothing rather than erroring.
		return triNull, nil
	}

	switch op {
	case OpEq:
		return triOf(c == 0), nil
	case OpNotEq:
		return triOf(c != 0), nil
	case OpLt:
		return triOf(c < 0), nil
	case OpLtEq:
		return triOf(c <= 0), nil
	case OpGt:
		return triOf(c > 0), nil
	case OpGtEq:
		return triOf(c >= 0), nil
	default:
		return triNull, fmt.Errorf("operator %s is not a comparison", op)
	}
}

func triOf(b bool) tri {
	if b {
		return triTrue
	}
	return triFalse
}

// orderOperands returns sign(l-r). The second return is false when the two
// operands cannot be brought into a common domain by parsing.
func orderOperands(l, r operand) (int, bool, error) {
	// String literals are coerced toward the other side's domain; this is
	// what makes key addressing work over non-string key columns.
	if l.kind == opndString && r.kind != opndString {
		coerced, ok := coerceString(l.s, r.kind)
		if !ok {
			return 0, false, nil
		}
		l = coerced
	}
	if r.kind == opndString && l.kind != opndString {
		coerced, ok := coerceString(r.s, l.kind)
		if !ok {
			return 0, false, nil
		}
		r = coerced
	}

	switch {
	case l.kind == opndString && r.kind == opndString:
		return strings.Compare(l.s, r.s), true, nil
	case l.kind == opndBool && r.kind == opndBool:
		return btoi(l.b) - btoi(r.b), true, nil
	case isNumeric(l.kind) && isNumeric(r.kind):
		if l.kind == opndFloat || r.kind == opndFloat {
			lf, rf := l.asFloat(), r.asFloat()
			switch {
			case lf < rf:
				return -1, true, nil
			case lf > rf:
				return 1, true, nil
			default:
				return 0, true, nil
			}
		}
		switch {
		case l.i < r.i:
			return -1, true, nil
		case l.i > r.i:
			return 1, true, nil
		default:
			return 0, true, nil
		}
	default:
		return 0, false, fmt.Errorf("cannot compare %s and %s operands", l.kind, r.kind)
	}
}

func isNumeric(k operandKind) bool {
	return k == opndInt || k == opndFloat || k == opndTime
}

func (v operand) asFloat() float64 {
	if v.kind == opndFloat {
		return v.f
	}
	return float64(v.i)
}

func coerceString(s string, target operandKind) (operand, bool) {
	switch target {
	case opndInt:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return operand{kind: opndInt, i: i}, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return operand{kind: opndFloat, f: f}, true
		}
		return operand{}, false
	case opndFloat:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return operand{kind: opndFloat, f: f}, true
		}
		return operand{}, false
	case opndTime:
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return operand{kind: opndTime, i: t.Unix()}, true
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return operand{kind: opndTime, i: i}, true
		}
		return operand{}, false
	case opndBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return operand{kind: opndBool, b: b}, true
		}
		return operand{}, false
	default:
		return operand{}, false
	}
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (k operandKind) String() string {
	switch k {
	case opndNull:
		return "null"
	case opndBool:
		return "boolean"
	case opndInt:
		return "integer"
	case opndFloat:
		return "float"
	case opndString:
		return "string"
	case opndTime:
		return "temporal"
	default:
		return fmt.Sprintf("operandKind(%d)", int(k))
	}
}
