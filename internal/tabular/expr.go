package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a boolean/value expression evaluated per row by Frame.Filter.
//
// This is a sealed interface: the marker method restricts implementations
// to this package so the evaluator's type switch stays exhaustive.
type Expr interface {
	exprNode()
}

// Operator is a binary expression operator.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpEq
	OpNotEq
	OpLt
	OpLtEq
	OpGt
	OpGtEq
)

var operatorNames = [...]string{
	OpAnd:   "and",
	OpOr:    "or",
	OpEq:    "=",
	OpNotEq: "!=",
	OpLt:    "<",
	OpLtEq:  "<=",
	OpGt:    ">",
	OpGtEq:  ">=",
}

func (op Operator) String() string {
	if int(op) < len(operatorNames) {
		return operatorNames[op]
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// BinaryExpr applies Op to two sub-expressions.
type BinaryExpr struct {
	Left  Expr
	Op    Operator
	Right Expr
}

// NotExpr negates a boolean sub-expression.
type NotExpr struct {
	Operand Expr
}

// InListExpr is true when Operand equals any list element.
type InListExpr struct {
	Operand Expr
	List    []Expr
}

// ColumnExpr references a column by name.
type ColumnExpr struct {
	Name string
}

// LiteralExpr wraps a scalar constant.
type LiteralExpr struct {
	Value Scalar
}

func (*BinaryExpr) exprNode()  {}
func (*NotExpr) exprNode()     {}
func (*InListExpr) exprNode()  {}
func (*ColumnExpr) exprNode()  {}
func (*LiteralExpr) exprNode() {}

// Constructor helpers, mirroring how query plans are usually assembled:
// Eq(Col("a"), Lit(Int64Scalar(1))).

func Col(name string) Expr { return &ColumnExpr{Name: name} }

func Lit(v Scalar) Expr { return &LiteralExpr{Value: v} }

func And(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpAnd, Right: r} }

func Or(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpOr, Right: r} }

func Not(e Expr) Expr { return &NotExpr{Operand: e} }

func Eq(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpEq, Right: r} }

func NotEq(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpNotEq, Right: r} }

func Lt(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpLt, Right: r} }

func LtEq(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpLtEq, Right: r} }

func Gt(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpGt, Right: r} }

func GtEq(l, r Expr) Expr { return &BinaryExpr{Left: l, Op: OpGtEq, Right: r} }

func In(operand Expr, list ...Expr) Expr {
	return &InListExpr{Operand: operand, List: list}
}

// ScalarKind discriminates Scalar variants.
type ScalarKind int

const (
	ScalarNull ScalarKind = iota
	ScalarBool
	ScalarInt64
	// ScalarEpochSeconds carries an instant as whole seconds since the Unix
	// epoch; temporal columns are compared against it at second precision.
	ScalarEpochSeconds
	ScalarString
)

// Scalar is a typed constant inside an expression.
type Scalar struct {
	Kind  ScalarKind
	Bool  bool
	Int64 int64
	Str   string
}

func NullScalar() Scalar { return Scalar{Kind: ScalarNull} }

func BoolScalar(v bool) Scalar { return Scalar{Kind: ScalarBool, Bool: v} }

func Int64Scalar(v int64) Scalar { return Scalar{Kind: ScalarInt64, Int64: v} }

func EpochSecondsScalar(sec int64) Scalar {
	return Scalar{Kind: ScalarEpochSeconds, Int64: sec}
}

func StringScalar(v string) Scalar { return Scalar{Kind: ScalarString, Str: v} }

func (s Scalar) String() string {
	switch s.Kind {
	case ScalarNull:
		return "null"
	case ScalarBool:
		return strconv.FormatBool(s.Bool)
	case ScalarInt64, ScalarEpochSeconds:
		return strconv.FormatInt(s.Int64, 10)
	case ScalarString:
		return "'" + strings.ReplaceAll(s.Str, "'", "''") + "'"
	default:
		return fmt.Sprintf("Scalar(%d)", int(s.Kind))
	}
}
