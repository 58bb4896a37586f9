// Package filter parses the OData v3 $filter grammar into an abstract
// syntax tree. The package is purely syntactic: it resolves precedence and
// literal forms but attaches no meaning to identifiers or functions, which
// is left to the translation layer.
package filter

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expr is a parsed filter expression node.
//
// Sealed: only this package implements it, so consumers can switch
// exhaustively over the node set.
type Expr interface {
	exprNode()
}

// AndExpr is `left and right`.
type AndExpr struct {
	Left  Expr
	Right Expr
}

// OrExpr is `left or right`.
type OrExpr struct {
	Left  Expr
	Right Expr
}

// NotExpr is `not operand`.
type NotExpr struct {
	Operand Expr
}

// CompareOp is one of the six comparison keywords.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
)

// CompareExpr is `left <op> right`.
type CompareExpr struct {
	Left  Expr
	Op    CompareOp
	Right Expr
}

// InExpr is `operand in (list...)`.
type InExpr struct {
	Operand Expr
	List    []Expr
}

// CallExpr is a function application `name(args...)`. The grammar accepts
// calls; whether any function is supported is the translator's decision.
type CallExpr struct {
	Name string
	Args []Expr
}

// IdentExpr is a property reference.
type IdentExpr struct {
	Name string
}

// LiteralExpr wraps a literal value.
type LiteralExpr struct {
	Value Value
}

func (*AndExpr) exprNode()     {}
func (*OrExpr) exprNode()      {}
func (*NotExpr) exprNode()     {}
func (*CompareExpr) exprNode() {}
func (*InExpr) exprNode()      {}
func (*CallExpr) exprNode()    {}
func (*IdentExpr) exprNode()   {}
func (*LiteralExpr) exprNode() {}

// Value is a parsed literal. Sealed like Expr.
type Value interface {
	valueNode()
}

// StringValue is a single-quoted string with quote escapes resolved.
type StringValue struct {
	Value string
}

// BoolValue is `true` or `false`.
type BoolValue struct {
	Value bool
}

// NullValue is `null`.
type NullValue struct{}

// NumberValue is a numeric literal. Decimals survive parsing; whether a
// fractional constant is acceptable is decided during translation.
type NumberValue struct {
	Value decimal.Decimal
}

// DateValue is a bare `YYYY-MM-DD` literal, held at midnight UTC.
type DateValue struct {
	Value time.Time
}

// DateTimeValue is a bare RFC3339-style literal.
type DateTimeValue struct {
	Value time.Time
}

// TimeValue is a bare time-of-day literal, kept as written.
type TimeValue struct {
	Value string
}

// UUIDValue is a bare hyphenated UUID literal.
type UUIDValue struct {
	Value uuid.UUID
}

func (*StringValue) valueNode()   {}
func (*BoolValue) valueNode()     {}
func (*NullValue) valueNode()     {}
func (*NumberValue) valueNode()   {}
func (*DateValue) valueNode()     {}
func (*DateTimeValue) valueNode() {}
func (*TimeValue) valueNode()     {}
func (*UUIDValue) valueNode()     {}
