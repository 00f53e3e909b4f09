// Package prosody implements the Prosody configuration intermediate
// representation and its lossless Lua-text printer.
//
// The IR mirrors the one used by the pod's predecessor (a Rust service):
// a small tagged-union value type (LuaValue), a number type that can
// preserve a symbolic product instead of collapsing it to an integer
// (LuaNumber), and an insertion-ordered map since Prosody's config
// keys are order-sensitive in a few places (modules_enabled, limits).
package prosody

import "fmt"

// LuaNumber is either a plain scalar or a product of two LuaNumbers.
// The product form exists so that values declared symbolically in
// ServerConfig (e.g. 256 * 1024 for a stanza size limit) print back out
// the same way instead of as their reduced integer.
type LuaNumber struct {
	scalar  int64
	product *luaNumberProduct
}

type luaNumberProduct struct {
	lhs LuaNumber
	rhs LuaNumber
}

// Scalar builds a plain-integer LuaNumber.
func Scalar(n int64) LuaNumber { return LuaNumber{scalar: n} }

// Mult builds a product LuaNumber; the printer renders it as "lhs * rhs"
// rather than reducing it.
func Mult(lhs, rhs LuaNumber) LuaNumber {
	return LuaNumber{product: &luaNumberProduct{lhs: lhs, rhs: rhs}}
}

// Value returns the reduced integer value of n, regardless of how it was
// constructed. Used by callers (e.g. Bytes accessors) that need the
// number, not its printed form.
func (n LuaNumber) Value() int64 {
	if n.product == nil {
		return n.scalar
	}
	return n.product.lhs.Value() * n.product.rhs.Value()
}

func (n LuaNumber) print(acc *printer) {
	if n.product == nil {
		fmt.Fprintf(acc, "%d", n.scalar)
		return
	}
	n.product.lhs.print(acc)
	acc.WriteString(" * ")
	n.product.rhs.print(acc)
}

// Bytes is a byte count that may have been declared as a product (e.g.
// "256 * 1024") and must print back out symbolically rather than as the
// reduced integer 262144.
type Bytes struct{ n LuaNumber }

// NewBytes wraps a plain integer byte count.
func NewBytes(n int64) Bytes { return Bytes{n: Scalar(n)} }

// NewBytesProduct wraps a symbolic product (e.g. NewBytesProduct(256, 1024)
// for 256KiB) so the printer preserves the "256 * 1024" form.
func NewBytesProduct(lhs, rhs int64) Bytes { return Bytes{n: Mult(Scalar(lhs), Scalar(rhs))} }

func (b Bytes) Value() int64 { return b.n.Value() }

func (b Bytes) toLuaValue() LuaValue { return LuaValue{kind: kindNumber, number: b.n} }

// DataRate is a bytes-per-second rate. Prosody's own convention (not the
// SI one) writes the unit lowercase: "50kb/s" means 50 kilobytes per
// second, not 50 kilobits. This is documented, not "fixed", because the
// Prosody modules that read it expect exactly this spelling.
type DataRate struct {
	amount int64
	unit   string // "b/s", "kb/s", "mb/s"
}

// NewDataRate builds a DataRate. unit must be one of "b/s", "kb/s", "mb/s".
func NewDataRate(amount int64, unit string) DataRate {
	return DataRate{amount: amount, unit: unit}
}

func (d DataRate) String() string { return fmt.Sprintf("%d%s", d.amount, d.unit) }

func (d DataRate) toLuaValue() LuaValue { return LuaValue{kind: kindString, str: d.String()} }
