// Package bigint implements fixed-width bit-string arithmetic for
// arbitrary-precision C _BitInt(N) values, used both for compile-time
// constant folding and as the reference shape for emitted runtime helpers.
//
// Signedness is a property of the operation, not the stored value: a
// Digits buffer is a bare width-bit two's complement bit pattern, and
// callers pick the signed or unsigned interpretation per call. All
// arithmetic is modulo 2^width; there is no overflow signal beyond the
// explicit division-by-zero error.
package bigint

import (
	"errors"
	"math/big"
	"math/bits"
)

// ErrDivisionByZero is returned by UnsignedDivide and SignedDivide when the
// divisor is zero.
var ErrDivisionByZero = errors.New("bigint: division by zero")

// Digits is a little-digit-first buffer of width-bit two's complement
// storage. Digit width is platform-native (big.Word); callers never
// observe individual digits directly.
type Digits []big.Word

// Width returns the number of Digits needed to hold a value of the given
// bit width.
func Width(width int) int {
	return numWords(width)
}

func numWords(width int) int {
	if width <= 0 {
		return 0
	}
	return (width + bits.UintSize - 1) / bits.UintSize
}

func allOnes(width int) *big.Int {
	one := big.NewInt(1)
	return one.Sub(one.Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
}

// maskUnsigned folds x into the canonical nonnegative representative of
// x mod 2^width. math/big's bitwise operators treat negative operands as
// infinite-precision two's complement, so ANDing with a positive all-ones
// mask is sufficient regardless of x's sign.
func maskUnsigned(x *big.Int, width int) *big.Int {
	return new(big.Int).And(x, allOnes(width))
}

func toBigUnsigned(d Digits, width int) *big.Int {
	buf := make([]big.Word, len(d))
	copy(buf, d)
	var t big.Int
	t.SetBits(buf)
	return maskUnsigned(&t, width)
}

func toBigSigned(d Digits, width int) *big.Int {
	u := toBigUnsigned(d, width)
	if width > 0 && u.Bit(width-1) == 1 {
		u = new(big.Int).Sub(u, new(big.Int).Lsh(big.NewInt(1), uint(width)))
	}
	return u
}

func fromBig(x *big.Int, width int) Digits {
	u := maskUnsigned(x, width)
	buf := make(Digits, numWords(width))
	copy(buf, u.Bits())
	return buf
}

// Zero returns the zero value at the given bit width.
func Zero(width int) Digits {
	return fromBig(new(big.Int), width)
}

// SetUnsigned initializes a Digits buffer from a native unsigned integer.
func SetUnsigned(width int, v uint64) Digits {
	return fromBig(new(big.Int).SetUint64(v), width)
}

// SetSigned initializes a Digits buffer from a native signed integer.
func SetSigned(width int, v int64) Digits {
	return fromBig(big.NewInt(v), width)
}

// GetUnsigned extracts the low 64 bits of buf interpreted as unsigned.
func GetUnsigned(buf Digits, width int) uint64 {
	lowWidth := width
	if lowWidth > 64 {
		lowWidth = 64
	}
	return maskUnsigned(toBigUnsigned(buf, width), lowWidth).Uint64()
}

// GetSigned extracts the low 64 bits of buf interpreted as signed,
// sign-extended from width.
func GetSigned(buf Digits, width int) int64 {
	s := toBigSigned(buf, width)
	if width <= 64 {
		return s.Int64()
	}
	low := maskUnsigned(toBigUnsigned(buf, width), 64)
	if low.Bit(63) == 1 {
		low = new(big.Int).Sub(low, new(big.Int).Lsh(big.NewInt(1), 64))
	}
	return low.Int64()
}

// ToBig returns the full-precision value of buf at width, interpreted as
// signed or unsigned per the signed argument. Unlike GetSigned/GetUnsigned
// (which truncate to a native 64-bit result), this is meant for rendering
// and other callers that need the exact value of a wide _BitInt.
func ToBig(buf Digits, width int, signed bool) *big.Int {
	if signed {
		return toBigSigned(buf, width)
	}
	return toBigUnsigned(buf, width)
}

// Add computes *lhs = (*lhs + rhs) mod 2^width.
func Add(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(a.Add(a, b), width)
}

// Subtract computes *lhs = (*lhs - rhs) mod 2^width.
func Subtract(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(a.Sub(a, b), width)
}

// Negate computes *buf = -(*buf) mod 2^width (two's complement negation).
func Negate(buf *Digits, width int) {
	a := toBigUnsigned(*buf, width)
	*buf = fromBig(a.Neg(a), width)
}

// Invert computes *buf = ^(*buf), masked to width (bitwise NOT).
func Invert(buf *Digits, width int) {
	a := toBigUnsigned(*buf, width)
	*buf = fromBig(a.Not(a), width)
}

// And computes *lhs = (*lhs & rhs), masked to width.
func And(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(a.And(a, b), width)
}

// Or computes *lhs = (*lhs | rhs), masked to width.
func Or(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(a.Or(a, b), width)
}

// Xor computes *lhs = (*lhs ^ rhs), masked to width.
func Xor(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(a.Xor(a, b), width)
}

// LeftShift shifts buf left by n bits, shifting in zero bits and dropping
// bits above width.
func LeftShift(buf *Digits, n, width int) {
	a := toBigUnsigned(*buf, width)
	*buf = fromBig(a.Lsh(a, uint(n)), width)
}

// RightShift performs an unsigned (logical) right shift by n bits.
func RightShift(buf *Digits, n, width int) {
	a := toBigUnsigned(*buf, width)
	*buf = fromBig(a.Rsh(a, uint(n)), width)
}

// ArithmeticRightShift performs a signed right shift by n bits, replicating
// the sign bit at position width-1. math/big's Rsh rounds a negative
// operand toward negative infinity, which is exactly an arithmetic shift
// on the width-bit two's complement interpretation of buf.
func ArithmeticRightShift(buf *Digits, n, width int) {
	a := toBigSigned(*buf, width)
	*buf = fromBig(a.Rsh(a, uint(n)), width)
}

// CompareUnsigned returns -1, 0, or 1 comparing a and b as unsigned values.
func CompareUnsigned(a, b Digits, width int) int {
	return toBigUnsigned(a, width).Cmp(toBigUnsigned(b, width))
}

// CompareSigned returns -1, 0, or 1 comparing a and b as signed values.
func CompareSigned(a, b Digits, width int) int {
	return toBigSigned(a, width).Cmp(toBigSigned(b, width))
}

// CastUnsigned reinterprets buf (a fromWidth-bit value, unsigned) at
// toWidth, zero-extending or truncating as needed.
func CastUnsigned(buf Digits, fromWidth, toWidth int) Digits {
	return fromBig(toBigUnsigned(buf, fromWidth), toWidth)
}

// CastSigned reinterprets buf (a fromWidth-bit value, signed) at toWidth,
// sign-extending or truncating as needed.
func CastSigned(buf Digits, fromWidth, toWidth int) Digits {
	return fromBig(toBigSigned(buf, fromWidth), toWidth)
}
