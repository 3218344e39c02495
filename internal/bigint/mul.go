package bigint

import (
	"math/big"

	"github.com/remyoudompheng/bigfft"
)

// fftThreshold is the bit width above which multiplication dispatches to
// the FFT-accelerated kernel instead of math/big's schoolbook/Karatsuba
// path. Widths at or below a machine word fold to native arithmetic
// before ever reaching this package (see package doc); this threshold is
// for the rarer, very wide _BitInt multiplications the FFT kernel exists
// to accelerate.
const fftThreshold = 4096

func mul(a, b *big.Int, width int) *big.Int {
	if width > fftThreshold {
		return bigfft.Mul(a, b)
	}
	return new(big.Int).Mul(a, b)
}

// UnsignedMultiply computes *lhs = (*lhs * rhs) mod 2^width, treating both
// operands as unsigned.
func UnsignedMultiply(lhs *Digits, rhs Digits, width int) {
	a := toBigUnsigned(*lhs, width)
	b := toBigUnsigned(rhs, width)
	*lhs = fromBig(mul(a, b, width), width)
}

// SignedMultiply computes *lhs = (*lhs * rhs) mod 2^width, treating both
// operands as signed. Implemented by multiplying absolute values and
// negating the product when the operand signs differ.
func SignedMultiply(lhs *Digits, rhs Digits, width int) {
	a := toBigSigned(*lhs, width)
	b := toBigSigned(rhs, width)
	negate := (a.Sign() < 0) != (b.Sign() < 0)
	aa := new(big.Int).Abs(a)
	bb := new(big.Int).Abs(b)
	product := mul(aa, bb, width)
	if negate {
		product.Neg(product)
	}
	*lhs = fromBig(product, width)
}
