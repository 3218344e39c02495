package bigint

import "math/big"

// restoringDivide implements the shift-subtract-restore long division
// described for the kernel: shift the next dividend bit into an
// accumulator, subtract the divisor, and either commit the subtraction
// (accumulator stayed nonnegative) or restore it (accumulator went
// negative), recording the complementary quotient bit each step.
// dividend and divisor must both already be nonnegative.
func restoringDivide(dividend, divisor *big.Int, width int) (quotient, remainder *big.Int) {
	acc := new(big.Int)
	quotient = new(big.Int)
	one := big.NewInt(1)
	for i := width - 1; i >= 0; i-- {
		acc.Lsh(acc, 1)
		if dividend.Bit(i) == 1 {
			acc.Or(acc, one)
		}
		acc.Sub(acc, divisor)
		quotient.Lsh(quotient, 1)
		if acc.Sign() < 0 {
			acc.Add(acc, divisor)
		} else {
			quotient.Or(quotient, one)
		}
	}
	return quotient, acc
}

// UnsignedDivide computes *lhs = quotient, *remainder = remainder of
// (*lhs / rhs), both mod 2^width, treating both operands as unsigned.
// Returns ErrDivisionByZero if rhs is zero; on error neither output is
// modified.
func UnsignedDivide(lhs *Digits, remainder *Digits, rhs Digits, width int) error {
	divisor := toBigUnsigned(rhs, width)
	if divisor.Sign() == 0 {
		return ErrDivisionByZero
	}
	dividend := toBigUnsigned(*lhs, width)
	q, r := restoringDivide(dividend, divisor, width)
	*lhs = fromBig(q, width)
	*remainder = fromBig(r, width)
	return nil
}

// SignedDivide computes *lhs = quotient (truncated toward zero), *remainder
// = remainder (sign matching the dividend), treating both operands as
// signed. Returns ErrDivisionByZero if rhs is zero; on error neither
// output is modified.
func SignedDivide(lhs *Digits, remainder *Digits, rhs Digits, width int) error {
	a := toBigSigned(*lhs, width)
	b := toBigSigned(rhs, width)
	if b.Sign() == 0 {
		return ErrDivisionByZero
	}
	negQuotient := (a.Sign() < 0) != (b.Sign() < 0)
	negRemainder := a.Sign() < 0
	aa := new(big.Int).Abs(a)
	bb := new(big.Int).Abs(b)
	q, r := restoringDivide(aa, bb, width)
	if negQuotient {
		q.Neg(q)
	}
	if negRemainder {
		r.Neg(r)
	}
	*lhs = fromBig(q, width)
	*remainder = fromBig(r, width)
	return nil
}
