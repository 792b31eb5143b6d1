package util

import (
	"github.com/holiman/uint256"
)

// CompactToTarget expands the compact nBits encoding of a proof-of-work
// target. negative and overflow mirror the flags the header validator checks.
func CompactToTarget(bits uint32) (target *uint256.Int, negative bool, overflow bool) {
	exponent := bits >> 24
	mantissa := uint64(bits & 0x007fffff)

	target = new(uint256.Int)

	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetUint64(mantissa)
	} else {
		target.SetUint64(mantissa)
		target.Lsh(target, uint(8*(exponent-3)))
	}

	negative = mantissa != 0 && bits&0x00800000 != 0
	overflow = mantissa != 0 && (exponent > 34 ||
		(mantissa > 0xff && exponent > 33) ||
		(mantissa > 0xffff && exponent > 32))

	return target, negative, overflow
}

// BlockProof is the work a block at the given compact target represents, the
// expected number of hashes 2**256 / (target+1). Invalid targets have no proof.
func BlockProof(bits uint32) *uint256.Int {
	target, negative, overflow := CompactToTarget(bits)
	if negative || overflow || target.IsZero() {
		return new(uint256.Int)
	}

	// 2**256 does not fit, but 2**256 / (target+1) == ~target / (target+1) + 1
	denominator := new(uint256.Int).AddUint64(target, 1)
	numerator := new(uint256.Int).Not(target)

	proof := new(uint256.Int).Div(numerator, denominator)

	return proof.AddUint64(proof, 1)
}

// AddWork returns prevWork plus the proof of a block with the given bits,
// saturating at the largest representable value.
func AddWork(prevWork *uint256.Int, bits uint32) *uint256.Int {
	work, overflow := new(uint256.Int).AddOverflow(prevWork, BlockProof(bits))
	if overflow {
		return new(uint256.Int).SetAllOne()
	}

	return work
}
