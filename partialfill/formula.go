package partialfill

import "math/big"

// RequiredIndex returns the secret index a fill of making out of remaining
// must present. ok is false when the fill would land in the same threshold
// bucket as the previous fill, or when the amounts are inconsistent.
//
// The completing fill needs calculatedIndex+2: the last secret is reserved
// for it, one beyond every partial threshold.
func RequiredIndex(total, remaining, making uint64, parts uint32) (index uint64, ok bool) {
	if total == 0 || parts == 0 || making == 0 || making > remaining || remaining > total {
		return 0, false
	}

	var (
		bTotal  = new(big.Int).SetUint64(total)
		bParts  = new(big.Int).SetUint64(uint64(parts))
		filled  = new(big.Int).SetUint64(total - remaining)
		bMaking = new(big.Int).SetUint64(making)
		one     = big.NewInt(1)
	)

	// floor((total - remaining + making - 1) * parts / total)
	calc := new(big.Int).Add(filled, bMaking)
	calc.Sub(calc, one)
	calc.Mul(calc, bParts)
	calc.Quo(calc, bTotal)

	if remaining == making {
		return calc.Uint64() + 2, true
	}

	if total != remaining {
		// floor((total - remaining - 1) * parts / total)
		prev := new(big.Int).Sub(filled, one)
		prev.Mul(prev, bParts)
		prev.Quo(prev, bTotal)
		if calc.Cmp(prev) == 0 {
			return 0, false
		}
	}

	return calc.Uint64() + 1, true
}

// IsValidPartialFill reports whether validatedIndex is the index required
// for the fill.
func IsValidPartialFill(total, remaining, making uint64, parts, validatedIndex uint32) bool {
	required, ok := RequiredIndex(total, remaining, making, parts)
	return ok && required == uint64(validatedIndex)
}
