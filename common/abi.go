package common

import (
	"bytes"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodePacked concatenates the values without padding or length prefixes,
// except that integers are always written as 32-byte big-endian words.
// Unsupported types are skipped.
func EncodePacked(values ...interface{}) []byte {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case [30]byte:
			res = append(res, v[:])
		case ethcommon.Hash:
			res = append(res, v[:])
		case []ethcommon.Hash:
			res = append(res, encodeHashArray(v))
		case uint32:
			w := Uint32ToBytes32(v)
			res = append(res, w[:])
		case uint64:
			w := Uint64ToBytes32(v)
			res = append(res, w[:])
		case *big.Int:
			res = append(res, math.U256Bytes(new(big.Int).Set(v)))
		}
	}
	return bytes.Join(res, nil)
}

func encodeHashArray(arr []ethcommon.Hash) []byte {
	var res [][]byte
	for _, v := range arr {
		res = append(res, v[:])
	}

	return bytes.Join(res, nil)
}
