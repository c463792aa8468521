package common

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestHexStrToHash(t *testing.T) {
	h := RandHash()

	actual, ok := HexStrToHash(h.String())
	assert.True(t, ok)
	assert.Equal(t, h, actual)

	actual, ok = HexStrToHash(h.String()[2:])
	assert.True(t, ok)
	assert.Equal(t, h, actual)

	_, ok = HexStrToHash("0x1234")
	assert.False(t, ok)

	_, ok = HexStrToHash("0x" + string(make([]byte, 64)))
	assert.False(t, ok)
}

func TestUintWords(t *testing.T) {
	w := Uint32ToBytes32(0x01020304)
	assert.Equal(t, []byte{1, 2, 3, 4}, w[28:])
	assert.Equal(t, make([]byte, 28), w[:28])

	w = Uint64ToBytes32(1)
	assert.Equal(t, byte(1), w[31])
	assert.Equal(t, make([]byte, 31), w[:31])
}

func TestEncodePacked(t *testing.T) {
	h := RandHash()
	packed := EncodePacked(uint32(7), h)
	assert.Len(t, packed, 64)
	assert.Equal(t, byte(7), packed[31])
	assert.Equal(t, h[:], packed[32:])

	packed = EncodePacked(big.NewInt(5), []byte{0xaa})
	assert.Len(t, packed, 33)
	assert.Equal(t, byte(5), packed[31])
	assert.Equal(t, byte(0xaa), packed[32])

	hashes := []ethcommon.Hash{RandHash(), RandHash()}
	assert.Len(t, EncodePacked(hashes), 64)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "0x12...ef", Shorten("0x1234567890abcdef", 2))
	assert.Equal(t, "0x1234", Shorten("1234", 2))
}
