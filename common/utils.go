package common

import (
	"crypto/rand"
	"encoding/binary"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// The returned string has No 0x prefix
func ByteSliceToPureHexStr(b []byte) string {
	return ethcommon.Bytes2Hex(b)
}

// HexStrToBytes32 converts a hex string (with/without prefix 0x) to [32]byte
func HexStrToBytes32(hexStr string) [32]byte {
	var bytes32 [32]byte
	copy(bytes32[:], ethcommon.Hex2BytesFixed(Trim0xPrefix(hexStr), 32))
	return bytes32
}

// HexStrToHash converts a hex string (with/without prefix 0x) to ethcommon.Hash.
// ok is false if the string does not decode into exactly 32 bytes.
func HexStrToHash(hexStr string) (ethcommon.Hash, bool) {
	s := Trim0xPrefix(hexStr)
	if len(s) != 64 {
		return ethcommon.Hash{}, false
	}
	for _, c := range s {
		if !IsHexChar(c) {
			return ethcommon.Hash{}, false
		}
	}
	return ethcommon.HexToHash(s), true
}

// Trim 0x or 0X prefix off the string.
func Trim0xPrefix(str string) string {
	s := strings.TrimPrefix(str, "0x")
	return strings.TrimPrefix(s, "0X")
}

func Prepend0xPrefix(str string) string {
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		return str
	}
	return "0x" + str
}

// RandBytes32 generates [32]byte with random values
func RandBytes32() [32]byte {
	var b [32]byte
	n, err := rand.Read(b[:])

	if err != nil {
		return [32]byte{}
	}
	if n != 32 {
		return [32]byte{}
	}

	return b
}

func RandBytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil
	}
	return b
}

// Uint32ToBytes32 returns the 32-byte big-endian word holding v.
func Uint32ToBytes32(v uint32) [32]byte {
	var w [32]byte
	binary.BigEndian.PutUint32(w[28:], v)
	return w
}

// Uint64ToBytes32 returns the 32-byte big-endian word holding v.
func Uint64ToBytes32(v uint64) [32]byte {
	var w [32]byte
	binary.BigEndian.PutUint64(w[24:], v)
	return w
}

// Shorten shortens a hex string so that both sides have n characters and
// the rest is replaced with "..."
func Shorten(hexStr string, n int) string {
	str := Trim0xPrefix(hexStr)

	if len(str) <= n*2 {
		return Prepend0xPrefix(str)
	}
	return Prepend0xPrefix(str[:n] + "..." + str[len(str)-n:])
}

func IsHexChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
