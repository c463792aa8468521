package statedb

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"

	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/timelock"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// hashes are stored as 64 hex chars without the 0x prefix
func hashToStr(h ethcommon.Hash) string {
	return h.String()[2:]
}

func strToHash(s string) ethcommon.Hash {
	return common.HexStrToBytes32("0x" + s)
}

func uint64ToStr(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func strToUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted integer %q: %w", s, err)
	}
	return v, nil
}

func encodeOffsets(o timelock.Offsets) ([]byte, error) {
	var buf bytes.Buffer
	encoder := gob.NewEncoder(&buf)
	if err := encoder.Encode(o.Array()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeOffsets(data []byte) (timelock.Offsets, error) {
	var arr [8]uint32
	decoder := gob.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&arr); err != nil {
		return timelock.Offsets{}, err
	}
	return timelock.OffsetsFromArray(arr), nil
}
