package statedb

import (
	"database/sql"
	"testing"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/escrow"
	"github.com/TEENet-io/escrow-go/timelock"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func getMemoryDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	return db
}

func newTestStateDB(t *testing.T) *StateDB {
	sqlDB := getMemoryDB(t)
	st, err := NewStateDB(sqlDB)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
		sqlDB.Close()
	})
	return st
}

func randAddress() agreement.Address {
	return agreement.AddressFromEth(1, common.RandEthAddress())
}

func randEscrow(t *testing.T, leg escrow.Leg) *escrow.Escrow {
	return newEscrow(t, leg, common.RandHash(), 1000, 10)
}

func newEscrow(t *testing.T, leg escrow.Leg, orderHash ethcommon.Hash, amount, safetyDeposit uint64) *escrow.Escrow {
	lock := common.RandHash()
	imm, err := escrow.NewImmutables(escrow.ImmutablesParams{
		OrderHash:     orderHash[:],
		Hashlock:      lock[:],
		Maker:         randAddress(),
		Taker:         randAddress(),
		Token:         randAddress(),
		Amount:        amount,
		SafetyDeposit: safetyDeposit,
		Timelocks: timelock.New(timelock.OffsetsFromArray(
			[8]uint32{10, 20, 30, 40, 5, 15, 25, 35})),
	})
	require.NoError(t, err)
	imm, err = imm.WithDeployedAt(12345)
	require.NoError(t, err)

	e, err := escrow.New(leg, imm.Hash(), imm, 3600, balance.New(amount), balance.New(safetyDeposit), nil)
	require.NoError(t, err)
	return e
}
