package cmd_test

// The test includes:
// 1. Set up of a real escrow server backed by a sqlite file.
// 2. Create a source escrow through the registry and withdraw it.
// 3. Read the persisted state back through the http reporter.

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/balance"
	"github.com/TEENet-io/escrow-go/cmd"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/escrow"
	"github.com/TEENet-io/escrow-go/hashlock"
	"github.com/TEENet-io/escrow-go/logconfig"
	"github.com/TEENet-io/escrow-go/reporter"
	"github.com/TEENet-io/escrow-go/timelock"
)

const (
	HTTP_IP        = "127.0.0.1"
	DEPLOYED_AT    = 1000
	ESCROW_AMOUNT  = 100
	SAFETY_DEPOSIT = 5
)

func freePort(t *testing.T) string {
	l, err := net.Listen("tcp", HTTP_IP+":0")
	require.NoError(t, err)
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}

func TestEscrowServer(t *testing.T) {
	logconfig.ConfigDebugLogger()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	esc := &cmd.EscrowServerConfig{
		DbFilePath:       filepath.Join(t.TempDir(), "escrow.db"),
		RescueDelay:      3600,
		EventChannelSize: cmd.CHANNEL_BUFFER_SIZE,
		HttpIp:           HTTP_IP,
		HttpPort:         freePort(t),
	}
	server, err := cmd.NewEscrowServer(esc, ctx, &wg)
	require.NoError(t, err)
	defer func() {
		cancel()
		wg.Wait()
		server.Close()
	}()

	reader := reporter.NewHttpReader(esc.HttpIp, esc.HttpPort)
	require.Eventually(t, func() bool {
		_, err := reader.GetHello()
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)

	secret := common.RandBytes(32)
	lock := hashlock.Hash(secret)
	orderHash := common.RandHash()
	maker := agreement.AddressFromEth(1, common.RandEthAddress())
	taker := agreement.AddressFromEth(1, common.RandEthAddress())

	imm, err := escrow.NewImmutables(escrow.ImmutablesParams{
		OrderHash:     orderHash[:],
		Hashlock:      lock[:],
		Maker:         maker,
		Taker:         taker,
		Token:         agreement.AddressFromEth(1, common.RandEthAddress()),
		Amount:        ESCROW_AMOUNT,
		SafetyDeposit: SAFETY_DEPOSIT,
		Timelocks: timelock.New(timelock.Offsets{
			SrcWithdrawal: 60, SrcPublicWithdrawal: 120, SrcCancellation: 600, SrcPublicCancellation: 700,
			DstWithdrawal: 30, DstPublicWithdrawal: 90, DstCancellation: 500, DstPublicCancellation: 550,
		}),
	})
	require.NoError(t, err)

	e, _, err := server.MyRegistry.CreateSrcEscrow(
		agreement.TxContext{Sender: taker, Timestamp: DEPLOYED_AT},
		imm, balance.New(ESCROW_AMOUNT), balance.New(SAFETY_DEPOSIT),
	)
	require.NoError(t, err)

	payout, err := e.Withdraw(agreement.TxContext{Sender: taker, Timestamp: DEPLOYED_AT + 60}, secret)
	require.NoError(t, err)
	assert.Equal(t, uint64(ESCROW_AMOUNT), payout.Funds.Amount.Value())
	assert.Equal(t, taker, payout.Funds.To)

	// The snapshot observer persists the escrow after the withdrawal event.
	id := e.ID().String()
	require.Eventually(t, func() bool {
		code, body, err := reader.GetEscrow(id)
		if err != nil || code != http.StatusOK {
			return false
		}
		var resp struct {
			Data reporter.EscrowView `json:"data"`
		}
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return false
		}
		return resp.Data.Status == escrow.StatusWithdrawn && resp.Data.TokenBalance == 0
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		code, body, err := reader.GetEvents(0, 10)
		if err != nil || code != http.StatusOK {
			return false
		}
		var resp struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			return false
		}
		return len(resp.Data) == 2
	}, 5*time.Second, 50*time.Millisecond)
}

func TestEscrowServerRestoresRegistry(t *testing.T) {
	logconfig.ConfigDebugLogger()
	dbPath := filepath.Join(t.TempDir(), "escrow.db")

	start := func() (*cmd.EscrowServer, func()) {
		ctx, cancel := context.WithCancel(context.Background())
		var wg sync.WaitGroup
		server, err := cmd.NewEscrowServer(&cmd.EscrowServerConfig{
			DbFilePath:  dbPath,
			RescueDelay: 3600,
			HttpIp:      HTTP_IP,
			HttpPort:    freePort(t),
		}, ctx, &wg)
		require.NoError(t, err)
		return server, func() {
			cancel()
			wg.Wait()
			server.Close()
		}
	}

	lock := hashlock.Hash(common.RandBytes(32))
	orderHash := common.RandHash()
	taker := agreement.AddressFromEth(1, common.RandEthAddress())
	imm, err := escrow.NewImmutables(escrow.ImmutablesParams{
		OrderHash: orderHash[:],
		Hashlock:  lock[:],
		Maker:     agreement.AddressFromEth(1, common.RandEthAddress()),
		Taker:     taker,
		Token:     agreement.AddressFromEth(1, common.RandEthAddress()),
		Amount:    ESCROW_AMOUNT,
		Timelocks: timelock.New(timelock.Offsets{DstWithdrawal: 30, DstPublicWithdrawal: 90, DstCancellation: 500}),
	})
	require.NoError(t, err)

	server, stop := start()
	e, _, err := server.MyRegistry.CreateDstEscrow(
		agreement.TxContext{Sender: taker, Timestamp: DEPLOYED_AT},
		imm, balance.New(ESCROW_AMOUNT), balance.New(0),
	)
	require.NoError(t, err)
	stop()

	server, stop = start()
	defer stop()

	restored, ok := server.MyRegistry.EscrowByID(e.ID())
	require.True(t, ok)
	assert.Equal(t, escrow.StatusActive, restored.Status())
	assert.Equal(t, e.ID(), restored.Immutables().Hash())

	id, ok := server.MyRegistry.EscrowIDForOrder(escrow.Destination, orderHash)
	require.True(t, ok)
	assert.Equal(t, e.ID(), id)
}
