// This is a http type of reporter.
// It fetches escrows, orders and events from statedb
// and publishes them on the http routes.

package reporter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/escrow-go/common"
	"github.com/TEENet-io/escrow-go/escrow"
	"github.com/TEENet-io/escrow-go/partialfill"
	"github.com/TEENet-io/escrow-go/statedb"
	"github.com/TEENet-io/escrow-go/timelock"
)

const (
	ROUTE_HELLO         = "/hello"
	ROUTE_ESCROWS       = "/escrows"
	ROUTE_ESCROW        = "/escrow/:id"
	ROUTE_ESCROW_EVENTS = "/escrow/:id/events"
	ROUTE_ORDER         = "/order/:id"
	ROUTE_ORDER_FILLS   = "/order/:id/fills"
	ROUTE_ORDER_EVENTS  = "/order/:id/events"
	ROUTE_EVENTS        = "/events"

	HEADER_REQUEST_ID = "X-Request-Id"

	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// Source is what the reporter reads from. *statedb.StateDB implements it.
type Source interface {
	GetEscrow(id ethcommon.Hash) (*escrow.Snapshot, bool, error)
	GetEscrowsByStatus(status escrow.Status) ([]*escrow.Snapshot, error)
	GetOrder(id ethcommon.Hash) (*partialfill.Snapshot, bool, error)
	GetFills(orderID ethcommon.Hash) ([]partialfill.Fill, error)
	ListEvents(after uint64, limit int) ([]statedb.StoredEvent, error)
	GetEventsBySubject(subject ethcommon.Hash) ([]statedb.StoredEvent, error)
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data source
	source Source

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewHttpReporter(serverIP string, serverPort string, source Source) *HttpReporter {
	return &HttpReporter{
		serverIP:   serverIP,
		serverPort: serverPort,
		source:     source,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(requestID())

	router.GET(ROUTE_HELLO, Hello)
	router.GET(ROUTE_ESCROWS, h.Escrows)
	router.GET(ROUTE_ESCROW, h.Escrow)
	router.GET(ROUTE_ESCROW_EVENTS, h.SubjectEvents)
	router.GET(ROUTE_ORDER, h.Order)
	router.GET(ROUTE_ORDER_FILLS, h.OrderFills)
	router.GET(ROUTE_ORDER_EVENTS, h.SubjectEvents)
	router.GET(ROUTE_EVENTS, h.Events)

	return router
}

// Run serves until Shutdown is called.
func (h *HttpReporter) Run() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:    h.serverIP + ":" + h.serverPort,
		Handler: h.SetupRouter(),
	}
	h.server = srv
	h.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a running server. A later Run returns immediately.
func (h *HttpReporter) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	srv := h.server
	h.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requestID tags every response with an id, reusing the caller's if given.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HEADER_REQUEST_ID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(HEADER_REQUEST_ID, id)
		c.Header(HEADER_REQUEST_ID, id)
		c.Next()
	}
}

func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

type EscrowView struct {
	ID            ethcommon.Hash   `json:"id"`
	Leg           string           `json:"leg"`
	OrderHash     ethcommon.Hash   `json:"order_hash"`
	Hashlock      ethcommon.Hash   `json:"hashlock"`
	Maker         string           `json:"maker"`
	Taker         string           `json:"taker"`
	Token         string           `json:"token"`
	Amount        uint64           `json:"amount"`
	SafetyDeposit uint64           `json:"safety_deposit"`
	DeployedAt    uint64           `json:"deployed_at"`
	Offsets       timelock.Offsets `json:"offsets"`
	RescueDelay   uint64           `json:"rescue_delay"`
	TokenBalance  uint64           `json:"token_balance"`
	NativeBalance uint64           `json:"native_balance"`
	Status        escrow.Status    `json:"status"`
}

func newEscrowView(e *escrow.Snapshot) (*EscrowView, error) {
	imm := e.Immutables
	schedule, err := imm.Timelocks.Schedule()
	if err != nil {
		return nil, err
	}
	return &EscrowView{
		ID:            e.ID,
		Leg:           e.Leg.String(),
		OrderHash:     imm.OrderHash,
		Hashlock:      imm.Hashlock,
		Maker:         imm.Maker.String(),
		Taker:         imm.Taker.String(),
		Token:         imm.Token.String(),
		Amount:        imm.Amount,
		SafetyDeposit: imm.SafetyDeposit,
		DeployedAt:    schedule.DeployedAt(),
		Offsets:       schedule.Offsets(),
		RescueDelay:   e.RescueDelay,
		TokenBalance:  e.Token,
		NativeBalance: e.Native,
		Status:        e.Status,
	}, nil
}

type OrderView struct {
	ID        ethcommon.Hash `json:"id"`
	Total     uint64         `json:"total"`
	Remaining uint64         `json:"remaining"`
	Parts     uint32         `json:"parts"`
	Root      hexutil.Bytes  `json:"root"`
	FillCount uint32         `json:"fill_count"`
	Completed bool           `json:"completed"`
}

func newOrderView(o *partialfill.Snapshot) *OrderView {
	return &OrderView{
		ID:        o.ID,
		Total:     o.Total,
		Remaining: o.Remaining,
		Parts:     o.Parts,
		Root:      o.Root[:],
		FillCount: o.FillCount,
		Completed: o.Completed,
	}
}

func parseID(c *gin.Context) (ethcommon.Hash, bool) {
	id, ok := common.HexStrToHash(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a 32-byte hex string"})
	}
	return id, ok
}

func (h *HttpReporter) Escrow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	e, found, err := h.source.GetEscrow(id)
	if err != nil {
		logger.WithField("escrow", id.String()).Errorf("failed to read escrow: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No escrow found"})
		return
	}

	view, err := newEscrowView(e)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

// Escrows lists escrows by status: ?status=active|withdrawn|cancelled
func (h *HttpReporter) Escrows(c *gin.Context) {
	status := escrow.Status(c.DefaultQuery("status", string(escrow.StatusActive)))
	switch status {
	case escrow.StatusActive, escrow.StatusWithdrawn, escrow.StatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active, withdrawn or cancelled"})
		return
	}

	snaps, err := h.source.GetEscrowsByStatus(status)
	if err != nil {
		logger.WithField("status", status).Errorf("failed to list escrows: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]*EscrowView, 0, len(snaps))
	for _, snap := range snaps {
		view, err := newEscrowView(snap)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (h *HttpReporter) Order(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	o, found, err := h.source.GetOrder(id)
	if err != nil {
		logger.WithField("order", id.String()).Errorf("failed to read order: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "No order found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newOrderView(o)})
}

func (h *HttpReporter) OrderFills(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fills, err := h.source.GetFills(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fills})
}

// SubjectEvents returns the events of one escrow or order, oldest first.
func (h *HttpReporter) SubjectEvents(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	events, err := h.source.GetEventsBySubject(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

// Events pages through the event log: ?after=<seq>&limit=<n>
func (h *HttpReporter) Events(c *gin.Context) {
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "after must be an unsigned integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.source.ListEvents(after, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}
