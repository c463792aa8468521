// Server = sqlite statedb (+ optional redis replay store) + merkle validator + registry + event observers + http reporter.
// All components are configured via environment variables or a config file.

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/escrow-go/events"
	"github.com/TEENet-io/escrow-go/merkle"
	"github.com/TEENet-io/escrow-go/redisstore"
	"github.com/TEENet-io/escrow-go/registry"
	"github.com/TEENet-io/escrow-go/reporter"
	"github.com/TEENet-io/escrow-go/statedb"
)

const (
	// observer channel size if none is configured
	CHANNEL_BUFFER_SIZE = 10

	shutdownTimeout = 5 * time.Second
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type EscrowServerConfig struct {
	DbFilePath string // db file path
	RedisAddr  string // optional, host:port of a shared replay store

	RescueDelay      uint64 // seconds after deployment before funds can be rescued
	EventChannelSize int    // buffer of each event observer

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// EscrowServer holds the objects that make up the escrow server.
type EscrowServer struct {
	sqlDB *sql.DB
	redis *redisstore.Store

	MyStateDb   *statedb.StateDB
	MyValidator *merkle.Validator
	MyPublisher *events.Publisher
	MyRegistry  *registry.Registry
	MyReporter  *reporter.HttpReporter
}

// NewEscrowServer creates and starts the server components.
// ctx is used to stop the observers and the http reporter.
// wg is used to wait for the reporter to shut down.
func NewEscrowServer(esc *EscrowServerConfig, ctx context.Context, wg *sync.WaitGroup) (*EscrowServer, error) {
	myStateDb, sqlDB, err := statedb.Open(esc.DbFilePath)
	if err != nil {
		logger.Errorf("failed to open state db %s: %v", esc.DbFilePath, err)
		return nil, err
	}

	// The validator's replay set lives in the same db unless a redis
	// instance is shared between servers.
	var replayStore merkle.Store = myStateDb
	var myRedis *redisstore.Store
	if esc.RedisAddr != "" {
		myRedis, err = redisstore.New(&redisstore.Config{Addr: esc.RedisAddr})
		if err != nil {
			logger.Errorf("failed to connect to redis %s: %v", esc.RedisAddr, err)
			myStateDb.Close()
			sqlDB.Close()
			return nil, err
		}
		replayStore = myRedis
	}
	myValidator := merkle.NewValidator(replayStore)

	myPublisher := events.NewPublisher()

	myRegistry := registry.New(
		&registry.Config{RescueDelay: esc.RescueDelay},
		myValidator,
		myStateDb,
		myPublisher,
	)
	if _, _, err := myRegistry.Restore(myStateDb); err != nil {
		logger.Errorf("failed to restore registry from %s: %v", esc.DbFilePath, err)
		if myRedis != nil {
			myRedis.Close()
		}
		myStateDb.Close()
		sqlDB.Close()
		return nil, err
	}

	// Observers must be registered before anything is emitted.
	channelSize := esc.EventChannelSize
	if channelSize <= 0 {
		channelSize = CHANNEL_BUFFER_SIZE
	}
	events.Start(ctx, myPublisher,
		events.NewLogObserver(channelSize),
		events.NewStoreObserver(myStateDb, channelSize),
		events.NewSnapshotObserver(myRegistry, channelSize),
	)

	// *** Setup a http server to report status ***
	myReporter := reporter.NewHttpReporter(esc.HttpIp, esc.HttpPort, myStateDb)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := myReporter.Run(); err != nil {
			logger.Errorf("http reporter stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := myReporter.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("failed to shut down http reporter: %v", err)
		}
	}()

	logger.WithFields(logger.Fields{
		"db":    esc.DbFilePath,
		"redis": esc.RedisAddr,
		"http":  esc.HttpIp + ":" + esc.HttpPort,
	}).Info("escrow server started")

	return &EscrowServer{
		sqlDB:       sqlDB,
		redis:       myRedis,
		MyStateDb:   myStateDb,
		MyValidator: myValidator,
		MyPublisher: myPublisher,
		MyRegistry:  myRegistry,
		MyReporter:  myReporter,
	}, nil
}

// Close releases the database. Call it after the context is cancelled.
func (s *EscrowServer) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	s.MyStateDb.Close()
	s.sqlDB.Close()
}

// Create, then start the escrow server and wait.
// Press Ctrl-C to kill the server.
func StartEscrowServerAndWait(esc *EscrowServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	server, err := NewEscrowServer(esc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create escrow server: %v", err)
		return
	}
	defer server.Close()

	// wait for the reporter to finish (after a signal)
	wg.Wait()
}
