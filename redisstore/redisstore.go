// Package redisstore keeps the validator's replay set in redis so that
// several escrow servers can share it.
package redisstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/escrow-go/merkle"
)

const (
	DefaultPrefix = "escrow"

	maxIdle = 5
	timeout = 5 * time.Second
)

// commitScript marks the reveal key and records the validation in one step.
// Returns 0 if the reveal key already exists.
var commitScript = redis.NewScript(2, `
if redis.call('SETNX', KEYS[1], '1') == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[1])
return 1
`)

type Config struct {
	Addr   string // host:port
	Prefix string // key namespace, defaults to DefaultPrefix
}

// Store implements merkle.Store on top of a redis pool.
type Store struct {
	pool   *redis.Pool
	prefix string
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(timeout),
		redis.DialReadTimeout(timeout),
		redis.DialWriteTimeout(timeout),
	}
}

func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle: maxIdle,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", addr, timeoutDialOptions()...) },
	}
}

// New dials redis once so that a bad address fails at startup.
func New(cfg *Config) (*Store, error) {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	pool := NewPool(cfg.Addr)

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}

	return &Store{pool: pool, prefix: prefix}, nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) revealedKey(key ethcommon.Hash) string {
	return fmt.Sprintf("%s:revealed:%s", s.prefix, key.Hex())
}

func (s *Store) validatedKey(key ethcommon.Hash) string {
	return fmt.Sprintf("%s:validated:%s", s.prefix, key.Hex())
}

func (s *Store) IsRevealed(revealKey ethcommon.Hash) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	ok, err := redis.Bool(conn.Do("EXISTS", s.revealedKey(revealKey)))
	if err != nil {
		logger.WithField("key", revealKey.Hex()).Errorf("redis exists: %v", err)
		return false, err
	}
	return ok, nil
}

func (s *Store) Commit(revealKey, validationKey ethcommon.Hash, v merkle.Validation) (bool, error) {
	data, err := encodeValidation(v)
	if err != nil {
		return false, err
	}

	conn := s.pool.Get()
	defer conn.Close()

	n, err := redis.Int(commitScript.Do(conn, s.revealedKey(revealKey), s.validatedKey(validationKey), data))
	if err != nil {
		logger.WithField("key", revealKey.Hex()).Errorf("redis commit: %v", err)
		return false, err
	}
	return n == 1, nil
}

func (s *Store) LastValidated(validationKey ethcommon.Hash) (*merkle.Validation, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", s.validatedKey(validationKey)))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		logger.WithField("key", validationKey.Hex()).Errorf("redis get: %v", err)
		return nil, err
	}
	return decodeValidation(data)
}

type redisValidation struct {
	Index      uint32         `json:"index"`
	SecretHash ethcommon.Hash `json:"secret_hash"`
}

func encodeValidation(v merkle.Validation) ([]byte, error) {
	data, err := json.Marshal(redisValidation{Index: v.Index, SecretHash: v.SecretHash})
	if err != nil {
		return nil, fmt.Errorf("cannot marshal validation to JSON: %w", err)
	}
	return data, nil
}

func decodeValidation(data []byte) (*merkle.Validation, error) {
	var rv redisValidation
	if err := json.Unmarshal(data, &rv); err != nil {
		return nil, fmt.Errorf("cannot unmarshal validation: %w", err)
	}
	return &merkle.Validation{Index: rv.Index, SecretHash: rv.SecretHash}, nil
}
