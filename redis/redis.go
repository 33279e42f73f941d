package redis

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gobridgerelay/types"

	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	processedSet = "bridgeops:processed"
	failedSet    = "bridgeops:failed"
)

// Store persists poll cursors, the idempotency ledger and failed-dispatch
// records. The ledger is mirrored in an in-process set so the at-most-once
// check never depends on a Redis round trip; Redis adds durability across
// restarts. Ledger entries are never deleted, growth is bounded only by
// Redis memory.
type Store struct {
	pool   *redis.Pool
	logger *logrus.Logger

	mu        sync.RWMutex
	processed map[string]struct{}

	// memory-only fallback state, used when no pool is configured
	memMu       sync.Mutex
	memCursors  map[int]int64
	memFailures []*types.FailureRecord
}

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

// New connects to Redis and warms the in-process ledger mirror from the
// persisted set. Connection failure is fatal for the caller to decide on;
// a relay without persistence re-dispatches on restart.
func New(host string, port int, logger *logrus.Logger) (*Store, error) {
	redisAddr := fmt.Sprintf("%s:%d", host, port)
	pool := &redis.Pool{
		MaxIdle: 5,
		Dial:    func() (redis.Conn, error) { return redis.Dial("tcp", redisAddr, timeoutDialOptions()...) },
	}

	s := &Store{
		pool:       pool,
		logger:     logger,
		processed:  make(map[string]struct{}),
		memCursors: make(map[int]int64),
	}

	conn := pool.Get()
	defer conn.Close()

	keys, err := redis.Strings(conn.Do("SMEMBERS", processedSet))
	if err != nil {
		return nil, errors.Wrap(err, "error loading processed ledger from Redis")
	}
	for _, k := range keys {
		s.processed[k] = struct{}{}
	}
	logger.Infof("loaded %d processed ledger entries from Redis", len(keys))

	return s, nil
}

// NewMemory builds a Store without persistence. Used by tests and as the
// degraded mode when Redis is not configured.
func NewMemory(logger *logrus.Logger) *Store {
	return &Store{
		logger:     logger,
		processed:  make(map[string]struct{}),
		memCursors: make(map[int]int64),
	}
}

// GetScannedBlock returns the last fully-scanned block height for a network,
// or -1 when the network has never been scanned.
func (s *Store) GetScannedBlock(chainID int) (int64, error) {
	if s.pool == nil {
		s.memMu.Lock()
		defer s.memMu.Unlock()
		if h, ok := s.memCursors[chainID]; ok {
			return h, nil
		}
		return -1, nil
	}

	conn := s.pool.Get()
	defer conn.Close()

	height, err := redis.Int64(conn.Do("GET", fmt.Sprintf("chainBlockScanned:%d", chainID)))
	if err == nil {
		return height, nil
	}

	if errors.Is(err, redis.ErrNil) {
		return -1, nil
	}

	s.logger.WithError(err).Error("error Redis get")
	return -1, err
}

func (s *Store) SetScannedBlock(chainID int, height int64) error {
	if s.pool == nil {
		s.memMu.Lock()
		s.memCursors[chainID] = height
		s.memMu.Unlock()
		return nil
	}

	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("SET", fmt.Sprintf("chainBlockScanned:%d", chainID), height)
	if err != nil {
		s.logger.WithError(err).Error("error Redis set")
		return err
	}

	return nil
}

// HasProcessed reports whether a destination action was already confirmed
// for the namespaced transaction key.
func (s *Store) HasProcessed(key string) bool {
	s.mu.RLock()
	_, ok := s.processed[key]
	s.mu.RUnlock()
	return ok
}

// MarkProcessed records the key as done. Only call after the destination
// transaction has a confirmed receipt. The in-process mirror is updated even
// when the Redis write fails, so a flaky Redis degrades durability but never
// the at-most-once guarantee within this process.
func (s *Store) MarkProcessed(key string) error {
	s.mu.Lock()
	s.processed[key] = struct{}{}
	s.mu.Unlock()

	if s.pool == nil {
		return nil
	}

	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("SADD", processedSet, key)
	if err != nil {
		s.logger.WithError(err).Error("error Redis SADD")
		return err
	}

	return nil
}

// ProcessedCount returns the number of ledger entries.
func (s *Store) ProcessedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processed)
}

// SaveFailure stores a failed-dispatch record for operator replay.
func (s *Store) SaveFailure(rec *types.FailureRecord) error {
	if rec == nil {
		return errors.New("null object to store")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if s.pool == nil {
		s.memMu.Lock()
		s.memFailures = append(s.memFailures, rec)
		s.memMu.Unlock()
		return nil
	}

	conn := s.pool.Get()
	defer conn.Close()

	recordKey := fmt.Sprintf("bridgefail:%s", rec.ID)

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "cannot marshal failure record to JSON")
	}

	_, err = conn.Do("SET", recordKey, recJSON)
	if err != nil {
		s.logger.WithError(err).Error("error Redis SET")
		return err
	}

	// also add the key to the corresponding SET
	_, err = conn.Do("SADD", failedSet, recordKey)
	if err != nil {
		s.logger.WithError(err).Error("error Redis SADD")
		return err
	}

	return nil
}

// ListFailures scans every failure record present.
// Older/processed records are never compacted, so this stays O(n).
func (s *Store) ListFailures() ([]*types.FailureRecord, error) {
	if s.pool == nil {
		s.memMu.Lock()
		defer s.memMu.Unlock()
		out := make([]*types.FailureRecord, len(s.memFailures))
		copy(out, s.memFailures)
		return out, nil
	}

	conn := s.pool.Get()
	defer conn.Close()

	recs := make([]*types.FailureRecord, 0)

	var cursor int64
	for {
		values, err := redis.Values(conn.Do("SSCAN", failedSet, cursor))
		if err != nil {
			return nil, err
		}

		var recordKeys []string
		values, err = redis.Scan(values, &cursor, &recordKeys)
		if err != nil {
			return nil, err
		}

		for _, key := range recordKeys {
			raw, err := redis.Bytes(conn.Do("GET", key))
			if errors.Is(err, redis.ErrNil) {
				continue
			}
			if err != nil {
				s.logger.WithError(err).Error("error Redis GET")
				return nil, err
			}

			var rec types.FailureRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, err
			}
			recs = append(recs, &rec)
		}

		if cursor == 0 {
			break
		}
	}

	return recs, nil
}
