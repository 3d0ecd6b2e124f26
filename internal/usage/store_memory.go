package usage

import (
	"context"
	"sync"
)

type counterKey struct {
	owner  string
	period string
	metric Metric
}

type memoryStore struct {
	mu   sync.RWMutex
	data map[counterKey]int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[counterKey]int)}
}

func (s *memoryStore) Counts(ctx context.Context, ownerID, period string) (map[Metric]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Metric]int, len(Metrics))
	for _, m := range Metrics {
		out[m] = s.data[counterKey{ownerID, period, m}]
	}
	return out, nil
}

func (s *memoryStore) Consume(ctx context.Context, ownerID, period string, m Metric, n, limit int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := counterKey{ownerID, period, m}
	s.mu.Lock()
	defer s.mu.Unlock()
	used := s.data[key]
	if n <= 0 {
		return used, nil
	}
	if limit > 0 && used+n > limit {
		return used, ErrLimitReached
	}
	used += n
	s.data[key] = used
	return used, nil
}

func (s *memoryStore) Reset(ctx context.Context, ownerID, period string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range Metrics {
		delete(s.data, counterKey{ownerID, period, m})
	}
	return nil
}
