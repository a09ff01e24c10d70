package qharness

import (
	"sync"
	"time"
)

// Result is what a scheduled experiment resolves to. Summary is only
// meaningful when Error is nil.
type Result struct {
	ID        string
	Summary   AggregateSummary
	Error     error
	CreatedAt time.Time
	TTL       time.Duration
}

/*
Space holds finished experiment results by job id and hands them to anyone
awaiting them, whether they asked before or after the result arrived.
Results with a TTL are dropped once it expires.
*/
type Space struct {
	mu      sync.Mutex
	values  map[string]Result
	waiting map[string][]chan Result
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewSpace(cleanupInterval time.Duration) *Space {
	s := &Space{
		values:  make(map[string]Result),
		waiting: make(map[string][]chan Result),
		done:    make(chan struct{}),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cleanup(cleanupInterval)
	}()

	return s
}

// Store records the outcome of job id and wakes every waiter.
func (s *Space) Store(id string, summary AggregateSummary, err error, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := Result{
		ID:        id,
		Summary:   summary,
		Error:     err,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
	s.values[id] = result

	for _, ch := range s.waiting[id] {
		ch <- result
		close(ch)
	}
	delete(s.waiting, id)
}

// Await returns a channel that receives the result for id exactly once.
func (s *Space) Await(id string) chan Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Result, 1)
	if result, ok := s.values[id]; ok {
		ch <- result
		close(ch)
		return ch
	}

	s.waiting[id] = append(s.waiting[id], ch)
	return ch
}

// Claim registers the only waiter for id. It fails when id already has a
// waiter or an unexpired result.
func (s *Space) Claim(id string) (chan Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[id]; ok {
		return nil, false
	}
	if len(s.waiting[id]) > 0 {
		return nil, false
	}

	ch := make(chan Result, 1)
	s.waiting[id] = []chan Result{ch}
	return ch, true
}

func (s *Space) cleanup(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.cleanupExpiredValues()
			s.mu.Unlock()
		}
	}
}

func (s *Space) cleanupExpiredValues() {
	now := time.Now()
	for id, result := range s.values {
		if result.TTL > 0 && now.Sub(result.CreatedAt) > result.TTL {
			delete(s.values, id)
		}
	}
}

// Close stops the cleanup loop. Stored results stay readable.
func (s *Space) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
