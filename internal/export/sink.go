package export

import (
	"context"
	"sync"
	"time"
)

// OutputSink stores an encoded output and returns a reference to it.
type OutputSink interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, expiresAt time.Time, err error)
}

// MemorySink keeps outputs in memory. It backs local development and tests.
type MemorySink struct {
	mu      sync.Mutex
	objects map[string][]byte
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySink creates a MemorySink whose references expire after ttl.
func NewMemorySink(ttl time.Duration) *MemorySink {
	return &MemorySink{objects: make(map[string][]byte), ttl: ttl, now: time.Now}
}

// Put implements OutputSink.
func (s *MemorySink) Put(_ context.Context, key, _ string, data []byte) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return "memory://" + key, s.now().Add(s.ttl), nil
}

// Get returns a stored object.
func (s *MemorySink) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored objects.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
