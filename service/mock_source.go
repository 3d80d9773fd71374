package service

import (
	"context"
	"sync"
	"time"
)

// MockSource implements an in-memory UpdateSource for testing.
type MockSource struct {
	mu      sync.Mutex
	updates []*BurnUpdate
}

func NewMockSource() *MockSource {
	return &MockSource{}
}

// Publish announces a burn to the subscribers on their next tick.
func (m *MockSource) Publish(data, traceData []byte, correlationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, &BurnUpdate{
		Data:          data,
		Trace:         traceData,
		CorrelationID: correlationID,
	})
}

func (m *MockSource) SubscribeBurns(ctx context.Context, interval time.Duration) (<-chan *BurnUpdate, error) {
	ch := make(chan *BurnUpdate)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.mu.Lock()
				pending := m.updates
				m.updates = nil // Clear after sending
				m.mu.Unlock()
				for _, u := range pending {
					select {
					case ch <- u:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return ch, nil
}
