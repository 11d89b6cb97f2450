package clock

import (
	"sync"
	"time"
)

// Clock 帳本使用的時間來源，所有期限判斷都以它為準
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem 以 time.Now 為準的系統時鐘（UTC）
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual 手動時鐘，只在呼叫 Advance 或 Set 時前進，供測試使用
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance 前進 d 並回傳新時間
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}
