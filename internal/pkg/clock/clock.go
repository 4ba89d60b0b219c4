package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を返す
// 期限の判定はすべてこの時計（UTC）で行う
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem は time.Now に基づく時計を返す
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Manual はテスト用の手動で進める時計
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual は t を現在時刻とする時計を返す
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance は時計を d だけ進める
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set は現在時刻を t に設定する
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}
