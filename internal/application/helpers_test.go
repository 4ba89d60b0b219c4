package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

var errCacheMiss = errors.New("cache miss")

var testStart = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

// MockGateway は payment.Gateway のモック
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Pay(ctx context.Context, req payment.Request) (payment.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.Result), args.Error(1)
}

// recordingPublisher は配信されたメッセージを記録する
type recordingPublisher struct {
	mu       sync.Mutex
	messages map[string][]any
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{messages: make(map[string][]any)}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[routingKey] = append(p.messages[routingKey], msg)
	return nil
}

func (p *recordingPublisher) get(routingKey string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.messages[routingKey]...)
}

// fakeSeatMapCache はメモリ上の座席表キャッシュ
type fakeSeatMapCache struct {
	mu          sync.Mutex
	maps        map[int64]*seat.SectionMap
	versions    map[int64]int64
	invalidated []int64
	// beforeSet は保存直前に呼ばれる（ロック外）
	beforeSet func()
}

func newFakeSeatMapCache() *fakeSeatMapCache {
	return &fakeSeatMapCache{
		maps:     make(map[int64]*seat.SectionMap),
		versions: make(map[int64]int64),
	}
}

func (c *fakeSeatMapCache) Version(ctx context.Context, sectionID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[sectionID], nil
}

func (c *fakeSeatMapCache) Get(ctx context.Context, sectionID int64) (*seat.SectionMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.maps[sectionID]
	if !ok {
		return nil, errCacheMiss
	}
	return m, nil
}

func (c *fakeSeatMapCache) Set(ctx context.Context, m *seat.SectionMap, version int64) (bool, error) {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[m.SectionID] != version {
		return false, nil
	}
	c.maps[m.SectionID] = m
	return true, nil
}

func (c *fakeSeatMapCache) Invalidate(ctx context.Context, sectionIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range sectionIDs {
		c.versions[id]++
		delete(c.maps, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func (c *fakeSeatMapCache) invalidatedIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.invalidated...)
}

type testEnv struct {
	store       *memory.Store
	section     *section.Section
	clock       *clock.Manual
	metrics     *metrics.Metrics
	cache       *fakeSeatMapCache
	publisher   *recordingPublisher
	gateway     *MockGateway
	reservation *ReservationService
	seats       *SeatService
	orders      *OrderService
}

// setupTestEnv はメモリストア上にサービス一式を組み立てる
// セクションには A列10席（ID 1-10）を作成する
func setupTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     memory.NewStore(memory.WithLockTimeout(2 * time.Second)),
		clock:     clock.NewManual(testStart),
		metrics:   metrics.NewWithRegistry(prometheus.NewRegistry()),
		cache:     newFakeSeatMapCache(),
		publisher: newRecordingPublisher(),
		gateway:   new(MockGateway),
	}
	env.section = env.store.SeedSection(1, "A区")

	all := append([]Option{
		WithClock(env.clock),
		WithMetrics(env.metrics),
		WithSeatMapCache(env.cache),
		WithPublisher(env.publisher),
	}, opts...)

	tm := env.store.TxManager()
	env.reservation = NewReservationService(tm, env.store.Seats(), all...)
	env.seats = NewSeatService(tm, env.store.Seats(), env.store.Sections(), all...)
	env.orders = NewOrderService(tm, env.store.Seats(), env.store.Orders(), env.gateway, all...)

	_, err := env.seats.InitializeSeats(context.Background(), InitializeSeatsInput{
		SectionID: env.section.ID,
		Rows:      []section.RowSpec{{Name: "A", SeatCount: 10}},
	})
	require.NoError(t, err)
	return env
}

func (e *testEnv) seat(t *testing.T, id int64) *seat.Seat {
	t.Helper()
	s, err := e.store.Seats().GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (e *testEnv) hold(t *testing.T, userID string, ids ...int64) {
	t.Helper()
	_, err := e.reservation.Hold(context.Background(), HoldInput{SeatIDs: ids, UserID: userID})
	require.NoError(t, err)
}

func (e *testEnv) holdAndConfirm(t *testing.T, userID string, ids ...int64) {
	t.Helper()
	e.hold(t, userID, ids...)
	require.NoError(t, e.reservation.Confirm(context.Background(), ids, userID))
}
