package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const (
	DefaultHoldTTL    = 10 * time.Minute
	DefaultMaxHoldTTL = time.Hour
)

// SeatMapCache は座席表キャッシュのインターフェース
// Get はキャッシュにない場合エラーを返す。
// Set は Version で得た世代のまま Invalidate されていない場合のみ保存する。
type SeatMapCache interface {
	Get(ctx context.Context, sectionID int64) (*seat.SectionMap, error)
	Version(ctx context.Context, sectionID int64) (int64, error)
	Set(ctx context.Context, m *seat.SectionMap, version int64) (bool, error)
	Invalidate(ctx context.Context, sectionIDs ...int64) error
}

type options struct {
	clock      clock.Clock
	holdTTL    time.Duration
	maxHoldTTL time.Duration
	cache      SeatMapCache
	publisher  Publisher
	metrics    *metrics.Metrics
	numbers    order.NumberGenerator
}

// Option はサービスの設定
type Option func(*options)

// WithClock は時刻の取得元を設定する
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithHoldTTL は仮押さえ期間のデフォルト値を設定する
func WithHoldTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.holdTTL = d
		}
	}
}

// WithMaxHoldTTL は指定可能な仮押さえ期間の上限を設定する
func WithMaxHoldTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxHoldTTL = d
		}
	}
}

// WithSeatMapCache は座席表キャッシュを設定する
func WithSeatMapCache(c SeatMapCache) Option {
	return func(o *options) { o.cache = c }
}

// WithPublisher はイベントの配信先を設定する
func WithPublisher(p Publisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithNumberGenerator は注文番号の採番方法を設定する
func WithNumberGenerator(g order.NumberGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.numbers = g
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		clock:      clock.NewSystem(),
		holdTTL:    DefaultHoldTTL,
		maxHoldTTL: DefaultMaxHoldTTL,
		publisher:  nopPublisher{},
		numbers:    order.RandomNumberGenerator{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxHoldTTL < o.holdTTL {
		o.maxHoldTTL = o.holdTTL
	}
	return o
}

// invalidate は座席表キャッシュを破棄する（失敗しても処理は継続）
func (o *options) invalidate(ctx context.Context, sectionIDs []int64) {
	if o.cache == nil || len(sectionIDs) == 0 {
		return
	}
	if err := o.cache.Invalidate(ctx, sectionIDs...); err != nil {
		logger.Warn("座席表キャッシュの破棄に失敗",
			zap.Int64s("section_ids", sectionIDs),
			zap.Error(err),
		)
	}
}

// publish はイベントを配信する（失敗しても処理結果は変わらない）
func (o *options) publish(ctx context.Context, routingKey string, msg any) {
	if err := o.publisher.Publish(ctx, routingKey, msg); err != nil {
		logger.Warn("イベント配信に失敗",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}

func (o *options) recordSeatOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = string(failure.KindOf(err))
	}
	o.metrics.SeatOperation(operation, result)
}

// lockSeats は座席をID昇順でロックして取得する
// 存在しない座席がある場合はそのIDを伴う ErrSeatNotFound を返す
func lockSeats(ctx context.Context, repo seat.Repository, tx transaction.Tx, ids []int64) ([]*seat.Seat, error) {
	seats, err := repo.LockByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if len(seats) == len(ids) {
		return seats, nil
	}
	found := make(map[int64]struct{}, len(seats))
	for _, s := range seats {
		found[s.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, seat.WithSeat(id, seat.ErrSeatNotFound)
		}
	}
	return seats, nil
}

func validateSeatRequest(seatIDs []int64, userID string) ([]int64, error) {
	ids := seat.SortIDs(seatIDs)
	if len(ids) == 0 {
		return nil, seat.ErrSeatIDsRequired
	}
	if userID == "" {
		return nil, seat.ErrUserIDRequired
	}
	return ids, nil
}
