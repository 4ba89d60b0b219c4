package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	redislock "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const sweepLockKey = "expired-hold-sweeper"

// HoldReleaser は期限切れの仮押さえを解放するインターフェース
type HoldReleaser interface {
	ReleaseExpiredHolds(ctx context.Context) (int, error)
}

// ExpiredHoldSweeper は期限切れの仮押さえを定期的に空席へ戻すワーカー
// プロセスのライフサイクルに合わせて Start / Stop する
type ExpiredHoldSweeper struct {
	releaser HoldReleaser
	interval time.Duration
	locker   redislock.Locker
	metrics  *metrics.Metrics
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SweeperOption は ExpiredHoldSweeper の設定
type SweeperOption func(*ExpiredHoldSweeper)

// WithLocker は複数レプリカで掃除が重複しないよう分散ロックを使う
func WithLocker(l redislock.Locker) SweeperOption {
	return func(s *ExpiredHoldSweeper) { s.locker = l }
}

// WithSweeperMetrics はロック競合によるスキップを記録する
func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *ExpiredHoldSweeper) { s.metrics = m }
}

// NewExpiredHoldSweeper は新しいスイーパーを作成
func NewExpiredHoldSweeper(r HoldReleaser, interval time.Duration, opts ...SweeperOption) *ExpiredHoldSweeper {
	s := &ExpiredHoldSweeper{
		releaser: r,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start はスイーパーを開始（Stop かコンテキストキャンセルまでブロックする）
func (s *ExpiredHoldSweeper) Start(ctx context.Context) {
	logger.Info("期限切れ仮押さえスイーパー開始",
		zap.Duration("interval", s.interval),
		zap.Bool("distributed_lock", s.locker != nil),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ仮押さえスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れ仮押さえスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止し、実行中の掃除の完了を待つ
func (s *ExpiredHoldSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// RunOnce は掃除を1回実行し、解放した座席数を返す（管理者の手動実行用）
func (s *ExpiredHoldSweeper) RunOnce(ctx context.Context) (int, error) {
	return s.releaser.ReleaseExpiredHolds(ctx)
}

// sweep は定期実行される掃除
// エラーはログに記録し、次回の実行で再試行する
func (s *ExpiredHoldSweeper) sweep(ctx context.Context) {
	log := logger.Get()

	if s.locker != nil {
		lock, err := s.locker.AcquireLock(ctx, sweepLockKey, s.interval)
		if err != nil {
			if errors.Is(err, redislock.ErrLockNotAcquired) {
				log.Debug("他のインスタンスが掃除中のためスキップ")
				s.metrics.Sweep("skipped", 0)
				return
			}
			// Redis 障害時はロックなしで続行する
			log.Warn("分散ロックの取得に失敗", zap.Error(err))
		} else {
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					log.Warn("分散ロックの解放に失敗", zap.Error(err))
				}
			}()
		}
	}

	log.Debug("期限切れ仮押さえの掃除開始")
	count, err := s.releaser.ReleaseExpiredHolds(ctx)
	if err != nil {
		log.Error("期限切れ仮押さえの掃除失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ仮押さえを解放", zap.Int("released", count))
	} else {
		log.Debug("期限切れ仮押さえなし")
	}
}
