package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// ReservationService は座席の仮押さえ・解放・予約確定を調停する
// 座席ロックは常にID昇順で取得し、トランザクション終了時に解放される
type ReservationService struct {
	txManager transaction.Manager
	seatRepo  seat.Repository
	opts      options
}

func NewReservationService(tm transaction.Manager, sr seat.Repository, opts ...Option) *ReservationService {
	return &ReservationService{txManager: tm, seatRepo: sr, opts: newOptions(opts)}
}

// HoldInput は仮押さえの入力
// TTL が0の場合はデフォルトの仮押さえ期間を使う
type HoldInput struct {
	SeatIDs []int64
	UserID  string
	TTL     time.Duration
}

// HoldResult は仮押さえの結果
type HoldResult struct {
	SeatIDs   []int64
	HoldUntil time.Time
}

// Hold は座席をまとめて仮押さえする
// 1席でも空席でなければ何も変更せずにエラーを返す
func (s *ReservationService) Hold(ctx context.Context, input HoldInput) (*HoldResult, error) {
	ids, err := validateSeatRequest(input.SeatIDs, input.UserID)
	if err != nil {
		return nil, err
	}
	ttl := input.TTL
	if ttl == 0 {
		ttl = s.opts.holdTTL
	}
	if ttl < 0 || ttl > s.opts.maxHoldTTL {
		return nil, seat.ErrInvalidHoldTTL
	}

	var (
		result     *HoldResult
		sectionIDs []int64
	)
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		seats, err := lockSeats(ctx, s.seatRepo, tx, ids)
		if err != nil {
			return err
		}
		// 期限はロック取得後の時刻から計算する
		now := s.opts.clock.Now()
		expiresAt := now.Add(ttl)
		for _, st := range seats {
			if err := st.Hold(input.UserID, now, expiresAt); err != nil {
				return seat.WithSeat(st.ID, err)
			}
		}
		if err := s.seatRepo.Update(ctx, tx, seats); err != nil {
			return err
		}
		result = &HoldResult{SeatIDs: ids, HoldUntil: expiresAt}
		sectionIDs = seat.SectionIDs(seats)
		return nil
	})
	s.opts.recordSeatOperation("hold", err)
	if err != nil {
		return nil, err
	}

	s.opts.invalidate(ctx, sectionIDs)
	logger.Info("座席を仮押さえ",
		zap.String("user_id", input.UserID),
		zap.Int64s("seat_ids", ids),
		zap.Time("hold_until", result.HoldUntil),
	)
	return result, nil
}

// Release はユーザーの仮押さえを解放し、解放した座席数を返す
// 仮押さえ中でない座席や他人の座席は何もせずに読み飛ばす
func (s *ReservationService) Release(ctx context.Context, seatIDs []int64, userID string) (int, error) {
	ids, err := validateSeatRequest(seatIDs, userID)
	if err != nil {
		return 0, err
	}

	var (
		released   []*seat.Seat
		sectionIDs []int64
	)
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		seats, err := s.seatRepo.LockByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		now := s.opts.clock.Now()
		for _, st := range seats {
			if st.Release(userID, now) {
				released = append(released, st)
			}
		}
		if len(released) == 0 {
			return nil
		}
		sectionIDs = seat.SectionIDs(released)
		return s.seatRepo.Update(ctx, tx, released)
	})
	s.opts.recordSeatOperation("release", err)
	if err != nil {
		return 0, err
	}

	s.opts.invalidate(ctx, sectionIDs)
	if len(released) > 0 {
		logger.Info("仮押さえを解放",
			zap.String("user_id", userID),
			zap.Int64s("seat_ids", ids),
			zap.Int("released", len(released)),
		)
	}
	return len(released), nil
}

// Confirm は仮押さえ中の座席をまとめて予約確定する
// 期限切れの仮押さえは ErrHoldExpired、状態や保持者の不一致は Conflict となる
func (s *ReservationService) Confirm(ctx context.Context, seatIDs []int64, userID string) error {
	ids, err := validateSeatRequest(seatIDs, userID)
	if err != nil {
		return err
	}

	var sectionIDs []int64
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		seats, err := lockSeats(ctx, s.seatRepo, tx, ids)
		if err != nil {
			return err
		}
		now := s.opts.clock.Now()
		for _, st := range seats {
			if err := st.Confirm(userID, now); err != nil {
				return seat.WithSeat(st.ID, err)
			}
		}
		if err := s.seatRepo.Update(ctx, tx, seats); err != nil {
			return err
		}
		sectionIDs = seat.SectionIDs(seats)
		return nil
	})
	s.opts.recordSeatOperation("confirm", err)
	if err != nil {
		return err
	}

	s.opts.invalidate(ctx, sectionIDs)
	logger.Info("座席を予約確定",
		zap.String("user_id", userID),
		zap.Int64s("seat_ids", ids),
	)
	return nil
}

// ReleaseExpiredHolds は期限切れの仮押さえをすべて空席に戻し、解放した座席数を返す
func (s *ReservationService) ReleaseExpiredHolds(ctx context.Context) (int, error) {
	var (
		released   []int64
		sectionIDs []int64
		now        time.Time
	)
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		now = s.opts.clock.Now()
		seats, err := s.seatRepo.LockExpiredHolds(ctx, tx, now)
		if err != nil {
			return err
		}
		expired := make([]*seat.Seat, 0, len(seats))
		for _, st := range seats {
			if st.Expire(now) {
				expired = append(expired, st)
				released = append(released, st.ID)
			}
		}
		if len(expired) == 0 {
			return nil
		}
		sectionIDs = seat.SectionIDs(expired)
		return s.seatRepo.Update(ctx, tx, expired)
	})
	if err != nil {
		s.opts.metrics.Sweep("error", 0)
		return 0, err
	}
	s.opts.metrics.Sweep("success", len(released))

	if len(released) > 0 {
		s.opts.invalidate(ctx, sectionIDs)
		s.opts.publish(ctx, RoutingKeySeatHoldExpired, HoldsExpiredMessage{
			SeatIDs:    released,
			SectionIDs: sectionIDs,
			ReleasedAt: now,
		})
	}
	return len(released), nil
}
