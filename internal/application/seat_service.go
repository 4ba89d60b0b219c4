package application

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

type SeatService struct {
	txManager   transaction.Manager
	seatRepo    seat.Repository
	sectionRepo section.Repository
	opts        options
}

func NewSeatService(tm transaction.Manager, sr seat.Repository, secr section.Repository, opts ...Option) *SeatService {
	return &SeatService{txManager: tm, seatRepo: sr, sectionRepo: secr, opts: newOptions(opts)}
}

// GetSeatMap はセクションの座席表を返す（キャッシュ優先）
func (s *SeatService) GetSeatMap(ctx context.Context, sectionID int64) (*seat.SectionMap, error) {
	cache := s.opts.cache
	if cache != nil {
		if m, err := cache.Get(ctx, sectionID); err == nil {
			return m, nil
		}
	}

	// 世代は DB を読む前に取得する
	var version int64
	if cache != nil {
		v, err := cache.Version(ctx, sectionID)
		if err != nil {
			logger.Warn("座席表キャッシュの世代取得に失敗", zap.Int64("section_id", sectionID), zap.Error(err))
			cache = nil
		}
		version = v
	}

	m, err := s.seatRepo.GetSeatMap(ctx, sectionID)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		stored, err := cache.Set(ctx, m, version)
		if err != nil {
			logger.Warn("座席表のキャッシュ保存に失敗", zap.Int64("section_id", sectionID), zap.Error(err))
		} else if !stored {
			logger.Debug("座席表が更新されたためキャッシュ保存を省略", zap.Int64("section_id", sectionID))
		}
	}
	return m, nil
}

// InitializeSeatsInput は座席初期化の入力
type InitializeSeatsInput struct {
	SectionID int64
	Rows      []section.RowSpec
}

// InitializeSeats はセクションに列と空席を作成する
// 既に列があるセクションは ErrSectionAlreadyInitialized となる
func (s *SeatService) InitializeSeats(ctx context.Context, input InitializeSeatsInput) (*seat.SectionMap, error) {
	layouts, err := section.BuildLayout(input.SectionID, input.Rows)
	if err != nil {
		return nil, err
	}

	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		if _, err := s.sectionRepo.LockByID(ctx, tx, input.SectionID); err != nil {
			return err
		}
		n, err := s.sectionRepo.CountRows(ctx, tx, input.SectionID)
		if err != nil {
			return err
		}
		if n > 0 {
			return section.ErrSectionAlreadyInitialized
		}
		return s.sectionRepo.CreateLayout(ctx, tx, layouts)
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, l := range layouts {
		total += len(l.Seats)
	}
	logger.Info("座席を初期化",
		zap.Int64("section_id", input.SectionID),
		zap.Int("rows", len(layouts)),
		zap.Int("seats", total),
	)

	s.opts.invalidate(ctx, []int64{input.SectionID})
	return s.seatRepo.GetSeatMap(ctx, input.SectionID)
}
