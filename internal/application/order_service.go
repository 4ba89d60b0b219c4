package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// 注文番号が重複した場合にローカルトランザクションをやり直す回数
const maxOrderNumberAttempts = 3

const paymentDetails = "Ticketing Payment"

// OrderService は予約確定済みの座席を決済して販売済みにする
type OrderService struct {
	txManager transaction.Manager
	seatRepo  seat.Repository
	orderRepo order.Repository
	gateway   payment.Gateway
	opts      options
}

func NewOrderService(tm transaction.Manager, sr seat.Repository, or order.Repository, gw payment.Gateway, opts ...Option) *OrderService {
	return &OrderService{txManager: tm, seatRepo: sr, orderRepo: or, gateway: gw, opts: newOptions(opts)}
}

// CreateOrderInput は注文作成の入力
type CreateOrderInput struct {
	EventID int64
	UserID  string
	SeatIDs []int64
	Amount  int64
	Token   string
	Payer   payment.Payer
}

// CreateOrderResult は注文作成の結果
type CreateOrderResult struct {
	OrderNumber    string
	PaymentStatus  int
	PaymentMessage string
}

func (in CreateOrderInput) validate() ([]int64, error) {
	ids, err := validateSeatRequest(in.SeatIDs, in.UserID)
	if err != nil {
		return nil, err
	}
	if in.EventID <= 0 {
		return nil, order.ErrEventIDRequired
	}
	if in.Amount <= 0 {
		return nil, order.ErrInvalidAmount
	}
	if in.Token == "" {
		return nil, order.ErrPaymentTokenRequired
	}
	return ids, nil
}

// CreateOrder は決済を行い、成功した場合に注文を作成して座席を販売済みにする
//
// 決済サービスの呼び出し中は座席ロックを保持しない。
// 決済後に座席を再検証し、注文作成に失敗した場合は座席を予約確定のまま残して
// ErrReconciliationRequired を返す（再決済はしない）。
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	ids, err := input.validate()
	if err != nil {
		return nil, err
	}

	// 1. 決済前の検証
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		seats, err := lockSeats(ctx, s.seatRepo, tx, ids)
		if err != nil {
			return err
		}
		for _, st := range seats {
			if err := st.CheckReservedBy(input.UserID); err != nil {
				return seat.WithSeat(st.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.opts.metrics.Order("rejected")
		return nil, err
	}

	// 2. 決済（ロックなし）
	result, err := s.gateway.Pay(ctx, payment.Request{
		Amount:         input.Amount,
		Token:          input.Token,
		Payer:          input.Payer,
		Details:        paymentDetails,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		s.opts.metrics.Order("payment_error")
		logger.Warn("決済サービスの呼び出しに失敗",
			zap.String("user_id", input.UserID),
			zap.Int64s("seat_ids", ids),
			zap.Error(err),
		)
		return nil, fmt.Errorf("決済に失敗: %w", err)
	}
	if !result.Succeeded() {
		s.opts.metrics.Order("declined")
		logger.Info("決済が拒否されました",
			zap.String("user_id", input.UserID),
			zap.Int64s("seat_ids", ids),
			zap.Int("status", result.Status),
			zap.String("message", result.Message),
		)
		return nil, &order.DeclinedError{Status: result.Status, Message: result.Message}
	}

	// 3. 注文作成と販売確定
	var (
		o          *order.Order
		sectionIDs []int64
	)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		o, sectionIDs, err = s.finalize(ctx, input, ids)
		if !errors.Is(err, order.ErrOrderNumberConflict) {
			break
		}
		logger.Warn("注文番号が重複したため再採番", zap.Int("attempt", attempt))
	}
	if err != nil {
		s.opts.metrics.Order("reconciliation_required")
		logger.Error("決済済みの注文確定に失敗",
			zap.String("user_id", input.UserID),
			zap.Int64("event_id", input.EventID),
			zap.Int64s("seat_ids", ids),
			zap.Int64("amount", input.Amount),
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", order.ErrReconciliationRequired, err)
	}
	s.opts.metrics.Order("paid")

	s.opts.invalidate(ctx, sectionIDs)
	s.opts.publish(ctx, RoutingKeyOrderPaid, OrderPaidMessage{
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		EventID:       o.EventID,
		SeatIDs:       ids,
		TotalAmount:   o.TotalAmount,
		TransactionID: result.TransactionID,
		PaidAt:        o.PaidAt,
	})
	logger.Info("注文を確定",
		zap.String("order_number", o.OrderNumber),
		zap.String("user_id", o.UserID),
		zap.Int64s("seat_ids", ids),
	)

	return &CreateOrderResult{
		OrderNumber:    o.OrderNumber,
		PaymentStatus:  result.Status,
		PaymentMessage: result.Message,
	}, nil
}

// finalize は座席を再検証し、注文を作成して座席を販売済みにする
func (s *OrderService) finalize(ctx context.Context, input CreateOrderInput, ids []int64) (*order.Order, []int64, error) {
	var (
		o          *order.Order
		sectionIDs []int64
	)
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		seats, err := lockSeats(ctx, s.seatRepo, tx, ids)
		if err != nil {
			return err
		}
		for _, st := range seats {
			if err := st.CheckReservedBy(input.UserID); err != nil {
				return seat.WithSeat(st.ID, err)
			}
		}

		now := s.opts.clock.Now()
		number, err := s.opts.numbers.Generate(now)
		if err != nil {
			return err
		}
		o = order.NewPaidOrder(number, input.UserID, input.EventID, ids, input.Amount, now)
		if err := o.Validate(); err != nil {
			return err
		}
		if err := s.orderRepo.Create(ctx, tx, o); err != nil {
			return err
		}

		for _, st := range seats {
			if err := st.Sell(input.UserID, now); err != nil {
				return seat.WithSeat(st.ID, err)
			}
		}
		sectionIDs = seat.SectionIDs(seats)
		return s.seatRepo.Update(ctx, tx, seats)
	})
	if err != nil {
		return nil, nil, err
	}
	return o, sectionIDs, nil
}

// OrderDetail は注文と座席の表示情報
type OrderDetail struct {
	Order *order.Order
	Seats []order.SeatDetail
}

// GetOrder は注文番号から注文を取得する
// 他のユーザーの注文は存在しないものとして扱う
func (s *OrderService) GetOrder(ctx context.Context, userID, orderNumber string) (*OrderDetail, error) {
	if !order.IsValidNumber(orderNumber) {
		return nil, order.ErrOrderNotFound
	}
	o, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, order.ErrOrderNotFound
	}
	seats, err := s.orderRepo.GetSeatDetails(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &OrderDetail{Order: o, Seats: seats}, nil
}

// ListUserOrders はユーザーの注文を新しい順に返す
func (s *OrderService) ListUserOrders(ctx context.Context, userID string) ([]*order.Order, error) {
	if userID == "" {
		return nil, order.ErrUserIDRequired
	}
	return s.orderRepo.ListByUser(ctx, userID)
}
