package application

import (
	"context"
	"time"
)

// ルーティングキー
const (
	RoutingKeyOrderPaid       = "order.paid"
	RoutingKeySeatHoldExpired = "seat.hold.expired"
)

// Publisher はドメインイベントを配信する
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// OrderPaidMessage は注文確定時に配信するメッセージ
type OrderPaidMessage struct {
	OrderNumber   string    `json:"order_number"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	SeatIDs       []int64   `json:"seat_ids"`
	TotalAmount   int64     `json:"total_amount"`
	TransactionID string    `json:"transaction_id,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// HoldsExpiredMessage は期限切れの仮押さえを解放した際に配信するメッセージ
type HoldsExpiredMessage struct {
	SeatIDs    []int64   `json:"seat_ids"`
	SectionIDs []int64   `json:"section_ids"`
	ReleasedAt time.Time `json:"released_at"`
}
