package handler

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

// SeatServiceInterface は座席表サービスのインターフェース
type SeatServiceInterface interface {
	GetSeatMap(ctx context.Context, sectionID int64) (*seat.SectionMap, error)
	InitializeSeats(ctx context.Context, input application.InitializeSeatsInput) (*seat.SectionMap, error)
}

// ReservationServiceInterface は座席予約サービスのインターフェース
type ReservationServiceInterface interface {
	Hold(ctx context.Context, input application.HoldInput) (*application.HoldResult, error)
	Release(ctx context.Context, seatIDs []int64, userID string) (int, error)
	Confirm(ctx context.Context, seatIDs []int64, userID string) error
}

// OrderServiceInterface は注文サービスのインターフェース
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, input application.CreateOrderInput) (*application.CreateOrderResult, error)
	GetOrder(ctx context.Context, userID, orderNumber string) (*application.OrderDetail, error)
	ListUserOrders(ctx context.Context, userID string) ([]*order.Order, error)
}

// SweeperInterface は期限切れ仮押さえの掃除を手動実行するインターフェース
type SweeperInterface interface {
	RunOnce(ctx context.Context) (int, error)
}
