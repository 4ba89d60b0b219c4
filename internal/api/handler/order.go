package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
)

type OrderHandler struct {
	service OrderServiceInterface
}

func NewOrderHandler(s OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

type CardholderRequest struct {
	Name        string `json:"name" validate:"required" example:"山田太郎"`
	Email       string `json:"email" validate:"required,email" example:"taro@example.com"`
	PhoneNumber string `json:"phone_number" validate:"required" example:"+886912345678"`
}

type CreateOrderRequest struct {
	SeatIDs    []int64           `json:"seat_ids" validate:"required,min=1,dive,gt=0" example:"1,2"`
	Amount     int64             `json:"amount" validate:"required,gt=0" example:"3000"`
	Prime      string            `json:"prime" validate:"required"`
	Cardholder CardholderRequest `json:"cardholder"`
}

type CreateOrderResponse struct {
	OrderNumber    string `json:"order_number,omitempty" example:"ORD20250601123456"`
	PaymentStatus  int    `json:"payment_status" example:"0"`
	PaymentMessage string `json:"payment_message" example:"Success"`
}

type OrderSummary struct {
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	PaidAt      time.Time `json:"paid_at"`
}

type OrderListResponse struct {
	Orders []OrderSummary `json:"orders"`
}

type OrderDetailResponse struct {
	OrderSummary
	EventID       int64              `json:"event_id"`
	PaymentMethod string             `json:"payment_method"`
	Seats         []order.SeatDetail `json:"seats"`
}

func toOrderSummary(o *order.Order) OrderSummary {
	return OrderSummary{
		OrderNumber: o.OrderNumber,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		PaidAt:      o.PaidAt,
	}
}

// Create godoc
// @Summary 予約確定済みの座席を決済して注文を作成
// @Tags orders
// @Accept json
// @Produce json
// @Param event_id path int true "イベントID"
// @Param request body CreateOrderRequest true "決済情報"
// @Success 201 {object} CreateOrderResponse
// @Failure 402 {object} CreateOrderResponse "決済拒否"
// @Failure 409 {object} api.ErrorResponse "座席が予約確定されていない"
// @Router /orders/{event_id} [post]
func (h *OrderHandler) Create(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	eventID, err := parseID(c, "event_id")
	if err != nil {
		return err
	}
	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.CreateOrder(c.Request().Context(), application.CreateOrderInput{
		EventID: eventID,
		UserID:  userID,
		SeatIDs: req.SeatIDs,
		Amount:  req.Amount,
		Token:   req.Prime,
		Payer: payment.Payer{
			Name:        req.Cardholder.Name,
			Email:       req.Cardholder.Email,
			PhoneNumber: req.Cardholder.PhoneNumber,
		},
	})
	if err != nil {
		// 決済拒否は決済サービスのステータスをそのまま返す
		var declined *order.DeclinedError
		if errors.As(err, &declined) {
			return c.JSON(http.StatusPaymentRequired, CreateOrderResponse{
				PaymentStatus:  declined.Status,
				PaymentMessage: declined.Message,
			})
		}
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusCreated, CreateOrderResponse{
		OrderNumber:    res.OrderNumber,
		PaymentStatus:  res.PaymentStatus,
		PaymentMessage: res.PaymentMessage,
	})
}

// ListMine godoc
// @Summary 自分の注文一覧
// @Tags orders
// @Produce json
// @Success 200 {object} OrderListResponse
// @Router /orders/my [get]
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	orders, err := h.service.ListUserOrders(c.Request().Context(), userID)
	if err != nil {
		return api.ToHTTPError(err)
	}
	resp := OrderListResponse{Orders: make([]OrderSummary, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = toOrderSummary(o)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary 注文詳細
// @Tags orders
// @Produce json
// @Param order_number path string true "注文番号"
// @Success 200 {object} OrderDetailResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /orders/{order_number} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	d, err := h.service.GetOrder(c.Request().Context(), userID, c.Param("order_number"))
	if err != nil {
		return api.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, OrderDetailResponse{
		OrderSummary:  toOrderSummary(d.Order),
		EventID:       d.Order.EventID,
		PaymentMethod: string(d.Order.PaymentMethod),
		Seats:         d.Seats,
	})
}
