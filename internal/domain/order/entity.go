package order

import (
	"time"
)

// Status は注文の状態を表す
type Status string

const (
	StatusPaid Status = "PAID"
)

// PaymentMethod は支払い方法を表す
type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
)

// Order は注文エンティティを表す
// 決済が成功した場合にのみ作成される
type Order struct {
	ID            int64
	OrderNumber   string
	UserID        string
	EventID       int64
	PaymentMethod PaymentMethod
	TotalAmount   int64
	Status        Status
	PaidAt        time.Time
	CreatedAt     time.Time
	Items         []Item
}

// Item は注文明細（1座席につき1件）
type Item struct {
	ID      int64
	OrderID int64
	SeatID  int64
	Price   int64
}

// NewPaidOrder は支払い済みの注文を作成する
// 金額は座席ごとに均等に割り当て、端数は先頭の明細に加算する
func NewPaidOrder(orderNumber, userID string, eventID int64, seatIDs []int64, totalAmount int64, paidAt time.Time) *Order {
	paidAt = paidAt.UTC()
	o := &Order{
		OrderNumber:   orderNumber,
		UserID:        userID,
		EventID:       eventID,
		PaymentMethod: PaymentMethodCreditCard,
		TotalAmount:   totalAmount,
		Status:        StatusPaid,
		PaidAt:        paidAt,
		CreatedAt:     paidAt,
	}
	if len(seatIDs) == 0 {
		return o
	}

	n := int64(len(seatIDs))
	unit := totalAmount / n
	remainder := totalAmount - unit*n
	o.Items = make([]Item, 0, len(seatIDs))
	for i, id := range seatIDs {
		price := unit
		if i == 0 {
			price += remainder
		}
		o.Items = append(o.Items, Item{SeatID: id, Price: price})
	}
	return o
}

// SeatIDs は注文に含まれる座席IDを返す
func (o *Order) SeatIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		ids = append(ids, item.SeatID)
	}
	return ids
}

// IsOwnedBy は注文が userID のものかを返す
func (o *Order) IsOwnedBy(userID string) bool {
	return o.UserID == userID
}

// Validate は注文の検証を行う
func (o *Order) Validate() error {
	if !IsValidNumber(o.OrderNumber) {
		return ErrInvalidOrderNumber
	}
	if o.UserID == "" {
		return ErrUserIDRequired
	}
	if o.EventID <= 0 {
		return ErrEventIDRequired
	}
	if o.TotalAmount <= 0 {
		return ErrInvalidAmount
	}
	if len(o.Items) == 0 {
		return ErrItemsRequired
	}
	var sum int64
	for _, item := range o.Items {
		sum += item.Price
	}
	if sum != o.TotalAmount {
		return ErrInvalidAmount
	}
	return nil
}
