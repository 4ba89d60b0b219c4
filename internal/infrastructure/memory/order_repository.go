package memory

import (
	"context"
	"sort"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// OrderRepository は Store 上の注文リポジトリ
type OrderRepository struct {
	store *Store
}

// Create は注文に採番してトランザクションに書き込む
// 注文番号の一意性はコミット時にも再検査する
func (r *OrderRepository) Create(ctx context.Context, tx transaction.Tx, o *order.Order) error {
	mt, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.numbers[o.OrderNumber]; exists {
		return order.ErrOrderNumberConflict
	}
	for _, pending := range mt.orders {
		if pending.OrderNumber == o.OrderNumber {
			return order.ErrOrderNumberConflict
		}
	}

	r.store.nextOrderID++
	o.ID = r.store.nextOrderID
	for i := range o.Items {
		r.store.nextItemID++
		o.Items[i].ID = r.store.nextItemID
		o.Items[i].OrderID = o.ID
	}
	mt.orders = append(mt.orders, cloneOrder(o))
	return nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	id, ok := r.store.numbers[orderNumber]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(r.store.orders[id]), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	orders := make([]*order.Order, 0)
	for _, o := range r.store.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].PaidAt.Equal(orders[j].PaidAt) {
			return orders[i].PaidAt.After(orders[j].PaidAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (r *OrderRepository) GetSeatDetails(ctx context.Context, orderID int64) ([]order.SeatDetail, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	o, ok := r.store.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	details := make([]order.SeatDetail, 0, len(o.Items))
	for _, item := range o.Items {
		d := order.SeatDetail{SeatID: item.SeatID}
		if st, ok := r.store.seats[item.SeatID]; ok {
			d.SeatNumber = st.SeatNumber
			if row, ok := r.store.rows[st.RowID]; ok {
				d.RowName = row.Name
			}
			if sec, ok := r.store.sections[st.SectionID]; ok {
				d.SectionName = sec.Name
			}
		}
		details = append(details, d)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].SeatID < details[j].SeatID })
	return details, nil
}

var _ order.Repository = (*OrderRepository)(nil)
