package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

type orderRow struct {
	ID            int64     `db:"id"`
	OrderNumber   string    `db:"order_number"`
	UserID        string    `db:"user_id"`
	EventID       int64     `db:"event_id"`
	PaymentMethod string    `db:"payment_method"`
	TotalAmount   int64     `db:"total_amount"`
	Status        string    `db:"status"`
	PaidAt        time.Time `db:"paid_at"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *orderRow) toEntity() *order.Order {
	return &order.Order{
		ID: r.ID, OrderNumber: r.OrderNumber, UserID: r.UserID, EventID: r.EventID,
		PaymentMethod: order.PaymentMethod(r.PaymentMethod), TotalAmount: r.TotalAmount,
		Status: order.Status(r.Status), PaidAt: r.PaidAt.UTC(), CreatedAt: r.CreatedAt.UTC(),
	}
}

type itemRow struct {
	ID      int64 `db:"id"`
	OrderID int64 `db:"order_id"`
	SeatID  int64 `db:"seat_id"`
	Price   int64 `db:"price"`
}

const orderColumns = `id, order_number, user_id, event_id, payment_method, total_amount, status, paid_at, created_at`

type OrderRepository struct{ db *sqlx.DB }

func NewOrderRepository(db *sqlx.DB) *OrderRepository { return &OrderRepository{db: db} }

// Create は注文と明細を作成する
// 注文番号の一意制約違反は ErrOrderNumberConflict に変換する
func (r *OrderRepository) Create(ctx context.Context, tx transaction.Tx, o *order.Order) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO orders (order_number, user_id, event_id, payment_method, total_amount, status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err = sqlTx.QueryRowContext(ctx, query,
		o.OrderNumber, o.UserID, o.EventID, string(o.PaymentMethod), o.TotalAmount, string(o.Status), o.PaidAt, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			return order.ErrOrderNumberConflict
		}
		return fmt.Errorf("注文作成に失敗: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, seat_id, price) VALUES ($1, $2, $3) RETURNING id`
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		if err := sqlTx.QueryRowContext(ctx, itemQuery, o.ID, o.Items[i].SeatID, o.Items[i].Price).Scan(&o.Items[i].ID); err != nil {
			return fmt.Errorf("注文明細作成に失敗: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var row orderRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("注文取得に失敗: %w", err)
	}
	o := row.toEntity()

	var items []itemRow
	if err := r.db.SelectContext(ctx, &items, `SELECT id, order_id, seat_id, price FROM order_items WHERE order_id = $1 ORDER BY seat_id`, o.ID); err != nil {
		return nil, fmt.Errorf("注文明細取得に失敗: %w", err)
	}
	for _, it := range items {
		o.Items = append(o.Items, order.Item{ID: it.ID, OrderID: it.OrderID, SeatID: it.SeatID, Price: it.Price})
	}
	return o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	var rows []orderRow
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY paid_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("注文一覧取得に失敗: %w", err)
	}
	orders := make([]*order.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].toEntity()
	}
	return orders, nil
}

func (r *OrderRepository) GetSeatDetails(ctx context.Context, orderID int64) ([]order.SeatDetail, error) {
	query := `
		SELECT s.id AS seat_id, sec.name AS section_name, r.row_name, s.seat_number
		FROM order_items oi
		JOIN seats s ON s.id = oi.seat_id
		JOIN seating_rows r ON r.id = s.row_id
		JOIN sections sec ON sec.id = s.section_id
		WHERE oi.order_id = $1
		ORDER BY s.id`
	details := []order.SeatDetail{}
	if err := r.db.SelectContext(ctx, &details, query, orderID); err != nil {
		return nil, fmt.Errorf("注文座席の取得に失敗: %w", err)
	}
	return details, nil
}

var _ order.Repository = (*OrderRepository)(nil)
