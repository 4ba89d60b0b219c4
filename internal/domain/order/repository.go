package order

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は注文リポジトリのインターフェース
type Repository interface {
	// Create は注文と明細を作成する（トランザクション必須）
	// 注文番号が重複した場合は ErrOrderNumberConflict を返す
	Create(ctx context.Context, tx transaction.Tx, order *Order) error

	// GetByNumber は注文番号から明細付きの注文を取得する
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)

	// ListByUser はユーザーの注文を新しい順に取得する
	ListByUser(ctx context.Context, userID string) ([]*Order, error)

	// GetSeatDetails は注文に含まれる座席の表示情報を取得する
	GetSeatDetails(ctx context.Context, orderID int64) ([]SeatDetail, error)
}

// SeatDetail は注文詳細に表示する座席
type SeatDetail struct {
	SeatID      int64  `json:"seat_id" db:"seat_id"`
	SectionName string `json:"section_name" db:"section_name"`
	RowName     string `json:"row_name" db:"row_name"`
	SeatNumber  string `json:"seat_number" db:"seat_number"`
}
