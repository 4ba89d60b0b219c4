package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// LockByIDs は座席をID昇順で排他ロックして取得する（トランザクション必須）
	// 存在しないIDは結果に含まれない
	LockByIDs(ctx context.Context, tx transaction.Tx, ids []int64) ([]*Seat, error)

	// LockExpiredHolds は now より前に期限切れとなった仮押さえをID昇順でロックして取得する（トランザクション必須）
	LockExpiredHolds(ctx context.Context, tx transaction.Tx, now time.Time) ([]*Seat, error)

	// Update はロック済みの座席の状態を保存する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// GetByID はIDから座席を取得する
	GetByID(ctx context.Context, id int64) (*Seat, error)

	// GetSeatMap はセクションの座席表を取得する
	GetSeatMap(ctx context.Context, sectionID int64) (*SectionMap, error)
}

// SectionMap はセクションの座席表
type SectionMap struct {
	SectionID int64      `json:"section_id"`
	Rows      []RowSeats `json:"rows"`
}

// RowSeats は列とその座席（座席番号順）
type RowSeats struct {
	RowID    int64      `json:"row_id"`
	RowName  string     `json:"row_name"`
	RowOrder int        `json:"row_order"`
	Seats    []SeatView `json:"seats"`
}

// SeatView は座席表に表示する座席
type SeatView struct {
	SeatID     int64  `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	Status     Status `json:"status"`
}
