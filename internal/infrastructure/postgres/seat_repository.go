package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

const seatColumns = `s.id, s.row_id, s.section_id, s.seat_number, s.seat_index, s.status, s.holder_id, s.hold_expires_at, s.updated_at`

type seatRow struct {
	ID            int64      `db:"id"`
	RowID         int64      `db:"row_id"`
	SectionID     int64      `db:"section_id"`
	SeatNumber    string     `db:"seat_number"`
	SeatIndex     int        `db:"seat_index"`
	Status        string     `db:"status"`
	HolderID      *string    `db:"holder_id"`
	HoldExpiresAt *time.Time `db:"hold_expires_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	s := &seat.Seat{
		ID: r.ID, RowID: r.RowID, SectionID: r.SectionID, SeatNumber: r.SeatNumber, SeatIndex: r.SeatIndex,
		Status: seat.Status(r.Status), HolderID: r.HolderID, UpdatedAt: r.UpdatedAt.UTC(),
	}
	if r.HoldExpiresAt != nil {
		t := r.HoldExpiresAt.UTC()
		s.HoldExpiresAt = &t
	}
	return s
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

// LockByIDs は SELECT ... FOR UPDATE で座席をID昇順にロックする
// ORDER BY の後に行ロックを取るため、取得順は常にID昇順になる
func (r *SeatRepository) LockByIDs(ctx context.Context, tx transaction.Tx, ids []int64) ([]*seat.Seat, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	sorted := seat.SortIDs(ids)
	if len(sorted) == 0 {
		return []*seat.Seat{}, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seats s WHERE s.id = ANY($1) ORDER BY s.id FOR UPDATE`
	var rows []seatRow
	if err := sqlTx.SelectContext(ctx, &rows, query, pq.Array(sorted)); err != nil {
		return nil, fmt.Errorf("座席ロックに失敗: %w", translateLockError(err))
	}
	return toEntities(rows), nil
}

// LockExpiredHolds は期限切れの仮押さえをロックする
// READ COMMITTED ではロック取得後に WHERE 条件が再評価される
func (r *SeatRepository) LockExpiredHolds(ctx context.Context, tx transaction.Tx, now time.Time) ([]*seat.Seat, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + seatColumns + ` FROM seats s WHERE s.status = 'TEMP_HOLD' AND s.hold_expires_at < $1 ORDER BY s.id FOR UPDATE`
	var rows []seatRow
	if err := sqlTx.SelectContext(ctx, &rows, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("期限切れ座席のロックに失敗: %w", translateLockError(err))
	}
	return toEntities(rows), nil
}

func (r *SeatRepository) Update(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE seats SET status = $1, holder_id = $2, hold_expires_at = $3, updated_at = $4 WHERE id = $5`
	for _, s := range seats {
		if err := s.Validate(); err != nil {
			return seat.WithSeat(s.ID, err)
		}
		result, err := sqlTx.ExecContext(ctx, query, string(s.Status), s.HolderID, s.HoldExpiresAt, s.UpdatedAt, s.ID)
		if err != nil {
			return fmt.Errorf("座席更新に失敗: %w", translateLockError(err))
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return seat.WithSeat(s.ID, seat.ErrSeatNotFound)
		}
	}
	return nil
}

func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats s WHERE s.id = $1`
	var row seatRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, seat.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

type seatMapRow struct {
	RowID      int64  `db:"row_id"`
	RowName    string `db:"row_name"`
	RowOrder   int    `db:"row_order"`
	SeatID     int64  `db:"seat_id"`
	SeatNumber string `db:"seat_number"`
	Status     string `db:"status"`
}

func (r *SeatRepository) GetSeatMap(ctx context.Context, sectionID int64) (*seat.SectionMap, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM sections WHERE id = $1)`, sectionID); err != nil {
		return nil, fmt.Errorf("セクション確認に失敗: %w", err)
	}
	if !exists {
		return nil, seat.ErrSectionNotFound
	}

	query := `
		SELECT r.id AS row_id, r.row_name, r.row_order, s.id AS seat_id, s.seat_number, s.status
		FROM seating_rows r
		JOIN seats s ON s.row_id = r.id
		WHERE r.section_id = $1
		ORDER BY r.row_order, r.id, s.seat_index, s.id`
	var rows []seatMapRow
	if err := r.db.SelectContext(ctx, &rows, query, sectionID); err != nil {
		return nil, fmt.Errorf("座席表取得に失敗: %w", err)
	}

	m := &seat.SectionMap{SectionID: sectionID, Rows: []seat.RowSeats{}}
	for _, row := range rows {
		n := len(m.Rows)
		if n == 0 || m.Rows[n-1].RowID != row.RowID {
			m.Rows = append(m.Rows, seat.RowSeats{
				RowID: row.RowID, RowName: row.RowName, RowOrder: row.RowOrder, Seats: []seat.SeatView{},
			})
			n++
		}
		m.Rows[n-1].Seats = append(m.Rows[n-1].Seats, seat.SeatView{
			SeatID: row.SeatID, SeatNumber: row.SeatNumber, Status: seat.Status(row.Status),
		})
	}
	return m, nil
}

func toEntities(rows []seatRow) []*seat.Seat {
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats
}

var _ seat.Repository = (*SeatRepository)(nil)
