package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

type sectionRow struct {
	ID        int64     `db:"id"`
	EventID   int64     `db:"event_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *sectionRow) toEntity() *section.Section {
	return &section.Section{ID: r.ID, EventID: r.EventID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

type SectionRepository struct{ db *sqlx.DB }

func NewSectionRepository(db *sqlx.DB) *SectionRepository { return &SectionRepository{db: db} }

func (r *SectionRepository) LockByID(ctx context.Context, tx transaction.Tx, id int64) (*section.Section, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	var row sectionRow
	query := `SELECT id, event_id, name, created_at FROM sections WHERE id = $1 FOR UPDATE`
	if err := sqlTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, section.ErrSectionNotFound
		}
		return nil, fmt.Errorf("セクションのロックに失敗: %w", translateLockError(err))
	}
	return row.toEntity(), nil
}

func (r *SectionRepository) CountRows(ctx context.Context, tx transaction.Tx, sectionID int64) (int, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := sqlTx.GetContext(ctx, &count, `SELECT COUNT(*) FROM seating_rows WHERE section_id = $1`, sectionID); err != nil {
		return 0, fmt.Errorf("列数の取得に失敗: %w", err)
	}
	return count, nil
}

// CreateLayout は列ごとに列と座席をマルチバリューINSERTで作成する
func (r *SectionRepository) CreateLayout(ctx context.Context, tx transaction.Tx, layouts []section.Layout) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	for _, l := range layouts {
		query := `INSERT INTO seating_rows (section_id, row_name, row_order) VALUES ($1, $2, $3) RETURNING id`
		if err := sqlTx.QueryRowContext(ctx, query, l.Row.SectionID, l.Row.Name, l.Row.Order).Scan(&l.Row.ID); err != nil {
			return fmt.Errorf("列の作成に失敗: %w", err)
		}
		for _, s := range l.Seats {
			s.RowID = l.Row.ID
			s.SectionID = l.Row.SectionID
		}
		if err := createSeatBatch(ctx, sqlTx, l.Seats); err != nil {
			return err
		}
	}
	return nil
}

// createSeatBatch はマルチバリューINSERTで座席を作成し、採番されたIDを設定する
func createSeatBatch(ctx context.Context, tx *sqlx.Tx, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	const cols = 6
	args := make([]interface{}, 0, len(seats)*cols)
	placeholders := make([]string, 0, len(seats))
	for i, s := range seats {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, s.RowID, s.SectionID, s.SeatNumber, s.SeatIndex, string(s.Status), s.UpdatedAt)
	}
	query := `INSERT INTO seats (row_id, section_id, seat_number, seat_index, status, updated_at) VALUES ` +
		strings.Join(placeholders, ", ") + ` RETURNING id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}
	defer rows.Close()

	// RETURNING は VALUES の順に返る
	i := 0
	for rows.Next() {
		if i >= len(seats) {
			break
		}
		if err := rows.Scan(&seats[i].ID); err != nil {
			return fmt.Errorf("座席IDの取得に失敗: %w", err)
		}
		i++
	}
	return rows.Err()
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*section.Section, error) {
	var row sectionRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, event_id, name, created_at FROM sections WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, section.ErrSectionNotFound
		}
		return nil, fmt.Errorf("セクション取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// Create はセクションを作成する（初期データ投入とテスト用）
func (r *SectionRepository) Create(ctx context.Context, s *section.Section) error {
	query := `INSERT INTO sections (event_id, name) VALUES ($1, $2) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, s.EventID, s.Name).Scan(&s.ID, &s.CreatedAt)
}

var _ section.Repository = (*SectionRepository)(nil)
