package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// SeatRepository は Store 上の座席リポジトリ
type SeatRepository struct {
	store *Store
}

// LockByIDs は座席をID昇順でロックして取得する
func (r *SeatRepository) LockByIDs(ctx context.Context, tx transaction.Tx, ids []int64) ([]*seat.Seat, error) {
	mt, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	result := make([]*seat.Seat, 0, len(ids))
	for _, id := range seat.SortIDs(ids) {
		r.store.mu.Lock()
		_, exists := mt.currentSeat(id)
		r.store.mu.Unlock()
		if !exists {
			continue
		}
		if err := mt.lockSeat(ctx, id); err != nil {
			return nil, err
		}
		r.store.mu.Lock()
		st, _ := mt.currentSeat(id)
		result = append(result, st.Clone())
		r.store.mu.Unlock()
	}
	return result, nil
}

// LockExpiredHolds は期限切れの仮押さえをID昇順でロックして取得する
// ロック取得後に条件を再評価し、その間に変化した座席は除く
func (r *SeatRepository) LockExpiredHolds(ctx context.Context, tx transaction.Tx, now time.Time) ([]*seat.Seat, error) {
	mt, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	r.store.mu.Lock()
	candidates := sortedIDs(r.store.seats, func(s *seat.Seat) bool { return expiredBefore(s, now) })
	r.store.mu.Unlock()

	result := make([]*seat.Seat, 0, len(candidates))
	for _, id := range candidates {
		if err := mt.lockSeat(ctx, id); err != nil {
			return nil, err
		}
		r.store.mu.Lock()
		st, ok := mt.currentSeat(id)
		if ok && expiredBefore(st, now) {
			result = append(result, st.Clone())
		}
		r.store.mu.Unlock()
	}
	return result, nil
}

func expiredBefore(s *seat.Seat, now time.Time) bool {
	return s.Status == seat.StatusTempHold && s.HoldExpiresAt != nil && s.HoldExpiresAt.Before(now)
}

// Update はロック済みの座席の変更をトランザクションに書き込む
func (r *SeatRepository) Update(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	mt, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	for _, st := range seats {
		if _, ok := mt.heldSeats[st.ID]; !ok {
			return seat.WithSeat(st.ID, ErrSeatNotLocked)
		}
		if err := st.Validate(); err != nil {
			return seat.WithSeat(st.ID, err)
		}
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, st := range seats {
		mt.seatWrites[st.ID] = st.Clone()
	}
	return nil
}

// GetByID はコミット済みの座席を取得する
func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*seat.Seat, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	st, ok := r.store.seats[id]
	if !ok {
		return nil, seat.ErrSeatNotFound
	}
	return st.Clone(), nil
}

// GetSeatMap はセクションの座席表を取得する
func (r *SeatRepository) GetSeatMap(ctx context.Context, sectionID int64) (*seat.SectionMap, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.sections[sectionID]; !ok {
		return nil, seat.ErrSectionNotFound
	}

	m := &seat.SectionMap{SectionID: sectionID, Rows: []seat.RowSeats{}}
	index := make(map[int64]int)
	for _, row := range r.store.rows {
		if row.SectionID != sectionID {
			continue
		}
		index[row.ID] = len(m.Rows)
		m.Rows = append(m.Rows, seat.RowSeats{
			RowID:    row.ID,
			RowName:  row.Name,
			RowOrder: row.Order,
			Seats:    []seat.SeatView{},
		})
	}
	members := make([][]*seat.Seat, len(m.Rows))
	for _, st := range r.store.seats {
		if i, ok := index[st.RowID]; ok {
			members[i] = append(members[i], st)
		}
	}
	for i, seats := range members {
		sort.Slice(seats, func(a, b int) bool {
			if seats[a].SeatIndex != seats[b].SeatIndex {
				return seats[a].SeatIndex < seats[b].SeatIndex
			}
			return seats[a].ID < seats[b].ID
		})
		for _, st := range seats {
			m.Rows[i].Seats = append(m.Rows[i].Seats, seat.SeatView{
				SeatID:     st.ID,
				SeatNumber: st.SeatNumber,
				Status:     st.Status,
			})
		}
	}

	sort.Slice(m.Rows, func(i, j int) bool {
		if m.Rows[i].RowOrder != m.Rows[j].RowOrder {
			return m.Rows[i].RowOrder < m.Rows[j].RowOrder
		}
		return m.Rows[i].RowID < m.Rows[j].RowID
	})
	return m, nil
}

var _ seat.Repository = (*SeatRepository)(nil)
