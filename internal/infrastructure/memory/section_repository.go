package memory

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// SectionRepository は Store 上のセクションリポジトリ
type SectionRepository struct {
	store *Store
}

func (r *SectionRepository) LockByID(ctx context.Context, tx transaction.Tx, id int64) (*section.Section, error) {
	mt, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	sec, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mt.lockSection(ctx, id); err != nil {
		return nil, err
	}
	return sec, nil
}

func (r *SectionRepository) CountRows(ctx context.Context, tx transaction.Tx, sectionID int64) (int, error) {
	mt, err := unwrapTx(tx)
	if err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, row := range r.store.rows {
		if row.SectionID == sectionID {
			count++
		}
	}
	for _, l := range mt.layouts {
		if l.Row.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

// CreateLayout は列と座席に採番し、コミット時に反映する
func (r *SectionRepository) CreateLayout(ctx context.Context, tx transaction.Tx, layouts []section.Layout) error {
	mt, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, l := range layouts {
		r.store.nextRowID++
		l.Row.ID = r.store.nextRowID
		for _, st := range l.Seats {
			r.store.nextSeatID++
			st.ID = r.store.nextSeatID
			st.RowID = l.Row.ID
			st.SectionID = l.Row.SectionID
		}
		mt.layouts = append(mt.layouts, l)
	}
	return nil
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*section.Section, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sec, ok := r.store.sections[id]
	if !ok {
		return nil, section.ErrSectionNotFound
	}
	c := *sec
	return &c, nil
}

var _ section.Repository = (*SectionRepository)(nil)
