package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// DefaultLockTimeout はロック取得の待機上限のデフォルト値
const DefaultLockTimeout = 5 * time.Second

var (
	ErrTxDone        = errors.New("トランザクションは既に終了しています")
	ErrForeignTx     = errors.New("このストアのトランザクションではありません")
	ErrSeatNotLocked = errors.New("ロックしていない座席は更新できません")
)

// Store はプロセス内で完結する座席ストア
// 座席ごとの排他ロックはトランザクション終了まで保持する
type Store struct {
	mu sync.Mutex

	seats    map[int64]*seat.Seat
	sections map[int64]*section.Section
	rows     map[int64]*section.Row
	orders   map[int64]*order.Order
	numbers  map[string]int64

	seatLocks    map[int64]chan struct{}
	sectionLocks map[int64]chan struct{}

	nextSeatID    int64
	nextRowID     int64
	nextSectionID int64
	nextOrderID   int64
	nextItemID    int64

	lockTimeout time.Duration
}

// Option は Store の設定
type Option func(*Store)

// WithLockTimeout はロック取得の待機上限を設定する
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// NewStore は空のストアを作成する
func NewStore(opts ...Option) *Store {
	s := &Store{
		seats:        make(map[int64]*seat.Seat),
		sections:     make(map[int64]*section.Section),
		rows:         make(map[int64]*section.Row),
		orders:       make(map[int64]*order.Order),
		numbers:      make(map[string]int64),
		seatLocks:    make(map[int64]chan struct{}),
		sectionLocks: make(map[int64]chan struct{}),
		lockTimeout:  DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedSection はセクションを登録する
// カタログ管理は扱わないため、テストと開発用の初期データ投入に使う
func (s *Store) SeedSection(eventID int64, name string) *section.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSectionID++
	sec := &section.Section{
		ID:        s.nextSectionID,
		EventID:   eventID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.sections[sec.ID] = sec
	return sec
}

// TxManager はトランザクションマネージャーを返す
func (s *Store) TxManager() *TxManager { return &TxManager{store: s} }

// Seats は座席リポジトリを返す
func (s *Store) Seats() *SeatRepository { return &SeatRepository{store: s} }

// Sections はセクションリポジトリを返す
func (s *Store) Sections() *SectionRepository { return &SectionRepository{store: s} }

// Orders は注文リポジトリを返す
func (s *Store) Orders() *OrderRepository { return &OrderRepository{store: s} }

func (s *Store) seatLock(id int64) chan struct{} {
	l, ok := s.seatLocks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.seatLocks[id] = l
	}
	return l
}

func (s *Store) sectionLock(id int64) chan struct{} {
	l, ok := s.sectionLocks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.sectionLocks[id] = l
	}
	return l
}

// acquire はロックを待機上限付きで取得する
func (s *Store) acquire(ctx context.Context, l chan struct{}) error {
	timer := time.NewTimer(s.lockTimeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		return nil
	case <-timer.C:
		return seat.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TxManager は Store のトランザクションマネージャー
type TxManager struct {
	store *Store
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:       m.store,
		heldSeats:   make(map[int64]chan struct{}),
		heldSection: make(map[int64]chan struct{}),
		seatWrites:  make(map[int64]*seat.Seat),
	}, nil
}

// Tx は Store のトランザクション
// 書き込みはコミット時にまとめて反映する
type Tx struct {
	mu    sync.Mutex
	store *Store
	done  bool

	heldSeats   map[int64]chan struct{}
	heldSection map[int64]chan struct{}

	seatWrites map[int64]*seat.Seat
	layouts    []section.Layout
	orders     []*order.Order
}

// Commit は書き込みを反映してロックを解放する
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.releaseLocked()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range t.orders {
		if _, exists := s.numbers[o.OrderNumber]; exists {
			return order.ErrOrderNumberConflict
		}
	}

	for _, l := range t.layouts {
		s.rows[l.Row.ID] = cloneRow(l.Row)
		for _, st := range l.Seats {
			s.seats[st.ID] = st.Clone()
		}
	}
	for id, st := range t.seatWrites {
		s.seats[id] = st.Clone()
	}
	for _, o := range t.orders {
		s.orders[o.ID] = cloneOrder(o)
		s.numbers[o.OrderNumber] = o.ID
	}
	return nil
}

// Rollback は書き込みを破棄してロックを解放する（終了後は何もしない）
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.releaseLocked()
	return nil
}

func (t *Tx) releaseLocked() {
	for id, l := range t.heldSeats {
		<-l
		delete(t.heldSeats, id)
	}
	for id, l := range t.heldSection {
		<-l
		delete(t.heldSection, id)
	}
	t.seatWrites = nil
	t.layouts = nil
	t.orders = nil
}

func (t *Tx) lockSeat(ctx context.Context, id int64) error {
	if _, ok := t.heldSeats[id]; ok {
		return nil
	}
	t.store.mu.Lock()
	l := t.store.seatLock(id)
	t.store.mu.Unlock()

	if err := t.store.acquire(ctx, l); err != nil {
		return err
	}
	t.heldSeats[id] = l
	return nil
}

func (t *Tx) lockSection(ctx context.Context, id int64) error {
	if _, ok := t.heldSection[id]; ok {
		return nil
	}
	t.store.mu.Lock()
	l := t.store.sectionLock(id)
	t.store.mu.Unlock()

	if err := t.store.acquire(ctx, l); err != nil {
		return err
	}
	t.heldSection[id] = l
	return nil
}

// currentSeat はトランザクション内から見える座席を返す（ストアのロック取得済みで呼ぶ）
func (t *Tx) currentSeat(id int64) (*seat.Seat, bool) {
	if st, ok := t.seatWrites[id]; ok {
		return st, true
	}
	st, ok := t.store.seats[id]
	return st, ok
}

func unwrapTx(tx transaction.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt == nil {
		return nil, ErrForeignTx
	}
	if mt.done {
		return nil, ErrTxDone
	}
	return mt, nil
}

func cloneRow(r *section.Row) *section.Row {
	c := *r
	return &c
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = append([]order.Item(nil), o.Items...)
	return &c
}

func sortedIDs[T any](m map[int64]T, keep func(T) bool) []int64 {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
