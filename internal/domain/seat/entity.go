package seat

import (
	"sort"
	"time"
)

// Status は座席の状態を表す
type Status string

const (
	StatusVacant   Status = "VACANT"
	StatusTempHold Status = "TEMP_HOLD"
	StatusReserved Status = "RESERVED"
	StatusSold     Status = "SOLD"
)

// transitions は許可される状態遷移
// RESERVED → SOLD は注文確定処理のみが行う
var transitions = map[Status][]Status{
	StatusVacant:   {StatusTempHold},
	StatusTempHold: {StatusReserved, StatusVacant},
	StatusReserved: {StatusSold},
	StatusSold:     {},
}

// IsValid は定義済みの状態かを返す
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo は next への遷移が許可されているかを返す
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Seat は座席エンティティを表す
type Seat struct {
	ID            int64
	RowID         int64
	SectionID     int64
	SeatNumber    string
	SeatIndex     int // 列内の並び順（1始まり）
	Status        Status
	HolderID      *string
	HoldExpiresAt *time.Time
	UpdatedAt     time.Time
}

// NewSeat は空席状態の座席を作成する
func NewSeat(rowID, sectionID int64, seatNumber string) *Seat {
	return &Seat{
		RowID:      rowID,
		SectionID:  sectionID,
		SeatNumber: seatNumber,
		Status:     StatusVacant,
		UpdatedAt:  time.Now().UTC(),
	}
}

// IsVacant は座席が空席かを返す
func (s *Seat) IsVacant() bool {
	return s.Status == StatusVacant
}

// IsHeldBy は座席を userID が保持しているかを返す
func (s *Seat) IsHeldBy(userID string) bool {
	return s.HolderID != nil && *s.HolderID == userID
}

// IsHoldExpired は仮押さえが now 時点で期限切れかを返す
// 期限ちょうどの時刻は期限切れとみなす
func (s *Seat) IsHoldExpired(now time.Time) bool {
	if s.Status != StatusTempHold || s.HoldExpiresAt == nil {
		return false
	}
	return !now.Before(*s.HoldExpiresAt)
}

// Hold は座席を仮押さえ状態にする
func (s *Seat) Hold(userID string, now, expiresAt time.Time) error {
	if s.Status != StatusVacant {
		return ErrSeatNotVacant
	}
	if !expiresAt.After(now) {
		return ErrInvalidHoldTTL
	}
	if err := s.transition(StatusTempHold, now); err != nil {
		return err
	}
	holder := userID
	expiry := expiresAt.UTC()
	s.HolderID = &holder
	s.HoldExpiresAt = &expiry
	return nil
}

// Release は userID の仮押さえを解放する
// 対象外の座席は何もせず false を返す
func (s *Seat) Release(userID string, now time.Time) bool {
	if s.Status != StatusTempHold || !s.IsHeldBy(userID) {
		return false
	}
	s.vacate(now)
	return true
}

// Expire は期限切れの仮押さえを解放する
// 期限が now より前の仮押さえのみが対象
func (s *Seat) Expire(now time.Time) bool {
	if s.Status != StatusTempHold || s.HoldExpiresAt == nil || !s.HoldExpiresAt.Before(now) {
		return false
	}
	s.vacate(now)
	return true
}

// Confirm は仮押さえを予約確定状態にする
func (s *Seat) Confirm(userID string, now time.Time) error {
	if s.Status != StatusTempHold {
		return ErrSeatNotHeld
	}
	if !s.IsHeldBy(userID) {
		return ErrSeatNotOwned
	}
	if s.IsHoldExpired(now) {
		return ErrHoldExpired
	}
	if err := s.transition(StatusReserved, now); err != nil {
		return err
	}
	s.HoldExpiresAt = nil
	return nil
}

// CheckReservedBy は座席が userID によって予約確定されているかを検証する
func (s *Seat) CheckReservedBy(userID string) error {
	if s.Status != StatusReserved {
		return ErrSeatNotReserved
	}
	if !s.IsHeldBy(userID) {
		return ErrSeatNotOwned
	}
	return nil
}

// Sell は予約確定済みの座席を販売済みにする
func (s *Seat) Sell(userID string, now time.Time) error {
	if err := s.CheckReservedBy(userID); err != nil {
		return err
	}
	if err := s.transition(StatusSold, now); err != nil {
		return err
	}
	s.HolderID = nil
	s.HoldExpiresAt = nil
	return nil
}

// Validate は座席の不変条件を検証する
func (s *Seat) Validate() error {
	if s.SeatNumber == "" {
		return ErrSeatNumberRequired
	}
	switch s.Status {
	case StatusTempHold:
		if s.HolderID == nil || s.HoldExpiresAt == nil {
			return ErrInconsistentState
		}
	case StatusReserved:
		if s.HolderID == nil || s.HoldExpiresAt != nil {
			return ErrInconsistentState
		}
	case StatusVacant, StatusSold:
		if s.HolderID != nil || s.HoldExpiresAt != nil {
			return ErrInconsistentState
		}
	default:
		return ErrInconsistentState
	}
	return nil
}

func (s *Seat) vacate(now time.Time) {
	s.Status = StatusVacant
	s.HolderID = nil
	s.HoldExpiresAt = nil
	s.UpdatedAt = now
}

func (s *Seat) transition(next Status, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	s.Status = next
	s.UpdatedAt = now
	return nil
}

// Clone はコピーを返す
func (s *Seat) Clone() *Seat {
	c := *s
	if s.HolderID != nil {
		h := *s.HolderID
		c.HolderID = &h
	}
	if s.HoldExpiresAt != nil {
		e := *s.HoldExpiresAt
		c.HoldExpiresAt = &e
	}
	return &c
}

// SortIDs は重複を除いた座席IDを昇順で返す
// ロックは必ずこの順序で取得する（デッドロック防止）
func SortIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	sorted := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}

// SectionIDs は座席が属するセクションIDを重複なしで返す
func SectionIDs(seats []*Seat) []int64 {
	ids := make([]int64, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.SectionID)
	}
	return SortIDs(ids)
}
