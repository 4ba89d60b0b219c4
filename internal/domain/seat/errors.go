package seat

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
)

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound       = failure.New(failure.KindNotFound, "座席が見つかりません")
	ErrSectionNotFound    = failure.New(failure.KindNotFound, "セクションが見つかりません")
	ErrSeatNotVacant      = failure.New(failure.KindConflict, "座席は既に仮押さえまたは予約されています")
	ErrSeatNotHeld        = failure.New(failure.KindConflict, "座席は仮押さえされていません")
	ErrSeatNotOwned       = failure.New(failure.KindConflict, "座席は他のユーザーが保持しています")
	ErrSeatNotReserved    = failure.New(failure.KindConflict, "座席は予約確定されていません")
	ErrInvalidTransition  = failure.New(failure.KindConflict, "許可されていない座席の状態遷移です")
	ErrHoldExpired        = failure.New(failure.KindExpired, "座席の仮押さえ期限が切れています")
	ErrLockTimeout        = failure.New(failure.KindContention, "座席ロックの取得がタイムアウトしました")
	ErrSeatIDsRequired    = failure.New(failure.KindInvalid, "座席IDは必須です")
	ErrUserIDRequired     = failure.New(failure.KindInvalid, "ユーザーIDは必須です")
	ErrInvalidHoldTTL     = failure.New(failure.KindInvalid, "仮押さえ期間は正の値である必要があります")
	ErrSeatNumberRequired = failure.New(failure.KindInvalid, "座席番号は必須です")
	ErrInconsistentState  = failure.New(failure.KindUnknown, "座席の状態が不整合です")
)

// Error は対象の座席IDを伴うエラー
type Error struct {
	SeatID int64
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("座席 %d: %v", e.SeatID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithSeat はエラーに座席IDを付与する
func WithSeat(seatID int64, err error) error {
	if err == nil {
		return nil
	}
	return &Error{SeatID: seatID, Err: err}
}

// SeatIDOf はエラーに含まれる座席IDを返す
func SeatIDOf(err error) (int64, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.SeatID, true
	}
	return 0, false
}
