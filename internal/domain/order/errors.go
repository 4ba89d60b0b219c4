package order

import (
	"fmt"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
)

// Order ドメインのエラー定義
var (
	ErrOrderNotFound          = failure.New(failure.KindNotFound, "注文が見つかりません")
	ErrOrderNumberConflict    = failure.New(failure.KindConflict, "注文番号が重複しています")
	ErrPaymentDeclined        = failure.New(failure.KindPaymentDeclined, "決済が承認されませんでした")
	ErrReconciliationRequired = failure.New(failure.KindUnknown, "決済は完了しましたが注文の確定に失敗しました")
	ErrInvalidOrderNumber     = failure.New(failure.KindInvalid, "注文番号の形式が不正です")
	ErrUserIDRequired         = failure.New(failure.KindInvalid, "ユーザーIDは必須です")
	ErrEventIDRequired        = failure.New(failure.KindInvalid, "イベントIDは必須です")
	ErrInvalidAmount          = failure.New(failure.KindInvalid, "金額は1以上である必要があります")
	ErrItemsRequired          = failure.New(failure.KindInvalid, "注文明細は必須です")
	ErrPaymentTokenRequired   = failure.New(failure.KindInvalid, "決済トークンは必須です")
)

// DeclinedError は決済サービスが返した拒否ステータスを保持する
type DeclinedError struct {
	Status  int
	Message string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("%s (status=%d): %s", ErrPaymentDeclined.Error(), e.Status, e.Message)
}

func (e *DeclinedError) Unwrap() error {
	return ErrPaymentDeclined
}
