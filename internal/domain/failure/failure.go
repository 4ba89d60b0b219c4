package failure

import "errors"

// Kind は呼び出し元に返すエラーの分類
type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindInvalid         Kind = "invalid"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindExpired         Kind = "expired"
	KindPaymentDeclined Kind = "payment_declined"
	KindContention      Kind = "contention"
)

// Error は分類付きのドメインエラー
// 各ドメインのセンチネルエラーはこの型で定義する
type Error struct {
	Kind    Kind
	Message string
}

// New は分類付きエラーを作成する
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// KindOf はエラーチェーンから分類を取り出す
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is はエラーが指定の分類かを返す
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
