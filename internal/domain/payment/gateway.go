package payment

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
)

// StatusSuccess は決済成功を表すステータス
// これ以外のステータスはすべて拒否として扱う
const StatusSuccess = 0

// StatusDeclined はプロバイダー固有のコードを持たない拒否
const StatusDeclined = -1

// ErrGatewayUnavailable は決済サービスとの通信に失敗したことを表す
var ErrGatewayUnavailable = failure.New(failure.KindPaymentDeclined, "決済サービスとの通信に失敗しました")

// Payer は支払者の情報
type Payer struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// Request は決済リクエスト
type Request struct {
	Amount         int64
	Token          string
	Payer          Payer
	Details        string
	IdempotencyKey string
}

// Result は決済結果
type Result struct {
	Status        int
	Message       string
	TransactionID string
}

// Succeeded は決済が成功したかを返す
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Gateway は外部決済サービスのインターフェース
type Gateway interface {
	// Pay は決済を実行する
	// 通信エラーは error、決済の拒否は Result.Status で返す
	Pay(ctx context.Context, req Request) (Result, error)
}
