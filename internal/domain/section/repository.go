package section

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
)

// Repository はセクションリポジトリのインターフェース
type Repository interface {
	// LockByID はセクションを排他ロックして取得する（トランザクション必須）
	LockByID(ctx context.Context, tx transaction.Tx, id int64) (*Section, error)

	// CountRows はセクションの列数を返す（トランザクション必須）
	CountRows(ctx context.Context, tx transaction.Tx, sectionID int64) (int, error)

	// CreateLayout は列と座席を作成し、採番したIDを設定する（トランザクション必須）
	CreateLayout(ctx context.Context, tx transaction.Tx, layouts []Layout) error

	// GetByID はIDからセクションを取得する
	GetByID(ctx context.Context, id int64) (*Section, error)
}
