package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

const (
	numberPrefix = "ORD"
	numberDigits = 6
)

var numberPattern = regexp.MustCompile(`^ORD\d{8}\d{6}$`)

var numberSpace = big.NewInt(1_000_000)

// NumberGenerator は注文番号を生成する
type NumberGenerator interface {
	Generate(now time.Time) (string, error)
}

// NumberGeneratorFunc は関数を NumberGenerator として扱う
type NumberGeneratorFunc func(now time.Time) (string, error)

func (f NumberGeneratorFunc) Generate(now time.Time) (string, error) {
	return f(now)
}

// RandomNumberGenerator は "ORD" + UTC日付(YYYYMMDD) + 乱数6桁 の注文番号を生成する
// 一意性はストレージの一意制約で保証する
type RandomNumberGenerator struct{}

func (RandomNumberGenerator) Generate(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, numberSpace)
	if err != nil {
		return "", fmt.Errorf("注文番号の乱数生成に失敗: %w", err)
	}
	return FormatNumber(now, n.Int64()), nil
}

// FormatNumber は日付と連番部分から注文番号を組み立てる
func FormatNumber(now time.Time, suffix int64) string {
	return fmt.Sprintf("%s%s%0*d", numberPrefix, now.UTC().Format("20060102"), numberDigits, suffix%numberSpace.Int64())
}

// IsValidNumber は注文番号の形式が正しいかを返す
func IsValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}
