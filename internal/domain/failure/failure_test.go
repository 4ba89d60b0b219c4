package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	errNotFound := New(KindNotFound, "見つかりません")

	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"nilは空", nil, ""},
		{"分類付きエラー", errNotFound, KindNotFound},
		{"ラップされた分類付きエラー", fmt.Errorf("取得に失敗: %w", errNotFound), KindNotFound},
		{"分類なしエラー", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(KindContention, "ロック待ちタイムアウト"))

	assert.True(t, Is(err, KindContention))
	assert.False(t, Is(err, KindConflict))
	assert.Equal(t, "wrap: ロック待ちタイムアウト", err.Error())
}
