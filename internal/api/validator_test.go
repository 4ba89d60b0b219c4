package api

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRequest struct {
	SeatIDs []int64 `json:"seat_ids" validate:"required,min=1,dive,gt=0"`
	Holder  struct {
		Email string `json:"email" validate:"required,email"`
	} `json:"holder"`
}

func TestCustomValidator_Validate(t *testing.T) {
	v := NewValidator()

	t.Run("正しいリクエスト", func(t *testing.T) {
		req := testRequest{SeatIDs: []int64{1}}
		req.Holder.Email = "a@example.com"

		assert.NoError(t, v.Validate(&req))
	})

	t.Run("JSONタグ名でメッセージを返す", func(t *testing.T) {
		req := testRequest{SeatIDs: []int64{0}}
		req.Holder.Email = "invalid"

		err := v.Validate(&req)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Contains(t, he.Message, "seat_ids[0] は 0 より大きい必要があります")
		assert.Contains(t, he.Message, "holder.email はメールアドレスの形式")
	})

	t.Run("必須項目の欠落", func(t *testing.T) {
		err := v.Validate(&testRequest{})

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Contains(t, he.Message, "seat_ids は必須です")
	})
}
