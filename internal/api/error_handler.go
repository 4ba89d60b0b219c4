package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/failure"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
	SeatID  int64  `json:"seat_id,omitempty"`
	Details string `json:"details,omitempty"`
}

// StatusOf はエラー分類に対応するHTTPステータスを返す
func StatusOf(kind failure.Kind) int {
	switch kind {
	case failure.KindInvalid:
		return http.StatusBadRequest
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindConflict:
		return http.StatusConflict
	case failure.KindExpired:
		return http.StatusGone
	case failure.KindPaymentDeclined:
		return http.StatusPaymentRequired
	case failure.KindContention:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError はドメインエラーを echo.HTTPError に変換する
// 元のエラーは Internal に保持される
func ToHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := StatusOf(failure.KindOf(err))
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "内部サーバーエラー"
	}
	return echo.NewHTTPError(code, message).SetInternal(err)
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := ToHTTPError(err)
	resp := ErrorResponse{Code: he.Code}
	if m, ok := he.Message.(string); ok {
		resp.Error = m
	} else {
		resp.Error = http.StatusText(he.Code)
	}
	if he.Internal != nil {
		if kind := failure.KindOf(he.Internal); kind != failure.KindUnknown {
			resp.Kind = string(kind)
		}
		if id, ok := seat.SeatIDOf(he.Internal); ok {
			resp.SeatID = id
		}
	}

	// エラーログを出力（5xx エラーの場合）
	if he.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", he.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(he.Code)
	} else {
		err = c.JSON(he.Code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
