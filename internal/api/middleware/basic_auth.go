package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Credentials は Basic 認証の資格情報
type Credentials struct {
	User     string
	Password string
}

// IsEnabled は認証が有効かどうかを返す
func (c Credentials) IsEnabled() bool {
	return c.User != "" && c.Password != ""
}

// MetricsBasicAuth は /metrics エンドポイント用の Basic 認証ミドルウェア
// 資格情報が設定されていない場合は認証をスキップ（ローカル開発用）
func MetricsBasicAuth(cred Credentials) echo.MiddlewareFunc {
	if !cred.IsEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return basicAuth(cred)
}

// AdminBasicAuth は管理APIの Basic 認証ミドルウェア
// 資格情報が設定されていない場合は管理APIを無効にする
func AdminBasicAuth(cred Credentials) echo.MiddlewareFunc {
	if !cred.IsEnabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(http.StatusForbidden, "管理APIは無効です")
			}
		}
	}
	return basicAuth(cred)
}

func basicAuth(cred Credentials) echo.MiddlewareFunc {
	return middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
		// タイミング攻撃を防ぐため ConstantTimeCompare を使用
		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(cred.User)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(cred.Password)) == 1

		return userMatch && passMatch, nil
	})
}
