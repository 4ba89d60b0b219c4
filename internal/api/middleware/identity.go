package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID は JWT シークレット未設定時（開発用）のユーザーID ヘッダー
	HeaderUserID = "X-User-ID"

	userIDKey = "user_id"
)

// Identity はリクエストのユーザーIDを解決するミドルウェア
//
// secret が設定されている場合は Authorization: Bearer の HS256 トークンの
// sub クレームだけを使い、X-User-ID ヘッダーは無視する。
// secret が空の場合は Bearer トークンを受け付けず、X-User-ID ヘッダーを使う。
// どちらもなければ匿名のまま次へ進む。
func Identity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if raw, ok := strings.CutPrefix(auth, "Bearer "); ok {
				if secret == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "トークン認証は無効です")
				}
				sub, err := parseSubject(raw, secret)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "無効なトークンです").SetInternal(err)
				}
				SetUserID(c, sub)
				return next(c)
			}

			if secret != "" {
				return next(c)
			}
			if id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); id != "" {
				SetUserID(c, id)
			}
			return next(c)
		}
	}
}

func parseSubject(raw, secret string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return sub, nil
}

// SetUserID はコンテキストにユーザーIDを設定する
func SetUserID(c echo.Context, userID string) {
	c.Set(userIDKey, userID)
}

// UserID はコンテキストのユーザーIDを返す（未認証なら空文字）
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// RequireUser はユーザーIDのないリクエストを 401 で拒否する
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if UserID(c) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
			}
			return next(c)
		}
	}
}
