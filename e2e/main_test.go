package e2e

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/api/router"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-reservation/internal/worker"
)

const (
	adminUser     = "admin"
	adminPassword = "admin-pass"
	jwtSecret     = "e2e-secret"

	// declinedPrime を使うと決済サービスは拒否を返す
	declinedPrime = "prime-declined"
)

var e2eStart = time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo      *echo.Echo
	Store     *memory.Store
	Clock     *clock.Manual
	SectionID int64
	payCalls  *atomic.Int32
}

// NewTestServer はメモリストアと疑似決済サービスでサーバーを組み立てる
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	payCalls := new(atomic.Int32)
	tappay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payCalls.Add(1)
		var req struct {
			Prime string `json:"prime"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Prime == declinedPrime {
			_, _ = w.Write([]byte(`{"status":10003,"msg":"Card Error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":0,"msg":"Success","rec_trade_id":"D20250601"}`))
	}))
	t.Cleanup(tappay.Close)

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	store := memory.NewStore(memory.WithLockTimeout(2 * time.Second))
	sec := store.SeedSection(1, "アリーナ")
	clk := clock.NewManual(e2eStart)

	opts := []application.Option{application.WithClock(clk), application.WithMetrics(m)}
	tm := store.TxManager()
	seatService := application.NewSeatService(tm, store.Seats(), store.Sections(), opts...)
	reservationService := application.NewReservationService(tm, store.Seats(), opts...)
	gateway := payment.NewTapPayGateway(payment.TapPayConfig{
		Endpoint:   tappay.URL,
		PartnerKey: "partner-key",
		MerchantID: "merchant",
		Timeout:    5 * time.Second,
	}, m)
	orderService := application.NewOrderService(tm, store.Seats(), store.Orders(), gateway, opts...)
	sweeper := worker.NewExpiredHoldSweeper(reservationService, time.Minute)

	e := router.New(router.Handlers{
		Health: handler.NewHealthHandler(nil),
		Seat:   handler.NewSeatHandler(seatService, reservationService),
		Order:  handler.NewOrderHandler(orderService),
		Admin:  handler.NewAdminHandler(seatService, sweeper),
	}, router.Config{
		JWTSecret: jwtSecret,
		AdminAuth: middleware.Credentials{User: adminUser, Password: adminPassword},
	})

	return &TestServer{Echo: e, Store: store, Clock: clk, SectionID: sec.ID, payCalls: payCalls}
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// AsUser は userID を sub とする Bearer トークンでリクエストする
func (s *TestServer) AsUser(userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}
	return s.Request(method, path, body, map[string]string{echo.HeaderAuthorization: "Bearer " + token})
}

// AsAdmin は管理者の Basic 認証でリクエストする
func (s *TestServer) AsAdmin(method, path string, body interface{}) *httptest.ResponseRecorder {
	auth := base64.StdEncoding.EncodeToString([]byte(adminUser + ":" + adminPassword))
	return s.Request(method, path, body, map[string]string{echo.HeaderAuthorization: "Basic " + auth})
}

// PayCalls は疑似決済サービスの呼び出し回数
func (s *TestServer) PayCalls() int {
	return int(s.payCalls.Load())
}

// InitializeSection はセクションに座席を作成し、座席IDを座席番号順に返す
func (s *TestServer) InitializeSection(t *testing.T, rows ...map[string]interface{}) []int64 {
	t.Helper()
	rec := s.AsAdmin(http.MethodPost, fmt.Sprintf("/api/v1/admin/sections/%d/seats", s.SectionID), map[string]interface{}{"rows": rows})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp seatMapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	var ids []int64
	for _, row := range resp.Rows {
		for _, st := range row.Seats {
			ids = append(ids, st.SeatID)
		}
	}
	return ids
}

type seatMapResponse struct {
	SectionID int64 `json:"section_id"`
	Rows      []struct {
		RowName string `json:"row_name"`
		Seats   []struct {
			SeatID     int64  `json:"seat_id"`
			SeatNumber string `json:"seat_number"`
			Status     string `json:"status"`
		} `json:"seats"`
	} `json:"rows"`
}

// statusOf は座席表から座席の状態を取り出す
func (r seatMapResponse) statusOf(seatID int64) string {
	for _, row := range r.Rows {
		for _, st := range row.Seats {
			if st.SeatID == seatID {
				return st.Status
			}
		}
	}
	return ""
}

func (s *TestServer) SeatMap(t *testing.T) seatMapResponse {
	t.Helper()
	rec := s.Request(http.MethodGet, fmt.Sprintf("/api/v1/sections/%d/seats", s.SectionID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp seatMapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
