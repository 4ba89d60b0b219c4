package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const providerTapPay = "tappay"

// TapPayConfig はTapPay Pay by Prime の設定
type TapPayConfig struct {
	Endpoint   string
	PartnerKey string
	MerchantID string
	Timeout    time.Duration
}

// TapPayGateway はTapPay Pay by Prime API を呼び出す決済ゲートウェイ
type TapPayGateway struct {
	cfg     TapPayConfig
	client  *http.Client
	metrics *metrics.Metrics
}

// NewTapPayGateway は新しい TapPayGateway を作成する
func NewTapPayGateway(cfg TapPayConfig, m *metrics.Metrics) *TapPayGateway {
	return &TapPayGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

type tapPayCardholder struct {
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

type tapPayRequest struct {
	Prime       string           `json:"prime"`
	PartnerKey  string           `json:"partner_key"`
	MerchantID  string           `json:"merchant_id"`
	Details     string           `json:"details"`
	Amount      int64            `json:"amount"`
	OrderNumber string           `json:"order_number,omitempty"`
	Cardholder  tapPayCardholder `json:"cardholder"`
	Remember    bool             `json:"remember"`
}

type tapPayResponse struct {
	Status     int    `json:"status"`
	Msg        string `json:"msg"`
	RecTradeID string `json:"rec_trade_id"`
}

// Pay は prime を使って決済する
// status 0 以外はすべて拒否として Result に返す
func (g *TapPayGateway) Pay(ctx context.Context, req payment.Request) (payment.Result, error) {
	start := time.Now()
	body, err := json.Marshal(tapPayRequest{
		Prime:       req.Token,
		PartnerKey:  g.cfg.PartnerKey,
		MerchantID:  g.cfg.MerchantID,
		Details:     req.Details,
		Amount:      req.Amount,
		OrderNumber: req.IdempotencyKey,
		Cardholder: tapPayCardholder{
			PhoneNumber: req.Payer.PhoneNumber,
			Name:        req.Payer.Name,
			Email:       req.Payer.Email,
		},
	})
	if err != nil {
		return payment.Result{}, fmt.Errorf("決済リクエストの作成に失敗: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return payment.Result{}, fmt.Errorf("決済リクエストの作成に失敗: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", g.cfg.PartnerKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.metrics.Payment(providerTapPay, "error", time.Since(start))
		return payment.Result{}, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.metrics.Payment(providerTapPay, "error", time.Since(start))
		return payment.Result{}, fmt.Errorf("%w: HTTP %d", payment.ErrGatewayUnavailable, resp.StatusCode)
	}

	var out tapPayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		g.metrics.Payment(providerTapPay, "error", time.Since(start))
		return payment.Result{}, fmt.Errorf("%w: レスポンスの解析に失敗: %v", payment.ErrGatewayUnavailable, err)
	}

	result := payment.Result{Status: out.Status, Message: out.Msg, TransactionID: out.RecTradeID}
	if result.Succeeded() {
		g.metrics.Payment(providerTapPay, "success", time.Since(start))
	} else {
		g.metrics.Payment(providerTapPay, "declined", time.Since(start))
	}
	return result, nil
}

var _ payment.Gateway = (*TapPayGateway)(nil)
