package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/paymentintent"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
)

const providerStripe = "stripe"

// StripeConfig はStripe PaymentIntent の設定
type StripeConfig struct {
	SecretKey string
	Currency  string
	// URL はAPIのベースURL（空なら本番API）
	URL        string
	HTTPClient *http.Client
}

// StripeGateway は PaymentIntent を作成・確定する決済ゲートウェイ
// Token には PaymentMethod ID を渡す
type StripeGateway struct {
	client   paymentintent.Client
	currency string
	metrics  *metrics.Metrics
}

// NewStripeGateway は新しい StripeGateway を作成する
func NewStripeGateway(cfg StripeConfig, m *metrics.Metrics) *StripeGateway {
	backendCfg := &stripe.BackendConfig{HTTPClient: cfg.HTTPClient}
	if cfg.URL != "" {
		backendCfg.URL = cfg.URL
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "twd"
	}
	return &StripeGateway{
		client: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		currency: currency,
		metrics:  m,
	}
}

// Pay は PaymentIntent を即時確定で作成する
// カードエラーは拒否として Result に返し、それ以外のエラーは通信エラーとして返す
func (g *StripeGateway) Pay(ctx context.Context, req payment.Request) (payment.Result, error) {
	start := time.Now()
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(g.currency),
		PaymentMethod:      stripe.String(req.Token),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Details),
	}
	if req.Payer.Email != "" {
		params.ReceiptEmail = stripe.String(req.Payer.Email)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.client.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			g.metrics.Payment(providerStripe, "declined", time.Since(start))
			return payment.Result{Status: payment.StatusDeclined, Message: stripeErr.Msg}, nil
		}
		g.metrics.Payment(providerStripe, "error", time.Since(start))
		return payment.Result{}, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		g.metrics.Payment(providerStripe, "declined", time.Since(start))
		return payment.Result{
			Status:        payment.StatusDeclined,
			Message:       fmt.Sprintf("PaymentIntent の状態が %s です", pi.Status),
			TransactionID: pi.ID,
		}, nil
	}

	g.metrics.Payment(providerStripe, "success", time.Since(start))
	return payment.Result{Status: payment.StatusSuccess, Message: "Success", TransactionID: pi.ID}, nil
}

var _ payment.Gateway = (*StripeGateway)(nil)
