package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/api/router"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/order"
	domainpayment "github.com/sanosuguru/go-seat-reservation/internal/domain/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/section"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/memory"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/payment"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-reservation/internal/worker"
)

func main() {
	if err := run(); err != nil {
		logger.Error("起動に失敗しました", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// stores はストアの実装一式
type stores struct {
	tx       transaction.Manager
	seats    seat.Repository
	sections section.Repository
	orders   order.Repository
}

func run() error {
	cfg := config.Load()
	logger.Init(cfg.Env, cfg.Log.Level)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}

	m := metrics.Init()
	checks := make(map[string]handler.HealthCheck)

	// ストア
	var st stores
	switch cfg.Database.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore(memory.WithLockTimeout(cfg.Database.LockTimeout))
		sec := store.SeedSection(1, "一般席")
		logger.Warn("メモリストアで起動します（再起動でデータは消えます）", zap.Int64("section_id", sec.ID))
		st = stores{tx: store.TxManager(), seats: store.Seats(), sections: store.Sections(), orders: store.Orders()}
	default:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		checks["database"] = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
		st = stores{
			tx:       postgres.NewTxManager(db, cfg.Database.LockTimeout),
			seats:    postgres.NewSeatRepository(db),
			sections: postgres.NewSectionRepository(db),
			orders:   postgres.NewOrderRepository(db),
		}
	}

	opts := []application.Option{
		application.WithHoldTTL(cfg.Reservation.HoldTTL),
		application.WithMaxHoldTTL(cfg.Reservation.MaxHoldTTL),
		application.WithMetrics(m),
	}
	sweeperOpts := []worker.SweeperOption{worker.WithSweeperMetrics(m)}

	// Redis（座席表キャッシュと掃除の排他）
	if cfg.Redis.Enabled {
		rc, err := redisinfra.NewClient(&redisinfra.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redis に接続できないためキャッシュなしで起動します", zap.Error(err))
		} else {
			defer rc.Close()
			checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) }
			opts = append(opts, application.WithSeatMapCache(redisinfra.NewSeatMapCache(rc, cfg.Redis.SeatMapTTL)))
			sweeperOpts = append(sweeperOpts, worker.WithLocker(redisinfra.NewLockManager(rc, m)))
		}
	}

	// RabbitMQ（ドメインイベント配信）
	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ に接続できないためイベントを配信しません", zap.Error(err))
		} else {
			defer pub.Close()
			opts = append(opts, application.WithPublisher(pub))
		}
	}

	gateway := newGateway(cfg, m)

	seatService := application.NewSeatService(st.tx, st.seats, st.sections, opts...)
	reservationService := application.NewReservationService(st.tx, st.seats, opts...)
	orderService := application.NewOrderService(st.tx, st.seats, st.orders, gateway, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewExpiredHoldSweeper(reservationService, cfg.Reservation.SweepInterval, sweeperOpts...)
	go sweeper.Start(ctx)
	defer sweeper.Stop()

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET が未設定のため X-User-ID ヘッダーでユーザーを識別します")
	}
	e := router.New(router.Handlers{
		Health: handler.NewHealthHandler(checks),
		Seat:   handler.NewSeatHandler(seatService, reservationService),
		Order:  handler.NewOrderHandler(orderService),
		Admin:  handler.NewAdminHandler(seatService, sweeper),
	}, router.Config{
		Metrics:     m,
		JWTSecret:   cfg.Auth.JWTSecret,
		MetricsAuth: middleware.Credentials{User: cfg.Auth.MetricsUser, Password: cfg.Auth.MetricsPassword},
		AdminAuth:   middleware.Credentials{User: cfg.Auth.AdminUser, Password: cfg.Auth.AdminPassword},
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("store", cfg.Database.Driver),
			zap.String("payment", cfg.Payment.Provider),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// シグナル待機
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}

func newGateway(cfg *config.Config, m *metrics.Metrics) domainpayment.Gateway {
	if cfg.Payment.Provider == config.PaymentProviderStripe {
		return payment.NewStripeGateway(payment.StripeConfig{
			SecretKey: cfg.Payment.Stripe.SecretKey,
			Currency:  cfg.Payment.Stripe.Currency,
		}, m)
	}
	return payment.NewTapPayGateway(payment.TapPayConfig{
		Endpoint:   cfg.Payment.TapPay.Endpoint,
		PartnerKey: cfg.Payment.TapPay.PartnerKey,
		MerchantID: cfg.Payment.TapPay.MerchantID,
		Timeout:    cfg.Payment.TapPay.Timeout,
	}, m)
}
