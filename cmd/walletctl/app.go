package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gitlab.com/yelinaung/wallet/internal/account"
	"gitlab.com/yelinaung/wallet/internal/backend"
	"gitlab.com/yelinaung/wallet/internal/config"
	"gitlab.com/yelinaung/wallet/internal/database"
	"gitlab.com/yelinaung/wallet/internal/exchange"
	"gitlab.com/yelinaung/wallet/internal/gemini"
	"gitlab.com/yelinaung/wallet/internal/logger"
	"gitlab.com/yelinaung/wallet/internal/notify"
	"gitlab.com/yelinaung/wallet/internal/repository"
	"gitlab.com/yelinaung/wallet/internal/supabase"
	"gitlab.com/yelinaung/wallet/internal/support"
	"gitlab.com/yelinaung/wallet/internal/telemetry"
	"gitlab.com/yelinaung/wallet/internal/wallet"
)

const shutdownTimeout = 5 * time.Second

// errNoCredentials is returned when WALLET_EMAIL or WALLET_PASSWORD is unset.
var errNoCredentials = errors.New("WALLET_EMAIL and WALLET_PASSWORD must be set")

// app holds every service for one invocation. It is built once and torn
// down by close.
type app struct {
	cfg        *config.Config
	client     *supabase.Client
	pool       *pgxpool.Pool
	store      backend.Store
	converter  exchange.Converter
	dispatcher *notify.Dispatcher
	accounts   *account.Service
	support    *support.Service
	telemetry  telemetry.Shutdown

	session *account.Login
	wallet  *wallet.Wallet
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.telemetry, err = telemetry.Setup(ctx, telemetry.Settings{
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	if err != nil {
		return nil, err
	}

	a.client = supabase.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, supabase.WithJWTSecret(cfg.SupabaseJWTSecret))
	a.store = a.client
	if cfg.UsesDirectDatabase() {
		a.pool, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.store = repository.New(a.pool)
		logger.Log.Debug().Msg("Using direct database access")
	}

	dinar, err := exchange.NewDinarConverter(exchange.NewFrankfurterClient(cfg.ExchangeAPIURL, 0), cfg.DZDPerEUR)
	if err != nil {
		return nil, fmt.Errorf("failed to create converter: %w", err)
	}
	a.converter = exchange.NewCachedService(dinar, cfg.ExchangeCacheTTL)

	a.dispatcher, err = newDispatcher(cfg)
	if err != nil {
		return nil, err
	}

	a.accounts = account.New(a.client, a.store, account.WithTimeouts(cfg.Timeouts))

	supportOpts := []support.Option{support.WithTimeout(cfg.Timeouts.Submit)}
	if cfg.GeminiAPIKey != "" {
		g, gerr := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if gerr != nil {
			logger.Log.Warn().Err(gerr).Msg("Ticket triage disabled")
		} else {
			supportOpts = append(supportOpts, support.WithSuggester(g))
		}
	}
	a.support = support.New(a.store, supportOpts...)

	return a, nil
}

func newDispatcher(cfg *config.Config) (*notify.Dispatcher, error) {
	var opts []notify.Option
	if cfg.TelegramBotToken != "" {
		ch, err := notify.NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram channel: %w", err)
		}
		opts = append(opts, notify.WithChannel(ch))
	}
	if cfg.NotificationsToKafka() {
		opts = append(opts, notify.WithChannel(notify.NewKafkaChannel(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName)))
	}
	return notify.NewDispatcher(opts...), nil
}

// login signs in with the credentials from the environment and loads the
// wallet.
func (a *app) login(ctx context.Context) error {
	email, password := os.Getenv("WALLET_EMAIL"), os.Getenv("WALLET_PASSWORD")
	if email == "" || password == "" {
		return errNoCredentials
	}

	session, err := a.accounts.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	a.session = session

	a.wallet = wallet.New(session.Session.User.ID, a.store,
		wallet.WithConverter(a.converter),
		wallet.WithNotifier(a.dispatcher),
		wallet.WithTimeouts(a.cfg.Timeouts),
		wallet.WithRecentLimit(a.cfg.RecentTransactionsLimit),
	)
	return a.wallet.Load(ctx)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.dispatcher != nil {
		if err := a.dispatcher.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close notification channels")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}
}
