// Command banksim is a terminal client for the banking game backend.
// With no command it polls the backend and renders a live dashboard;
// otherwise it runs a single admin or client action.
//
// Usage:
//
//	banksim --config banksim.yaml
//	banksim --setup
//	banksim --slot 2 approve-mortgage 17
//
// Environment overrides: BANKSIM_BASE_URL, BANKSIM_TOKEN, BANKSIM_SLOT,
// BANKSIM_STATE_DIR, BANKSIM_FUNDS_POLICY, BANKSIM_WEB_ADDR, BANKSIM_LOG_LEVEL.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/banksim/config"
	"github.com/vadiminshakov/banksim/internal/clients"
	"github.com/vadiminshakov/banksim/internal/dashboard"
	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/events"
	"github.com/vadiminshakov/banksim/internal/services/cache"
	"github.com/vadiminshakov/banksim/internal/services/clock"
	"github.com/vadiminshakov/banksim/internal/services/funding"
	"github.com/vadiminshakov/banksim/internal/services/mutation"
	"github.com/vadiminshakov/banksim/internal/setup"
	"github.com/vadiminshakov/banksim/internal/storage/journal"
	"github.com/vadiminshakov/banksim/internal/storage/session"
	"github.com/vadiminshakov/banksim/internal/web"
)

const slowPollFactor = 4

// app holds the wired components shared by every command.
type app struct {
	cfg       config.Config
	slot      int
	clientID  int64
	logger    *zap.Logger
	session   *session.Store
	bank      *clients.BankClient
	cache     *cache.Store
	journal   *journal.WALStore
	funding   *funding.Orchestrator
	mutations *mutation.Service
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the app and dispatches one command. Deferred cleanup always
// completes before main decides the exit code.
func run() error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	if cfg.Setup {
		path, err := setup.RunTUI(cfg)
		if err != nil {
			return errors.Wrap(err, "setup")
		}
		if cfg, err = config.Load(append([]string{"--config", path}, cfg.Args...)); err != nil {
			return err
		}
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to initialize")
	}
	defer func() {
		if err := a.journal.Close(); err != nil {
			logger.Warn("failed to close funding journal", zap.Error(err))
		}
	}()

	if err := a.dispatch(ctx, cfg.Args); err != nil {
		logger.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	sess, err := session.NewStore(cfg.StateDir)
	if err != nil {
		return nil, errors.Wrap(err, "open session")
	}
	if cfg.Token != "" {
		if err := sess.SetToken(cfg.Token); err != nil {
			return nil, errors.Wrap(err, "save token")
		}
	}

	current := sess.Current()
	slot := cfg.Slot
	if slot == 0 {
		slot = max(current.Slot, 1)
	}
	clientID := cfg.ClientID
	if clientID == 0 {
		clientID = current.ClientID
	}
	if err := sess.SetSlot(slot); err != nil {
		return nil, errors.Wrap(err, "save slot")
	}

	bank := clients.NewBankClient(cfg.BaseURL, sess, logger,
		clients.WithTimeout(cfg.RequestTimeout),
		clients.WithUnauthorizedHandler(func() {
			logger.Warn("session expired, clearing token")
			if err := sess.ClearToken(); err != nil {
				logger.Error("failed to clear token", zap.Error(err))
			}
		}),
	)

	wal, err := journal.NewWALStore(cfg.JournalDir)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}

	store := cache.NewStore()

	return &app{
		cfg:       cfg,
		slot:      slot,
		clientID:  clientID,
		logger:    logger.With(zap.Int("slot", slot)),
		session:   sess,
		bank:      bank,
		cache:     store,
		journal:   wal,
		funding:   funding.NewOrchestrator(bank, store, wal, logger),
		mutations: mutation.NewService(bank, store, logger),
	}, nil
}

// newPoller registers every resource the dashboard reads. The investment
// report only moves on dividend and growth days and is polled less often.
func (a *app) newPoller() *cache.Poller {
	p := cache.NewPoller(a.cache, a.logger, a.cfg.PollInterval)
	slot := a.slot
	slow := slowPollFactor * a.cfg.PollInterval

	cache.Register(p, cache.BankKey(slot), func(ctx context.Context) (*domain.BankSnapshot, error) {
		return a.bank.GetBank(ctx, slot)
	})
	cache.Register(p, cache.ClientsKey(slot), func(ctx context.Context) ([]domain.ClientAccount, error) {
		return a.bank.ListClients(ctx, slot)
	})
	cache.Register(p, cache.ProductsKey(slot), func(ctx context.Context) ([]domain.PropertyProduct, error) {
		return a.bank.ListProducts(ctx, slot)
	})
	p.RegisterEvery(cache.InvestmentsKey(slot), slow, func(ctx context.Context) (any, error) {
		return a.bank.GetInvestments(ctx, slot)
	})
	cache.Register(p, cache.LoansKey(slot), func(ctx context.Context) ([]domain.LoanApplication, error) {
		return a.bank.ListLoans(ctx, slot)
	})
	cache.Register(p, cache.MortgagesKey(slot), func(ctx context.Context) ([]domain.MortgageApplication, error) {
		return a.bank.ListMortgages(ctx, slot)
	})

	if a.clientID != 0 {
		id := a.clientID
		cache.Register(p, cache.TransactionsKey(slot, id), func(ctx context.Context) ([]domain.Transaction, error) {
			return a.bank.ListTransactions(ctx, slot, id)
		})
		cache.Register(p, cache.PropertiesKey(slot, id), func(ctx context.Context) ([]domain.PropertyProduct, error) {
			return a.bank.ListClientProperties(ctx, slot, id)
		})
	}

	return p
}

// runDashboard polls the backend and redraws the terminal dashboard on every
// clock reading until ctx is cancelled or the session is rejected.
func (a *app) runDashboard(ctx context.Context) error {
	poller := a.newPoller()
	builder := dashboard.NewBuilder(a.cache, domain.NewAggregator(a.cfg.FundsPolicy), a.slot, a.cfg.CacheTTL).
		ForClient(a.clientID)

	readings := events.NewBroadcaster[clock.Reading](0)
	ticker := clock.NewTicker(builder.Bank, readings, a.cfg.TickInterval, a.logger)

	frames := readings.Subscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return ticker.Run(ctx) })

	if a.cfg.WebAddr != "" {
		srv := web.NewServer(a.cfg.WebAddr, builder, readings, a.funding, a.logger)
		srv.MaxFunding = a.cfg.MaxFunding
		g.Go(func() error { return srv.Start(ctx) })
	}

	g.Go(func() error {
		defer readings.Unsubscribe(frames)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-frames:
				fmt.Print("\033[H\033[2J")
				fmt.Println(dashboard.Render(builder.Build()))
				if label, ok := a.session.UserLabel(); ok {
					fmt.Printf("signed in as %s\n", label)
				}
			}
		}
	})

	a.logger.Info("dashboard started",
		zap.Duration("poll", a.cfg.PollInterval),
		zap.String("backend", a.cfg.BaseURL))

	err := g.Wait()
	if errors.Is(err, domain.ErrUnauthorized) {
		return errors.Wrap(err, "session rejected by backend, sign in again")
	}
	return err
}
