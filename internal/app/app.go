// Package app assembles the stores, services, backups, metrics and bot
// handlers into something the runner can start.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/notifybot/core/bootstrap"
	corecmd "github.com/m3rciful/notifybot/core/cmd"
	coreconfig "github.com/m3rciful/notifybot/core/config"
	coredatabase "github.com/m3rciful/notifybot/core/database"
	"github.com/m3rciful/notifybot/core/logger"
	coretelegram "github.com/m3rciful/notifybot/core/telegram"
	tgsender "github.com/m3rciful/notifybot/core/telegram/sender"
	"github.com/m3rciful/notifybot/internal/backup"
	"github.com/m3rciful/notifybot/internal/bot"
	"github.com/m3rciful/notifybot/internal/config"
	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/metrics"
	"github.com/m3rciful/notifybot/internal/service"
	"github.com/m3rciful/notifybot/internal/storage"
)

// Options tweak bootstrap for commands and tests.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	SkipSchema bool
}

// App owns every long-lived component.
type App struct {
	cfg *config.AppConfig

	Stores  *coredatabase.Manager
	Backups *backup.Manager

	messenger *bot.Messenger
	handlers  *bot.Bot
	registry  *coretelegram.Registry

	metricsReg *prometheus.Registry
	metricsSrv *metrics.Server
	scheduler  *backup.Scheduler
}

// New runs the bootstrap pipeline and builds the handlers.
func New(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Stores:     storage.Stores(cfg.Storage.TicketsPath, cfg.Storage.SubscribersPath, cfg.Storage.BusyTimeoutMS),
		LoggerInit: opts.LoggerInit,
		SkipSchema: opts.SkipSchema,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		Stores:    res.Stores,
		messenger: &bot.Messenger{},
		registry:  coretelegram.NewRegistry(),
		Backups: backup.NewManager(res.Stores, backup.Options{
			Dir:    cfg.Backup.Dir,
			Keep:   cfg.Backup.Keep,
			MaxAge: cfg.Backup.MaxAge,
		}),
	}

	subs := storage.NewSubscriberRepo(res.Stores)
	broadcaster := service.NewBroadcaster(subs, a.messenger)
	broadcaster.OnDelivery = func(aud domain.Audience, err error) { metrics.ObserveDelivery(string(aud), err) }

	a.handlers = bot.New(bot.Deps{
		Tickets:       service.NewTickets(storage.NewTicketRepo(res.Stores), a.messenger, cfg.Telegram.AdminID),
		Subscriptions: service.NewSubscriptions(subs),
		Broadcaster:   broadcaster,
		Backups:       a.Backups,
		AdminID:       cfg.Telegram.AdminID,
		GroupID:       cfg.Telegram.GroupID,
		Version:       cfg.Bot.Version,
		AboutText:     cfg.Bot.AboutText,
		LogPath:       cfg.LogPath(),
		StartedAt:     time.Now(),
		OnBackup:      metrics.ObserveBackup,
	})
	if err := a.handlers.Register(a.registry); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	return a, nil
}

// Bootstrap adapts New to the process runner.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.AppConfig)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, Options{})
}

// TelegramRunOptions describes middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	mws := coretelegram.DefaultMiddlewares(core, a.handlers.OnRateLimited,
		coretelegram.Middleware{Name: "metrics", Use: metrics.Middleware},
	)
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: mws,
		Routes:      a.handlers.Routes(a.registry),
		DispatcherOptions: tgsender.Options{
			OnResult: metrics.ObserveReply,
		},
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, rt coretelegram.Runtime) error {
	a.messenger.Bind(rt.Bot)

	if a.cfg.Metrics.Listen != "" {
		a.metricsReg = prometheus.NewRegistry()
		a.metricsReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics.MustRegister(a.metricsReg)
		a.metricsSrv = metrics.Start(a.cfg.Metrics.Listen, a.metricsReg)
	}

	sched, err := backup.NewScheduler(a.Backups, a.cfg.Backup.Schedule, a.cfg.BackupOnStart())
	if err != nil {
		return err
	}
	sched.OnResult = metrics.ObserveBackup
	a.scheduler = sched
	sched.Start()
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if a.scheduler != nil {
		a.scheduler.Stop(stopCtx)
	}
	if err := a.metricsSrv.Shutdown(stopCtx); err != nil {
		logger.L.Warn("metrics shutdown failed",
			slog.String("component", "app"),
			slog.String("err", err.Error()),
		)
	}
	return nil
}

// Close releases the stores.
func (a *App) Close() error {
	if a == nil || a.Stores == nil {
		return nil
	}
	return a.Stores.CloseAll()
}
