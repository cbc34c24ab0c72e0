package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/config"
	"github.com/emocare/emobot/internal/llm"
	"github.com/emocare/emobot/internal/scheduler"
	"github.com/emocare/emobot/internal/store"
	"github.com/emocare/emobot/internal/telegram"
)

// App wires the bot transport, the user store, the completion client, the
// router and the follow-up dispatcher.
type App struct {
	cfg        config.Config
	log        *zap.Logger
	bot        *tgbotapi.BotAPI
	httpSrv    *http.Server
	router     *telegram.Router
	dispatcher *scheduler.Dispatcher
}

// New builds the application. An invalid timezone or a rejected bot token is
// a startup error.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	bot.Debug = false

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	users := store.New(cfg.UsersFile, log)

	completer, err := llm.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterURL, cfg.Model, log)
	if err != nil {
		return nil, fmt.Errorf("completion client init: %w", err)
	}

	router := telegram.NewRouter(bot, log, users, completer, loc)
	dispatcher := scheduler.New(users, completer, router, loc, cfg.FollowupInterval, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{
		cfg:        cfg,
		log:        log,
		bot:        bot,
		httpSrv:    srv,
		router:     router,
		dispatcher: dispatcher,
	}, nil
}

// Run starts the follow-up dispatcher, the health endpoint and the long-poll
// update loop, and blocks until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting emobot",
		zap.String("tz", a.cfg.Timezone),
		zap.Duration("followupInterval", a.cfg.FollowupInterval),
		zap.String("http", a.cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	go a.dispatcher.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
