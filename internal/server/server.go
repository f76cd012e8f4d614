package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/decoy/config"
	"github.com/mohammad-safakhou/decoy/internal/dialogue"
	"github.com/mohammad-safakhou/decoy/internal/ledger"
	"github.com/mohammad-safakhou/decoy/internal/report"
	"github.com/mohammad-safakhou/decoy/internal/telemetry"
)

// Run wires every collaborator together and serves until the listener
// fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", HeaderAPIKey},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.New(cfg.Telemetry.Namespace)
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	if cfg.Server.StaticDir != "" {
		e.Static("/static", cfg.Server.StaticDir)
		e.File("/", filepath.Join(cfg.Server.StaticDir, "index.html"))
	}

	store, err := buildLedger(cfg)
	if err != nil {
		return err
	}

	provider := dialogue.NewClient(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		cfg.LLM.Timeout,
	)

	var reporter *report.Reporter
	if cfg.Report.CallbackURL != "" {
		reporter = report.New(cfg.Report.CallbackURL, cfg.Report.Timeout, metrics)
	} else {
		baseLogger.Printf("report.callback_url not configured, reporting disabled")
	}

	h := &HoneypotHandler{
		Ledger:        store,
		Dialogue:      provider,
		Reporter:      reporter,
		Policy:        report.Policy(cfg.Report.Policy),
		Metrics:       metrics,
		PersonaScript: cfg.Engagement.PersonaScript,
	}

	api := e.Group("")
	api.Use(RequireAPIKey(cfg.Server.APIKey))
	h.Register(api)

	baseLogger.Printf("listening on %s", cfg.Server.Listen)
	return e.Start(cfg.Server.Listen)
}

func buildLedger(cfg *config.Config) (ledger.Store, error) {
	opts := ledger.Options{EscalationTurns: cfg.Engagement.EscalationTurns}
	if cfg.Storage.SessionStore == string(ledger.RedisStore) {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		opts.Redis = rdb
	}
	return ledger.NewStore(ledger.StoreType(cfg.Storage.SessionStore), opts)
}
