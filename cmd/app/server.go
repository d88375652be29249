package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/kushmahi07/Rentzy-sub001/internal/adapters/db/sqlite"
	httpadapter "github.com/kushmahi07/Rentzy-sub001/internal/adapters/http"
	rpcadapter "github.com/kushmahi07/Rentzy-sub001/internal/adapters/rpcjson"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/config"
	"github.com/kushmahi07/Rentzy-sub001/internal/platform/logging"
	"github.com/kushmahi07/Rentzy-sub001/internal/platform/metrics"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run the back-office HTTP API and JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address (RENTZY_LISTEN)"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path (RENTZY_RPC_SOCKET)"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path (RENTZY_DB)"},
			&cli.StringFlag{Name: "bootstrap-admin-email", Usage: "initial admin email (RENTZY_ADMIN_EMAIL)"},
			&cli.StringFlag{Name: "bootstrap-admin-password", Usage: "initial admin password when users are empty (RENTZY_ADMIN_PASSWORD)"},
			&cli.StringFlag{Name: "log-level", Usage: "log level (RENTZY_LOG_LEVEL)"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json (RENTZY_LOG_FORMAT)"},
			&cli.BoolFlag{Name: "trust-proxy-headers", Usage: "take client IP from X-Forwarded-For/X-Real-IP (RENTZY_TRUST_PROXY_HEADERS)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyServerFlags(c, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(ctx, cfg)
		},
	}
}

// applyServerFlags lets explicit flags win over the environment.
func applyServerFlags(c *cli.Command, cfg *config.Config) {
	set := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	set("addr", &cfg.Listen)
	set("rpc-socket", &cfg.RPCSocket)
	set("db-path", &cfg.DBPath)
	set("bootstrap-admin-email", &cfg.AdminEmail)
	set("bootstrap-admin-password", &cfg.AdminPass)
	set("log-level", &cfg.LogLevel)
	set("log-format", &cfg.LogFormat)
	if c.IsSet("trust-proxy-headers") {
		cfg.TrustProxyHeaders = c.Bool("trust-proxy-headers")
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	opts := []application.Option{application.WithLogger(log)}
	routerOpts := httpadapter.Options{
		Logger:            log,
		SessionTTL:        cfg.SessionTTL,
		LoginRate:         cfg.LoginRatePerSecond,
		LoginBurst:        cfg.LoginBurst,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}
	if cfg.MetricsEnabled {
		m := metrics.New()
		opts = append(opts, application.WithRecorder(m))
		routerOpts.Metrics = m
	}
	if cfg.JWTSecret != "" {
		opts = append(opts, application.WithJWT(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL))
	}

	service := application.NewBackofficeService(
		sqliteadapter.NewAccessRepository(db),
		sqliteadapter.NewPropertyRepository(db),
		opts...,
	)
	if err := service.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Listen, Handler: httpadapter.NewRouter(service, routerOpts), ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	log.WithField("socket", cfg.RPCSocket).Info("json-rpc listening")

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "jwt": service.JWTEnabled(), "metrics": cfg.MetricsEnabled}).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
