package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/employee-management/internal/config"
	"github.com/iliyamo/employee-management/internal/database"
	"github.com/iliyamo/employee-management/internal/handler"
	"github.com/iliyamo/employee-management/internal/queue"
	"github.com/iliyamo/employee-management/internal/repository"
	"github.com/iliyamo/employee-management/internal/router"
	"github.com/iliyamo/employee-management/internal/scheduler"
	"github.com/iliyamo/employee-management/internal/service"
)

func main() {
	// .env is optional; containers supply the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	accounts := repository.NewAccountRepo(db)
	roles := repository.NewRoleRepo(db)
	tokens := repository.NewTokenRepo(db)
	sessions := repository.NewSessionRepo(db)
	employees := repository.NewEmployeeRepo(db)

	svc := service.NewAuthService(cfg, accounts, roles, tokens, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit-trail consumer; the API stays up without a broker.
	go func() {
		if err := queue.StartSecurityConsumer(); err != nil {
			log.Printf("security consumer: %v", err)
		}
	}()

	tokenSweep := &scheduler.Sweeper{
		Name:          "token",
		Interval:      cfg.TokenSweepInterval,
		RetryInterval: cfg.SweepRetryInterval,
		Retention:     cfg.TokenRetention,
		Sweep:         tokens.Cleanup,
	}
	sessionSweep := &scheduler.Sweeper{
		Name:          "session",
		Interval:      cfg.SessionSweepInterval,
		RetryInterval: cfg.SweepRetryInterval,
		Retention:     cfg.SessionRetention,
		Sweep:         sessions.Cleanup,
	}
	go tokenSweep.Run(ctx)
	go sessionSweep.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		DB:     db,
		Rdb:    rdb,
		RLCfg:  rlCfg,
		Issuer: svc.Issuer,
		Svc:    svc,
		Auth:   handler.NewAuthHandler(svc),
		Admin:  handler.NewAdminHandler(svc, accounts, tokens, sessions),
		Emps:   handler.NewEmployeeHandler(employees),
		Attend: handler.NewAttendanceHandler(employees),
		Roles:  handler.NewRoleHandler(roles),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
