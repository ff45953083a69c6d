package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"p2plend-backend/internal/adapter/gateway"
	httpadp "p2plend-backend/internal/adapter/http"
	mw "p2plend-backend/internal/adapter/middleware"
	"p2plend-backend/internal/adapter/repository/mysql"
	"p2plend-backend/internal/config"
	loanDomain "p2plend-backend/internal/domain/loan"
	settingDomain "p2plend-backend/internal/domain/setting"
	tokenDomain "p2plend-backend/internal/domain/token"
	transferDomain "p2plend-backend/internal/domain/transfer"
	"p2plend-backend/internal/infrastructure/cache"
	"p2plend-backend/internal/infrastructure/db"
	loanUC "p2plend-backend/internal/usecase/loan"
	registryUC "p2plend-backend/internal/usecase/registry"
	statsUC "p2plend-backend/internal/usecase/stats"
	transferUC "p2plend-backend/internal/usecase/transfer"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal(err)
	}
	if err := gdb.AutoMigrate(
		&loanDomain.Loan{},
		&loanDomain.IndexEntry{},
		&tokenDomain.Token{},
		&settingDomain.Setting{},
		&transferDomain.Record{},
	); err != nil {
		log.Fatal(err)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	loans := mysql.NewLoanRepository(gdb)
	tokens := mysql.NewTokenRepository(gdb)
	settings := mysql.NewSettingRepository(gdb)
	unit := mysql.NewGormUoW(gdb)

	escrowGW := gateway.NewEscrowClient(cfg.EscrowBaseURL, cfg.OwnerAccount)
	ledgerGW := gateway.NewTokenLedgerClient(cfg.TokenLedgerBaseURL, cfg.OwnerAccount)

	loanUsecase := loanUC.NewUsecase(loans)
	registryUsecase := registryUC.NewUsecase(tokens, settings)
	statsUsecase := statsUC.NewUsecase(loans, tokens)
	orchestrator := transferUC.NewOrchestrator(unit, escrowGW, ledgerGW)

	seed(cfg, registryUsecase)

	h := httpadp.NewHandler()
	loanHandler := httpadp.NewLoanHandler(loanUsecase, orchestrator)
	transferHandler := httpadp.NewTransferHandler(orchestrator, tokens)
	registryHandler := httpadp.NewRegistryHandler(registryUsecase)
	statsHandler := httpadp.NewStatsHandler(statsUsecase)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	idemp := mw.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)
	throttle := mw.RateLimitMiddleware(mw.NewMapLimiter(cfg.HookRPS, cfg.HookBurst, 10*time.Minute))

	// reads
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/greeting", registryHandler.GetGreeting)
	e.GET("/escrow", registryHandler.GetEscrow)
	e.GET("/tokens", registryHandler.ListTokens)
	e.GET("/borrowers", loanHandler.Borrowers)
	e.GET("/lenders", loanHandler.Lenders)
	e.GET("/borrowers/loans", loanHandler.BorrowerLoans)
	e.GET("/lenders/loans", loanHandler.LenderLoans)
	e.GET("/loans", loanHandler.ListLoans)
	e.GET("/loans/:loan_id", loanHandler.GetLoan)
	e.GET("/loans/:loan_id/interest", loanHandler.GetInterest)
	e.GET("/transfers/:transfer_id", transferHandler.GetTransfer)
	e.GET("/stats", statsHandler.GetStats)

	// calls
	e.PUT("/greeting", registryHandler.SetGreeting)
	e.PUT("/escrow", registryHandler.SetEscrow)
	e.POST("/tokens", registryHandler.AddToken)
	e.DELETE("/tokens/:symbol", registryHandler.RemoveToken)
	e.POST("/transfers/incoming", transferHandler.Incoming, throttle, idemp)
	e.POST("/loans/:loan_id/cancel", loanHandler.CancelLoan, idemp)
	e.POST("/loans/:loan_id/collect", loanHandler.CollectInterest, idemp)

	addr := ":" + cfg.AppPort
	log.Printf("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// seed writes the boot-time defaults: greeting and escrow address when not
// set yet, plus any tokens from SUPPORTED_TOKENS.
func seed(cfg *config.Config, reg *registryUC.Usecase) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cur, err := reg.Greeting(ctx); err == nil && cur == "" && cfg.Greeting != "" {
		if err := reg.SetGreeting(ctx, cfg.Greeting); err != nil {
			log.Printf("seed greeting: %v", err)
		}
	}
	if cur, err := reg.Escrow(ctx); err == nil && cur == "" && cfg.EscrowAccount != "" {
		if err := reg.SetEscrow(ctx, cfg.EscrowAccount); err != nil {
			log.Printf("seed escrow: %v", err)
		}
	}
	for symbol, account := range cfg.SupportedTokens() {
		if err := reg.AddToken(ctx, symbol, account); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("seed token %s: %v", symbol, err)
		}
	}
}
