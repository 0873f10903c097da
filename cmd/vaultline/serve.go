package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vaultline/vaultline/internal/accounts"
	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/ledger"
	"github.com/vaultline/vaultline/internal/server/handler"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Vaultline API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewProduction()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if err := runServer(logger); err != nil {
			logger.Error("server exited with error", zap.Error(err))
			return err
		}
		return nil
	},
}

func runServer(logger *zap.Logger) error {
	// ── Storage ──────────────────────────────────────────────────────────────
	// With database.url set, accounts and the ledger live in Postgres.
	// Without it, everything is in-memory — development mode only.
	var (
		ldg      ledger.Ledger
		acctRepo accounts.Repository
	)
	dbURL := viper.GetString("database.url")
	if dbURL != "" {
		db, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("connected to postgres")

		ldg = ledger.NewPostgresLedger(db, logger)
		acctRepo = accounts.NewPostgresRepository(db)
	} else {
		logger.Warn("no database.url configured — using in-memory storage; balances do not survive restarts")
		ldg = ledger.New()
		acctRepo = accounts.NewMemoryRepository()
	}

	// ── Identity (signing key + token issuer) ────────────────────────────────
	keyDir := viper.GetString("identity.key_dir")
	keys := identity.NewKeyManager(keyDir)
	if err := keys.LoadOrCreate(); err != nil {
		return fmt.Errorf("signing key setup failed: %w", err)
	}
	logger.Info("signing key ready", zap.String("key_dir", keyDir))

	httpPort := viper.GetInt("server.port")
	issuerURL := viper.GetString("identity.issuer_url")
	if issuerURL == "" {
		issuerURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}
	tokenTTL := time.Duration(viper.GetInt("identity.token_ttl_seconds")) * time.Second
	tokens := identity.NewTokenIssuer(keys.Key(), issuerURL, tokenTTL)

	// ── Wire up layers ───────────────────────────────────────────────────────
	acctSvc := accounts.NewService(acctRepo, logger)
	authHandler := handler.NewAuthHandler(acctSvc, tokens, ldg, viper.GetInt64("ledger.opening_balance_cents"), logger)
	transferHandler := handler.NewTransferHandler(ldg, logger)

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (64 KB — transfer payloads are tiny)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 64<<10)
		c.Next()
	})

	rps := viper.GetInt("server.rate_limit_rps")
	if rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	// Health and metrics (public, no auth)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	// API v1
	v1 := router.Group("/api/v1")
	authHandler.Register(v1)
	transferHandler.Register(v1, identity.RequireIdentity(tokens, logger))

	// ── Serve with graceful shutdown ─────────────────────────────────────────
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("vaultline HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down vaultline...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("vaultline stopped")
	return nil
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
