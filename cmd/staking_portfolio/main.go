package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"staking_portfolio/internal/chain"
	"staking_portfolio/internal/client"
	"staking_portfolio/internal/config"
	"staking_portfolio/internal/pkg/ttlcache"
	"staking_portfolio/internal/pkg/utils"
	"staking_portfolio/internal/protocols"
	"staking_portfolio/internal/restapi"
	"staking_portfolio/internal/service"
	"staking_portfolio/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// Route stdlib slog users through zap as well.
	slogHandler := zapslog.NewHandler(zapLogger.Core())
	slog.SetDefault(slog.New(slogHandler))

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warnf("Invalid log level in config: %s. Defaulting to Info.", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Infof("Failed to log to file, using default stdout: %v", err)
		}
	}

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	reader, err := chain.NewRPCReader(cfg.Chain, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to chain RPC", zap.Error(err))
	}
	zapLogger.Info("Chain RPC reader initialized", zap.String("endpoint", cfg.Chain.PrimaryRPCURL))

	resolver := chain.NewResolver(reader, cfg.Chain.GenesisBlock, zapLogger)
	ranges := chain.NewRangeGenerator(reader, zapLogger)

	if !common.IsHexAddress(cfg.Staking.STRKAsset.Contract) {
		zapLogger.Fatal("Invalid staked token contract address",
			zap.String("contract", cfg.Staking.STRKAsset.Contract))
	}
	lst := protocols.NewLSTContract(reader,
		common.HexToAddress(cfg.Staking.STRKAsset.Contract),
		cfg.Staking.STRKAsset.Decimals)

	registry, err := protocols.BuildRegistry(cfg.Protocols, reader, lst)
	if err != nil {
		zapLogger.Fatal("Failed to build protocol registry", zap.Error(err))
	}
	zapLogger.Info("Protocol registry built", zap.Int("protocols", registry.Len()))

	holdingsSvc := service.NewHoldingsService(reader, registry,
		cfg.Staking.STRKAsset.Decimals, cfg.RpcClient, zapLogger)

	oracleTimeout := time.Duration(cfg.Oracle.RequestTimeoutMillis) * time.Millisecond
	oracleClient := client.NewOracleClient(cfg.Oracle.BaseURL, oracleTimeout, zapLogger)
	zapLogger.Info("Price oracle client initialized", zap.String("baseURL", cfg.Oracle.BaseURL))

	yieldSvc, err := service.NewYieldService(reader, oracleClient, cfg.Staking, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize yield service", zap.Error(err))
	}

	cache := ttlcache.New(time.Duration(cfg.Cache.TTLMinutes) * time.Minute)
	handler := restapi.NewHandler(ranges, resolver, holdingsSvc, yieldSvc, cache, zapLogger)

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(utils.ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	restapi.RegisterRoutes(router, handler)

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	zapLogger.Info("Prometheus metrics endpoint enabled", zap.String("path", "/metrics"))

	// Pprof endpoints (protect these in a production environment)
	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.POST("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		pprofRouter.GET("/block", gin.WrapH(pprof.Handler("block")))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
		pprofRouter.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
		pprofRouter.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
	}
	zapLogger.Info("Pprof endpoints enabled under /debug/pprof")

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
