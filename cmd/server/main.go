package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/smart-farm-service/pkg/auth"
	"liyu1981.xyz/smart-farm-service/pkg/common"
	"liyu1981.xyz/smart-farm-service/pkg/db"
	farmGrpc "liyu1981.xyz/smart-farm-service/pkg/grpc"
	farmHttp "liyu1981.xyz/smart-farm-service/pkg/http"
	"liyu1981.xyz/smart-farm-service/pkg/iot"
	"liyu1981.xyz/smart-farm-service/pkg/seed"
)

const (
	limiterPruneInterval = 10 * time.Minute
	limiterIdleTimeout   = 30 * time.Minute
	shutdownTimeout      = 10 * time.Second
)

func main() {
	var err error

	err = godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using process environment. Copy .env.example to .env in development")
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := common.GetLogger()
	defer func() { _ = logger.Sync() }()

	dbInstance := db.GetInstance(db.DialectorFromConfig(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatalf("failed to load seed file %s: %v", cfg.SeedFile, err)
		}
		if _, err := seed.Apply(ctx, dbInstance.Conn, f); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
	}

	iotCore := iot.IOT{
		Db:       *dbInstance,
		Settings: iot.SettingsFromConfig(cfg),
		Broker:   iot.NewAlertBroker(),
	}
	irrigation := iotCore.NewIrrigation()
	iotCore.WithServices(iot.ServiceOpts{
		Reading:    iotCore.GetIReading(),
		Alert:      iotCore.GetIAlert(),
		Field:      iotCore.GetIField(),
		Sensor:     iotCore.GetISensor(),
		User:       iotCore.GetIUser(),
		Irrigation: irrigation,
	})
	defer irrigation.Close()

	// stops that were pending when the process went down
	if resumed, err := irrigation.Resume(ctx); err != nil {
		logger.Error("Failed to resume pending irrigation stops", zap.Error(err))
	} else {
		logger.Info("Resumed pending irrigation stops", zap.Int("count", resumed))
	}

	limiterStore := iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst)
	defaultLimiter := zap.String("default_limiter",
		fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst))

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting " + name)
			fn(ctx)
			logger.Info("Stopped " + name)
		}()
	}

	if cfg.SimulatorEnabled {
		background("sensor simulator", iotCore.NewSimulator().Run)
	}
	if cfg.IrrigationEnabled {
		background("irrigation scheduler", irrigation.Run)
	}
	background("limiter pruner", func(ctx context.Context) {
		ticker := time.NewTicker(limiterPruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if dropped := limiterStore.Prune(limiterIdleTimeout); dropped > 0 {
					logger.Debug("Pruned idle sensor limiters", zap.Int("dropped", dropped))
				}
			}
		}
	})

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		farmGrpcServer := farmGrpc.FarmServer{
			Iot:              &iotCore,
			RateLimiterStore: limiterStore,
		}
		interceptor := farmGrpcServer.CreateRateLimitInterceptor([]string{
			farmGrpc.FarmService_IngestReading_FullMethodName,
		})
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		farmGrpc.RegisterFarmServiceServer(grpcServer, &farmGrpcServer)
		logger.Info("gRPC server created with:", defaultLimiter)

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("start gRPC server on " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
				stop()
			}
		}()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &farmHttp.RestfulServer{
		Server:           gin.Default(),
		Iot:              &iotCore,
		Auth:             auth.NewAuthenticator(cfg.JwtSecret, cfg.JwtTTL),
		RateLimiterStore: limiterStore,

		AllowExpertSignup: cfg.AllowExpertSignup,
	}
	rs.Setup()

	logger.Info("http server created with:", defaultLimiter)

	httpServer := &http.Server{
		Addr:    cfg.HttpHostPort,
		Handler: rs.Server,
	}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed to serve", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	wg.Wait()
}
