package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/crowdvote/crowdvote/internal/config"
	"github.com/crowdvote/crowdvote/internal/infra/cache"
	"github.com/crowdvote/crowdvote/internal/infra/database"
	"github.com/crowdvote/crowdvote/internal/infra/gateway"
	"github.com/crowdvote/crowdvote/internal/infra/repository"
	"github.com/crowdvote/crowdvote/internal/present/rest"
	"github.com/crowdvote/crowdvote/internal/service"
	"github.com/crowdvote/crowdvote/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if conf.Server.EnableTrace {
		shutdown, err := setupTracer(conf.Server.TraceEndpoint)
		if err != nil {
			slog.Error("failed to setup tracer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer shutdown()
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		slog.Error("failed to connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = database.MigratePostgres(db)
	if err != nil {
		slog.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
	mc := database.NewMemcached(conf.Server.MemcachedAddr)

	ledger, err := gateway.NewLedgerGateway(
		conf.Ledger.RpcURL,
		conf.Ledger.ContractAddress,
		conf.Ledger.PrivateKey,
		conf.Ledger.ChainID,
	)
	if err != nil {
		slog.Error("failed to setup ledger gateway", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ipfs := gateway.NewIPFSGateway(conf.IPFS.Endpoint)

	contentRepo := repository.NewContentRepository(db)
	commitStore := repository.NewCommitStore(mc)
	queryCache := cache.NewRedisCache(rdb)
	signal := service.NewSignalService(rdb)

	contentUC := usecase.NewContentUsecase(contentRepo, queryCache, ipfs, ledger, signal)
	voteUC := usecase.NewVoteUsecase(commitStore, ledger)

	handler := rest.NewHandler(contentUC, voteUC, signal)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("crowdvote"))
	}

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTracer(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			semconv.ServiceName("crowdvote"),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}, nil
}
