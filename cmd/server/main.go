package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/wooacry-bridge/internal/app"
	"github.com/joao-fontenele/wooacry-bridge/internal/config"
	"github.com/joao-fontenele/wooacry-bridge/internal/middleware"
	"github.com/joao-fontenele/wooacry-bridge/internal/orders"
	"github.com/joao-fontenele/wooacry-bridge/internal/telemetry"
	"github.com/joao-fontenele/wooacry-bridge/internal/webhook"
)

const serviceVersion = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a config file (default: ./config.yaml if present)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	ctx := context.Background()
	tel := telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, tel)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(tel)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	bridge, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to assemble bridge", "error", err)
		os.Exit(1)
	}
	defer func() { _ = bridge.Close() }()

	hooks := webhook.NewHandler(webhook.Config{
		ShopifySecret:  cfg.Shopify.WebhookSecret,
		ShippingSecret: cfg.Wooacry.ShippingSecret,
	}, bridge.Pipeline, bridge.Fulfillment, logger)
	admin := orders.NewHandler(bridge.Wooacry, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/shopify/orders-create", telemetry.WithHTTPRoute(hooks.HandleOrderCreated))
	if bridge.Fulfillment != nil {
		mux.HandleFunc("POST /webhooks/wooacry/shipping", telemetry.WithHTTPRoute(hooks.HandleShipping))
	} else {
		logger.Warn("shopify credentials not configured, shipping webhook disabled")
	}
	mux.HandleFunc("GET /orders/{id}/wooacry", telemetry.WithHTTPRoute(admin.HandleInfo))
	mux.HandleFunc("POST /orders/{id}/wooacry/cancel", telemetry.WithHTTPRoute(admin.HandleCancel))
	mux.HandleFunc("POST /orders/{id}/wooacry/address", telemetry.WithHTTPRoute(admin.HandleChangeAddress))
	mux.HandleFunc("GET /customizations/{customize_no}/wooacry", telemetry.WithHTTPRoute(admin.HandleCustomizeInfo))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: otelhttp.NewHandler(middleware.RequestLog(logger, mux), "wooacry-bridge",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting wooacry bridge", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
