package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joao-fontenele/wooacry-bridge/internal/app"
	"github.com/joao-fontenele/wooacry-bridge/internal/config"
	"github.com/joao-fontenele/wooacry-bridge/internal/messaging"
	"github.com/joao-fontenele/wooacry-bridge/internal/telemetry"
	"github.com/joao-fontenele/wooacry-bridge/internal/worker"
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

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("kafka brokers are required (BRIDGE_KAFKA_BROKERS or KAFKA_BROKERS)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName + "-worker",
		ServiceVersion: serviceVersion,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	bridge, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to assemble bridge", "error", err)
		os.Exit(1)
	}
	defer func() { _ = bridge.Close() }()

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID)
	defer func() { _ = consumer.Close() }()

	handler := worker.NewOrderHandler(bridge.Pipeline, logger)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting order worker", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.OrdersTopic, "group", cfg.Kafka.GroupID)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
