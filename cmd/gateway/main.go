// Package main is the entry point for the SCADA gateway service.
// It wires the OPC UA dialer, the lifecycle supervisor, the value registry
// and the status surface, and manages the process lifecycle.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/savushkin-dev/scada-gateway/internal/adapter/config"
	"github.com/savushkin-dev/scada-gateway/internal/adapter/mqtt"
	"github.com/savushkin-dev/scada-gateway/internal/adapter/opcua"
	"github.com/savushkin-dev/scada-gateway/internal/api"
	"github.com/savushkin-dev/scada-gateway/internal/health"
	"github.com/savushkin-dev/scada-gateway/internal/metrics"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
	"github.com/savushkin-dev/scada-gateway/internal/service"
	"github.com/savushkin-dev/scada-gateway/pkg/logging"
)

const (
	serviceName    = "scada-gateway"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet, fall back to stderr.
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(serviceName, serviceVersion, logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger.Info().Str("env", cfg.Environment).Msg("Starting SCADA gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsRegistry := metrics.NewRegistry()
	valueRegistry := registry.New()

	// Load the declarative server/tag configuration.
	servers, err := config.LoadServers(cfg.ServersConfigPath, cfg.Polling.DefaultInterval)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ServersConfigPath).Msg("Failed to load server configurations")
	}
	logger.Info().Int("servers", len(servers)).Msg("Loaded server configurations")

	// MQTT egress is optional; without it the gateway only keeps the
	// in-process value registry.
	var publisher service.Publisher
	if cfg.MQTT.Enabled {
		mqttPublisher := mqtt.NewPublisher(mqtt.Config{
			BrokerURL:      cfg.MQTT.BrokerURL,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			TopicPrefix:    cfg.MQTT.TopicPrefix,
			QoS:            cfg.MQTT.QoS,
			KeepAlive:      cfg.MQTT.KeepAlive,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
			PublishTimeout: cfg.MQTT.PublishTimeout,
		}, logger, metricsRegistry)

		if err := mqttPublisher.Connect(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
		}
		defer mqttPublisher.Disconnect()
		publisher = mqttPublisher
	}

	dialer := opcua.NewDialer(opcua.DialerConfig{
		ConnectTimeout:     cfg.OPCUA.ConnectTimeout,
		RequestTimeout:     cfg.OPCUA.RequestTimeout,
		SessionTimeout:     cfg.OPCUA.SessionTimeout,
		ApplicationName:    cfg.OPCUA.ApplicationName,
		ApplicationURI:     cfg.OPCUA.ApplicationURI,
		BreakerMaxRequests: cfg.OPCUA.CBMaxRequests,
		BreakerInterval:    cfg.OPCUA.CBInterval,
		BreakerTimeout:     cfg.OPCUA.CBTimeout,
		BreakerThreshold:   cfg.OPCUA.CBFailureThreshold,
	}, logger)

	gateway := service.NewGateway(service.ManagerConfig{
		ConnectTimeout:  cfg.OPCUA.ConnectTimeout,
		ReadTimeout:     cfg.OPCUA.RequestTimeout,
		ShutdownTimeout: cfg.Polling.ShutdownTimeout,
	}, dialer, valueRegistry, publisher, logger, metricsRegistry)

	if err := gateway.Start(ctx, servers); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start gateway")
	}

	healthChecker := health.NewChecker(logger)
	healthChecker.Register("gateway", func(context.Context) error {
		if !gateway.Running() {
			return fmt.Errorf("no server pipeline running")
		}
		return nil
	})
	if p, ok := publisher.(*mqtt.Publisher); ok {
		healthChecker.Register("mqtt", p.HealthCheck)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthChecker.ReadinessHandler)
	mux.HandleFunc("/health/live", healthChecker.LivenessHandler)
	mux.HandleFunc("/health/ready", healthChecker.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())
	api.NewHandler(gateway, valueRegistry, serviceVersion, logger).Register(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	logger.Info().
		Int("http_port", cfg.HTTP.Port).
		Bool("mqtt_enabled", cfg.MQTT.Enabled).
		Msg("SCADA gateway started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutdown signal received, stopping")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Polling.ShutdownTimeout+5*time.Second)
	defer shutdownCancel()

	gateway.Stop(shutdownCtx)

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	logger.Info().Msg("SCADA gateway shutdown complete")
}
