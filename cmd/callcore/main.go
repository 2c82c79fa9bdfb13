package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fujs999/callcore/internal/config"
	"github.com/fujs999/callcore/internal/controller"
	"github.com/fujs999/callcore/internal/events"
	"github.com/fujs999/callcore/internal/logger"
	"github.com/fujs999/callcore/internal/route"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML configuration file")
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(os.Stdout)
	logger.SetLevel(cfg.LogLevel)

	var history events.Publisher = events.NewNoopPublisher()
	if cfg.MQTT.Broker != "" {
		pub, err := events.NewMQTTPublisher(events.MQTTOptions{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
		})
		if err != nil {
			slog.Error("Failed to connect history publisher", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		history = pub
	}

	ctrl := controller.New(controller.Options{
		Identity:     cfg.Account.Identity,
		Blocked:      cfg.Account.Blocked,
		Speakerphone: cfg.Account.SpeakerphoneDefault,
		Delays: route.DelayPolicy{
			Default:           cfg.Delays.Default,
			CancelledIncoming: cfg.Delays.CancelledIncoming,
			Hangup:            cfg.Delays.Hangup,
			ConferenceGrace:   cfg.Delays.ConferenceGrace,
		},
		History: history,
	})

	run(ctrl, cfg)
}

func run(ctrl *controller.Controller, cfg *config.Config) {
	slog.Info("Starting callcore controller",
		"identity", cfg.Account.Identity,
		"blocked_entries", len(cfg.Account.Blocked),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ctrl.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig)
	cancel()

	time.Sleep(1 * time.Second)
}
