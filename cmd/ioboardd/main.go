// Command ioboardd runs an IO board as an edge device: it opens the
// serial link, exposes the board over the platform's MQTT contract, and
// serves Prometheus metrics.
package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	ioboard "github.com/luhtfiimanal/go-ioboard"
	"github.com/luhtfiimanal/go-ioboard/deadbolt"
	"github.com/luhtfiimanal/go-ioboard/loadcell"
	"github.com/luhtfiimanal/go-ioboard/mqttbridge"
	"github.com/luhtfiimanal/go-ioboard/system"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML/TOML/JSON)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log := initLogger(cfg.Logging)
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := ioboard.NewMetrics(reg)

	conn, err := ioboard.Open(ioboard.Config{
		Device:      cfg.Serial.Device,
		BaudRate:    cfg.Serial.BaudRate,
		Timeout:     cfg.Serial.Timeout,
		MaxAttempts: cfg.Serial.MaxAttempts,
		RetryDelay:  cfg.Serial.RetryDelay,
		Logger:      log.Named("ioboard"),
		Metrics:     metrics,
	})
	if err != nil {
		log.Fatal("open board", zap.Error(err), zap.String("device", cfg.Serial.Device))
	}
	defer conn.Close()
	log.Info("board link open",
		zap.String("device", cfg.Serial.Device), zap.Int("baud", cfg.Serial.BaudRate))

	bolt := deadbolt.New(conn, log.Named("deadbolt"))
	scale := loadcell.New(conn, log.Named("loadcell"))
	sys := system.New(conn, log.Named("system"))

	var bridge *mqttbridge.Bridge
	if cfg.MQTT.Enable {
		handlers := mqttbridge.NewHandlers(
			cfg.MQTT.DeviceIdx, cfg.MQTT.DivisionIdx,
			bolt, scale, sys, log.Named("handlers"))
		bridge = mqttbridge.New(mqttbridge.Config{
			BrokerURL:      cfg.MQTT.BrokerURL,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			DeviceIdx:      cfg.MQTT.DeviceIdx,
			DivisionIdx:    cfg.MQTT.DivisionIdx,
			HealthInterval: cfg.MQTT.HealthInterval,
			Logger:         log.Named("mqtt"),
		}, handlers)
		if err := bridge.Start(); err != nil {
			log.Fatal("start mqtt bridge", zap.Error(err))
		}
		defer bridge.Stop()
	}

	if cfg.Metrics.Enable {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("metrics listening",
			zap.String("addr", cfg.Metrics.Addr), zap.String("path", cfg.Metrics.Path))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))
}
