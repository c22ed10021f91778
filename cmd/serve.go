// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/heliograph/internal/report"
	"github.com/Thermoquad/heliograph/internal/sink"
	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serveListen   string
	serveEncoding string
	serveRedis    bool
	serveNoStream bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Decode telemetry and publish readings",
	Long: `Decode telemetry continuously and publish the configured readings.

Readings are published after every accepted frame to:
  - Prometheus gauges on /metrics (frame age refreshed every second)
  - WebSocket clients on the stream path (CBOR or JSON messages)
  - A Redis pub/sub channel (JSON messages, live only)

/health answers 200 while the last good frame is within the staleness
threshold and 503 once data goes stale.

Which readings are published is controlled by the publish section of the
configuration file; an empty list publishes every key of that kind.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides server.listen)")
	serveCmd.Flags().StringVar(&serveEncoding, "encoding", "", "Stream encoding, cbor or json (overrides stream.encoding)")
	serveCmd.Flags().BoolVar(&serveRedis, "redis", false, "Publish to Redis (overrides redis.enabled)")
	serveCmd.Flags().BoolVar(&serveNoStream, "no-stream", false, "Disable the WebSocket stream")
}

// pipeline routes monitor output to the enabled sinks
type pipeline struct {
	publisher *report.Publisher
	encode    func(report.Message) ([]byte, error)
	exporter  *sink.Exporter
	hub       *sink.Hub
	redis     *sink.RedisPublisher
	health    *sink.HealthState
	log       *logrus.Logger
}

// publish sends the readings of one accepted frame to every sink
func (p *pipeline) publish(ctx context.Context, r vedirect.Report) {
	msg := p.publisher.Readings(r)

	if p.exporter != nil {
		p.exporter.Update(msg)
	}

	if p.hub != nil && p.hub.Clients() > 0 {
		data, err := p.encode(msg)
		if err != nil {
			p.log.WithError(err).Error("Failed to encode readings")
		} else {
			p.hub.Broadcast(data)
		}
	}

	if p.redis != nil {
		data, err := report.EncodeJSON(msg)
		if err != nil {
			p.log.WithError(err).Error("Failed to encode readings")
			return
		}
		pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if _, err := p.redis.Publish(pubCtx, data); err != nil {
			p.log.WithError(err).Warn("Redis publish failed")
		}
	}
}

// observe records a rejection or overflow
func (p *pipeline) observe(err error) {
	var frameErr *vedirect.FrameError
	reason := "other"
	switch {
	case errors.Is(err, vedirect.ErrLineOverflow):
		if p.exporter != nil {
			p.exporter.ObserveOverflow()
		}
		p.log.Debug("Line overflow, resynchronizing")
		return
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindChecksumMismatch:
		reason = "checksum"
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindMalformed:
		reason = "malformed"
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindInterrupted:
		reason = "interrupted"
	}
	if p.exporter != nil {
		p.exporter.ObserveRejection(reason)
	}
	p.log.WithField("reason", reason).WithError(err).Debug("Frame rejected")
}

// refresh republishes health so frame age and data validity advance
// between frames
func (p *pipeline) refresh(m *vedirect.Monitor) {
	r := m.Report()
	p.health.Store(r.Health, m.DecoderStats())
	if p.exporter != nil {
		p.exporter.Update(p.publisher.Readings(r))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}
	if serveEncoding != "" {
		cfg.Stream.Encoding = serveEncoding
	}
	if cmd.Flags().Changed("redis") {
		cfg.Redis.Enabled = serveRedis
	}
	if serveNoStream {
		cfg.Stream.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	publisher, err := report.NewPublisher(cfg.Publish.Sensors, cfg.Publish.TextSensors, cfg.Publish.BinarySensors)
	if err != nil {
		return fmt.Errorf("invalid publish configuration: %w", err)
	}
	encode, err := report.Encoder(cfg.Stream.Encoding)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &pipeline{
		publisher: publisher,
		encode:    encode,
		health:    &sink.HealthState{},
		log:       logger,
	}

	if cfg.Metrics.Enabled {
		p.exporter = sink.NewExporter(cfg.Metrics.Namespace)
	}
	if cfg.Stream.Enabled {
		p.hub = sink.NewHub(cfg.Stream.Encoding == "cbor", logger)
		defer p.hub.Close()
	}
	if cfg.Redis.Enabled {
		p.redis, err = sink.NewRedisPublisher(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer p.redis.Close()
	}

	conn, connInfo, err := OpenConnection(cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	server := sink.NewServer(cfg.Server.Listen, p.exporter, p.hub, cfg.Stream.Path, p.health)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	logger.WithFields(logrus.Fields{
		"conn":    connInfo,
		"listen":  cfg.Server.Listen,
		"metrics": cfg.Metrics.Enabled,
		"stream":  cfg.Stream.Enabled,
		"redis":   cfg.Redis.Enabled,
		"keys":    len(publisher.Keys()),
	}).Info("Serving readings")

	monitor := newMonitor()
	p.refresh(monitor)

	data := make(chan []byte, 16)
	done := make(chan struct{})
	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(conn, data, done)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	shutdown := func() error {
		close(done)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}

	for {
		select {
		case chunk := <-data:
			for _, b := range chunk {
				_, err := monitor.DecodeByte(b)
				if err != nil {
					p.observe(err)
				}
				if r, ok := monitor.TakeUpdate(); ok {
					p.health.Store(r.Health, monitor.DecoderStats())
					p.publish(ctx, r)
				}
			}

		case <-ticker.C:
			p.refresh(monitor)

		case err := <-readErr:
			shutdown()
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info("Connection closed")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)

		case <-ctx.Done():
			logger.Info("Shutting down")
			return shutdown()
		}
	}
}
