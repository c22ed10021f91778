// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/heliograph/internal/config"
	"github.com/Thermoquad/heliograph/internal/logging"
	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Configuration and logging flags
	configPath string
	logLevel   string
	logFormat  string

	// Set up by PersistentPreRunE
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "heliograph",
	Short: "VE.Direct MPPT Telemetry Analyzer",
	Long: `Heliograph - A CLI tool for decoding and analyzing VE.Direct text-mode
telemetry from solar MPPT charge controllers.

Provides commands for raw frame logging, a live monitor with frame health
diagnostics, a publishing server (Prometheus, WebSocket, Redis) and a frame
simulator for bench testing.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 19200]
  WebSocket: --url ws://host/path [--username user]

Settings may also be read from a YAML file with --config; flags override the
file. For WebSocket authentication, the password is read from the
HELIOGRAPH_PASSWORD environment variable, or prompted interactively if not
set. The --password flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 19200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")
}

// setup loads the configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Connection.Port = portName
		cfg.Connection.URL = ""
	}
	if flags.Changed("url") {
		cfg.Connection.URL = wsURL
		cfg.Connection.Port = ""
	}
	if flags.Changed("baud") {
		cfg.Connection.Baud = baudRate
	}
	if flags.Changed("username") {
		cfg.Connection.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Connection.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.New(cfg.Log.Level, cfg.Log.Format)
	return nil
}

// newMonitor builds a monitor from the decoder configuration
func newMonitor() *vedirect.Monitor {
	d := cfg.Decoder
	return vedirect.NewMonitor(
		vedirect.WithMaxLineLength(d.MaxLineLength),
		vedirect.WithNominalInterval(d.NominalInterval),
		vedirect.WithStalenessMultiple(d.StalenessMultiple),
		vedirect.WithStalenessThreshold(d.StalenessThreshold),
	)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
