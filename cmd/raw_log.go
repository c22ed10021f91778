// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/spf13/cobra"
)

var rawShowDerived bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display VE.Direct text frames as they arrive.

Each checksum-valid frame is printed with its timestamp, checksum byte and
decoded fields. Rejected frames and abandoned lines are printed inline.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawShowDerived, "derived", false, "Also print derived power metrics")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Heliograph - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	monitor := newMonitor()

	data := make(chan []byte, 16)
	stop := make(chan struct{})
	defer close(stop)

	readErr := make(chan error, 1)
	go func() {
		readErr <- readLoop(conn, data, stop)
	}()

	for {
		select {
		case chunk := <-data:
			for _, b := range chunk {
				frame, err := monitor.DecodeByte(b)
				if err != nil {
					printRawError(err)
					continue
				}
				if frame != nil {
					fmt.Print(vedirect.FormatFrame(frame))
					if rawShowDerived {
						fmt.Print(vedirect.FormatDerived(monitor.Derived()))
					}
					fmt.Println()
				}
			}

		case err := <-readErr:
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info("Connection closed")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
	}
}

func printRawError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	if errors.Is(err, vedirect.ErrLineOverflow) {
		fmt.Printf("[%s] [OVERFLOW] %v\n\n", timestamp, err)
		return
	}
	fmt.Printf("[%s] [ERROR] %v\n\n", timestamp, err)
}
