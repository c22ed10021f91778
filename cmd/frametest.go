// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/spf13/cobra"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid VE.Direct frame",
	Long: `Wait for a valid VE.Direct text frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
checksum-valid frame whose known fields all decode. Rejected frames and
abandoned lines before it are counted and reported.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking wiring and baud rate before starting the monitor.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg.Connection)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Heliograph - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid VE.Direct frame...\n\n")

	decoder := vedirect.NewDecoderSize(cfg.Decoder.MaxLineLength)
	buf := make([]byte, 128)

	frameChan := make(chan *vedirect.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		rejected := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr != nil {
					rejected++
					logger.WithError(decodeErr).Debug("Skipping until sync")
					continue
				}
				if frame != nil {
					if rejected > 0 {
						fmt.Printf("(skipped %d rejected frames or lines before sync)\n", rejected)
					}
					frameChan <- frame
					return
				}
			}
		}
	}()

	select {
	case frame := <-frameChan:
		s := frame.Snapshot()
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Fields: %d (%d decoded, %d ignored)\n", frame.Len(), s.Len(), len(frame.UnknownLabels()))
		if pid, ok := s.ProductID(); ok {
			fmt.Printf("  Product: %s\n", pid)
		}
		if state, ok := s.State(); ok {
			fmt.Printf("  State: %s\n", state)
		}
		fmt.Printf("  Checksum: 0x%02X\n", frame.Checksum())
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
