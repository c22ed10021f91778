// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor telemetry and frame health",
	Long: `Decode telemetry continuously and track frame health.

This command validates each frame and reports:
  - Checksum mismatches and malformed fields (frame rejected)
  - Over-long lines abandoned during resynchronization
  - Implausible values in accepted frames (voltage, current, unknown codes)
  - Frame age, data validity and frame/error rates

By default, only problems are displayed. Use --show-all to display valid frames too.

The terminal UI shows the latest telemetry and derived power figures. Text
mode prints periodic health summaries at a configurable interval.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive, got %d", statsInterval)
	}

	conn, connInfo, err := OpenConnection(cfg.Connection)
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// printRejection prints a rejected frame in highlighted format
func printRejection(err error) {
	timestamp := time.Now().Format("15:04:05.000")

	var frameErr *vedirect.FrameError
	switch {
	case errors.Is(err, vedirect.ErrLineOverflow):
		fmt.Printf("[%s] \033[1;33mLINE OVERFLOW:\033[0m partial frame abandoned, resynchronizing\n\n", timestamp)
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindChecksumMismatch:
		fmt.Printf("[%s] \033[1;31mCHECKSUM MISMATCH:\033[0m sum 0x%02X over %d fields\n", timestamp, frameErr.Sum, frameErr.Fields)
		fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindInterrupted:
		fmt.Printf("[%s] \033[1;31mINTERRUPTED FRAME:\033[0m HEX message inside %d fields\n", timestamp, frameErr.Fields)
		fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
	default:
		fmt.Printf("[%s] \033[1;31mMALFORMED FRAME:\033[0m %v\n", timestamp, err)
		fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
	}
}

// printValidationErrors prints plausibility anomalies for an accepted frame
func printValidationErrors(frame *vedirect.Frame, anomalies []vedirect.ValidationError) {
	timestamp := frame.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %d fields\n", timestamp, frame.Len())
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, a := range anomalies {
		switch a.Type {
		case vedirect.AnomalyVoltageRange, vedirect.AnomalyCurrentRange, vedirect.AnomalyPowerRange:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, a.Message)
		case vedirect.AnomalyUnknownCode:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, a.Message)
			if field, ok := a.Details["field"].(string); ok {
				fmt.Printf("    %s has no text mapping\n", field)
			}
		default:
			fmt.Printf("  Issue %d: %s\n", i+1, a.Message)
		}
	}

	s := frame.Snapshot()
	if state, ok := s.State(); ok {
		code, _ := s.ErrorCode()
		fmt.Printf("  State: %s (%d), Error: %s (%d)\n", state, int(state), code, int(code))
	}
	fmt.Printf("  >>> FRAME ACCEPTED WITH WARNINGS <<<\n\n")
}

// runTUIMode runs the monitor in TUI mode. The reader goroutine owns the
// Monitor and sends value copies to the program.
func runTUIMode(conn Connection, connInfo string) error {
	monitor := newMonitor()

	m := initialModel(connInfo, statsInterval, showAll, *monitor.Health())
	p := tea.NewProgram(m)

	data := make(chan []byte, 16)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		if err := readLoop(conn, data, stop); err != nil {
			p.Send(connClosedMsg{err: err})
		}
	}()

	go func() {
		synchronized := false
		rejectedBeforeSync := 0
		for {
			var chunk []byte
			select {
			case chunk = <-data:
			case <-stop:
				return
			}

			for _, b := range chunk {
				frame, err := monitor.DecodeByte(b)
				if err != nil {
					if synchronized {
						p.Send(rejectMsg{err: err, health: *monitor.Health()})
					} else {
						rejectedBeforeSync++
					}
					continue
				}
				if frame == nil {
					continue
				}

				if !synchronized {
					synchronized = true
					p.Send(syncMsg{rejected: rejectedBeforeSync})
				}
				report, _ := monitor.TakeUpdate()
				p.Send(frameMsg{
					frame:     frame,
					report:    report,
					anomalies: vedirect.ValidateFrame(frame),
					health:    *monitor.Health(),
				})
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs the monitor in text mode
func runTextMode(conn Connection, connInfo string) error {
	fmt.Printf("Heliograph - Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	monitor := newMonitor()

	// The first block after connecting is usually partial
	synchronized := false
	rejectedBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

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
					if synchronized {
						printRejection(err)
					} else {
						rejectedBeforeSync++
					}
					continue
				}
				if frame == nil {
					continue
				}

				if !synchronized {
					synchronized = true
					if rejectedBeforeSync > 0 {
						fmt.Printf("[SYNC] Synchronized after %d rejected frames or lines\n\n", rejectedBeforeSync)
					} else {
						fmt.Printf("[SYNC] Synchronized\n\n")
					}
				}

				anomalies := vedirect.ValidateFrame(frame)
				if len(anomalies) > 0 {
					printValidationErrors(frame, anomalies)
				} else if showAll {
					fmt.Print(vedirect.FormatFrame(frame))
					fmt.Println()
				}
			}

		case err := <-readErr:
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info("Connection closed")
				return nil
			}
			return err

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(monitor.Health().String())
			if report := monitor.Report(); report.Health.HasFrameAge {
				fmt.Print(vedirect.FormatReport(report))
			}
			fmt.Println()
		}
	}
}
