// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/heliograph/pkg/vedirect"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	health        vedirect.Health
	report        vedirect.Report
	hasReport     bool
	eventLog      []eventLogEntry
	maxLogEntries int
	synchronized  bool
	rejectedSync  int
	closed        error
	spinner       spinner.Model
	efficiency    progress.Model
	width         int
	height        int
	quitting      bool
}

// Messages
type tickMsg time.Time
type frameMsg struct {
	frame     *vedirect.Frame
	report    vedirect.Report
	anomalies []vedirect.ValidationError
	health    vedirect.Health
}
type rejectMsg struct {
	err    error
	health vedirect.Health
}
type syncMsg struct {
	rejected int
}
type connClosedMsg struct {
	err error
}

func initialModel(connInfo string, statsInterval int, showAll bool, health vedirect.Health) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		health:        health,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		spinner:       s,
		efficiency:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		// Frame age keeps growing between frames
		m.health.CalculateRates()
		return m, tickCmd()

	case spinner.TickMsg:
		if m.synchronized {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncMsg:
		m.synchronized = true
		m.rejectedSync = msg.rejected
		if msg.rejected > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after %d rejected frames or lines", msg.rejected), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}

	case rejectMsg:
		m.health = msg.health
		m.addLogEntry(describeRejection(msg.err), true)

	case frameMsg:
		m.health = msg.health
		m.report = msg.report
		m.hasReport = true

		if len(msg.anomalies) > 0 {
			for _, a := range msg.anomalies {
				m.addLogEntry(a.Message, true)
			}
		} else if m.showAll {
			m.addLogEntry(fmt.Sprintf("Frame with %d fields (valid)", msg.frame.Len()), false)
		}
		if unknown := msg.frame.UnknownLabels(); len(unknown) > 0 && m.showAll {
			m.addLogEntry("Ignored labels: "+strings.Join(unknown, ", "), false)
		}

	case connClosedMsg:
		m.closed = msg.err
		m.addLogEntry(fmt.Sprintf("Connection closed: %v", msg.err), true)
	}

	return m, nil
}

func describeRejection(err error) string {
	var frameErr *vedirect.FrameError
	switch {
	case errors.Is(err, vedirect.ErrLineOverflow):
		return "LINE OVERFLOW: partial frame abandoned"
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindChecksumMismatch:
		return fmt.Sprintf("CHECKSUM MISMATCH: sum 0x%02X over %d fields", frameErr.Sum, frameErr.Fields)
	case errors.As(err, &frameErr) && frameErr.Kind == vedirect.KindInterrupted:
		return fmt.Sprintf("INTERRUPTED: HEX message inside %d fields", frameErr.Fields)
	default:
		return fmt.Sprintf("MALFORMED: %v", err)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("11")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	mode := "Errors only"
	if m.showAll {
		mode = "All frames"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("HELIOGRAPH - MPPT MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Press 'q' to quit", m.connInfo, mode)))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.closed != nil:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
	case !m.synchronized:
		s.WriteString(m.spinner.View() + warningStyle.Render(" Waiting for the first valid frame..."))
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		if m.rejectedSync > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (%d rejected before sync)", m.rejectedSync)))
		}
	}
	s.WriteString("\n\n")

	// Frame health
	h := m.health
	h.CalculateRates()
	var validPercent, errorPercent float64
	if total := h.Evaluations(); total > 0 {
		validPercent = float64(h.FramesOK) * 100.0 / float64(total)
		errorPercent = float64(h.FramesBad) * 100.0 / float64(total)
	}

	health := strings.Builder{}
	health.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", h.Evaluations())),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", h.FramesOK, validPercent)),
		labelStyle.Render("Rejected:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", h.FramesBad, errorPercent)),
	))

	if h.ChecksumErrors > 0 || h.MalformedFrames > 0 || h.InterruptedFrames > 0 || h.LineOverflows > 0 {
		health.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
			labelStyle.Render("Checksum:"), errorStyle.Render(fmt.Sprintf("%d", h.ChecksumErrors)),
			labelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", h.MalformedFrames)),
			labelStyle.Render("Interrupted:"), errorStyle.Render(fmt.Sprintf("%d", h.InterruptedFrames)),
			labelStyle.Render("Overflows:"), warningStyle.Render(fmt.Sprintf("%d", h.LineOverflows)),
		))
	}

	age := headerStyle.Render("n/a")
	if frameAge, ok := h.FrameAge(); ok {
		if h.DataValid() {
			age = valueStyle.Render(fmt.Sprintf("%.1f s (valid)", frameAge.Seconds()))
		} else {
			age = errorStyle.Render(fmt.Sprintf("%.1f s (STALE)", frameAge.Seconds()))
		}
	}
	health.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Frame Age:"), age,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f frames/s", h.FrameRate)),
		labelStyle.Render("Errors:"), func() string {
			if h.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", h.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", h.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(health.String()))
	s.WriteString("\n\n")

	// Telemetry section (only shown once a frame was accepted)
	if m.hasReport {
		s.WriteString(labelStyle.Render("Latest Telemetry:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(m.telemetryView(labelStyle, valueStyle, errorStyle)))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 24
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

// telemetryView renders the latest snapshot and derived metrics
func (m model) telemetryView(labelStyle, valueStyle, errorStyle lipgloss.Style) string {
	snap := m.report.Snapshot
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(label), valueStyle.Render(value)))
	}
	num := func(v float64, ok bool, format string) string {
		if !ok {
			return "--"
		}
		return fmt.Sprintf(format, v)
	}

	if pid, ok := snap.ProductID(); ok {
		fw, _ := snap.Firmware()
		ser, _ := snap.SerialNumber()
		row("Device:", fmt.Sprintf("PID %s  FW %s  SER# %s", pid, fw, ser))
	}

	if state, ok := snap.Text(vedirect.FieldState); ok {
		mode, _ := snap.Text(vedirect.FieldTrackerMode)
		row("State:", fmt.Sprintf("%s  (MPPT: %s)", state, mode))
	}
	if code, ok := snap.ErrorCode(); ok {
		text := code.String()
		if code != vedirect.ErrorNone {
			b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Error:"), errorStyle.Render(text)))
		} else {
			row("Error:", text)
		}
	}

	v, hasV := snap.BatteryVoltage()
	i, hasI := snap.BatteryCurrent()
	bp, hasBP := m.report.Derived.BatteryPower()
	row("Battery:", fmt.Sprintf("%s  %s  %s", num(v, hasV, "%.2f V"), num(i, hasI, "%.2f A"), num(bp, hasBP, "%.1f W")))

	vpv, hasVPV := snap.PanelVoltage()
	ppv, hasPPV := snap.PanelPower()
	row("Panel:", fmt.Sprintf("%s  %s", num(vpv, hasVPV, "%.2f V"), num(ppv, hasPPV, "%.0f W")))

	if text, ok := snap.Text(vedirect.FieldLoadOutput); ok {
		il, hasIL := snap.LoadCurrent()
		lp, hasLP := m.report.Derived.LoadPower()
		row("Load:", fmt.Sprintf("%s  %s  %s", text, num(il, hasIL, "%.2f A"), num(lp, hasLP, "%.1f W")))
	}
	if reason, ok := snap.Text(vedirect.FieldOffReason); ok {
		row("Off Reason:", reason)
	}

	today, hasToday := snap.YieldToday()
	peak, hasPeak := snap.MaxPowerToday()
	total, hasTotal := snap.YieldTotal()
	row("Yield:", fmt.Sprintf("today %s (peak %s)  total %s",
		num(today, hasToday, "%.2f kWh"), num(peak, hasPeak, "%.0f W"), num(total, hasTotal, "%.2f kWh")))

	if eff, ok := m.report.Derived.PVEfficiency(); ok {
		b.WriteString(fmt.Sprintf("%s %s %s", labelStyle.Render("Efficiency:"),
			m.efficiency.ViewAs(eff/100), valueStyle.Render(fmt.Sprintf("%.1f%%", eff))))
	} else {
		b.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Efficiency:"), "--"))
	}

	return b.String()
}
