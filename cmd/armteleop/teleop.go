package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/armkit/go-armteleop/internal/config"
	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/input"
	"github.com/armkit/go-armteleop/pkg/safety"
	"github.com/armkit/go-armteleop/pkg/teleop"
	"github.com/armkit/go-armteleop/pkg/web"
)

type TeleopCommand struct {
	Mode    string `long:"mode" description:"Initial control mode (cartesian, joint, velocity)"`
	Gamepad bool   `long:"gamepad" description:"Use the gamepad instead of the keyboard"`
	NoWeb   bool   `long:"no-web" description:"Disable the dashboard server"`
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	armedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	estopStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("196"))
	lostStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// Messages into the TUI.
type snapshotMsg teleop.Snapshot
type countersMsg safety.Counters
type loopDoneMsg struct{ err error }

type teleopModel struct {
	loop     *teleop.Loop
	keyboard *input.KeyboardSource // nil when driving by gamepad
	keymap   map[string]input.Action
	model    arm.Model

	snapshots <-chan teleop.Snapshot
	loopDone  <-chan error

	snap     teleop.Snapshot
	counters safety.Counters
	loopErr  error
	quitting bool
}

func waitForSnapshot(ch <-chan teleop.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func waitForDone(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return loopDoneMsg{err: <-ch}
	}
}

func pollCounters(loop *teleop.Loop) tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return countersMsg(loop.Monitor().Counters())
	})
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForSnapshot(m.snapshots),
		waitForDone(m.loopDone),
		pollCounters(m.loop),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		if m.keyboard != nil {
			// The emergency stop bypasses the sampling path so a
			// busy cycle cannot delay the latch.
			if m.keymap[key] == input.ActionEStop {
				m.loop.TriggerEStop()
			}
			m.keyboard.Press(key)
		}
		return m, nil

	case snapshotMsg:
		m.snap = teleop.Snapshot(msg)
		return m, waitForSnapshot(m.snapshots)

	case countersMsg:
		m.counters = safety.Counters(msg)
		return m, pollCounters(m.loop)

	case loopDoneMsg:
		m.loopErr = msg.err
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		if m.loopErr != nil && m.loopErr != context.Canceled {
			return fmt.Sprintf("Teleoperation ended: %v\n", m.loopErr)
		}
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("armteleop"))
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %s (%d DOF)  session %s", m.model.Name, m.model.DOF, shortID(m.snap.ID))))
	sb.WriteString("\n\n")

	var status strings.Builder
	status.WriteString(labelStyle.Render("phase  "))
	status.WriteString(renderPhase(m.snap.Phase))
	status.WriteString("\n")
	status.WriteString(labelStyle.Render("mode   "))
	status.WriteString(string(m.snap.Mode))
	status.WriteString("\n")
	status.WriteString(labelStyle.Render("speed  "))
	status.WriteString(fmt.Sprintf("%.3f m/s  %.3f rad/s  %.1f deg/s",
		m.snap.Profile.Linear, m.snap.Profile.Angular, m.snap.Profile.Joint))
	status.WriteString("\n")
	status.WriteString(labelStyle.Render("gate   "))
	status.WriteString(fmt.Sprintf("accepted %d  estop %d  deadman %d  rate %d  clamps %d",
		m.counters.Accepted, m.counters.EStopSuppressed, m.counters.DeadmanSuppressed,
		m.counters.RateSuppressed, m.counters.VelocityClamps+m.counters.WorkspaceClamps))
	sb.WriteString(borderStyle.Render(status.String()))
	sb.WriteString("\n")

	if m.snap.EStopLatched {
		sb.WriteString(estopStyle.Render(" EMERGENCY STOP: release deadman, press h to reset "))
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("hold enter: deadman  wasd/qe: translate  ijkl/uo: rotate  space: ESTOP"))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("tab: mode  h: home/reset  +/-: speed  t: turbo  esc: quit"))
	sb.WriteString("\n")
	return sb.String()
}

func renderPhase(p teleop.Phase) string {
	switch p {
	case teleop.PhaseArmed:
		return armedStyle.Render("ARMED")
	case teleop.PhaseStopped:
		return estopStyle.Render(" STOPPED ")
	case teleop.PhaseDisconnected:
		return lostStyle.Render("DISCONNECTED")
	default:
		return idleStyle.Render("idle")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (c *TeleopCommand) Execute(args []string) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	if c.Mode != "" {
		cfg.Control.Mode = c.Mode
	}
	if c.Gamepad {
		cfg.Input.Device = "gamepad"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	driver := arm.NewHTTPDriver(cfg.Robot.Host, cfg.Robot.Port)
	driver.AttachStream(arm.NewStateStream(cfg.Robot.Host, cfg.Robot.Port))
	defer driver.Close()

	var keyboard *input.KeyboardSource
	var source input.Source
	if cfg.Input.Device == "gamepad" {
		source = input.NewGamepadSource(cfg.Input.Gamepad)
	} else {
		keyboard = input.NewKeyboardSource(cfg.Keymap())
		if cfg.Input.HoldWindowMS > 0 {
			keyboard.SetHoldWindow(time.Duration(cfg.Input.HoldWindowMS) * time.Millisecond)
		}
		source = keyboard
	}

	monitor, err := safety.NewMonitor(cfg.Limits)
	if err != nil {
		return err
	}

	loop, err := teleop.NewLoop(driver, source, monitor, teleop.Options{
		Rate:           cfg.Control.RateHz,
		MaxFailures:    cfg.Control.MaxFailures,
		Mode:           teleop.Mode(cfg.Control.Mode),
		Profile:        cfg.Speeds.Initial,
		Envelope:       cfg.Speeds.Envelope,
		SmoothingAlpha: cfg.Control.SmoothingAlpha,
		JointAxes:      cfg.Control.JointAxes,
		Model:          model,
	})
	if err != nil {
		return err
	}
	defer loop.Close()

	snapshots := make(chan teleop.Snapshot, 16)
	var dashboard *web.Server
	if cfg.Web.Enabled && !c.NoWeb {
		dashboard = web.NewServer(cfg.Web.Addr, cfg.Limits, model.Name)
		dashboard.OnEStop = loop.TriggerEStop
		dashboard.StartAsync()
		defer dashboard.Shutdown()
	}
	loop.SetNotify(func(snap teleop.Snapshot) {
		select {
		case snapshots <- snap:
		default:
		}
		if dashboard != nil {
			dashboard.Publish(snap, monitor.Counters())
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx)
	}()

	p := tea.NewProgram(teleopModel{
		loop:      loop,
		keyboard:  keyboard,
		keymap:    cfg.Keymap(),
		model:     model,
		snapshots: snapshots,
		loopDone:  loopDone,
	}, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
