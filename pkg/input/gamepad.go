package input

import (
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	"github.com/armkit/go-armteleop/internal/log"
)

// Linux joystick interface event record (linux/joystick.h).
const (
	jsEventSize   = 8
	jsEventButton = 0x01
	jsEventAxis   = 0x02
	jsEventInit   = 0x80

	axisScale = 32767.0
)

const gamepadReopenDelay = time.Second

// GamepadButtons maps control actions to device button indices.
// -1 leaves an action unmapped.
type GamepadButtons struct {
	Enable     int `yaml:"enable"`
	Turbo      int `yaml:"turbo"`
	EStop      int `yaml:"estop"`
	ModeToggle int `yaml:"mode_toggle"`
	Home       int `yaml:"home"`
	SpeedUp    int `yaml:"speed_up"`
	SpeedDown  int `yaml:"speed_down"`
}

// GamepadConfig describes the device and its axis/button layout.
type GamepadConfig struct {
	Device   string  `yaml:"device"`
	Deadzone float64 `yaml:"deadzone"`

	// Axes holds the device axis index for each sample axis, in
	// Sample.Axes order. -1 leaves a sample axis unmapped.
	Axes [NumAxes]int `yaml:"axes"`

	Buttons GamepadButtons `yaml:"buttons"`
}

// DefaultGamepadConfig matches an Xbox-style controller: left stick
// surge/sway, right stick heave/roll, triggers pitch/yaw, LB deadman,
// RB turbo, Back estop, Start mode toggle, B home.
func DefaultGamepadConfig() GamepadConfig {
	return GamepadConfig{
		Device:   "/dev/input/js0",
		Deadzone: DefaultDeadzone,
		Axes:     [NumAxes]int{1, 0, 4, 3, 5, 2},
		Buttons: GamepadButtons{
			Enable:     4,
			Turbo:      5,
			EStop:      6,
			ModeToggle: 7,
			Home:       1,
			SpeedUp:    -1,
			SpeedDown:  -1,
		},
	}
}

// GamepadSource reads the Linux joystick device directly. A reader
// goroutine keeps the latest axis/button state; Poll never blocks.
// A missing or unplugged device yields neutral samples and the reader
// keeps retrying until Close.
type GamepadSource struct {
	cfg GamepadConfig

	mu      sync.Mutex
	axes    map[int]float64
	buttons map[int]bool

	// one-shot events latched by the reader, consumed by Poll
	estop      bool
	modeToggle bool
	home       bool
	speedUp    bool
	speedDown  bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewGamepadSource opens a gamepad source and starts its reader.
func NewGamepadSource(cfg GamepadConfig) *GamepadSource {
	if cfg.Device == "" {
		cfg.Device = "/dev/input/js0"
	}
	if cfg.Deadzone <= 0 {
		cfg.Deadzone = DefaultDeadzone
	}
	g := &GamepadSource{
		cfg:     cfg,
		axes:    make(map[int]float64),
		buttons: make(map[int]bool),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go g.run()
	return g
}

// Poll returns the current snapshot with the deadzone applied and
// consumes pending one-shot events.
func (g *GamepadSource) Poll() Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	var s Sample
	for i, devAxis := range g.cfg.Axes {
		if devAxis < 0 {
			continue
		}
		s.Axes[i] = g.axes[devAxis]
	}
	s = ApplyDeadzone(s, g.cfg.Deadzone)

	s.Enable = g.buttonHeld(g.cfg.Buttons.Enable)
	s.Turbo = g.buttonHeld(g.cfg.Buttons.Turbo)
	s.EStop = g.estop
	s.ModeToggle = g.modeToggle
	s.Home = g.home
	s.SpeedUp = g.speedUp
	s.SpeedDown = g.speedDown
	g.estop, g.modeToggle, g.home, g.speedUp, g.speedDown = false, false, false, false, false

	return s
}

// Close stops the reader goroutine and waits for it to exit.
func (g *GamepadSource) Close() error {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
	<-g.done
	return nil
}

func (g *GamepadSource) buttonHeld(index int) bool {
	if index < 0 {
		return false
	}
	return g.buttons[index]
}

func (g *GamepadSource) run() {
	defer close(g.done)
	logger := log.Component("gamepad")

	for {
		select {
		case <-g.stop:
			return
		default:
		}

		f, err := os.Open(g.cfg.Device)
		if err != nil {
			logger.Debug("device unavailable, will retry", "device", g.cfg.Device, "err", err)
			g.resetState()
			select {
			case <-g.stop:
				return
			case <-time.After(gamepadReopenDelay):
			}
			continue
		}

		logger.Info("gamepad connected", "device", g.cfg.Device)
		g.readLoop(f)
		f.Close()
		g.resetState()
	}
}

// readLoop parses joystick events until read failure or Close.
// Close interrupts the blocking Read by closing the device from a
// watcher goroutine.
func (g *GamepadSource) readLoop(f *os.File) {
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-g.stop:
			f.Close()
		case <-closed:
		}
	}()

	buf := make([]byte, jsEventSize)
	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			return
		}

		value := int16(binary.LittleEndian.Uint16(buf[4:6]))
		kind := buf[6] &^ jsEventInit
		number := int(buf[7])

		switch kind {
		case jsEventAxis:
			g.mu.Lock()
			g.axes[number] = float64(value) / axisScale
			g.mu.Unlock()
		case jsEventButton:
			g.handleButton(number, value != 0)
		}
	}
}

func (g *GamepadSource) handleButton(number int, pressed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.buttons[number]
	g.buttons[number] = pressed

	// Latch one-shot actions on the rising edge only.
	if !pressed || was {
		return
	}
	b := g.cfg.Buttons
	switch number {
	case b.EStop:
		g.estop = true
	case b.ModeToggle:
		g.modeToggle = true
	case b.Home:
		g.home = true
	case b.SpeedUp:
		g.speedUp = true
	case b.SpeedDown:
		g.speedDown = true
	}
}

func (g *GamepadSource) resetState() {
	g.mu.Lock()
	g.axes = make(map[int]float64)
	g.buttons = make(map[int]bool)
	g.mu.Unlock()
}
