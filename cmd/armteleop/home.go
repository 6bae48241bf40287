package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/armkit/go-armteleop/internal/config"
	"github.com/armkit/go-armteleop/pkg/arm"
	"github.com/armkit/go-armteleop/pkg/teleop"
)

type HomeCommand struct {
	Timeout  time.Duration `long:"timeout" default:"30s" description:"Give up waiting for the arm to settle"`
	Velocity int           `long:"velocity" description:"Planning velocity override (percent)"`
}

// homeTolerance is how close every joint must be to its home angle,
// in degrees, before the move counts as settled.
const homeTolerance = 0.5

func (c *HomeCommand) Execute(args []string) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	driver := arm.NewHTTPDriver(cfg.Robot.Host, cfg.Robot.Port)
	defer driver.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	state, err := driver.ReadState(ctx)
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if len(state.Joints) != len(model.HomeJoints) {
		return fmt.Errorf("arm reports %d joints, model %s has %d",
			len(state.Joints), model.Name, len(model.HomeJoints))
	}

	velocity := teleop.HomeVelocity
	if c.Velocity > 0 {
		velocity = c.Velocity
	}

	angles := make([]float64, len(model.HomeJoints))
	copy(angles, model.HomeJoints)
	cmd := arm.JointCommand{Angles: angles, Velocity: velocity}
	if err := driver.Send(ctx, cmd); err != nil {
		return fmt.Errorf("send home move: %w", err)
	}
	fmt.Printf("Homing %s at %d%% planning velocity\n", model.Name, velocity)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("arm did not settle within %v", c.Timeout)
		case <-ticker.C:
			state, err := driver.ReadState(ctx)
			if err != nil {
				continue
			}
			if settled(state.Joints, model.HomeJoints) {
				fmt.Println("Arm is home.")
				return nil
			}
		}
	}
}

func settled(joints, home []float64) bool {
	if len(joints) != len(home) {
		return false
	}
	for i := range joints {
		if math.Abs(joints[i]-home[i]) > homeTolerance {
			return false
		}
	}
	return true
}
