package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/armkit/go-armteleop/internal/config"
	"github.com/armkit/go-armteleop/pkg/arm"
)

type MonitorCommand struct {
	Interval time.Duration `long:"interval" default:"500ms" description:"Sample interval"`
	Stream   bool          `long:"stream" description:"Use the websocket state stream instead of polling"`
}

func (c *MonitorCommand) Execute(args []string) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}

	driver := arm.NewHTTPDriver(cfg.Robot.Host, cfg.Robot.Port)
	if c.Stream {
		driver.AttachStream(arm.NewStateStream(cfg.Robot.Host, cfg.Robot.Port))
	}
	defer driver.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Monitoring %s:%d (%v interval), ctrl+c to stop\n",
		cfg.Robot.Host, cfg.Robot.Port, c.Interval)

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
			rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			state, err := driver.ReadState(rctx)
			cancel()
			if err != nil {
				fmt.Printf("read failed: %v\n", err)
				continue
			}
			fmt.Printf("joints [%s]  pose %v\n", formatJoints(state.Joints), state.Pose)
		}
	}
}

func formatJoints(joints []float64) string {
	parts := make([]string, len(joints))
	for i, j := range joints {
		parts[i] = fmt.Sprintf("%7.2f", j)
	}
	return strings.Join(parts, " ")
}
