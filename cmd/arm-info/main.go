// arm-info dumps the daemon's software report and a state snapshot.
// Useful for checking connectivity before starting a session.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/armkit/go-armteleop/internal/config"
	"github.com/armkit/go-armteleop/internal/log"
	"github.com/armkit/go-armteleop/pkg/arm"
)

type Options struct {
	Config string `short:"c" long:"config" description:"Path to robot.yaml" env:"ARM_CONFIG"`
}

func main() {
	var opts Options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
	log.Init("warn")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	driver := arm.NewHTTPDriver(cfg.Robot.Host, cfg.Robot.Port)
	defer driver.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Printf("Daemon: %s\n", driver.BaseURL)

	info, err := driver.SoftwareInfo(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "software info: %v\n", err)
		os.Exit(1)
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %s\n", k, info[k])
	}

	state, err := driver.ReadState(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Joints: %v\n", state.Joints)
	fmt.Printf("Pose:   %v\n", state.Pose)
}
