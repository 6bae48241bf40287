package main

import (
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/armkit/go-armteleop/internal/log"
)

type Options struct {
	Config   string `short:"c" long:"config" description:"Path to robot.yaml" env:"ARM_CONFIG"`
	LogLevel string `long:"log-level" default:"info" description:"Log level (debug, info, warn, error)"`

	Teleop  TeleopCommand  `command:"teleop" description:"Start interactive teleoperation"`
	Monitor MonitorCommand `command:"monitor" description:"Print arm state at an interval"`
	Home    HomeCommand    `command:"home" description:"Move the arm to its home position"`
	Models  ModelsCommand  `command:"models" description:"List supported arm models"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "armteleop - real-time teleoperation for RealMan-style robot arms"
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		log.Init(opts.LogLevel)
		return command.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
