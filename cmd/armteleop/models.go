package main

import (
	"fmt"

	"github.com/armkit/go-armteleop/pkg/arm"
)

type ModelsCommand struct{}

func (c *ModelsCommand) Execute(args []string) error {
	for _, name := range arm.ModelNames() {
		model, err := arm.ModelByName(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-6s %d DOF  home %v\n", model.Name, model.DOF, model.HomeJoints)
	}
	return nil
}
