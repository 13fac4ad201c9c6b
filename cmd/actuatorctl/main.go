package main

import (
	"github.com/robotalks/actuator/pkg/cli/sh"
	"github.com/robotalks/actuator/pkg/config"

	_ "github.com/robotalks/actuator/pkg/cli/cmds/actuator"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
