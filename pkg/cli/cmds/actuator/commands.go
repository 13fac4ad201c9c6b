// Package actuator provides the device commands of the shell.
package actuator

import (
	"github.com/abiosoft/ishell"

	"github.com/robotalks/actuator/pkg/cli/sh"
	"github.com/robotalks/actuator/pkg/l0/comm"
)

func commandFunc(kind comm.DeviceKind) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		cmd, err := ParseCommand(kind.String(), c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		sh.DoCommand(c, cmd)
	}
}

var (
	// LEDCmd sets LEDs.
	LEDCmd = ishell.Cmd{
		Name: "led",
		Help: "IDS LEVEL|R G B   IDS: 3, 1,2,3 or 0:9",
		Func: commandFunc(comm.DeviceLED),
	}

	// ServoCmd moves a servo.
	ServoCmd = ishell.Cmd{
		Name:    "servo",
		Aliases: []string{"s"},
		Help:    "ID ANGLE",
		Func:    commandFunc(comm.DeviceServo),
	}

	// ServoRelativeCmd nudges a servo.
	ServoRelativeCmd = ishell.Cmd{
		Name:    "servo.rel",
		Aliases: []string{"sr"},
		Help:    "ID DELTA",
		Func:    commandFunc(comm.DeviceServoRelative),
	}

	// PinCmd writes a digital pin.
	PinCmd = ishell.Cmd{
		Name: "pin",
		Help: "ID VALUE",
		Func: commandFunc(comm.DevicePin),
	}

	// PinReadCmd reads a pin.
	PinReadCmd = ishell.Cmd{
		Name:    "pin.read",
		Aliases: []string{"read"},
		Help:    "ID",
		Func:    commandFunc(comm.DevicePinRead),
	}
)

func init() {
	sh.AddCmds(
		&LEDCmd,
		&ServoCmd,
		&ServoRelativeCmd,
		&PinCmd,
		&PinReadCmd,
	)
}
