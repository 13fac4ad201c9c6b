package channel

import (
	"context"

	"go.bug.st/serial"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

func openSerial(ctx context.Context, t Target) (comm.Channel, error) {
	mode := &serial.Mode{
		BaudRate: t.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.Address, mode)
	if err != nil {
		return nil, err
	}
	if t.ReadTimeout > 0 {
		if err = port.SetReadTimeout(t.ReadTimeout); err != nil {
			port.Close()
			return nil, err
		}
	}
	// drop whatever the board printed while booting.
	port.ResetInputBuffer()
	return port, nil
}
