package channel

import (
	"context"
	"io"

	"github.com/tarm/serial"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

// tarmPort reports an expired read timeout as an empty read, the same
// as go.bug.st/serial does.
type tarmPort struct {
	*serial.Port
}

func (p tarmPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func openTarm(ctx context.Context, t Target) (comm.Channel, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        t.Address,
		Baud:        t.Baud,
		ReadTimeout: t.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return tarmPort{Port: port}, nil
}
