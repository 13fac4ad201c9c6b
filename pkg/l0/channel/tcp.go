package channel

import (
	"context"
	"net"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

func dialTCP(ctx context.Context, t Target) (comm.Channel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.Address)
	if err != nil {
		return nil, err
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	return conn, nil
}
