package channel

import (
	"context"
	"net/url"

	"golang.org/x/net/websocket"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

// wsConn sends every frame as one binary message and reads the incoming
// messages as a byte stream.
type wsConn struct {
	*websocket.Conn
}

// Write implements io.Writer.
func (c wsConn) Write(p []byte) (int, error) {
	if err := websocket.Message.Send(c.Conn, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func dialWebsocket(ctx context.Context, t Target) (comm.Channel, error) {
	u, err := url.Parse(t.Address)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: "http", Host: u.Host, Path: "/"}
	if u.Scheme == SchemeWSS {
		origin.Scheme = "https"
	}
	config, err := websocket.NewConfig(t.Address, origin.String())
	if err != nil {
		return nil, err
	}
	type dialResult struct {
		conn *websocket.Conn
		err  error
	}
	resCh := make(chan dialResult, 1)
	go func() {
		conn, err := websocket.DialConfig(config)
		resCh <- dialResult{conn: conn, err: err}
	}()
	select {
	case <-ctx.Done():
		go func() {
			if res := <-resCh; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case res := <-resCh:
		if res.err != nil {
			return nil, res.err
		}
		res.conn.PayloadType = websocket.BinaryFrame
		return wsConn{Conn: res.conn}, nil
	}
}
