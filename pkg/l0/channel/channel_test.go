package channel

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		url    string
		expect Target
	}{
		{"/dev/ttyACM0", Target{Scheme: SchemeSerial, Address: "/dev/ttyACM0", Baud: DefaultBaud}},
		{"COM3", Target{Scheme: SchemeSerial, Address: "COM3", Baud: DefaultBaud}},
		{"serial:///dev/ttyUSB1?baud=9600", Target{Scheme: SchemeSerial, Address: "/dev/ttyUSB1", Baud: 9600}},
		{"serial://COM4", Target{Scheme: SchemeSerial, Address: "COM4", Baud: DefaultBaud}},
		{"tarm:///dev/ttyS0?timeout=200ms", Target{Scheme: SchemeTarm, Address: "/dev/ttyS0", Baud: DefaultBaud, ReadTimeout: 200 * time.Millisecond}},
		{"tcp://10.0.0.2:2000", Target{Scheme: SchemeTCP, Address: "10.0.0.2:2000", Baud: DefaultBaud}},
		{"ws://bridge:8080/serial", Target{Scheme: SchemeWS, Address: "ws://bridge:8080/serial", Baud: DefaultBaud}},
		{"WSS://bridge/serial", Target{Scheme: SchemeWSS, Address: "wss://bridge/serial", Baud: DefaultBaud}},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			target, err := Parse(tc.url, Options{})
			require.NoError(t, err)
			require.Equal(t, tc.expect, target)
		})
	}
}

func TestParseOptions(t *testing.T) {
	target, err := Parse("/dev/ttyACM0", Options{Baud: 57600, ReadTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, 57600, target.Baud)
	require.Equal(t, time.Second, target.ReadTimeout)

	target, err = Parse("serial:///dev/ttyACM0?baud=9600", Options{Baud: 57600})
	require.NoError(t, err)
	require.Equal(t, 9600, target.Baud)
}

func TestParseErrors(t *testing.T) {
	for _, rawURL := range []string{
		"",
		"  ",
		"udp://host:1",
		"serial:///dev/ttyACM0?baud=fast",
		"serial:///dev/ttyACM0?baud=-1",
		"tcp://",
		"tcp://host:1?timeout=soon",
	} {
		_, err := Parse(rawURL, Options{})
		require.Error(t, err, rawURL)
	}
	_, err := NewOpener("udp://host:1", Options{})
	require.Error(t, err)
}

func TestTargetString(t *testing.T) {
	target, err := Parse("/dev/ttyACM0", Options{})
	require.NoError(t, err)
	require.Equal(t, "serial:///dev/ttyACM0?baud=115200", target.String())
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 2)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		received <- buf
		conn.Write([]byte{0xfb, 0xff})
	}()

	opener, err := NewOpener("tcp://"+ln.Addr().String(), Options{})
	require.NoError(t, err)
	engine := comm.NewEngine(opener, nil)
	res, err := engine.Send(context.Background(), comm.PinRead(7))
	require.NoError(t, err)
	require.Equal(t, int16(-5), res.Value)
	require.Equal(t, []byte{byte(comm.OrderRead), 7}, <-received)
	require.NoError(t, engine.Close())
}

func TestOpenTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	opener, err := NewOpener("tcp://"+addr, Options{})
	require.NoError(t, err)
	engine := comm.NewEngine(opener, nil)
	res, err := engine.Send(context.Background(), comm.Servo(3, 90))
	require.NoError(t, err)
	require.Equal(t, comm.StatusDisconnected, res.Status)
}

func TestOpenWebsocket(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(websocket.Handler(func(ws *websocket.Conn) {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			return
		}
		received <- data
		websocket.Message.Send(ws, []byte{0x2a, 0x00})
		// hold the connection until the client closes it.
		websocket.Message.Receive(ws, &data)
	}))
	defer srv.Close()

	rawURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ch, err := Open(context.Background(), rawURL, Options{})
	require.NoError(t, err)
	defer ch.Close()

	_, err = ch.Write([]byte{byte(comm.OrderRead), 3})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(comm.OrderRead), 3}, <-received)
	val, err := comm.ReadI16(ch)
	require.NoError(t, err)
	require.Equal(t, int16(42), val)
}

func TestOpenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, "tcp://127.0.0.1:1", Options{})
	require.Error(t, err)
}
