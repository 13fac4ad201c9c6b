package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame(t *testing.T) {
	testCases := []struct {
		name   string
		cmd    Command
		expect []byte
	}{
		{"servo", Servo(3, 90), []byte{byte(OrderServo), 3, 90, 0}},
		{"servo negative", Servo(0, -90), []byte{byte(OrderServo), 0, 0xa6, 0xff}},
		{"servo relative", ServoRelative(2, -10), []byte{byte(OrderServoRelative), 2, 0xf6, 0xff}},
		{"led multi rgb", LED(IDs(1, 2, 3), RGB{10, 20, 30}), []byte{byte(OrderLED), 3, 1, 2, 3, 10, 20, 30}},
		{"led single scalar", LED(ID(5), Scalar(500)), []byte{byte(OrderLED), 1, 5, 0xf4, 0x01}},
		{"led single rgb", LED(ID(5), RGB{255, 0, 1}), []byte{byte(OrderLED), 1, 5, 255, 0, 1}},
		{"led range", LED(IDRange(4, 7), RGB{1, 2, 3}), []byte{byte(OrderLED), 3, 4, 5, 6, 1, 2, 3}},
		{"led list scalar", LED(IDs(8, 9), Scalar(-1)), []byte{byte(OrderLED), 2, 8, 9, 0xff, 0xff}},
		{"led empty list", LED(IDs(), Scalar(0)), []byte{byte(OrderLED), 0, 0, 0}},
		{"pin", Pin(1, 1), []byte{byte(OrderPin), 1, 1}},
		{"pin read", PinRead(7), []byte{byte(OrderRead), 7}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.cmd.Frame()
			require.NoError(t, err)
			require.Equal(t, tc.expect, b)
			again, err := tc.cmd.Frame()
			require.NoError(t, err)
			require.Equal(t, b, again)
		})
	}
}

func TestFrameErrors(t *testing.T) {
	ids := make([]int, 256)
	testCases := []struct {
		name  string
		cmd   Command
		check func(*testing.T, error)
	}{
		{"unknown kind", Command{Kind: DeviceKind(42), ID: ID(1), Payload: Scalar(1)}, isUnknownKind},
		{"servo list", Command{Kind: DeviceServo, ID: IDs(1, 2), Payload: Scalar(1)}, isInvalid},
		{"servo rgb", Command{Kind: DeviceServo, ID: ID(1), Payload: RGB{}}, isInvalid},
		{"servo no payload", Command{Kind: DeviceServo, ID: ID(1)}, isInvalid},
		{"servo no id", Command{Kind: DeviceServo, Payload: Scalar(1)}, isInvalid},
		{"led no id", Command{Kind: DeviceLED, Payload: Scalar(1)}, isInvalid},
		{"led digital", Command{Kind: DeviceLED, ID: ID(1), Payload: Digital(1)}, isInvalid},
		{"pin scalar", Command{Kind: DevicePin, ID: ID(1), Payload: Scalar(1)}, isInvalid},
		{"pin read payload", Command{Kind: DevicePinRead, ID: ID(1), Payload: Digital(1)}, isInvalid},
		{"servo index", Servo(256, 0), isRange},
		{"servo angle", Servo(1, 40000), isRange},
		{"negative index", Pin(-1, 0), isRange},
		{"pin value", Pin(1, 256), isRange},
		{"led channel", LED(ID(1), RGB{0, 300, 0}), isRange},
		{"led list index", LED(IDs(1, 256), Scalar(0)), isRange},
		{"led count", LED(IDs(ids...), Scalar(0)), isRange},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.cmd.Frame()
			require.Nil(t, b)
			tc.check(t, err)
		})
	}
}

func isUnknownKind(t *testing.T, err error) {
	var e *UnknownDeviceKindError
	require.ErrorAs(t, err, &e)
}

func isInvalid(t *testing.T, err error) {
	var e *InvalidCommandError
	require.ErrorAs(t, err, &e)
}

func isRange(t *testing.T, err error) {
	var e *RangeError
	require.ErrorAs(t, err, &e)
}

func TestParseDeviceKind(t *testing.T) {
	for _, kind := range DeviceKinds {
		parsed, err := ParseDeviceKind(kind.String())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}
	kind, err := ParseDeviceKind(" SERVO_RELATIVE ")
	require.NoError(t, err)
	require.Equal(t, DeviceServoRelative, kind)

	kind, err = ParseDeviceKind("3")
	require.NoError(t, err)
	require.Equal(t, DevicePinRead, kind)

	for _, s := range []string{"", "motor", "5", "-1"} {
		_, err = ParseDeviceKind(s)
		isUnknownKind(t, err)
	}
}

func TestDeviceKindOrder(t *testing.T) {
	seen := make(map[Order]DeviceKind)
	for _, kind := range DeviceKinds {
		order, err := kind.Order()
		require.NoError(t, err)
		_, dup := seen[order]
		require.False(t, dup, "order %s mapped twice", order)
		seen[order] = kind
	}
	_, err := DeviceKind(-1).Order()
	isUnknownKind(t, err)
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "servo id: 3 val: 90", Servo(3, 90).String())
	require.Equal(t, "led id: [1 2] val: (10, 20, 30)", LED(IDs(1, 2), RGB{10, 20, 30}).String())
	require.Equal(t, "pin_read id: 7 val: None", PinRead(7).String())
	require.Equal(t, "DeviceKind(9) id: 1 val: 1", Command{Kind: 9, ID: ID(1), Payload: Digital(1)}.String())
}

func TestIdentifier(t *testing.T) {
	id := ID(4)
	n, ok := id.Single()
	require.True(t, ok)
	require.Equal(t, 4, n)
	require.False(t, id.IsList())

	lst := IDRange(2, 5)
	_, ok = lst.Single()
	require.False(t, ok)
	require.True(t, lst.IsList())
	require.Equal(t, []int{2, 3, 4}, lst.Values())

	require.True(t, Identifier{}.IsZero())
	require.False(t, IDs().IsZero())
}

func TestIDRangeLimit(t *testing.T) {
	b, err := LED(IDRange(0, 255), Scalar(1)).Frame()
	require.NoError(t, err)
	require.Equal(t, byte(255), b[1])
	require.Len(t, b, 2+255+2)

	for _, n := range []int{256, 50000000} {
		id := IDRange(0, n)
		require.True(t, id.IsList())
		require.Empty(t, id.Values())
		_, err := LED(id, Scalar(1)).Frame()
		var rangeErr *RangeError
		require.ErrorAs(t, err, &rangeErr)
		require.Equal(t, "uint8", rangeErr.Type)
		require.EqualValues(t, n, rangeErr.Value)
	}
	require.Equal(t, "[300 ids]", IDRange(0, 300).String())
}
