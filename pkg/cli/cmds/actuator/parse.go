package actuator

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

// ParseIdentifier parses an index "3", a list "1,2,3" or a
// half-open range "0:9".
func ParseIdentifier(s string) (comm.Identifier, error) {
	if from, to, ok := strings.Cut(s, ":"); ok {
		f, err := strconv.Atoi(from)
		if err != nil {
			return comm.Identifier{}, fmt.Errorf("invalid range start %q", from)
		}
		t, err := strconv.Atoi(to)
		if err != nil {
			return comm.Identifier{}, fmt.Errorf("invalid range end %q", to)
		}
		if t < f {
			return comm.Identifier{}, fmt.Errorf("invalid range %q", s)
		}
		if span := uint64(t) - uint64(f); span > math.MaxUint8 {
			if span > math.MaxInt64 {
				span = math.MaxInt64
			}
			return comm.Identifier{}, fmt.Errorf("range %q: %w", s, &comm.RangeError{Type: "uint8", Value: int64(span)})
		}
		return comm.IDRange(f, t), nil
	}
	if strings.Contains(s, ",") {
		items := strings.Split(s, ",")
		ids := make([]int, 0, len(items))
		for _, item := range items {
			id, err := strconv.Atoi(strings.TrimSpace(item))
			if err != nil {
				return comm.Identifier{}, fmt.Errorf("invalid index %q", item)
			}
			ids = append(ids, id)
		}
		return comm.IDs(ids...), nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return comm.Identifier{}, fmt.Errorf("invalid index %q", s)
	}
	return comm.ID(id), nil
}

// ParseLEDPayload parses "LEVEL", "R,G,B" or "R G B".
func ParseLEDPayload(args []string) (comm.Payload, error) {
	if len(args) == 1 {
		args = strings.Split(args[0], ",")
	}
	switch len(args) {
	case 1:
		level, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL %q", args[0])
		}
		return comm.Scalar(level), nil
	case 3:
		var rgb [3]int
		for n, arg := range args {
			val, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				return nil, fmt.Errorf("invalid color component %q", arg)
			}
			rgb[n] = val
		}
		return comm.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
	}
	return nil, fmt.Errorf("LEVEL or R G B expected")
}

// ParseCommand builds a command from the kind name and arguments:
//
//	led IDS LEVEL | R G B
//	servo ID ANGLE
//	servo_relative ID DELTA
//	pin ID VALUE
//	pin_read ID
func ParseCommand(kindName string, args []string) (comm.Command, error) {
	kind, err := comm.ParseDeviceKind(kindName)
	if err != nil {
		return comm.Command{}, err
	}
	if len(args) < 1 {
		return comm.Command{}, fmt.Errorf("ID required")
	}
	if kind == comm.DeviceLED {
		id, err := ParseIdentifier(args[0])
		if err != nil {
			return comm.Command{}, err
		}
		payload, err := ParseLEDPayload(args[1:])
		if err != nil {
			return comm.Command{}, err
		}
		return comm.LED(id, payload), nil
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		return comm.Command{}, fmt.Errorf("invalid ID %q", args[0])
	}
	if kind == comm.DevicePinRead {
		if len(args) > 1 {
			return comm.Command{}, fmt.Errorf("unexpected arguments %v", args[1:])
		}
		return comm.PinRead(index), nil
	}
	if len(args) != 2 {
		return comm.Command{}, fmt.Errorf("ID and VALUE required")
	}
	val, err := strconv.Atoi(args[1])
	if err != nil {
		return comm.Command{}, fmt.Errorf("invalid VALUE %q", args[1])
	}
	switch kind {
	case comm.DeviceServo:
		return comm.Servo(index, val), nil
	case comm.DeviceServoRelative:
		return comm.ServoRelative(index, val), nil
	}
	return comm.Pin(index, val), nil
}
