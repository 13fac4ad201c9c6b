package comm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DeviceKind selects the command family.
type DeviceKind int

// The numeric values are the legacy integer tags still accepted by
// ParseDeviceKind.
const (
	DeviceLED DeviceKind = iota
	DeviceServo
	DevicePin
	DevicePinRead
	DeviceServoRelative
)

var deviceKindNames = [...]string{
	DeviceLED:           "led",
	DeviceServo:         "servo",
	DevicePin:           "pin",
	DevicePinRead:       "pin_read",
	DeviceServoRelative: "servo_relative",
}

// DeviceKinds lists all device kinds.
var DeviceKinds = []DeviceKind{DeviceLED, DeviceServo, DeviceServoRelative, DevicePin, DevicePinRead}

// ParseDeviceKind parses a kind name (e.g. "servo") or a legacy integer tag.
func ParseDeviceKind(s string) (DeviceKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for kind, n := range deviceKindNames {
		if n == name {
			return DeviceKind(kind), nil
		}
	}
	if n, err := strconv.Atoi(name); err == nil && DeviceKind(n).IsValid() {
		return DeviceKind(n), nil
	}
	return 0, &UnknownDeviceKindError{Kind: s}
}

// IsValid tells if the kind is in the table.
func (k DeviceKind) IsValid() bool {
	return k >= 0 && int(k) < len(deviceKindNames)
}

// String implements fmt.Stringer.
func (k DeviceKind) String() string {
	if k.IsValid() {
		return deviceKindNames[k]
	}
	return "DeviceKind(" + strconv.Itoa(int(k)) + ")"
}

// Order maps the kind to the order sent on the wire.
func (k DeviceKind) Order() (Order, error) {
	switch k {
	case DeviceLED:
		return OrderLED, nil
	case DeviceServo:
		return OrderServo, nil
	case DeviceServoRelative:
		return OrderServoRelative, nil
	case DevicePin:
		return OrderPin, nil
	case DevicePinRead:
		return OrderRead, nil
	}
	return 0, &UnknownDeviceKindError{Kind: k.String()}
}

// Identifier addresses one index, or an ordered list of indices (LED only).
type Identifier struct {
	ids   []int
	multi bool
	// length of a range too long to encode, the ids are not materialized.
	oversize uint64
}

// ID creates a single index identifier.
func ID(n int) Identifier {
	return Identifier{ids: []int{n}}
}

// IDs creates an ordered list identifier.
func IDs(ns ...int) Identifier {
	return Identifier{ids: append([]int(nil), ns...), multi: true}
}

// IDRange creates a list identifier of contiguous indices [from, to).
// A range longer than 255 can't be encoded and fails in Frame.
func IDRange(from, to int) Identifier {
	id := Identifier{multi: true}
	if to > from {
		if span := uint64(to) - uint64(from); span > math.MaxUint8 {
			id.oversize = span
			return id
		}
	}
	for n := from; n < to; n++ {
		id.ids = append(id.ids, n)
	}
	return id
}

// IsZero tells if no identifier was given.
func (i Identifier) IsZero() bool {
	return !i.multi && len(i.ids) == 0
}

// IsList tells if the identifier is a list or range.
func (i Identifier) IsList() bool {
	return i.multi
}

// Single returns the index of a single identifier.
func (i Identifier) Single() (int, bool) {
	if i.multi || len(i.ids) != 1 {
		return 0, false
	}
	return i.ids[0], true
}

// Values returns a copy of all indices.
func (i Identifier) Values() []int {
	return append([]int(nil), i.ids...)
}

// String implements fmt.Stringer.
func (i Identifier) String() string {
	if n, ok := i.Single(); ok {
		return strconv.Itoa(n)
	}
	if i.oversize > 0 {
		return fmt.Sprintf("[%d ids]", i.oversize)
	}
	return fmt.Sprint(i.ids)
}

// Payload is the value part of a command: Scalar, RGB or Digital.
type Payload interface {
	fmt.Stringer
	appendTo([]byte) ([]byte, error)
}

// Scalar is a signed 16-bit value: servo angle, servo delta or LED level.
type Scalar int

// RGB is an LED color, one unsigned byte per channel.
type RGB struct {
	R, G, B int
}

// Digital is an unsigned byte written to a digital pin.
type Digital int

func (v Scalar) appendTo(b []byte) ([]byte, error) {
	return AppendI16(b, int(v))
}

// String implements fmt.Stringer.
func (v Scalar) String() string {
	return strconv.Itoa(int(v))
}

func (v RGB) appendTo(b []byte) (out []byte, err error) {
	out = b
	for _, c := range [3]int{v.R, v.G, v.B} {
		if out, err = AppendU8(out, c); err != nil {
			return b, err
		}
	}
	return out, nil
}

// String implements fmt.Stringer.
func (v RGB) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.R, v.G, v.B)
}

func (v Digital) appendTo(b []byte) ([]byte, error) {
	return AppendU8(b, int(v))
}

// String implements fmt.Stringer.
func (v Digital) String() string {
	return strconv.Itoa(int(v))
}

// Command is a logical command addressed to the firmware.
type Command struct {
	Kind    DeviceKind
	ID      Identifier
	Payload Payload
}

// LED sets one or more LEDs to a color or level.
func LED(id Identifier, payload Payload) Command {
	return Command{Kind: DeviceLED, ID: id, Payload: payload}
}

// Servo moves a servo to an absolute angle.
func Servo(index, angle int) Command {
	return Command{Kind: DeviceServo, ID: ID(index), Payload: Scalar(angle)}
}

// ServoRelative nudges a servo by a signed delta.
func ServoRelative(index, delta int) Command {
	return Command{Kind: DeviceServoRelative, ID: ID(index), Payload: Scalar(delta)}
}

// Pin writes a digital value.
func Pin(index, value int) Command {
	return Command{Kind: DevicePin, ID: ID(index), Payload: Digital(value)}
}

// PinRead reads a pin, the firmware replies with an int16.
func PinRead(index int) Command {
	return Command{Kind: DevicePinRead, ID: ID(index)}
}

// ExpectsReply tells if the firmware answers the command.
func (c Command) ExpectsReply() bool {
	return c.Kind == DevicePinRead
}

// String implements fmt.Stringer.
func (c Command) String() string {
	val := "None"
	if c.Payload != nil {
		val = c.Payload.String()
	}
	return fmt.Sprintf("%s id: %s val: %s", c.Kind, c.ID, val)
}

// Frame encodes the command into the bytes sent on the wire.
// It is a pure function of the command.
func (c Command) Frame() ([]byte, error) {
	order, err := c.Kind.Order()
	if err != nil {
		return nil, err
	}
	if err = c.validatePayload(); err != nil {
		return nil, err
	}
	b := AppendOrder(make([]byte, 0, 8), order)

	if c.Kind == DeviceLED {
		if c.ID.IsZero() {
			return nil, c.invalid("identifier required")
		}
		ids := c.ID.ids
		if n := c.ID.oversize; n > 0 {
			if n > math.MaxInt64 {
				n = math.MaxInt64
			}
			return nil, &RangeError{Type: "uint8", Value: int64(n)}
		}
		if len(ids) > math.MaxUint8 {
			return nil, &RangeError{Type: "uint8", Value: int64(len(ids))}
		}
		b = append(b, byte(len(ids)))
		for _, id := range ids {
			if b, err = AppendU8(b, id); err != nil {
				return nil, err
			}
		}
	} else {
		id, ok := c.ID.Single()
		if !ok {
			return nil, c.invalid("single identifier required")
		}
		if b, err = AppendU8(b, id); err != nil {
			return nil, err
		}
	}

	if c.Payload != nil {
		if b, err = c.Payload.appendTo(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (c Command) validatePayload() error {
	switch c.Kind {
	case DeviceServo, DeviceServoRelative:
		if _, ok := c.Payload.(Scalar); !ok {
			return c.invalid("payload must be a scalar")
		}
	case DeviceLED:
		switch c.Payload.(type) {
		case Scalar, RGB:
		default:
			return c.invalid("payload must be a scalar or RGB")
		}
	case DevicePin:
		if _, ok := c.Payload.(Digital); !ok {
			return c.invalid("payload must be a digital value")
		}
	case DevicePinRead:
		if c.Payload != nil {
			return c.invalid("no payload expected")
		}
	}
	return nil
}

func (c Command) invalid(reason string) error {
	return &InvalidCommandError{Kind: c.Kind, Reason: reason}
}
