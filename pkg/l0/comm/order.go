package comm

import "fmt"

// Order is the one-byte tag starting every frame.
// Values must match the firmware.
type Order byte

// Orders understood by the firmware.
const (
	OrderHello            Order = 0
	OrderServo            Order = 1
	OrderMotor            Order = 2
	OrderAlreadyConnected Order = 3
	OrderError            Order = 4
	OrderReceived         Order = 5
	OrderStop             Order = 6
	OrderLED              Order = 7
	OrderPin              Order = 8
	OrderRead             Order = 9
	OrderServoRelative    Order = 10
)

var orderNames = map[Order]string{
	OrderHello:            "HELLO",
	OrderServo:            "SERVO",
	OrderMotor:            "MOTOR",
	OrderAlreadyConnected: "ALREADY_CONNECTED",
	OrderError:            "ERROR",
	OrderReceived:         "RECEIVED",
	OrderStop:             "STOP",
	OrderLED:              "LED",
	OrderPin:              "PIN",
	OrderRead:             "READ",
	OrderServoRelative:    "SERVO_RELATIVE",
}

// String implements fmt.Stringer.
func (o Order) String() string {
	if name, ok := orderNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Order(%d)", byte(o))
}

// IsGreeting tells if the order is a valid reply to HELLO.
func (o Order) IsGreeting() bool {
	return o == OrderHello || o == OrderAlreadyConnected
}
