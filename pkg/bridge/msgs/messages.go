package msgs

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

// Field names.
const (
	FieldKind    = "kind"
	FieldID      = "id"
	FieldIDs     = "ids"
	FieldValue   = "value"
	FieldRGB     = "rgb"
	FieldReplyTo = "reply_to"
	FieldSeq     = "seq"
	FieldStatus  = "status"
	FieldError   = "error"
	FieldTopic   = "topic"
	FieldSource  = "source"
	FieldMessage = "message"
	FieldTime    = "time"
)

// StatusError is the result status when the command failed.
const StatusError = "error"

// ErrInvalidMessage indicates a message can't be decoded.
type ErrInvalidMessage struct {
	Field  string
	Reason string
}

// Error implements error.
func (e *ErrInvalidMessage) Error() string {
	if e.Field == "" {
		return "invalid message: " + e.Reason
	}
	return fmt.Sprintf("invalid message field %q: %s", e.Field, e.Reason)
}

// CommandMsg is a command request.
type CommandMsg struct {
	Command comm.Command
	ReplyTo string
	// Seq is echoed in the result, 0 means not set.
	Seq uint32
}

// ResultMsg is the outcome of a command.
type ResultMsg struct {
	Status   string
	Value    int16
	HasValue bool
	Error    string
	Seq      uint32
}

// Event is a status line published by the engine.
type Event struct {
	Topic   string
	Source  string
	Message string
	Time    time.Time
}

// ResultFrom converts the outcome of a command.
func ResultFrom(res comm.Result, err error) ResultMsg {
	if err != nil {
		return ResultMsg{Status: StatusError, Error: err.Error()}
	}
	return ResultMsg{Status: res.Status.String(), Value: res.Value, HasValue: res.HasValue}
}

// EncodeCommand encodes a command request.
func EncodeCommand(msg CommandMsg) ([]byte, error) {
	cmd := msg.Command
	if !cmd.Kind.IsValid() {
		return nil, &comm.UnknownDeviceKindError{Kind: cmd.Kind.String()}
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldKind: stringValue(cmd.Kind.String()),
	}}
	if cmd.ID.IsList() {
		s.Fields[FieldIDs] = numberList(cmd.ID.Values()...)
	} else if id, ok := cmd.ID.Single(); ok {
		s.Fields[FieldID] = numberValue(float64(id))
	}
	switch v := cmd.Payload.(type) {
	case comm.Scalar:
		s.Fields[FieldValue] = numberValue(float64(v))
	case comm.Digital:
		s.Fields[FieldValue] = numberValue(float64(v))
	case comm.RGB:
		s.Fields[FieldRGB] = numberList(v.R, v.G, v.B)
	}
	if msg.ReplyTo != "" {
		s.Fields[FieldReplyTo] = stringValue(msg.ReplyTo)
	}
	if msg.Seq != 0 {
		s.Fields[FieldSeq] = numberValue(float64(msg.Seq))
	}
	return proto.Marshal(s)
}

// DecodeCommand decodes a command request.
// ReplyTo and Seq are decoded first, so they are available for an error
// reply when the rest of the message is invalid.
func DecodeCommand(data []byte) (msg CommandMsg, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(data, &s); err != nil {
		return msg, &ErrInvalidMessage{Reason: err.Error()}
	}
	f := fields(s.Fields)
	if msg.Seq, err = f.seq(); err != nil {
		return msg, err
	}
	if msg.ReplyTo, err = f.optionalString(FieldReplyTo); err != nil {
		return msg, err
	}
	kindName, err := f.requiredString(FieldKind)
	if err != nil {
		return msg, err
	}
	cmd := &msg.Command
	if cmd.Kind, err = comm.ParseDeviceKind(kindName); err != nil {
		return msg, err
	}

	if _, ok := f[FieldIDs]; ok {
		ids, err := f.integers(FieldIDs)
		if err != nil {
			return msg, err
		}
		cmd.ID = comm.IDs(ids...)
	} else if _, ok := f[FieldID]; ok {
		id, err := f.integer(FieldID)
		if err != nil {
			return msg, err
		}
		cmd.ID = comm.ID(id)
	}

	_, hasValue := f[FieldValue]
	_, hasRGB := f[FieldRGB]
	switch {
	case hasValue && hasRGB:
		return msg, &ErrInvalidMessage{Field: FieldRGB, Reason: "value and rgb are exclusive"}
	case hasRGB:
		rgb, err := f.integers(FieldRGB)
		if err != nil {
			return msg, err
		}
		if len(rgb) != 3 {
			return msg, &ErrInvalidMessage{Field: FieldRGB, Reason: "3 components required"}
		}
		cmd.Payload = comm.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
	case hasValue:
		val, err := f.integer(FieldValue)
		if err != nil {
			return msg, err
		}
		if cmd.Kind == comm.DevicePin {
			cmd.Payload = comm.Digital(val)
		} else {
			cmd.Payload = comm.Scalar(val)
		}
	}
	return msg, nil
}

// EncodeResult encodes a result.
func EncodeResult(msg ResultMsg) ([]byte, error) {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldStatus: stringValue(msg.Status),
	}}
	if msg.HasValue {
		s.Fields[FieldValue] = numberValue(float64(msg.Value))
	}
	if msg.Error != "" {
		s.Fields[FieldError] = stringValue(msg.Error)
	}
	if msg.Seq != 0 {
		s.Fields[FieldSeq] = numberValue(float64(msg.Seq))
	}
	return proto.Marshal(s)
}

// DecodeResult decodes a result.
func DecodeResult(data []byte) (msg ResultMsg, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(data, &s); err != nil {
		return msg, &ErrInvalidMessage{Reason: err.Error()}
	}
	f := fields(s.Fields)
	if msg.Status, err = f.requiredString(FieldStatus); err != nil {
		return msg, err
	}
	if msg.Error, err = f.optionalString(FieldError); err != nil {
		return msg, err
	}
	if msg.Seq, err = f.seq(); err != nil {
		return msg, err
	}
	if _, ok := f[FieldValue]; ok {
		val, err := f.integer(FieldValue)
		if err != nil {
			return msg, err
		}
		if val < math.MinInt16 || val > math.MaxInt16 {
			return msg, &ErrInvalidMessage{Field: FieldValue, Reason: "out of int16 range"}
		}
		msg.Value, msg.HasValue = int16(val), true
	}
	return msg, nil
}

// EncodeEvent encodes an event.
func EncodeEvent(ev Event) ([]byte, error) {
	ts, err := ptypes.TimestampProto(ev.Time)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTopic:   stringValue(ev.Topic),
		FieldSource:  stringValue(ev.Source),
		FieldMessage: stringValue(ev.Message),
		FieldTime:    stringValue(ptypes.TimestampString(ts)),
	}}
	return proto.Marshal(s)
}

// DecodeEvent decodes an event.
func DecodeEvent(data []byte) (ev Event, err error) {
	var s structpb.Struct
	if err = proto.Unmarshal(data, &s); err != nil {
		return ev, &ErrInvalidMessage{Reason: err.Error()}
	}
	f := fields(s.Fields)
	if ev.Message, err = f.requiredString(FieldMessage); err != nil {
		return ev, err
	}
	if ev.Topic, err = f.optionalString(FieldTopic); err != nil {
		return ev, err
	}
	if ev.Source, err = f.optionalString(FieldSource); err != nil {
		return ev, err
	}
	tstr, err := f.optionalString(FieldTime)
	if err != nil || tstr == "" {
		return ev, err
	}
	if ev.Time, err = time.Parse(time.RFC3339Nano, tstr); err != nil {
		return ev, &ErrInvalidMessage{Field: FieldTime, Reason: err.Error()}
	}
	return ev, nil
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: n}}
}

func numberList(ns ...int) *structpb.Value {
	vals := make([]*structpb.Value, 0, len(ns))
	for _, n := range ns {
		vals = append(vals, numberValue(float64(n)))
	}
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: vals}}}
}

type fields map[string]*structpb.Value

func (f fields) requiredString(name string) (string, error) {
	v, ok := f[name]
	if !ok {
		return "", &ErrInvalidMessage{Field: name, Reason: "required"}
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", &ErrInvalidMessage{Field: name, Reason: "string expected"}
	}
	return s.StringValue, nil
}

func (f fields) optionalString(name string) (string, error) {
	if _, ok := f[name]; !ok {
		return "", nil
	}
	return f.requiredString(name)
}

func (f fields) integer(name string) (int, error) {
	return toInt(name, f[name])
}

func (f fields) integers(name string) ([]int, error) {
	l, ok := f[name].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, &ErrInvalidMessage{Field: name, Reason: "list expected"}
	}
	ns := make([]int, 0, len(l.ListValue.GetValues()))
	for _, v := range l.ListValue.GetValues() {
		n, err := toInt(name, v)
		if err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, nil
}

func (f fields) seq() (uint32, error) {
	v, ok := f[FieldSeq]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &ErrInvalidMessage{Field: FieldSeq, Reason: "number expected"}
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > math.MaxUint32 {
		return 0, &ErrInvalidMessage{Field: FieldSeq, Reason: "uint32 expected"}
	}
	return uint32(n.NumberValue), nil
}

func toInt(name string, v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &ErrInvalidMessage{Field: name, Reason: "number expected"}
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, &ErrInvalidMessage{Field: name, Reason: "integer expected"}
	}
	return int(n.NumberValue), nil
}
