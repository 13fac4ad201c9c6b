// Package msgs defines the messages exchanged over MQTT by the bridge.
package msgs

// Every message is a protobuf Struct so clients in any language can use
// the well-known types without generated code.
//
// Command (topic <prefix>serial):
//
//	{kind: "servo", id: 3, value: 90, reply_to: "...", seq: 7}
//	{kind: "led", ids: [1, 2, 3], rgb: [10, 20, 30]}
//
// Result (topic reply_to, default <prefix>serial/result):
//
//	{status: "sent" | "disconnected" | "error", value: -5, error: "...", seq: 7}
//
// The seq of a command, when present, is echoed in its result.
//
// Event (topic <prefix>log):
//
//	{topic: "log", source: "...", message: "...", time: "..."}
//
// Producer: MQTT clients (commands), actuatord (results, events)
// Consumer: actuatord (commands), MQTT clients (results, events)
