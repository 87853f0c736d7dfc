// Package transport carries wire envelopes between a tribeca client and the
// authority.
//
// A Dialer establishes one Conn. Inbound envelopes are pushed to the
// Receiver given to Dial, on a transport-owned goroutine; callers that need
// serial processing hand them to an event loop. A Conn reports its end
// exactly once through Done and Err; the connection layer turns that into
// a Disconnected transition.
//
// # WebSocket
//
// WebSocketDialer sends one envelope per binary message. Liveness is
// monitored with WebSocket ping/pong control frames:
//   - Ping interval: 15 seconds
//   - Pong timeout: 5 seconds
//   - Max missed pongs: 2
//
// # MQTT
//
// MQTTDialer maps envelopes onto broker topics of the form
//
//	<prefix>/<topic>/<kind>
//
// where kind is one of subscribe, snapshot, update or fire. The client
// subscribes to the snapshot and update branches and publishes on the
// subscribe and fire branches. Send waits for the broker to accept a
// publish for at most WriteTimeout, like the WebSocket write deadline.
package transport
