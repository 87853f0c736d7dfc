// Package wire defines the CBOR envelope exchanged between a tribeca client
// and the authority.
//
// Every frame on the connection is one Envelope with integer keys:
//
//	{
//	  1: kind,     // uint8: 1=Subscribe, 2=Snapshot, 3=Update, 4=Fire
//	  2: topic,    // text: topic name
//	  3: payload   // CBOR item, absent for Subscribe
//	}
//
// # Payloads
//
// The payload is kept as raw CBOR until a handle that knows the topic's Go
// type decodes it. A Snapshot payload is an array of values; Update and
// Fire payloads are a single value. Each call to DecodePayload or
// DecodeSnapshot produces a fresh value, so receivers never share decoded
// state.
//
// # Strictness
//
// Envelopes decode leniently for forward compatibility. Payloads decode
// strictly: unknown fields or a shape that does not fit the target type
// yield ErrPayloadMismatch.
package wire
