// Package topic defines the closed set of named channels a tribeca client
// can subscribe to or fire on, and the payload type each one carries.
//
// A Topic[T] pairs a wire name with its payload type. The pairing is
// recorded in a Registry when the topic is declared and never changes
// afterwards:
//
//	var Fills = topic.Register[models.Trade](reg, "t")
//
// Handles built for Fills can only deliver or send models.Trade values.
// The trading topics used by the dashboard live in the Default registry.
package topic
