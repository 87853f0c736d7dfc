// Package messaging multiplexes typed topic subscriptions and publishes
// over the single connection to the authority.
//
// A Bus sits between the connection and the handles. Consumers never see
// the Bus directly; they obtain handles from the two factories:
//
//	sub := messaging.GetSubscriber(subs, scope, topic.FairValue).
//		RegisterSubscriber(onUpdate, onSnapshot).
//		RegisterConnectHandler(onConnect)
//	fire := messaging.GetFire(fires, topic.ActiveChange)
//	fire.Fire(true)
//
// # Delivery
//
// Every handle has its own callback slots and decodes its own copy of each
// payload. On every (re)connect the Bus runs each live handle's connect
// handler and then asks the authority for one snapshot per topic. A handle
// waits for that snapshot before it sees incremental updates; updates that
// arrive earlier are dropped because the snapshot supersedes them. Per
// topic, updates reach handles in arrival order.
//
// # Scopes
//
// A handle is bound to a context.Context. When the context ends, the
// handle is torn down on the event loop, and from that moment on no
// callback of the handle fires.
//
// # Failures
//
// A panicking callback is recovered and logged; delivery continues. A
// payload that does not decode into its topic's type is a contract
// violation and, by default, crashes the event loop with an
// *eventloop.FatalError.
package messaging
