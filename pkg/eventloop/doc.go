// Package eventloop provides the single serial context that owns all
// subscription, connection and form state in a tribeca client.
//
// Work enters the loop through Post, from any goroutine, and runs one
// function at a time in the order it was posted. Code running on the loop
// never needs locks for loop-owned state.
//
//	loop := eventloop.New(eventloop.Config{})
//	go loop.Run(ctx)
//	loop.Post(func() { model.Update(v) })
//
// Call runs a function on the loop and waits for it, which lets a terminal
// goroutine read loop-owned state safely. Drain runs pending work on the
// calling goroutine, which tests use in place of Run for deterministic
// stepping.
package eventloop
