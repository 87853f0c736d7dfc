package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribeca/tribeca-go/pkg/eventloop"
	"github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

func msg(text string) models.Message {
	return models.Message{Text: text, Time: time.Unix(1700000000, 0).UTC()}
}

func TestSnapshotThenUpdates(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var snapshots [][]models.Message
	var updates []models.Message
	GetSubscriber(h.subs, context.Background(), topic.Message).
		RegisterSubscriber(
			func(m models.Message) { updates = append(updates, m) },
			func(ms []models.Message) { snapshots = append(snapshots, ms) },
		)

	assert.Equal(t, 0, h.sender.subscribes("m"), "no request while disconnected")

	h.connect()
	assert.Equal(t, 1, h.sender.subscribes("m"))

	// Superseded by the snapshot
	deliverUpdate(h, topic.Message, msg("early"))
	assert.Empty(t, updates)

	deliverSnapshot(h, topic.Message, msg("a"), msg("b"))
	require.Len(t, snapshots, 1)
	assert.Equal(t, []models.Message{msg("a"), msg("b")}, snapshots[0])

	deliverUpdate(h, topic.Message, msg("c"))
	deliverUpdate(h, topic.Message, msg("d"))
	assert.Equal(t, []models.Message{msg("c"), msg("d")}, updates)
}

func TestEmptySnapshot(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var got []models.Message
	called := false
	GetSubscriber(h.subs, context.Background(), topic.Message).
		RegisterSubscriber(nil, func(ms []models.Message) {
			called = true
			got = ms
		})

	h.connect()
	deliverSnapshot[models.Message](h, topic.Message)

	assert.True(t, called)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestConnectHandlerPrecedesSnapshot(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var events []string
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(
			func(v bool) { events = append(events, "update") },
			func(vs []bool) {
				for range vs {
					events = append(events, "snapshot")
				}
			},
		).
		RegisterConnectHandler(func() { events = append(events, "connect") }).
		RegisterDisconnectedHandler(func() { events = append(events, "disconnect") })

	// The disconnected handler learns the current state at registration.
	assert.Equal(t, []string{"disconnect"}, events)
	events = nil

	for range 2 {
		h.connect()
		deliverSnapshot(h, topic.ActiveChange, true, false, true)
		deliverUpdate(h, topic.ActiveChange, false)
		h.disconnect()
	}

	want := []string{"connect", "snapshot", "snapshot", "snapshot", "update", "disconnect"}
	assert.Equal(t, append(want, want...), events)
	assert.Equal(t, 2, h.sender.subscribes("active"), "one snapshot request per connect")
}

func TestConnectHandlerRunsImmediatelyWhenConnected(t *testing.T) {
	h := newHarness(t, BusConfig{})
	h.connect()

	connects := 0
	disconnects := 0
	GetSubscriber(h.subs, context.Background(), topic.FairValue).
		RegisterConnectHandler(func() { connects++ }).
		RegisterDisconnectedHandler(func() { disconnects++ })

	assert.Equal(t, 1, connects)
	assert.Equal(t, 0, disconnects)
	assert.Equal(t, 1, h.sender.subscribes("fv"), "late handle requests its own snapshot")
}

func TestHandleCreatedInConnectHandler(t *testing.T) {
	h := newHarness(t, BusConfig{})

	inner := 0
	created := false
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterConnectHandler(func() {
			if created {
				return
			}
			created = true
			GetSubscriber(h.subs, context.Background(), topic.FairValue).
				RegisterConnectHandler(func() { inner++ })
		})
	GetSubscriber(h.subs, context.Background(), topic.FairValue)

	h.connect()
	assert.Equal(t, 1, inner, "connect handler runs once per connect")
	assert.Equal(t, 1, h.sender.subscribes("fv"))

	h.disconnect()
	h.connect()
	assert.Equal(t, 2, inner)
}

func TestHandleCreatedInDisconnectedHandler(t *testing.T) {
	h := newHarness(t, BusConfig{})
	h.connect()

	inner := 0
	created := false
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterDisconnectedHandler(func() {
			if created {
				return
			}
			created = true
			GetSubscriber(h.subs, context.Background(), topic.FairValue).
				RegisterDisconnectedHandler(func() { inner++ })
		})
	GetSubscriber(h.subs, context.Background(), topic.FairValue)

	h.disconnect()
	assert.Equal(t, 1, inner, "disconnected handler runs once per disconnect")

	h.connect()
	h.disconnect()
	assert.Equal(t, 2, inner)
}

func TestHandleDisposedInConnectHandler(t *testing.T) {
	h := newHarness(t, BusConfig{})

	later := 0
	var victim *Subscriber[models.FairValue]
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterConnectHandler(func() { victim.Disconnect() })
	victim = GetSubscriber(h.subs, context.Background(), topic.FairValue).
		RegisterConnectHandler(func() { later++ })

	h.connect()
	assert.Zero(t, later)
	assert.True(t, victim.Disposed())
	assert.Zero(t, h.sender.subscribes("fv"), "no snapshot request for a topic without live handles")
}

func TestUpdatesDroppedWhileDisconnected(t *testing.T) {
	h := newHarness(t, BusConfig{})

	updates := 0
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { updates++ }, nil)

	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)
	h.disconnect()

	deliverUpdate(h, topic.ActiveChange, true)
	assert.Equal(t, 0, updates)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var updates, connects, disconnects int
	sub := GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { updates++ }, nil).
		RegisterConnectHandler(func() { connects++ }).
		RegisterDisconnectedHandler(func() { disconnects++ })
	disconnects = 0

	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)
	connects = 0

	sub.Disconnect()
	sub.Disconnect()

	assert.True(t, sub.Disposed())
	assert.Equal(t, 0, h.bus.Handles("active"))

	deliverUpdate(h, topic.ActiveChange, true)
	h.disconnect()
	h.connect()

	assert.Zero(t, updates)
	assert.Zero(t, connects)
	assert.Zero(t, disconnects)
}

func TestScopeTeardown(t *testing.T) {
	h := newHarness(t, BusConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	var updates, connects, disconnects int
	sub := GetSubscriber(h.subs, ctx, topic.ActiveChange).
		RegisterSubscriber(func(bool) { updates++ }, nil).
		RegisterConnectHandler(func() { connects++ }).
		RegisterDisconnectedHandler(func() { disconnects++ })

	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)
	connects, disconnects = 0, 0

	cancel()

	// Nothing fires even before the teardown has run on the loop.
	deliverUpdate(h, topic.ActiveChange, true)
	assert.Zero(t, updates)
	assert.True(t, sub.Disposed())

	require.Eventually(t, func() bool {
		h.loop.Drain()
		return len(h.bus.topics["active"].handles) == 0
	}, time.Second, 5*time.Millisecond, "teardown should detach the handle")

	h.disconnect()
	h.connect()
	deliverUpdate(h, topic.ActiveChange, false)

	assert.Zero(t, updates)
	assert.Zero(t, connects)
	assert.Zero(t, disconnects)
}

func TestEndedScopeYieldsDeadHandle(t *testing.T) {
	h := newHarness(t, BusConfig{})
	h.connect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	connects := 0
	sub := GetSubscriber(h.subs, ctx, topic.FairValue).
		RegisterConnectHandler(func() { connects++ })

	assert.True(t, sub.Disposed())
	assert.Zero(t, connects)
	assert.Zero(t, h.sender.subscribes("fv"))
}

func TestSubscribeRequestsDeduplicated(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var first, second []models.MarketUpdate
	GetSubscriber(h.subs, context.Background(), topic.MarketData).
		RegisterSubscriber(nil, func(v []models.MarketUpdate) { first = v })
	GetSubscriber(h.subs, context.Background(), topic.MarketData).
		RegisterSubscriber(nil, func(v []models.MarketUpdate) { second = v })

	h.connect()
	assert.Equal(t, 1, h.sender.subscribes("md"))

	// A third handle while the request is outstanding shares it.
	var third []models.MarketUpdate
	GetSubscriber(h.subs, context.Background(), topic.MarketData).
		RegisterSubscriber(nil, func(v []models.MarketUpdate) { third = v })
	assert.Equal(t, 1, h.sender.subscribes("md"))

	book := models.MarketUpdate{
		Bids: []models.MarketSide{{Price: 99, Size: 1}},
		Asks: []models.MarketSide{{Price: 101, Size: 1}},
		Time: time.Unix(1700000000, 0).UTC(),
	}
	deliverSnapshot(h, topic.MarketData, book)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	require.Len(t, third, 1)

	// Each handle decoded its own copy.
	first[0].Bids[0].Price = 1
	assert.Equal(t, 99.0, second[0].Bids[0].Price)
	assert.Equal(t, 99.0, third[0].Bids[0].Price)
}

func TestLateHandleWaitsForItsSnapshot(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var early []string
	GetSubscriber(h.subs, context.Background(), topic.Message).
		RegisterSubscriber(
			func(m models.Message) { early = append(early, "update:"+m.Text) },
			func(ms []models.Message) { early = append(early, "snapshot") },
		)

	h.connect()
	deliverSnapshot(h, topic.Message, msg("a"))

	var late []string
	GetSubscriber(h.subs, context.Background(), topic.Message).
		RegisterSubscriber(
			func(m models.Message) { late = append(late, "update:"+m.Text) },
			func(ms []models.Message) { late = append(late, "snapshot") },
		)
	assert.Equal(t, 2, h.sender.subscribes("m"))

	deliverUpdate(h, topic.Message, msg("b"))
	deliverSnapshot(h, topic.Message, msg("a"), msg("b"))
	deliverUpdate(h, topic.Message, msg("c"))

	assert.Equal(t, []string{"snapshot", "update:b", "update:c"}, early)
	assert.Equal(t, []string{"snapshot", "update:c"}, late)
}

func TestCallbackPanicIsolated(t *testing.T) {
	h := newHarness(t, BusConfig{})

	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { panic("broken view") }, nil).
		RegisterConnectHandler(func() { panic("broken connect") })

	var sameTopic, otherTopic int
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { sameTopic++ }, nil)
	GetSubscriber(h.subs, context.Background(), topic.ExchangeConnectivity).
		RegisterSubscriber(func(models.ConnectivityStatus) { otherTopic++ }, nil)

	assert.NotPanics(t, func() {
		h.connect()
		deliverSnapshot[bool](h, topic.ActiveChange)
		deliverSnapshot[models.ConnectivityStatus](h, topic.ExchangeConnectivity)
		deliverUpdate(h, topic.ActiveChange, true)
		deliverUpdate(h, topic.ExchangeConnectivity, models.ConnectivityConnected)
	})

	assert.Equal(t, 1, sameTopic)
	assert.Equal(t, 1, otherTopic)
	assert.Equal(t, 1, h.sender.subscribes("ec"), "connect panic must not stop the request loop")

	errs := h.protocol.errors()
	require.Len(t, errs, 2)
	assert.Equal(t, "connect callback", errs[0].Error.Context)
	assert.Equal(t, "update callback", errs[1].Error.Context)
	assert.Equal(t, "active", errs[1].Topic)
}

func TestContractViolationIsFatal(t *testing.T) {
	h := newHarness(t, BusConfig{})

	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) {}, nil)
	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)

	env, err := wire.NewUpdate("active", "not a bool")
	require.NoError(t, err)
	h.bus.Deliver(env)

	defer func() {
		fe, ok := recover().(*eventloop.FatalError)
		require.True(t, ok, "expected a FatalError panic")
		assert.ErrorIs(t, fe, ErrContractViolation)
		assert.ErrorIs(t, fe, wire.ErrPayloadMismatch)
	}()
	h.loop.Drain()
	t.Fatal("contract violation was swallowed")
}

func TestContractViolationHandler(t *testing.T) {
	var violations []error
	h := newHarness(t, BusConfig{OnContractViolation: func(err error) {
		violations = append(violations, err)
	}})

	var got []bool
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(v bool) { got = append(got, v) }, nil)
	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)

	bad, _ := wire.NewUpdate("active", 42)
	h.bus.Deliver(bad)
	deliverUpdate(h, topic.ActiveChange, true)

	require.Len(t, violations, 1)
	assert.ErrorIs(t, violations[0], ErrContractViolation)
	assert.Equal(t, []bool{true}, got)
}

func TestMisuse(t *testing.T) {
	h := newHarness(t, BusConfig{})

	t.Run("UnknownTopic", func(t *testing.T) {
		assert.PanicsWithError(t, `messaging: unknown topic: "nope"`, func() {
			GetSubscriber(h.subs, context.Background(), topic.New[int]("nope"))
		})
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		defer func() {
			err, ok := recover().(error)
			require.True(t, ok)
			assert.ErrorIs(t, err, topic.ErrTypeMismatch)
		}()
		GetFire(h.fires, topic.New[string]("active"))
	})
}

func TestFire(t *testing.T) {
	h := newHarness(t, BusConfig{})
	fire := GetFire(h.fires, topic.ActiveChange)
	assert.Equal(t, "active", fire.Topic().Name())

	// Dropped while the sender refuses
	h.sender.err = errors.New("not connected")
	assert.NotPanics(t, func() { fire.Fire(true) })
	assert.Empty(t, h.sender.fires())

	h.sender.err = nil
	fire.Fire(true)

	fires := h.sender.fires()
	require.Len(t, fires, 1)
	assert.Equal(t, "active", fires[0].Topic)
	v, err := wire.DecodePayload[bool](fires[0])
	require.NoError(t, err)
	assert.True(t, v)

	var out int
	for _, e := range h.protocol.events {
		if e.Direction == log.DirectionOut && e.Envelope != nil && e.Envelope.Kind == wire.KindFire {
			out++
		}
	}
	assert.Equal(t, 1, out)
}

func TestSubscribeFailureRetriedOnNextConnect(t *testing.T) {
	h := newHarness(t, BusConfig{})
	GetSubscriber(h.subs, context.Background(), topic.FairValue)

	h.sender.err = errors.New("write failed")
	h.connect()
	assert.Equal(t, 0, h.sender.subscribes("fv"))

	h.sender.err = nil
	h.disconnect()
	h.connect()
	assert.Equal(t, 1, h.sender.subscribes("fv"))
}

func TestIndependentHandles(t *testing.T) {
	h := newHarness(t, BusConfig{})

	var a, b int
	first := GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { a++ }, nil)
	GetSubscriber(h.subs, context.Background(), topic.ActiveChange).
		RegisterSubscriber(func(bool) { b++ }, nil)

	h.connect()
	deliverSnapshot[bool](h, topic.ActiveChange)

	first.RegisterSubscriber(nil, nil)
	deliverUpdate(h, topic.ActiveChange, true)

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, h.bus.Handles("active"))
}
