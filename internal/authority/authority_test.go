package authority

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribeca/tribeca-go/pkg/wire"
)

func next(t *testing.T, s *Session) *wire.Envelope {
	t.Helper()
	select {
	case env := <-s.Outbound():
		return env
	default:
		t.Fatal("no envelope queued")
		return nil
	}
}

func assertIdle(t *testing.T, s *Session) {
	t.Helper()
	select {
	case env := <-s.Outbound():
		t.Fatalf("unexpected envelope %s", env)
	default:
	}
}

func fire(t *testing.T, topic string, v any) *wire.Envelope {
	t.Helper()
	env, err := wire.NewFire(topic, v)
	require.NoError(t, err)
	return env
}

func TestSubscribeEmptyTopic(t *testing.T) {
	a := New(Config{})
	s := a.Attach()

	a.Receive(s, wire.NewSubscribe("fv"))

	env := next(t, s)
	assert.Equal(t, wire.KindSnapshot, env.Kind)
	items, err := wire.DecodeSnapshot[float64](env)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSnapshotThenUpdates(t *testing.T) {
	a := New(Config{})
	require.NoError(t, a.Publish("fv", 100.5))

	s := a.Attach()
	a.Receive(s, wire.NewSubscribe("fv"))

	items, err := wire.DecodeSnapshot[float64](next(t, s))
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5}, items)

	require.NoError(t, a.Publish("fv", 101.0))
	env := next(t, s)
	assert.Equal(t, wire.KindUpdate, env.Kind)
	v, err := wire.DecodePayload[float64](env)
	require.NoError(t, err)
	assert.Equal(t, 101.0, v)
}

func TestUpdatesOnlyToSubscribers(t *testing.T) {
	a := New(Config{})
	sub := a.Attach()
	other := a.Attach()
	a.Receive(sub, wire.NewSubscribe("m"))
	next(t, sub)

	require.NoError(t, a.Publish("m", "hello"))

	next(t, sub)
	assertIdle(t, other)
}

func TestRetention(t *testing.T) {
	a := New(Config{})
	a.Retain("t", 3)
	for i := range 5 {
		require.NoError(t, a.Publish("t", i))
	}
	require.NoError(t, a.Publish("qp", 1))
	require.NoError(t, a.Publish("qp", 2))

	assert.Len(t, a.Values("t"), 3)
	assert.Len(t, a.Values("qp"), 1)

	s := a.Attach()
	a.Receive(s, wire.NewSubscribe("t"))
	items, err := wire.DecodeSnapshot[int](next(t, s))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, items)
	assert.Equal(t, []string{"qp", "t"}, a.Topics())
}

func TestFireEchoes(t *testing.T) {
	a := New(Config{})
	s := a.Attach()
	a.Receive(s, wire.NewSubscribe("active"))
	next(t, s)

	a.Receive(s, fire(t, "active", true))

	env := next(t, s)
	assert.Equal(t, wire.KindUpdate, env.Kind)
	v, err := wire.DecodePayload[bool](env)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestFireHandler(t *testing.T) {
	a := New(Config{})
	a.OnFire(func(topic string, payload cbor.RawMessage) (cbor.RawMessage, error) {
		var v int
		if err := wire.Unmarshal(payload, &v); err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, ErrRejected
		}
		return wire.Marshal(v * 10)
	})
	s := a.Attach()
	a.Receive(s, wire.NewSubscribe("n"))
	next(t, s)

	a.Receive(s, fire(t, "n", -1))
	assertIdle(t, s)

	a.Receive(s, fire(t, "n", 4))
	v, err := wire.DecodePayload[int](next(t, s))
	require.NoError(t, err)
	assert.Equal(t, 40, v)
}

func TestClientKindsIgnored(t *testing.T) {
	a := New(Config{})
	s := a.Attach()
	env, err := wire.NewUpdate("fv", 1.0)
	require.NoError(t, err)

	a.Receive(s, env)

	assertIdle(t, s)
	assert.Empty(t, a.Topics())
}

func TestSlowSessionDropped(t *testing.T) {
	a := New(Config{QueueSize: 2})
	s := a.Attach()
	a.Receive(s, wire.NewSubscribe("fv"))

	require.NoError(t, a.Publish("fv", 1.0))
	require.NoError(t, a.Publish("fv", 2.0))

	select {
	case <-s.Done():
	default:
		t.Fatal("session should be dropped")
	}
	assert.Equal(t, 0, a.Sessions())
}

func TestDetach(t *testing.T) {
	a := New(Config{})
	s1 := a.Attach()
	s2 := a.Attach()
	assert.Equal(t, 2, a.Sessions())

	a.Detach(s1)
	a.Detach(s1)
	assert.Equal(t, 1, a.Sessions())

	a.DetachAll()
	assert.Equal(t, 0, a.Sessions())
	<-s2.Done()
}
