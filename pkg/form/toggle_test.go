package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tribeca/tribeca-go/pkg/messaging"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

func newActiveToggle(e *env) *Toggle {
	sub := messaging.GetSubscriber(e.subs, context.Background(), topic.ActiveChange)
	return NewToggle(sub, messaging.GetFire(e.fires, topic.ActiveChange))
}

func TestToggleSubmitSendsOpposite(t *testing.T) {
	e := newEnv(t)
	tg := newActiveToggle(e)

	e.connect()
	replay[bool](e, topic.ActiveChange)
	assert.Equal(t, ToggleStateOff, tg.State())

	require.NoError(t, tg.Submit())
	assert.Equal(t, ToggleStatePending, tg.State())

	fired := e.sender.fired(t)
	require.Len(t, fired, 1)
	v, err := wire.DecodePayload[bool](fired[0])
	require.NoError(t, err)
	assert.True(t, v, "submit from false must request true")
	assert.False(t, tg.Display(), "display keeps the confirmed value until the echo")

	push(e, topic.ActiveChange, true)

	assert.False(t, tg.Pending())
	assert.True(t, tg.Master())
	assert.True(t, tg.Display())
	assert.Equal(t, ToggleStateOn, tg.State())
}

func TestToggleSubmitFromTrue(t *testing.T) {
	e := newEnv(t)
	tg := newActiveToggle(e)

	e.connect()
	replay(e, topic.ActiveChange, true)
	require.NoError(t, tg.Submit())

	fired := e.sender.fired(t)
	require.Len(t, fired, 1)
	v, _ := wire.DecodePayload[bool](fired[0])
	assert.False(t, v)
}

func TestToggleStateString(t *testing.T) {
	tests := []struct {
		state ToggleState
		want  string
	}{
		{ToggleStateOff, "OFF"},
		{ToggleStateOn, "ON"},
		{ToggleStatePending, "PENDING"},
		{ToggleState(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
