package log

import (
	"testing"

	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"direction in", DirectionIn.String(), "IN"},
		{"direction out", DirectionOut.String(), "OUT"},
		{"direction unknown", Direction(99).String(), "UNKNOWN"},
		{"layer transport", LayerTransport.String(), "TRANSPORT"},
		{"layer wire", LayerWire.String(), "WIRE"},
		{"layer messaging", LayerMessaging.String(), "MESSAGING"},
		{"category state", CategoryState.String(), "STATE"},
		{"category error", CategoryError.String(), "ERROR"},
		{"role client", RoleClient.String(), "CLIENT"},
		{"role authority", RoleAuthority.String(), "AUTHORITY"},
		{"entity connection", StateEntityConnection.String(), "CONNECTION"},
		{"entity subscription", StateEntitySubscription.String(), "SUBSCRIPTION"},
		{"control pong", ControlMsgPong.String(), "PONG"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestNewFrameEventTruncates(t *testing.T) {
	small := NewFrameEvent([]byte{1, 2, 3})
	if small.Size != 3 || small.Truncated || len(small.Data) != 3 {
		t.Errorf("small frame = %+v", small)
	}

	big := NewFrameEvent(make([]byte, MaxFrameData+10))
	if big.Size != MaxFrameData+10 {
		t.Errorf("Size = %d", big.Size)
	}
	if !big.Truncated || len(big.Data) != MaxFrameData {
		t.Errorf("big frame not truncated: truncated=%v len=%d", big.Truncated, len(big.Data))
	}
}

func TestNewEnvelopeEvent(t *testing.T) {
	env, err := wire.NewUpdate("qp", models.QuotingParameters{Width: 0.3})
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}

	ee := NewEnvelopeEvent(env)
	if ee.Kind != wire.KindUpdate || ee.Topic != "qp" {
		t.Errorf("got %+v", ee)
	}
	if ee.PayloadSize != len(env.Payload) {
		t.Errorf("PayloadSize = %d, want %d", ee.PayloadSize, len(env.Payload))
	}
	if ee.Payload == nil {
		t.Error("Payload not decoded")
	}

	sub := NewEnvelopeEvent(wire.NewSubscribe("qp"))
	if sub.Payload != nil || sub.PayloadSize != 0 {
		t.Errorf("subscribe event = %+v", sub)
	}
}

func TestEventCBORRoundTrip(t *testing.T) {
	env, _ := wire.NewFire("active", true)
	event := Event{
		ConnectionID: "conn-1",
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		LocalRole:    RoleClient,
		Topic:        "active",
		Envelope:     NewEnvelopeEvent(env),
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}

	if decoded.Envelope == nil {
		t.Fatal("Envelope is nil")
	}
	if decoded.Envelope.Kind != wire.KindFire || decoded.Envelope.Payload != true {
		t.Errorf("Envelope = %+v", decoded.Envelope)
	}
	if decoded.Topic != "active" || decoded.Direction != DirectionOut {
		t.Errorf("decoded = %+v", decoded)
	}
}
