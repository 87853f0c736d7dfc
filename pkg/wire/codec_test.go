package wire

import (
	"errors"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/tribeca/tribeca-go/pkg/models"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	update, err := NewUpdate("fv", models.FairValue{Price: 101.5, Time: time.Unix(1700000000, 250).UTC()})
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}
	fire, err := NewFire("active", true)
	if err != nil {
		t.Fatalf("NewFire: %v", err)
	}
	snap, err := NewSnapshot("m", []models.Message{{Text: "hello"}, {Text: "world"}})
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	tests := []struct {
		name string
		env  *Envelope
	}{
		{"subscribe", NewSubscribe("qp")},
		{"update", update},
		{"fire", fire},
		{"snapshot", snap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEnvelope(tt.env)
			if err != nil {
				t.Fatalf("EncodeEnvelope failed: %v", err)
			}

			decoded, err := DecodeEnvelope(data)
			if err != nil {
				t.Fatalf("DecodeEnvelope failed: %v", err)
			}

			if decoded.Kind != tt.env.Kind {
				t.Errorf("Kind: got %v, want %v", decoded.Kind, tt.env.Kind)
			}
			if decoded.Topic != tt.env.Topic {
				t.Errorf("Topic: got %q, want %q", decoded.Topic, tt.env.Topic)
			}
			if string(decoded.Payload) != string(tt.env.Payload) {
				t.Errorf("Payload bytes differ")
			}
		})
	}
}

func TestDecodePayload(t *testing.T) {
	want := models.FairValue{Price: 42.25, Time: time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)}
	env, err := NewUpdate("fv", want)
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}

	got, err := DecodePayload[models.FairValue](env)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if got.Price != want.Price || !got.Time.Equal(want.Time) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodePayloadFreshCopies(t *testing.T) {
	env, err := NewUpdate("md", models.MarketUpdate{Bids: []models.MarketSide{{Price: 1, Size: 2}}})
	if err != nil {
		t.Fatalf("NewUpdate: %v", err)
	}

	a, _ := DecodePayload[models.MarketUpdate](env)
	b, _ := DecodePayload[models.MarketUpdate](env)
	a.Bids[0].Price = 99

	if b.Bids[0].Price != 1 {
		t.Error("decoded payloads share backing storage")
	}
}

func TestDecodePayloadMismatch(t *testing.T) {
	tests := []struct {
		name   string
		encode func() (*Envelope, error)
		decode func(*Envelope) error
	}{
		{
			name:   "struct into bool",
			encode: func() (*Envelope, error) { return NewUpdate("active", models.Message{Text: "x"}) },
			decode: func(e *Envelope) error { _, err := DecodePayload[bool](e); return err },
		},
		{
			name:   "unknown field",
			encode: func() (*Envelope, error) { return NewUpdate("fv", models.Trade{TradeID: "a", Price: 1}) },
			decode: func(e *Envelope) error { _, err := DecodePayload[models.FairValue](e); return err },
		},
		{
			name:   "scalar snapshot",
			encode: func() (*Envelope, error) { return NewUpdate("m", "not an array") },
			decode: func(e *Envelope) error { _, err := DecodeSnapshot[models.Message](e); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := tt.encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if err := tt.decode(env); !errors.Is(err, ErrPayloadMismatch) {
				t.Errorf("error = %v, want ErrPayloadMismatch", err)
			}
		})
	}
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("Elements", func(t *testing.T) {
		env, err := NewSnapshot("ec", []models.ConnectivityStatus{models.ConnectivityDisconnected, models.ConnectivityConnected})
		if err != nil {
			t.Fatalf("NewSnapshot: %v", err)
		}
		got, err := DecodeSnapshot[models.ConnectivityStatus](env)
		if err != nil {
			t.Fatalf("DecodeSnapshot: %v", err)
		}
		if len(got) != 2 || got[1] != models.ConnectivityConnected {
			t.Errorf("got %v", got)
		}
	})

	t.Run("NilIsEmpty", func(t *testing.T) {
		env, err := NewSnapshot[models.Trade]("t", nil)
		if err != nil {
			t.Fatalf("NewSnapshot: %v", err)
		}
		got, err := DecodeSnapshot[models.Trade](env)
		if err != nil {
			t.Fatalf("DecodeSnapshot: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("got %#v, want empty non-nil slice", got)
		}
	})

	t.Run("RawItems", func(t *testing.T) {
		first, _ := Marshal(true)
		second, _ := Marshal(false)
		env, err := NewRawSnapshot("active", []cbor.RawMessage{first, second})
		if err != nil {
			t.Fatalf("NewRawSnapshot: %v", err)
		}
		items, err := SnapshotItems(env)
		if err != nil {
			t.Fatalf("SnapshotItems: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("len(items) = %d", len(items))
		}
		got, err := DecodeSnapshot[bool](env)
		if err != nil || len(got) != 2 || !got[0] || got[1] {
			t.Errorf("DecodeSnapshot = %v, %v", got, err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		ok   bool
	}{
		{"subscribe", Envelope{Kind: KindSubscribe, Topic: "qp"}, true},
		{"zero kind", Envelope{Topic: "qp"}, false},
		{"unknown kind", Envelope{Kind: 9, Topic: "qp"}, false},
		{"empty topic", Envelope{Kind: KindSubscribe}, false},
		{"update without payload", Envelope{Kind: KindUpdate, Topic: "qp"}, false},
		{"subscribe with payload", Envelope{Kind: KindSubscribe, Topic: "qp", Payload: []byte{0xf5}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.env.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidEnvelope) {
				t.Errorf("error = %v, want ErrInvalidEnvelope", err)
			}
		})
	}
}

func TestDecodeEnvelopeGarbage(t *testing.T) {
	if _, err := DecodeEnvelope([]byte{0xff, 0x00}); !errors.Is(err, ErrInvalidEnvelope) {
		t.Errorf("error = %v, want ErrInvalidEnvelope", err)
	}
}

func TestPeekTopic(t *testing.T) {
	env, _ := NewFire("qp", models.QuotingParameters{Width: 1})
	data, err := EncodeEnvelope(env)
	if err != nil {
		t.Fatalf("EncodeEnvelope: %v", err)
	}

	kind, topic, err := PeekTopic(data)
	if err != nil {
		t.Fatalf("PeekTopic: %v", err)
	}
	if kind != KindFire || topic != "qp" {
		t.Errorf("PeekTopic = %v, %q", kind, topic)
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		KindSubscribe: "Subscribe",
		KindSnapshot:  "Snapshot",
		KindUpdate:    "Update",
		KindFire:      "Fire",
		Kind(0):       "Unknown",
	} {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
