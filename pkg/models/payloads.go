package models

import (
	"fmt"
	"strings"
	"time"
)

// CurrencyPair is a base/quote pair such as BTC/USD.
type CurrencyPair struct {
	Base  Currency `cbor:"1,keyasint"`
	Quote Currency `cbor:"2,keyasint"`
}

// String returns the pair in BASE/QUOTE form.
func (p CurrencyPair) String() string {
	return p.Base.String() + "/" + p.Quote.String()
}

// ParseCurrencyPair parses a pair written as BASE/QUOTE, e.g. "BTC/USD".
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	base, quote, ok := strings.Cut(s, "/")
	if !ok {
		return CurrencyPair{}, fmt.Errorf("invalid currency pair %q: want BASE/QUOTE", s)
	}
	b, ok := ParseCurrency(strings.TrimSpace(base))
	if !ok {
		return CurrencyPair{}, fmt.Errorf("unknown currency %q", base)
	}
	q, ok := ParseCurrency(strings.TrimSpace(quote))
	if !ok {
		return CurrencyPair{}, fmt.Errorf("unknown currency %q", quote)
	}
	return CurrencyPair{Base: b, Quote: q}, nil
}

// QuotingParameters configure the quoting engine. Zero values mean
// "not configured yet".
type QuotingParameters struct {
	Width   float64        `cbor:"1,keyasint"`
	Size    float64        `cbor:"2,keyasint"`
	Mode    QuotingMode    `cbor:"3,keyasint"`
	FvModel FairValueModel `cbor:"4,keyasint"`
}

// SafetySettings throttle the quoting engine after bursts of trades.
type SafetySettings struct {
	// TradesPerMinute is the fill rate above which quoting stops.
	TradesPerMinute float64 `cbor:"1,keyasint"`

	// CoolOffMinutes is how long quoting stays stopped.
	CoolOffMinutes float64 `cbor:"2,keyasint"`

	// MaxPosition caps the absolute base position.
	MaxPosition float64 `cbor:"3,keyasint"`
}

// MarketSide is one price level of an order book.
type MarketSide struct {
	Price float64 `cbor:"1,keyasint"`
	Size  float64 `cbor:"2,keyasint"`
}

// MarketUpdate is an order book snapshot for one exchange and pair.
type MarketUpdate struct {
	Bids []MarketSide `cbor:"1,keyasint"`
	Asks []MarketSide `cbor:"2,keyasint"`
	Time time.Time    `cbor:"3,keyasint"`
}

// Clone returns a deep copy of the update.
func (m MarketUpdate) Clone() MarketUpdate {
	out := MarketUpdate{Time: m.Time}
	if m.Bids != nil {
		out.Bids = append(make([]MarketSide, 0, len(m.Bids)), m.Bids...)
	}
	if m.Asks != nil {
		out.Asks = append(make([]MarketSide, 0, len(m.Asks)), m.Asks...)
	}
	return out
}

// BestBid returns the top bid level, if any.
func (m MarketUpdate) BestBid() (MarketSide, bool) {
	if len(m.Bids) == 0 {
		return MarketSide{}, false
	}
	return m.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (m MarketUpdate) BestAsk() (MarketSide, bool) {
	if len(m.Asks) == 0 {
		return MarketSide{}, false
	}
	return m.Asks[0], true
}

// Quote is one side of a two-sided quote.
type Quote struct {
	Price float64 `cbor:"1,keyasint"`
	Size  float64 `cbor:"2,keyasint"`
}

// TwoSidedQuote is the quote the engine currently wants in the market.
// A nil side means no quote on that side.
type TwoSidedQuote struct {
	Bid  *Quote    `cbor:"1,keyasint,omitempty"`
	Ask  *Quote    `cbor:"2,keyasint,omitempty"`
	Time time.Time `cbor:"3,keyasint"`
}

// Clone returns a deep copy of the quote.
func (q TwoSidedQuote) Clone() TwoSidedQuote {
	out := TwoSidedQuote{Time: q.Time}
	if q.Bid != nil {
		b := *q.Bid
		out.Bid = &b
	}
	if q.Ask != nil {
		a := *q.Ask
		out.Ask = &a
	}
	return out
}

// TwoSidedQuoteStatus reports what happened to the last quote per side.
type TwoSidedQuoteStatus struct {
	BidStatus QuoteSent `cbor:"1,keyasint"`
	AskStatus QuoteSent `cbor:"2,keyasint"`
}

// FairValue is the engine's current estimate of the fair price.
type FairValue struct {
	Price float64   `cbor:"1,keyasint"`
	Time  time.Time `cbor:"2,keyasint"`
}

// Trade is a fill reported by the exchange.
type Trade struct {
	TradeID  string       `cbor:"1,keyasint"`
	Time     time.Time    `cbor:"2,keyasint"`
	Exchange Exchange     `cbor:"3,keyasint"`
	Pair     CurrencyPair `cbor:"4,keyasint"`
	Price    float64      `cbor:"5,keyasint"`
	Quantity float64      `cbor:"6,keyasint"`
	Side     Side         `cbor:"7,keyasint"`
	Value    float64      `cbor:"8,keyasint"`
}

// Message is a free-text operator message.
type Message struct {
	Text string    `cbor:"1,keyasint"`
	Time time.Time `cbor:"2,keyasint"`
}
