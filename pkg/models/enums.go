package models

import "strings"

// Option is a selectable {label, value} pair for an enumerated type.
type Option[T any] struct {
	Label string
	Value T
}

// QuotingMode selects how the quoting engine positions its orders.
type QuotingMode uint8

const (
	// QuotingModeTop quotes one tick inside the best bid and offer.
	QuotingModeTop QuotingMode = 0

	// QuotingModeMid quotes symmetrically around the mid price.
	QuotingModeMid QuotingMode = 1

	// QuotingModeJoin joins the best bid and offer.
	QuotingModeJoin QuotingMode = 2

	// QuotingModeInverseJoin quotes outside the book by the configured width.
	QuotingModeInverseJoin QuotingMode = 3

	// QuotingModeInverseTop quotes one tick outside the best bid and offer.
	QuotingModeInverseTop QuotingMode = 4

	// QuotingModePingPong alternates sides after each fill.
	QuotingModePingPong QuotingMode = 5
)

// String returns the quoting mode name.
func (m QuotingMode) String() string {
	switch m {
	case QuotingModeTop:
		return "Top"
	case QuotingModeMid:
		return "Mid"
	case QuotingModeJoin:
		return "Join"
	case QuotingModeInverseJoin:
		return "InverseJoin"
	case QuotingModeInverseTop:
		return "InverseTop"
	case QuotingModePingPong:
		return "PingPong"
	default:
		return "Unknown"
	}
}

// QuotingModeOptions lists every quoting mode in declaration order.
var QuotingModeOptions = []Option[QuotingMode]{
	{Label: "Top", Value: QuotingModeTop},
	{Label: "Mid", Value: QuotingModeMid},
	{Label: "Join", Value: QuotingModeJoin},
	{Label: "InverseJoin", Value: QuotingModeInverseJoin},
	{Label: "InverseTop", Value: QuotingModeInverseTop},
	{Label: "PingPong", Value: QuotingModePingPong},
}

// FairValueModel selects how the fair value is derived from the book.
type FairValueModel uint8

const (
	// FairValueModelBBO uses the mid of the best bid and offer.
	FairValueModelBBO FairValueModel = 0

	// FairValueModelWBBO weights the best bid and offer by size.
	FairValueModelWBBO FairValueModel = 1
)

// String returns the fair value model name.
func (m FairValueModel) String() string {
	switch m {
	case FairValueModelBBO:
		return "BBO"
	case FairValueModelWBBO:
		return "wBBO"
	default:
		return "Unknown"
	}
}

// FairValueModelOptions lists every fair value model in declaration order.
var FairValueModelOptions = []Option[FairValueModel]{
	{Label: "BBO", Value: FairValueModelBBO},
	{Label: "wBBO", Value: FairValueModelWBBO},
}

// ConnectivityStatus reports whether a gateway is connected to its exchange.
type ConnectivityStatus uint8

const (
	ConnectivityDisconnected ConnectivityStatus = 0
	ConnectivityConnected    ConnectivityStatus = 1
)

// String returns the connectivity status name.
func (s ConnectivityStatus) String() string {
	switch s {
	case ConnectivityDisconnected:
		return "Disconnected"
	case ConnectivityConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// ConnectivityStatusOptions lists every connectivity status.
var ConnectivityStatusOptions = []Option[ConnectivityStatus]{
	{Label: "Disconnected", Value: ConnectivityDisconnected},
	{Label: "Connected", Value: ConnectivityConnected},
}

// Side is the side of the book an order or trade belongs to.
type Side uint8

const (
	SideBid     Side = 0
	SideAsk     Side = 1
	SideUnknown Side = 2
)

// String returns the side name.
func (s Side) String() string {
	switch s {
	case SideBid:
		return "Bid"
	case SideAsk:
		return "Ask"
	default:
		return "Unknown"
	}
}

// SideOptions lists the tradeable sides.
var SideOptions = []Option[Side]{
	{Label: "Bid", Value: SideBid},
	{Label: "Ask", Value: SideAsk},
}

// QuoteSent describes the outcome of the last quoting decision for one side.
type QuoteSent uint8

const (
	// QuoteSentFirst is the first quote sent on this side.
	QuoteSentFirst QuoteSent = 0

	// QuoteSentModify replaced a live quote.
	QuoteSentModify QuoteSent = 1

	// QuoteSentUnsentDuplicate skipped sending because nothing changed.
	QuoteSentUnsentDuplicate QuoteSent = 2

	// QuoteSentDelete cancelled the live quote.
	QuoteSentDelete QuoteSent = 3

	// QuoteSentUnsentDelete had nothing to cancel.
	QuoteSentUnsentDelete QuoteSent = 4

	// QuoteSentUnableToSend could not quote, e.g. the gateway is down.
	QuoteSentUnableToSend QuoteSent = 5
)

// String returns the quote outcome name.
func (q QuoteSent) String() string {
	switch q {
	case QuoteSentFirst:
		return "First"
	case QuoteSentModify:
		return "Modify"
	case QuoteSentUnsentDuplicate:
		return "UnsentDuplicate"
	case QuoteSentDelete:
		return "Delete"
	case QuoteSentUnsentDelete:
		return "UnsentDelete"
	case QuoteSentUnableToSend:
		return "UnableToSend"
	default:
		return "Unknown"
	}
}

// QuoteSentOptions lists every quote outcome.
var QuoteSentOptions = []Option[QuoteSent]{
	{Label: "First", Value: QuoteSentFirst},
	{Label: "Modify", Value: QuoteSentModify},
	{Label: "UnsentDuplicate", Value: QuoteSentUnsentDuplicate},
	{Label: "Delete", Value: QuoteSentDelete},
	{Label: "UnsentDelete", Value: QuoteSentUnsentDelete},
	{Label: "UnableToSend", Value: QuoteSentUnableToSend},
}

// Exchange identifies a trading venue.
type Exchange uint8

const (
	ExchangeNull     Exchange = 0
	ExchangeHitBtc   Exchange = 1
	ExchangeOkCoin   Exchange = 2
	ExchangeCoinbase Exchange = 3
	ExchangeBitfinex Exchange = 4
)

// String returns the exchange name.
func (e Exchange) String() string {
	switch e {
	case ExchangeNull:
		return "Null"
	case ExchangeHitBtc:
		return "HitBtc"
	case ExchangeOkCoin:
		return "OkCoin"
	case ExchangeCoinbase:
		return "Coinbase"
	case ExchangeBitfinex:
		return "Bitfinex"
	default:
		return "Unknown"
	}
}

// ExchangeOptions lists every supported exchange.
var ExchangeOptions = []Option[Exchange]{
	{Label: "Null", Value: ExchangeNull},
	{Label: "HitBtc", Value: ExchangeHitBtc},
	{Label: "OkCoin", Value: ExchangeOkCoin},
	{Label: "Coinbase", Value: ExchangeCoinbase},
	{Label: "Bitfinex", Value: ExchangeBitfinex},
}

// Currency is a tradeable asset.
type Currency uint8

const (
	CurrencyUSD Currency = 0
	CurrencyBTC Currency = 1
	CurrencyLTC Currency = 2
	CurrencyEUR Currency = 3
	CurrencyGBP Currency = 4
)

// String returns the ISO-style currency code.
func (c Currency) String() string {
	switch c {
	case CurrencyUSD:
		return "USD"
	case CurrencyBTC:
		return "BTC"
	case CurrencyLTC:
		return "LTC"
	case CurrencyEUR:
		return "EUR"
	case CurrencyGBP:
		return "GBP"
	default:
		return "???"
	}
}

// CurrencyOptions lists every supported currency.
var CurrencyOptions = []Option[Currency]{
	{Label: "USD", Value: CurrencyUSD},
	{Label: "BTC", Value: CurrencyBTC},
	{Label: "LTC", Value: CurrencyLTC},
	{Label: "EUR", Value: CurrencyEUR},
	{Label: "GBP", Value: CurrencyGBP},
}

// ParseQuotingMode looks a quoting mode up by its label, ignoring case.
func ParseQuotingMode(label string) (QuotingMode, bool) {
	return lookup(QuotingModeOptions, label)
}

// ParseFairValueModel looks a fair value model up by its label.
func ParseFairValueModel(label string) (FairValueModel, bool) {
	return lookup(FairValueModelOptions, label)
}

// ParseExchange looks an exchange up by its name, ignoring case.
func ParseExchange(label string) (Exchange, bool) {
	return lookup(ExchangeOptions, label)
}

// ParseCurrency looks a currency up by its code, ignoring case.
func ParseCurrency(label string) (Currency, bool) {
	return lookup(CurrencyOptions, label)
}

func lookup[T any](opts []Option[T], label string) (T, bool) {
	for _, o := range opts {
		if strings.EqualFold(o.Label, label) {
			return o.Value, true
		}
	}
	var zero T
	return zero, false
}
