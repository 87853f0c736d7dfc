package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/tribeca/tribeca-go/pkg/models"
)

// depth is the number of book levels per side.
const depth = 3

// market is a random-walk order book for one pair.
type market struct {
	rng  *rand.Rand
	pair models.CurrencyPair
	exch models.Exchange
	mid  float64
	tick float64

	trades int
}

func newMarket(seed uint64, exch models.Exchange, pair models.CurrencyPair, mid float64) *market {
	return &market{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		pair: pair,
		exch: exch,
		mid:  mid,
		tick: 0.01,
	}
}

// step moves the mid by up to five ticks and returns the new book.
func (m *market) step(now time.Time) models.MarketUpdate {
	m.mid += float64(m.rng.IntN(11)-5) * m.tick
	if m.mid < 10*m.tick {
		m.mid = 10 * m.tick
	}

	book := models.MarketUpdate{Time: now}
	for i := 1; i <= depth; i++ {
		book.Bids = append(book.Bids, models.MarketSide{Price: m.round(m.mid - float64(i)*m.tick), Size: m.size()})
		book.Asks = append(book.Asks, models.MarketSide{Price: m.round(m.mid + float64(i)*m.tick), Size: m.size()})
	}
	return book
}

// fairValue derives the fair price from book according to model.
func fairValue(book models.MarketUpdate, model models.FairValueModel) (models.FairValue, bool) {
	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return models.FairValue{}, false
	}

	price := (bid.Price + ask.Price) / 2
	if model == models.FairValueModelWBBO && bid.Size+ask.Size > 0 {
		price = (bid.Price*ask.Size + ask.Price*bid.Size) / (bid.Size + ask.Size)
	}
	return models.FairValue{Price: price, Time: book.Time}, true
}

// quote places a two-sided quote around fv according to qp. Zero width or
// size means the engine is not configured and quotes nothing.
func quote(fv models.FairValue, book models.MarketUpdate, qp models.QuotingParameters) models.TwoSidedQuote {
	q := models.TwoSidedQuote{Time: fv.Time}
	if qp.Width <= 0 || qp.Size <= 0 {
		return q
	}

	half := qp.Width / 2
	bidPx, askPx := fv.Price-half, fv.Price+half

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()
	switch qp.Mode {
	case models.QuotingModeJoin:
		if okBid && okAsk {
			bidPx, askPx = bid.Price, ask.Price
		}
	case models.QuotingModeTop:
		if okBid && okAsk && ask.Price-bid.Price > 0.02 {
			bidPx, askPx = bid.Price+0.01, ask.Price-0.01
		}
	case models.QuotingModeInverseJoin:
		if okBid && okAsk {
			bidPx, askPx = bid.Price-half, ask.Price+half
		}
	}

	q.Bid = &models.Quote{Price: bidPx, Size: qp.Size}
	q.Ask = &models.Quote{Price: askPx, Size: qp.Size}
	return q
}

// fill returns a trade against q with probability p.
func (m *market) fill(q models.TwoSidedQuote, p float64, now time.Time) (models.Trade, bool) {
	if q.Bid == nil || q.Ask == nil || m.rng.Float64() >= p {
		return models.Trade{}, false
	}

	side, px := models.SideBid, q.Bid.Price
	if m.rng.IntN(2) == 1 {
		side, px = models.SideAsk, q.Ask.Price
	}
	qty := q.Bid.Size
	m.trades++
	return models.Trade{
		TradeID:  fmt.Sprintf("sim-%d", m.trades),
		Time:     now,
		Exchange: m.exch,
		Pair:     m.pair,
		Price:    px,
		Quantity: qty,
		Side:     side,
		Value:    px * qty,
	}, true
}

func (m *market) size() float64 {
	return m.round(0.1 + m.rng.Float64()*2)
}

func (m *market) round(v float64) float64 {
	return math.Round(v/m.tick) * m.tick
}

// sideStatus reports what sending next means given the live quote prev.
func sideStatus(prev, next *models.Quote) models.QuoteSent {
	switch {
	case next == nil && prev == nil:
		return models.QuoteSentUnsentDelete
	case next == nil:
		return models.QuoteSentDelete
	case prev == nil:
		return models.QuoteSentFirst
	case *prev == *next:
		return models.QuoteSentUnsentDuplicate
	default:
		return models.QuoteSentModify
	}
}
