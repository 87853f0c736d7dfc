package main

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribeca/tribeca-go/internal/authority"
	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

var btcusd = models.CurrencyPair{Base: models.CurrencyBTC, Quote: models.CurrencyUSD}

func TestMarketStepKeepsBookOrdered(t *testing.T) {
	m := newMarket(42, models.ExchangeCoinbase, btcusd, 100)
	now := time.Now()

	for i := 0; i < 100; i++ {
		book := m.step(now)
		require.Len(t, book.Bids, depth)
		require.Len(t, book.Asks, depth)

		bid, _ := book.BestBid()
		ask, _ := book.BestAsk()
		assert.Less(t, bid.Price, ask.Price)
		for j := 1; j < depth; j++ {
			assert.Less(t, book.Bids[j].Price, book.Bids[j-1].Price)
			assert.Greater(t, book.Asks[j].Price, book.Asks[j-1].Price)
		}
		assert.Positive(t, bid.Price)
	}
}

func TestMarketIsDeterministicPerSeed(t *testing.T) {
	now := time.Now()
	a := newMarket(7, models.ExchangeNull, btcusd, 50)
	b := newMarket(7, models.ExchangeNull, btcusd, 50)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.step(now), b.step(now))
	}
}

func TestFairValue(t *testing.T) {
	book := models.MarketUpdate{
		Bids: []models.MarketSide{{Price: 99, Size: 3}},
		Asks: []models.MarketSide{{Price: 101, Size: 1}},
	}

	fv, ok := fairValue(book, models.FairValueModelBBO)
	require.True(t, ok)
	assert.InDelta(t, 100, fv.Price, 1e-9)

	// Heavier bid pulls the weighted price towards the ask.
	fv, ok = fairValue(book, models.FairValueModelWBBO)
	require.True(t, ok)
	assert.InDelta(t, 100.5, fv.Price, 1e-9)

	_, ok = fairValue(models.MarketUpdate{}, models.FairValueModelBBO)
	assert.False(t, ok)
}

func TestQuote(t *testing.T) {
	book := models.MarketUpdate{
		Bids: []models.MarketSide{{Price: 99, Size: 1}},
		Asks: []models.MarketSide{{Price: 101, Size: 1}},
	}
	fv := models.FairValue{Price: 100}

	q := quote(fv, book, models.QuotingParameters{})
	assert.Nil(t, q.Bid)
	assert.Nil(t, q.Ask)

	q = quote(fv, book, models.QuotingParameters{Width: 1, Size: 2, Mode: models.QuotingModeMid})
	require.NotNil(t, q.Bid)
	assert.Equal(t, models.Quote{Price: 99.5, Size: 2}, *q.Bid)
	assert.Equal(t, models.Quote{Price: 100.5, Size: 2}, *q.Ask)

	q = quote(fv, book, models.QuotingParameters{Width: 1, Size: 2, Mode: models.QuotingModeJoin})
	assert.Equal(t, 99.0, q.Bid.Price)
	assert.Equal(t, 101.0, q.Ask.Price)
}

func TestSideStatus(t *testing.T) {
	a := &models.Quote{Price: 1, Size: 1}
	b := &models.Quote{Price: 2, Size: 1}

	assert.Equal(t, models.QuoteSentFirst, sideStatus(nil, a))
	assert.Equal(t, models.QuoteSentModify, sideStatus(a, b))
	assert.Equal(t, models.QuoteSentUnsentDuplicate, sideStatus(a, &models.Quote{Price: 1, Size: 1}))
	assert.Equal(t, models.QuoteSentDelete, sideStatus(a, nil))
	assert.Equal(t, models.QuoteSentUnsentDelete, sideStatus(nil, nil))
}

func TestValidateFire(t *testing.T) {
	ok, err := wire.Marshal(models.QuotingParameters{Width: 1, Size: 1})
	require.NoError(t, err)
	out, err := validateFire(topic.QuotingParametersChange.Name(), ok)
	require.NoError(t, err)
	assert.Equal(t, []byte(ok), []byte(out))

	bad, err := wire.Marshal(models.QuotingParameters{Width: -1})
	require.NoError(t, err)
	_, err = validateFire(topic.QuotingParametersChange.Name(), bad)
	assert.ErrorIs(t, err, authority.ErrRejected)

	nan, err := wire.Marshal(models.QuotingParameters{Width: math.NaN(), Size: 1})
	require.NoError(t, err)
	_, err = validateFire(topic.QuotingParametersChange.Name(), nan)
	assert.ErrorIs(t, err, authority.ErrRejected)

	neg, err := wire.Marshal(models.SafetySettings{MaxPosition: -2})
	require.NoError(t, err)
	_, err = validateFire(topic.SafetySettings.Name(), neg)
	assert.ErrorIs(t, err, authority.ErrRejected)

	md, err := wire.Marshal(models.MarketUpdate{})
	require.NoError(t, err)
	_, err = validateFire(topic.MarketData.Name(), md)
	assert.ErrorIs(t, err, authority.ErrRejected)
}

func TestTickPublishes(t *testing.T) {
	auth := authority.New(authority.Config{})
	require.NoError(t, seedTopics(auth))
	m := newMarket(1, models.ExchangeCoinbase, btcusd, 100)
	now := time.Now()

	live := tick(auth, m, models.TwoSidedQuote{}, now)
	assert.Nil(t, live.Bid, "quoting is off after seeding")

	for _, name := range []string{"md", "fv", "q", "qs"} {
		assert.Len(t, auth.Values(name), 1, name)
	}

	require.NoError(t, auth.Publish(topic.ActiveChange.Name(), true))
	live = tick(auth, m, live, now)
	require.NotNil(t, live.Bid)

	status, ok := latest[models.TwoSidedQuoteStatus](auth, topic.QuoteStatus.Name())
	require.True(t, ok)
	assert.Equal(t, models.QuoteSentFirst, status.BidStatus)
}
