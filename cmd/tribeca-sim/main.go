// Command tribeca-sim runs a simulated trading authority for
// tribeca-console.
//
// It serves the topic protocol over WebSocket, advertises itself via mDNS
// and drives a random-walk market: order book, fair value, quotes and
// fills. Parameters fired by a console are validated and applied.
//
// Usage:
//
//	tribeca-sim [flags]
//
// Flags:
//
//	-listen string     Listen address (default ":3000")
//	-name string       mDNS instance name (default "tribeca-sim")
//	-no-advertise      Do not advertise via mDNS
//	-exchange string   Simulated exchange (default "Coinbase")
//	-pair string       Simulated pair (default "BTC/USD")
//	-mid float         Starting mid price (default 100)
//	-interval duration Market tick interval (default 1s)
//	-seed uint         Random seed (default: time based)
//	-log-level string  Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tribeca/tribeca-go/internal/authority"
	"github.com/tribeca/tribeca-go/pkg/config"
	"github.com/tribeca/tribeca-go/pkg/discovery"
	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/wire"
)

// Retained history for the list-like topics.
const (
	tradeHistory   = 50
	messageHistory = 20
)

var (
	listenAddr  string
	name        string
	noAdvertise bool
	exchange    string
	pairName    string
	startMid    float64
	interval    time.Duration
	seed        uint64
	logLevel    string
)

func init() {
	flag.StringVar(&listenAddr, "listen", ":3000", "Listen address")
	flag.StringVar(&name, "name", "tribeca-sim", "mDNS instance name")
	flag.BoolVar(&noAdvertise, "no-advertise", false, "Do not advertise via mDNS")
	flag.StringVar(&exchange, "exchange", "Coinbase", "Simulated exchange")
	flag.StringVar(&pairName, "pair", "BTC/USD", "Simulated pair")
	flag.Float64Var(&startMid, "mid", 100, "Starting mid price")
	flag.DurationVar(&interval, "interval", time.Second, "Market tick interval")
	flag.Uint64Var(&seed, "seed", 0, "Random seed (0: time based)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	level, err := config.ParseLevel(logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ex, ok := models.ParseExchange(exchange)
	if !ok {
		log.Fatalf("Unknown exchange: %s", exchange)
	}
	cp, err := models.ParseCurrencyPair(pairName)
	if err != nil {
		log.Fatalf("Invalid pair: %v", err)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	auth := authority.New(authority.Config{Logger: logger})
	auth.Retain(topic.Trades.Name(), tradeHistory)
	auth.Retain(topic.Message.Name(), messageHistory)
	auth.OnFire(validateFire)
	if err := seedTopics(auth); err != nil {
		log.Fatalf("Failed to seed topics: %v", err)
	}

	srv := authority.NewServer(auth, logger)
	if err := srv.Listen(listenAddr); err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	log.Println("Tribeca Simulated Authority")
	log.Println("===========================")
	log.Printf("Listening: ws://localhost:%d%s", srv.Port(), srv.Path)
	log.Printf("Market: %s %s from %.2f (seed %d)", ex, cp, startMid, seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !noAdvertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		info := &discovery.AuthorityInfo{
			Name:    name,
			Port:    uint16(srv.Port()),
			Path:    srv.Path,
			Version: discovery.ProtocolVersion,
		}
		if err := adv.Advertise(info); err != nil {
			log.Printf("Warning: mDNS advertisement failed: %v", err)
		} else {
			log.Printf("Advertising %s as %q", discovery.ServiceType, name)
			defer adv.Stop()
		}
	}

	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
			cancel()
		}
	}()

	go runMarket(ctx, auth, newMarket(seed, ex, cp, startMid))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	cancel()
	log.Println("Goodbye!")
}

func seedTopics(auth *authority.Authority) error {
	initial := []struct {
		topic string
		value any
	}{
		{topic.ExchangeConnectivity.Name(), models.ConnectivityConnected},
		{topic.ActiveChange.Name(), false},
		{topic.QuotingParametersChange.Name(), models.QuotingParameters{
			Width:   0.2,
			Size:    0.5,
			Mode:    models.QuotingModeTop,
			FvModel: models.FairValueModelBBO,
		}},
		{topic.SafetySettings.Name(), models.SafetySettings{
			TradesPerMinute: 4,
			CoolOffMinutes:  1,
			MaxPosition:     5,
		}},
		{topic.Message.Name(), models.Message{Text: "simulator started", Time: time.Now()}},
	}
	for _, s := range initial {
		if err := auth.Publish(s.topic, s.value); err != nil {
			return err
		}
	}
	return nil
}

// validateFire applies fired values, rejecting parameters the engine
// cannot run with.
func validateFire(name string, payload cbor.RawMessage) (cbor.RawMessage, error) {
	switch name {
	case topic.QuotingParametersChange.Name():
		var qp models.QuotingParameters
		if err := wire.Unmarshal(payload, &qp); err != nil {
			return nil, err
		}
		if !amount(qp.Width) || !amount(qp.Size) {
			return nil, fmt.Errorf("%w: width and size must be finite and not negative", authority.ErrRejected)
		}
	case topic.SafetySettings.Name():
		var ss models.SafetySettings
		if err := wire.Unmarshal(payload, &ss); err != nil {
			return nil, err
		}
		if !amount(ss.TradesPerMinute) || !amount(ss.CoolOffMinutes) || !amount(ss.MaxPosition) {
			return nil, fmt.Errorf("%w: safety settings must be finite and not negative", authority.ErrRejected)
		}
	case topic.ActiveChange.Name():
		var active bool
		if err := wire.Unmarshal(payload, &active); err != nil {
			return nil, err
		}
		log.Printf("[SIM] Quoting %s", map[bool]string{true: "enabled", false: "disabled"}[active])
	default:
		return nil, fmt.Errorf("%w: %s is read-only", authority.ErrRejected, name)
	}
	return payload, nil
}

// amount reports whether v is usable as a size, width or limit.
func amount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func runMarket(ctx context.Context, auth *authority.Authority, m *market) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var live models.TwoSidedQuote
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			live = tick(auth, m, live, now)
		}
	}
}

// tick advances the market one step and publishes everything that
// changed. It returns the quote now live.
func tick(auth *authority.Authority, m *market, live models.TwoSidedQuote, now time.Time) models.TwoSidedQuote {
	qp, _ := latest[models.QuotingParameters](auth, topic.QuotingParametersChange.Name())
	active, _ := latest[bool](auth, topic.ActiveChange.Name())

	book := m.step(now)
	publish(auth, topic.MarketData.Name(), book)

	fv, ok := fairValue(book, qp.FvModel)
	if !ok {
		return live
	}
	publish(auth, topic.FairValue.Name(), fv)

	next := models.TwoSidedQuote{Time: now}
	if active {
		next = quote(fv, book, qp)
	}
	publish(auth, topic.QuoteStatus.Name(), models.TwoSidedQuoteStatus{
		BidStatus: sideStatus(live.Bid, next.Bid),
		AskStatus: sideStatus(live.Ask, next.Ask),
	})
	publish(auth, topic.Quote.Name(), next)

	if trade, ok := m.fill(next, 0.2, now); ok {
		publish(auth, topic.Trades.Name(), trade)
		log.Printf("[SIM] Fill %s %g @ %.2f", trade.Side, trade.Quantity, trade.Price)
	}
	return next
}

// latest decodes the newest value stored on name.
func latest[T any](auth *authority.Authority, name string) (T, bool) {
	var v T
	values := auth.Values(name)
	if len(values) == 0 {
		return v, false
	}
	if err := wire.Unmarshal(values[len(values)-1], &v); err != nil {
		return v, false
	}
	return v, true
}

func publish(auth *authority.Authority, name string, v any) {
	if err := auth.Publish(name, v); err != nil {
		log.Printf("[SIM] Publish %s failed: %v", name, err)
	}
}
