// Command tribeca-console is an operator console for a tribeca quoting
// engine.
//
// It keeps one connection to the authority, binds the quoting panel of a
// single exchange and currency pair, and lets the operator inspect and
// edit it from an interactive prompt.
//
// Usage:
//
//	tribeca-console [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-server string        Authority WebSocket URL
//	-transport string     Transport: websocket or mqtt
//	-broker string        MQTT broker URL (mqtt transport)
//	-discover             Browse for the authority via mDNS
//	-exchange string      Exchange shown on the panel (default "Coinbase")
//	-pair string          Currency pair shown on the panel (default "BTC/USD")
//	-log-level string     Log level: debug, info, warn, error
//	-protocol-log string  Write a protocol capture to this file
//	-interactive          Enable interactive command mode (default true)
//	-state-dir string     Directory for state kept between runs
//	-reset                Clear persisted state before starting
//
// Examples:
//
//	# Connect to a local authority
//	tribeca-console -server ws://localhost:3000/ws
//
//	# Find the authority on the LAN and capture the session
//	tribeca-console -discover -protocol-log session.mlog
//
//	# Go through an MQTT broker
//	tribeca-console -transport mqtt -broker tcp://broker:1883
//
//	# Remember the authority, panel and watches between runs
//	tribeca-console -discover -state-dir ~/.tribeca
//
// Interactive Commands:
//
//	status              - Show connection and quoting state
//	show [qp|ss]        - Show parameter forms
//	active on|off       - Turn quoting on or off
//	qp key=value ...    - Edit quoting parameters
//	submit qp|ss        - Send edits to the authority
//	watch <topic>       - Print a stream
//	quit                - Exit the console
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tribeca/tribeca-go/cmd/tribeca-console/interactive"
	"github.com/tribeca/tribeca-go/pkg/config"
	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/discovery"
	"github.com/tribeca/tribeca-go/pkg/eventloop"
	protolog "github.com/tribeca/tribeca-go/pkg/log"
	"github.com/tribeca/tribeca-go/pkg/messaging"
	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/pair"
	"github.com/tribeca/tribeca-go/pkg/persistence"
	"github.com/tribeca/tribeca-go/pkg/topic"
	"github.com/tribeca/tribeca-go/pkg/transport"
)

// Command-line flags. Empty values leave the config file setting alone.
var (
	configFile      string
	server          string
	transportID     string
	broker          string
	discover        bool
	exchange        string
	pairName        string
	logLevel        string
	protocolLog     string
	interactiveMode bool
	stateDir        string
	resetState      bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&server, "server", "", "Authority WebSocket URL")
	flag.StringVar(&transportID, "transport", "", "Transport: websocket or mqtt")
	flag.StringVar(&broker, "broker", "", "MQTT broker URL")
	flag.BoolVar(&discover, "discover", false, "Browse for the authority via mDNS")
	flag.StringVar(&exchange, "exchange", "Coinbase", "Exchange shown on the panel")
	flag.StringVar(&pairName, "pair", "BTC/USD", "Currency pair shown on the panel")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&protocolLog, "protocol-log", "", "Write a protocol capture to this file")
	flag.BoolVar(&interactiveMode, "interactive", true, "Enable interactive command mode")
	flag.StringVar(&stateDir, "state-dir", "", "Directory for state kept between runs")
	flag.BoolVar(&resetState, "reset", false, "Clear persisted state before starting")
}

func main() {
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, saved := loadState()
	restorePanel(saved)

	ex, ok := models.ParseExchange(exchange)
	if !ok {
		log.Fatalf("Unknown exchange: %s", exchange)
	}
	cp, err := models.ParseCurrencyPair(pairName)
	if err != nil {
		log.Fatalf("Invalid pair: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(stdLogWriter{}, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var instance string
	if cfg.Transport == config.TransportWebSocket && cfg.Discovery.Enabled && cfg.Server == "" {
		log.Printf("Browsing for %s (timeout %s)...", discovery.ServiceType, cfg.Discovery.Timeout)
		svc, err := discoverAuthority(ctx, cfg)
		switch {
		case err == nil:
			cfg.Server, instance = svc.URL(), svc.InstanceName
		case saved != nil && saved.Authority.URL != "":
			log.Printf("Discovery failed (%v), using last authority %s", err, saved.Authority.URL)
			cfg.Server, instance = saved.Authority.URL, saved.Authority.InstanceName
		default:
			log.Fatalf("Discovery failed: %v", err)
		}
	}

	protocol, closeProtocol, err := setupProtocolLog(cfg.Log.Protocol, logger)
	if err != nil {
		log.Fatalf("Failed to open protocol log: %v", err)
	}
	defer closeProtocol()

	dialer, endpoint := newDialer(cfg, logger, protocol)

	loop := eventloop.New(eventloop.Config{Capacity: cfg.LoopCapacity, Logger: logger})
	mgr := connection.NewManager(dialer, loop, connection.ManagerConfig{
		Backoff:        cfg.Backoff,
		Logger:         logger,
		ProtocolLogger: protocol,
	})
	bus := messaging.NewBus(loop, mgr.Monitor(), mgr, messaging.BusConfig{
		Registry:       topic.Default(),
		Logger:         logger,
		ProtocolLogger: protocol,
	})
	subs := messaging.NewSubscriberFactory(bus)
	fires := messaging.NewFireFactory(bus)

	var opts []pair.Option
	var panel *pair.Panel
	if !interactiveMode {
		opts = append(opts, pair.WithOnChange(func() {
			log.Printf("[PANEL] %s", interactive.Summary(panel))
		}))
	}
	// The loop is not running yet, so the panel can be bound here.
	panel = pair.New(ctx, ex, cp, subs, fires, opts...)

	var lastConnected time.Time
	mgr.Monitor().OnConnect(func() { lastConnected = time.Now() })

	log.Println("Tribeca Console")
	log.Println("===============")
	log.Printf("Authority: %s (%s)", endpoint, cfg.Transport)
	log.Printf("Panel: %s %s", ex, cp)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()
	go func() {
		if err := mgr.Run(ctx, bus.Deliver); err != nil && ctx.Err() == nil {
			log.Printf("Connection manager stopped: %v", err)
			cancel()
		}
	}()

	var ic *interactive.Console
	if interactiveMode {
		ic, err = interactive.New(interactive.Config{
			Panel:       panel,
			Subscribers: subs,
			Monitor:     mgr.Monitor(),
			Call: func(fn func()) error {
				return loop.Call(ctx, fn)
			},
			Scope:    ctx,
			Endpoint: endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to start interactive mode: %v", err)
		}
		log.SetOutput(ic.Stdout())
		if saved != nil {
			for _, name := range saved.Watches {
				ic.Execute("watch " + name)
			}
		}
		go ic.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	_ = loop.Call(context.Background(), panel.Dispose)
	cancel()
	<-loopDone

	if store != nil {
		state := &persistence.ConsoleState{
			Exchange: ex.String(),
			Pair:     cp.String(),
		}
		if saved != nil {
			state.Authority = saved.Authority
		}
		if !lastConnected.IsZero() && cfg.Transport == config.TransportWebSocket {
			state.Authority = persistence.AuthorityRecord{
				URL:           cfg.Server,
				InstanceName:  instance,
				LastConnected: lastConnected,
			}
		}
		if ic != nil {
			state.Watches = ic.Watching()
		}
		if err := store.Save(state); err != nil {
			log.Printf("Failed to save state: %v", err)
		}
	}
	log.Println("Goodbye!")
}

// loadState opens the state store when -state-dir is set. The returned
// state is nil on first run.
func loadState() (*persistence.StateStore, *persistence.ConsoleState) {
	if stateDir == "" {
		return nil, nil
	}
	store := persistence.NewStateStoreInDir(stateDir)
	if resetState {
		if err := store.Clear(); err != nil {
			log.Fatalf("Failed to clear state: %v", err)
		}
		log.Println("Persisted state cleared")
		return store, nil
	}

	state, err := store.Load()
	if err != nil {
		log.Printf("Warning: ignoring unreadable state file %s: %v", store.Path(), err)
		return store, nil
	}
	return store, state
}

// restorePanel selects the saved panel unless -exchange or -pair were
// given.
func restorePanel(saved *persistence.ConsoleState) {
	if saved == nil {
		return
	}
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["exchange"] && saved.Exchange != "" {
		exchange = saved.Exchange
	}
	if !set["pair"] && saved.Pair != "" {
		pairName = saved.Pair
	}
}

// loadConfig reads the config file (or defaults) and applies the flags
// that were set on the command line.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, err
		}
	}
	applyFlags(cfg)
	return cfg, cfg.Validate()
}

func applyFlags(cfg *config.Config) {
	if server != "" {
		cfg.Server = server
	}
	if transportID != "" {
		cfg.Transport = transportID
	}
	if broker != "" {
		cfg.MQTT.Broker = broker
	}
	if discover {
		cfg.Discovery.Enabled = true
		if server == "" {
			cfg.Server = ""
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if protocolLog != "" {
		cfg.Log.Protocol = protocolLog
	}
}

func discoverAuthority(ctx context.Context, cfg *config.Config) (*discovery.Service, error) {
	browser := discovery.NewBrowser(discovery.BrowserConfig{Timeout: cfg.Discovery.Timeout})
	svc, err := browser.Find(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Found authority %q at %s", svc.InstanceName, svc.URL())
	return svc, nil
}

// setupProtocolLog returns the protocol logger for the session: debug
// slog output always, plus a capture file when path is set.
func setupProtocolLog(path string, logger *slog.Logger) (protolog.Logger, func(), error) {
	adapter := protolog.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}

	file, err := protolog.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Protocol capture: %s", path)
	return protolog.NewMultiLogger(adapter, file), func() {
		if err := file.Close(); err != nil {
			log.Printf("Error closing protocol log: %v", err)
		}
	}, nil
}

// newDialer builds the transport for cfg and names its endpoint.
func newDialer(cfg *config.Config, logger *slog.Logger, protocol protolog.Logger) (transport.Dialer, string) {
	if cfg.Transport == config.TransportMQTT {
		d := transport.NewMQTTDialer(transport.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Prefix:   cfg.MQTT.Prefix,
		})
		d.Logger = logger
		d.ProtocolLogger = protocol
		return d, cfg.MQTT.Broker
	}

	d := transport.NewWebSocketDialer(transport.WebSocketConfig{
		URL:       cfg.Server,
		KeepAlive: cfg.KeepAlive,
	})
	d.Logger = logger
	d.ProtocolLogger = protocol
	return d, cfg.Server
}

// stdLogWriter forwards slog output to the standard logger's current
// writer, so log.SetOutput redirects both.
type stdLogWriter struct{}

func (stdLogWriter) Write(p []byte) (int, error) {
	return log.Writer().Write(p)
}
