// Package interactive provides the command prompt of tribeca-console.
//
// Commands run on the readline goroutine; everything that touches the
// panel or the bus is handed to the event loop through Config.Call.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/tribeca/tribeca-go/pkg/connection"
	"github.com/tribeca/tribeca-go/pkg/form"
	"github.com/tribeca/tribeca-go/pkg/messaging"
	"github.com/tribeca/tribeca-go/pkg/pair"
	"github.com/tribeca/tribeca-go/pkg/topic"
)

// Config wires a Console to a running client.
type Config struct {
	Panel       *pair.Panel
	Subscribers *messaging.SubscriberFactory
	Monitor     *connection.Monitor

	// Call runs fn on the event loop and waits for it to return.
	Call func(fn func()) error

	// Scope bounds the handles created by watch.
	Scope context.Context

	// Endpoint is shown by status, e.g. the authority URL.
	Endpoint string
}

// Console handles interactive mode for tribeca-console.
type Console struct {
	cfg Config
	rl  *readline.Instance
	out io.Writer

	mu sync.Mutex

	// Topic name -> teardown of its watch handle
	watches map[string]func()
}

// New creates a console reading commands from the terminal.
func New(cfg Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "tribeca> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(rl.Stdout(), cfg)
	c.rl = rl
	return c, nil
}

func newConsole(out io.Writer, cfg Config) *Console {
	if cfg.Scope == nil {
		cfg.Scope = context.Background()
	}
	return &Console{
		cfg:     cfg,
		out:     out,
		watches: make(map[string]func()),
	}
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads and executes commands until quit, EOF or ctx ends. cancel is
// called when the operator leaves.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if c.Execute(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether it asked to quit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "status", "st":
		c.cmdStatus()

	case "show":
		c.cmdShow(args)

	case "active", "a":
		c.cmdActive(args)

	case "qp":
		c.cmdQuoting(args)

	case "ss":
		c.cmdSafety(args)

	case "submit":
		c.cmdSubmit(args)

	case "reset":
		c.cmdReset(args)

	case "watch", "w":
		c.cmdWatch(args)

	case "unwatch":
		c.cmdUnwatch(args)

	case "quit", "exit", "q":
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Tribeca Console Commands:
  Overview:
    status                 - Show connection and quoting state
    show [qp|ss]           - Show parameter forms (master and edited values)

  Quoting:
    active [on|off|toggle] - Show or change the quoting toggle
    qp key=value ...       - Edit quoting parameters (width, size, mode, fv)
    ss key=value ...       - Edit safety settings (tpm, cooloff, maxpos)
    submit qp|ss           - Send the edited form to the authority
    reset qp|ss            - Discard edits

  Streams:
    watch <topic>          - Print a stream (fv, md, q, qs, t, m)
    unwatch [topic]        - Stop printing a stream (all if omitted)

  General:
    help                   - Show this help
    quit                   - Exit console`)
}

// onLoop runs fn on the event loop and reports failures.
func (c *Console) onLoop(fn func()) bool {
	if err := c.cfg.Call(fn); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return false
	}
	return true
}

func (c *Console) cmdStatus() {
	p := c.cfg.Panel
	c.onLoop(func() {
		state := c.cfg.Monitor.State()
		fmt.Fprintf(c.out, "Authority: %s", state)
		if c.cfg.Endpoint != "" {
			fmt.Fprintf(c.out, " (%s)", c.cfg.Endpoint)
		}
		fmt.Fprintln(c.out)

		gateway := "disconnected"
		if p.Connected() {
			gateway = "connected"
		}
		fmt.Fprintf(c.out, "Market:    %s %s, gateway %s\n", p.ExchangeName(), p.Name(), gateway)
		fmt.Fprintf(c.out, "Quoting:   %s\n", p.Active.State())
		fmt.Fprintf(c.out, "Watching:  %s\n", c.watchList())
	})
}

func (c *Console) cmdShow(args []string) {
	which := ""
	if len(args) > 0 {
		which = strings.ToLower(args[0])
	}
	p := c.cfg.Panel
	c.onLoop(func() {
		if which == "" || which == "qp" {
			fmt.Fprintln(c.out, formatForm("qp", p.QuotingParameters, formatQuotingParameters))
		}
		if which == "" || which == "ss" {
			fmt.Fprintln(c.out, formatForm("ss", p.SafetySettings, formatSafetySettings))
		}
		if which != "" && which != "qp" && which != "ss" {
			fmt.Fprintf(c.out, "Unknown form: %s (use qp or ss)\n", which)
		}
	})
}

func (c *Console) cmdActive(args []string) {
	toggle := c.cfg.Panel.Active
	if len(args) == 0 {
		c.onLoop(func() {
			fmt.Fprintf(c.out, "Quoting: %s\n", toggle.State())
		})
		return
	}

	var want form.ToggleState
	switch strings.ToLower(args[0]) {
	case "on":
		want = form.ToggleStateOn
	case "off":
		want = form.ToggleStateOff
	case "toggle", "t":
		want = form.ToggleStatePending
	default:
		fmt.Fprintln(c.out, "Usage: active [on|off|toggle]")
		return
	}

	c.onLoop(func() {
		if want != form.ToggleStatePending && toggle.State() == want {
			fmt.Fprintf(c.out, "Quoting already %s\n", want)
			return
		}
		if err := toggle.Submit(); err != nil {
			c.printSubmitError(err)
			return
		}
		fmt.Fprintf(c.out, "Quoting: %s\n", toggle.State())
	})
}

func (c *Console) cmdQuoting(args []string) {
	edit, err := parseQuotingEdits(args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	m := c.cfg.Panel.QuotingParameters
	c.onLoop(func() {
		m.Edit(edit)
		fmt.Fprintln(c.out, formatForm("qp", m, formatQuotingParameters))
	})
}

func (c *Console) cmdSafety(args []string) {
	edit, err := parseSafetyEdits(args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	m := c.cfg.Panel.SafetySettings
	c.onLoop(func() {
		m.Edit(edit)
		fmt.Fprintln(c.out, formatForm("ss", m, formatSafetySettings))
	})
}

// formAction is the subset of form.Model the submit and reset commands
// need.
type formAction struct {
	submit func() error
	reset  func()
}

func (c *Console) form(args []string, usage string) (formAction, bool) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "Usage: %s qp|ss\n", usage)
		return formAction{}, false
	}
	p := c.cfg.Panel
	switch strings.ToLower(args[0]) {
	case "qp":
		return formAction{p.QuotingParameters.Submit, p.QuotingParameters.Reset}, true
	case "ss":
		return formAction{p.SafetySettings.Submit, p.SafetySettings.Reset}, true
	default:
		fmt.Fprintf(c.out, "Unknown form: %s (use qp or ss)\n", args[0])
		return formAction{}, false
	}
}

func (c *Console) cmdSubmit(args []string) {
	f, ok := c.form(args, "submit")
	if !ok {
		return
	}
	c.onLoop(func() {
		if err := f.submit(); err != nil {
			c.printSubmitError(err)
			return
		}
		fmt.Fprintln(c.out, "Submitted, waiting for confirmation")
	})
}

func (c *Console) cmdReset(args []string) {
	f, ok := c.form(args, "reset")
	if !ok {
		return
	}
	c.onLoop(func() {
		f.reset()
		fmt.Fprintln(c.out, "Edits discarded")
	})
}

func (c *Console) printSubmitError(err error) {
	if errors.Is(err, form.ErrNotConnected) {
		fmt.Fprintln(c.out, "Error: not connected to the authority, nothing sent")
		return
	}
	fmt.Fprintf(c.out, "Error: %v\n", err)
}

// watchers builds a printing subscriber per stream topic and returns its
// teardown.
var watchers = map[string]func(c *Console) func(){
	topic.FairValue.Name():   func(c *Console) func() { return watch(c, topic.FairValue, formatFairValue) },
	topic.MarketData.Name():  func(c *Console) func() { return watch(c, topic.MarketData, formatMarket) },
	topic.Quote.Name():       func(c *Console) func() { return watch(c, topic.Quote, formatQuote) },
	topic.QuoteStatus.Name(): func(c *Console) func() { return watch(c, topic.QuoteStatus, formatQuoteStatus) },
	topic.Trades.Name():      func(c *Console) func() { return watch(c, topic.Trades, formatTrade) },
	topic.Message.Name():     func(c *Console) func() { return watch(c, topic.Message, formatMessage) },
}

func watch[T any](c *Console, t topic.Topic[T], format func(T) string) func() {
	show := func(v T) {
		fmt.Fprintf(c.out, "[%s] %s\n", t.Name(), format(v))
	}
	sub := messaging.GetSubscriber(c.cfg.Subscribers, c.cfg.Scope, t).
		RegisterSubscriber(show, func(all []T) {
			for _, v := range all {
				show(v)
			}
		}).
		RegisterDisconnectedHandler(func() {
			fmt.Fprintf(c.out, "[%s] offline\n", t.Name())
		})
	return sub.Disconnect
}

func (c *Console) cmdWatch(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: watch fv|md|q|qs|t|m")
		return
	}
	name := strings.ToLower(args[0])
	start, ok := watchers[name]
	if !ok {
		fmt.Fprintf(c.out, "Unknown stream: %s (use fv, md, q, qs, t, m)\n", name)
		return
	}

	c.mu.Lock()
	_, exists := c.watches[name]
	c.mu.Unlock()
	if exists {
		fmt.Fprintf(c.out, "Already watching %s\n", name)
		return
	}

	var stop func()
	if c.onLoop(func() { stop = start(c) }) {
		c.mu.Lock()
		c.watches[name] = stop
		c.mu.Unlock()
		fmt.Fprintf(c.out, "Watching %s\n", name)
	}
}

func (c *Console) cmdUnwatch(args []string) {
	if len(args) == 0 {
		c.unwatchAll()
		return
	}
	name := strings.ToLower(args[0])

	c.mu.Lock()
	stop, ok := c.watches[name]
	delete(c.watches, name)
	c.mu.Unlock()

	if !ok {
		fmt.Fprintf(c.out, "Not watching %s\n", name)
		return
	}
	c.onLoop(stop)
}

func (c *Console) unwatchAll() {
	c.mu.Lock()
	stops := make([]func(), 0, len(c.watches))
	for name, stop := range c.watches {
		stops = append(stops, stop)
		delete(c.watches, name)
	}
	c.mu.Unlock()

	for _, stop := range stops {
		c.onLoop(stop)
	}
}

// Watching returns the watched stream topics in name order.
func (c *Console) Watching() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.watches))
	for name := range c.watches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Console) watchList() string {
	names := c.Watching()
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// Summary renders the panel in one line. It must run on the event loop.
func Summary(p *pair.Panel) string {
	qp := p.QuotingParameters.Master()
	return fmt.Sprintf("%s %s quoting=%s %s", p.ExchangeName(), p.Name(), p.Active.State(), formatQuotingParameters(qp))
}
