// Package pair assembles the operator panel for one exchange and currency
// pair: exchange connectivity, the quoting on/off toggle and the two
// parameter forms.
package pair

import (
	"context"

	"github.com/tribeca/tribeca-go/pkg/form"
	"github.com/tribeca/tribeca-go/pkg/messaging"
	"github.com/tribeca/tribeca-go/pkg/models"
	"github.com/tribeca/tribeca-go/pkg/topic"
)

// Panel is the bound state of one trading pair. It must be created, used
// and disposed on the event loop.
type Panel struct {
	Exchange models.Exchange
	Pair     models.CurrencyPair

	// Active turns quoting on and off.
	Active *form.Toggle

	QuotingParameters *form.Model[models.QuotingParameters]
	SafetySettings    *form.Model[models.SafetySettings]

	connected    bool
	connectivity *messaging.Subscriber[models.ConnectivityStatus]

	cancel context.CancelFunc
}

// Option configures a Panel.
type Option func(*panelOptions)

type panelOptions struct {
	onChange func()
}

// WithOnChange registers fn to run after any part of the panel changes.
func WithOnChange(fn func()) Option {
	return func(o *panelOptions) { o.onChange = fn }
}

// New binds a panel for exchange and pair. The panel lives until Dispose
// is called or parent ends.
func New(parent context.Context, exchange models.Exchange, pair models.CurrencyPair,
	subs *messaging.SubscriberFactory, fires *messaging.FireFactory, opts ...Option) *Panel {

	var o panelOptions
	for _, opt := range opts {
		opt(&o)
	}
	changed := func() {
		if o.onChange != nil {
			o.onChange()
		}
	}

	scope, cancel := context.WithCancel(parent)
	p := &Panel{
		Exchange: exchange,
		Pair:     pair,
		cancel:   cancel,
	}

	setStatus := func(cs models.ConnectivityStatus) {
		p.connected = cs == models.ConnectivityConnected
		changed()
	}
	p.connectivity = messaging.GetSubscriber(subs, scope, topic.ExchangeConnectivity).
		RegisterSubscriber(setStatus, func(all []models.ConnectivityStatus) {
			for _, cs := range all {
				setStatus(cs)
			}
		})

	p.Active = form.NewToggle(
		messaging.GetSubscriber(subs, scope, topic.ActiveChange),
		messaging.GetFire(fires, topic.ActiveChange),
		form.WithOnChange[bool](changed),
	)

	p.QuotingParameters = form.New(models.QuotingParameters{},
		messaging.GetSubscriber(subs, scope, topic.QuotingParametersChange),
		messaging.GetFire(fires, topic.QuotingParametersChange),
		form.WithOnChange[models.QuotingParameters](changed),
	)

	p.SafetySettings = form.New(models.SafetySettings{},
		messaging.GetSubscriber(subs, scope, topic.SafetySettings),
		messaging.GetFire(fires, topic.SafetySettings),
		form.WithOnChange[models.SafetySettings](changed),
	)

	return p
}

// Name returns the pair in BASE/QUOTE form.
func (p *Panel) Name() string {
	return p.Pair.String()
}

// ExchangeName returns the exchange's display name.
func (p *Panel) ExchangeName() string {
	return p.Exchange.String()
}

// Connected reports whether the gateway is connected to the exchange, as
// last reported by the authority.
func (p *Panel) Connected() bool {
	return p.connected
}

// QuotingModeOptions lists the selectable quoting modes.
func (p *Panel) QuotingModeOptions() []models.Option[models.QuotingMode] {
	return models.QuotingModeOptions
}

// FairValueModelOptions lists the selectable fair value models.
func (p *Panel) FairValueModelOptions() []models.Option[models.FairValueModel] {
	return models.FairValueModelOptions
}

// UpdateParameters applies qp to the quoting parameters form as if the
// authority had sent it.
func (p *Panel) UpdateParameters(qp models.QuotingParameters) {
	p.QuotingParameters.Update(qp)
}

// Dispose tears down every handle the panel holds.
func (p *Panel) Dispose() {
	p.connectivity.Disconnect()
	p.Active.Dispose()
	p.QuotingParameters.Dispose()
	p.SafetySettings.Dispose()
	p.cancel()
}
