package topic

import "github.com/tribeca/tribeca-go/pkg/models"

var defaultRegistry = NewRegistry()

// Trading topics. Names are the short identifiers used on the wire.
var (
	QuotingParametersChange = Register[models.QuotingParameters](defaultRegistry, "qp")
	SafetySettings          = Register[models.SafetySettings](defaultRegistry, "ss")
	MarketData              = Register[models.MarketUpdate](defaultRegistry, "md")
	Quote                   = Register[models.TwoSidedQuote](defaultRegistry, "q")
	QuoteStatus             = Register[models.TwoSidedQuoteStatus](defaultRegistry, "qs")
	FairValue               = Register[models.FairValue](defaultRegistry, "fv")
	Trades                  = Register[models.Trade](defaultRegistry, "t")
	Message                 = Register[models.Message](defaultRegistry, "m")
	ExchangeConnectivity    = Register[models.ConnectivityStatus](defaultRegistry, "ec")
	ActiveChange            = Register[bool](defaultRegistry, "active")
)

// Default returns the registry holding the trading topics.
func Default() *Registry {
	return defaultRegistry
}
