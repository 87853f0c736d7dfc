package interactive

import (
	"fmt"
	"strings"

	"github.com/tribeca/tribeca-go/pkg/form"
	"github.com/tribeca/tribeca-go/pkg/models"
)

func formatQuotingParameters(qp models.QuotingParameters) string {
	return fmt.Sprintf("width=%g size=%g mode=%s fv=%s", qp.Width, qp.Size, qp.Mode, qp.FvModel)
}

func formatSafetySettings(ss models.SafetySettings) string {
	return fmt.Sprintf("tpm=%g cooloff=%g maxpos=%g", ss.TradesPerMinute, ss.CoolOffMinutes, ss.MaxPosition)
}

// formatForm renders the master and display values of a form model plus
// its flags.
func formatForm[T any](name string, m *form.Model[T], format func(T) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-4s master:  %s\n", name, format(m.Master()))
	fmt.Fprintf(&b, "     display: %s", format(m.Display()))

	var flags []string
	if m.Dirty() {
		flags = append(flags, "edited")
	}
	if m.Pending() {
		flags = append(flags, "pending")
	}
	if !m.Connected() {
		flags = append(flags, "offline")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(flags, ", "))
	}
	return b.String()
}

func formatFairValue(fv models.FairValue) string {
	return fmt.Sprintf("%.4f", fv.Price)
}

func formatMarket(m models.MarketUpdate) string {
	bid, hasBid := m.BestBid()
	ask, hasAsk := m.BestAsk()
	return fmt.Sprintf("bid %s | ask %s", level(bid.Price, bid.Size, hasBid), level(ask.Price, ask.Size, hasAsk))
}

func formatQuote(q models.TwoSidedQuote) string {
	side := func(s *models.Quote) string {
		if s == nil {
			return "-"
		}
		return level(s.Price, s.Size, true)
	}
	return fmt.Sprintf("bid %s | ask %s", side(q.Bid), side(q.Ask))
}

func formatQuoteStatus(s models.TwoSidedQuoteStatus) string {
	return fmt.Sprintf("bid %s | ask %s", s.BidStatus, s.AskStatus)
}

func formatTrade(t models.Trade) string {
	return fmt.Sprintf("%s %s %g @ %.4f (%s)", t.Side, t.Pair, t.Quantity, t.Price, t.TradeID)
}

func formatMessage(m models.Message) string {
	return m.Text
}

func level(price, size float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%g @ %.4f", size, price)
}
