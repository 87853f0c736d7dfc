// Package form binds editable UI state to a topic.
//
// A Model keeps the last value confirmed by the authority (master), the
// value the operator is editing (display) and whether a submitted edit is
// still unconfirmed (pending). It follows the connection through its
// subscription handle, so a panel knows when submitting is possible.
//
//	qp := form.New(models.QuotingParameters{}, sub, fire)
//	qp.Edit(func(p *models.QuotingParameters) { p.Width = 0.3 })
//	if err := qp.Submit(); errors.Is(err, form.ErrNotConnected) { ... }
//
// A submitted value is confirmed only by the next update on the topic.
// There is no timeout: if the authority never answers, Pending stays true
// until some later update arrives.
package form
