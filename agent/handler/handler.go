// Package handler implements the classification handler, the five
// domain handlers, and the response composer. Every handler follows
// the same sequence: log started, build context, invoke the completion
// service once, decode with its own fallback, merge the result into
// state, log completed or failed. Failures are absorbed at the handler
// boundary; only classification failures end the run.
package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/smartinbox/server/agent/contract"
	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

const (
	NameClassifier  = "classifier"
	NameQuote       = "quote"
	NameInvoice     = "invoice"
	NameSupport     = "support"
	NameNewsletter  = "newsletter"
	NameAppointment = "appointment"
	NameComposer    = "composer"
)

type base struct {
	svc    contractx.CompletionService
	prompt string
	now    func() time.Time
}

func (b base) clock() time.Time {
	if b.now == nil {
		return time.Now().UTC()
	}
	return b.now().UTC()
}

// emailContext renders the incoming message the way every handler
// presents it to the completion service.
func emailContext(msg statex.IncomingMessage) string {
	var sb strings.Builder
	sb.WriteString("From: " + msg.Sender + "\n")
	sb.WriteString("Subject: " + msg.Subject + "\n")
	sb.WriteString("Body:\n")
	sb.WriteString(msg.Body)
	return sb.String()
}

// runStage drives the uniform handler sequence for one domain stage.
// The returned error is always nil for absorbed failures; onFailure
// lets the classifier escalate instead.
func runStage[T any](
	ctx context.Context,
	b base,
	st *statex.Conversation,
	name, action, startDetail string,
	buildContext func() string,
	fallback parser.Fallback[T],
	apply func(out parser.Outcome[T]) (string, error),
	onFailure func(err error),
) {
	st.AppendLog(statex.LogEntry{
		Handler:   name,
		Action:    action,
		Timestamp: b.clock(),
		Detail:    startDetail,
		Status:    statex.LogStarted,
	})

	fail := func(err error) {
		log.Error().Err(err).Str("handler", name).Msg("handler stage failed")
		st.AppendLog(statex.LogEntry{
			Handler:   name,
			Action:    action,
			Timestamp: b.clock(),
			Detail:    fmt.Sprintf("error: %v", err),
			Status:    statex.LogFailed,
		})
		if onFailure != nil {
			onFailure(err)
		}
	}

	raw, err := b.svc.Invoke(ctx, b.prompt, buildContext())
	if err != nil {
		fail(err)
		return
	}

	out := parser.Decode(raw, fallback)
	if out.Source == parser.SourceFallback {
		log.Warn().Str("handler", name).Msg("structured decode failed, fallback applied")
	}

	detail, err := apply(out)
	if err != nil {
		fail(err)
		return
	}

	st.AppendLog(statex.LogEntry{
		Handler:   name,
		Action:    action,
		Timestamp: b.clock(),
		Detail:    detail,
		Status:    statex.LogCompleted,
	})
	st.Touch(b.clock())
}
