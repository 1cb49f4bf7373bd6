package handler

import (
	"context"
	"fmt"

	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Newsletter condenses a newsletter into headlines and a short digest.
// It never asks for missing information; a newsletter is read-only
// input.
type Newsletter struct {
	base
}

func (h *Newsletter) Name() string { return NameNewsletter }

func (h *Newsletter) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	runStage(ctx, h.base, st,
		NameNewsletter, "summarize_newsletter",
		"summarizing newsletter",
		func() string { return emailContext(st.Message) },
		func(string) statex.NewsletterResult { return newsletterFallback(st.Message) },
		func(out parser.Outcome[statex.NewsletterResult]) (string, error) {
			res := out.Value
			if res.Headlines == nil {
				res.Headlines = []string{}
			}
			if res.Sender == "" {
				res.Sender = st.Message.Sender
			}
			if err := st.Results.SetNewsletter(res); err != nil {
				return "", err
			}
			return fmt.Sprintf("summarized, %d headlines", len(res.Headlines)), nil
		},
		nil,
	)
	return st, nil
}

// newsletterFallback truncates the body to a short excerpt when the
// model output cannot be decoded. Truncation counts runes, not bytes,
// so a multibyte character is never cut in half.
func newsletterFallback(msg statex.IncomingMessage) statex.NewsletterResult {
	summary := msg.Body
	if runes := []rune(summary); len(runes) > 200 {
		summary = string(runes[:200])
	}
	return statex.NewsletterResult{
		Headlines:  []string{"summary unavailable"},
		Summary:    summary,
		Categories: []string{"general"},
		Sender:     msg.Sender,
	}
}
