package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Classifier assigns the incoming message one label from the closed
// category set. It is the entry gate of every run: when even the
// fallback cannot produce a label, the run fails.
type Classifier struct {
	base
}

func (h *Classifier) Name() string { return NameClassifier }

func (h *Classifier) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	runStage(ctx, h.base, st,
		NameClassifier, "classify_message",
		fmt.Sprintf("classifying message from %s", st.Message.Sender),
		func() string { return emailContext(st.Message) },
		classificationFallback,
		func(out parser.Outcome[statex.ClassificationResult]) (string, error) {
			res := out.Value

			// A successful decode may still carry a label outside the
			// closed set; the keyword fallback keeps the router
			// invariant intact by construction.
			if !knownCategory(res.Category) {
				res = classificationFallback(string(res.Category) + " " + st.Message.Subject + " " + st.Message.Body)
			}
			if res.Confidence < 0 {
				res.Confidence = 0
			}
			if res.Confidence > 1 {
				res.Confidence = 1
			}

			if err := st.SetClassification(res.Category, res.Confidence); err != nil {
				return "", err
			}
			if err := st.Results.SetClassifier(res); err != nil {
				return "", err
			}
			return fmt.Sprintf("classified as %s (%s)", res.Category, res.Reasoning), nil
		},
		func(err error) {
			st.Fail(fmt.Sprintf("classification error: %v", err))
		},
	)
	return st, nil
}

// keyword synonyms per category, scanned in fixed priority order;
// German terms come from the markets this inbox serves.
var categoryKeywords = map[statex.Category][]string{
	statex.CategoryQuoteRequest: {"quote_request", "quote", "angebot"},
	statex.CategoryInvoice:      {"invoice", "rechnung"},
	statex.CategorySupport:      {"support", "hilfe"},
	statex.CategoryNewsletter:   {"newsletter"},
	statex.CategoryAppointment:  {"appointment", "termin"},
}

func knownCategory(c statex.Category) bool {
	_, ok := categoryKeywords[c]
	return ok
}

// classificationFallback scans the raw text for category keywords.
// First match in priority order wins; no match defaults to support.
func classificationFallback(raw string) statex.ClassificationResult {
	lowered := strings.ToLower(raw)
	for _, cat := range statex.Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lowered, kw) {
				return statex.ClassificationResult{
					Category:   cat,
					Confidence: 0.5,
					Reasoning:  fmt.Sprintf("fallback: matched keyword %q", kw),
				}
			}
		}
	}
	return statex.ClassificationResult{
		Category:   statex.CategorySupport,
		Confidence: 0.5,
		Reasoning:  "fallback: no category keyword matched, defaulting to support",
	}
}
