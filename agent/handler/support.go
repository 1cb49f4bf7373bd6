package handler

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/smartinbox/server/agent/contract"
	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Support matches the request against the FAQ knowledge base and
// drafts an answer, escalating when no entry applies.
type Support struct {
	base
	faq []contractx.FAQEntry
}

func (h *Support) Name() string { return NameSupport }

func (h *Support) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	runStage(ctx, h.base, st,
		NameSupport, "handle_support_request",
		"searching knowledge base",
		func() string {
			faqJSON, _ := json.MarshalIndent(h.faq, "", "  ")
			return emailContext(st.Message) + "\n\nKnowledge base:\n" + string(faqJSON)
		},
		supportFallback,
		func(out parser.Outcome[statex.SupportResult]) (string, error) {
			res := out.Value
			if res.FAQMatches == nil {
				res.FAQMatches = []string{}
			}
			if err := st.Results.SetSupport(res); err != nil {
				return "", err
			}
			if res.Escalate {
				st.RequireInfo([]string{"additional details about the problem"})
			}
			return fmt.Sprintf("solution_found=%t escalate=%t", res.SolutionFound, res.Escalate), nil
		},
		nil,
	)
	return st, nil
}

// supportFallback keeps the raw text as the draft answer and escalates
// to a human, the safe default when the answer cannot be verified
// against the knowledge base.
func supportFallback(raw string) statex.SupportResult {
	return statex.SupportResult{
		ProblemCategory: "unknown",
		SolutionFound:   false,
		FAQMatches:      []string{},
		Response:        raw,
		Escalate:        true,
	}
}

// defaultFAQ is the built-in knowledge base used when no provider is
// configured.
func defaultFAQ() []contractx.FAQEntry {
	return []contractx.FAQEntry{
		{
			ID:       "FAQ-001",
			Category: "login",
			Question: "Ich kann mich nicht einloggen",
			Answer:   "Bitte setzen Sie Ihr Passwort über die 'Passwort vergessen'-Funktion zurück. Falls das Problem bestehen bleibt, leeren Sie den Browser-Cache.",
		},
		{
			ID:       "FAQ-002",
			Category: "billing",
			Question: "Wie ändere ich meine Zahlungsmethode?",
			Answer:   "Gehen Sie zu Einstellungen > Abrechnung > Zahlungsmethode und wählen Sie eine neue Zahlungsart.",
		},
		{
			ID:       "FAQ-003",
			Category: "performance",
			Question: "Die Anwendung ist langsam",
			Answer:   "Prüfen Sie Ihre Internetverbindung und versuchen Sie es mit einem anderen Browser. Bei anhaltenden Problemen kontaktieren Sie den Support.",
		},
		{
			ID:       "FAQ-004",
			Category: "data",
			Question: "Wie exportiere ich meine Daten?",
			Answer:   "Unter Einstellungen > Daten > Export können Sie alle Ihre Daten als CSV oder JSON herunterladen.",
		},
	}
}

type staticFAQ []contractx.FAQEntry

func (f staticFAQ) Entries() []contractx.FAQEntry { return f }
