package handler

import (
	"context"
	"errors"
	"strings"
	"testing"

	statex "github.com/smartinbox/server/agent/state"
)

func TestComposerCompletesWhenNothingMissing(t *testing.T) {
	svc := &fakeCompletion{response: "Vielen Dank für Ihre Anfrage, anbei unser Angebot."}
	h := &ComposerHandler{base: testBase(svc)}
	st := newTestConversation("Angebot", "Bitte ein Angebot für Hosting M.")
	if err := st.Results.SetQuote(statex.QuoteResult{Recommendations: []string{"P002"}, Summary: "Hosting M"}); err != nil {
		t.Fatal(err)
	}

	if _, err := h.Run(context.Background(), st); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if st.Status != statex.StatusCompleted {
		t.Fatalf("expected completed, got %q", st.Status)
	}
	if st.FinalReply != "Vielen Dank für Ihre Anfrage, anbei unser Angebot." {
		t.Fatalf("unexpected reply %q", st.FinalReply)
	}
	last := st.Transcript[len(st.Transcript)-1]
	if last.Role != statex.RoleAssistant || last.OriginHandler != NameComposer {
		t.Fatalf("reply not appended to transcript: %+v", last)
	}
	if !strings.Contains(svc.lastContext, "Hosting M") {
		t.Fatalf("result digest not rendered into context")
	}
	assertLogPair(t, st, NameComposer, statex.LogCompleted)
}

func TestComposerKeepsWaitingWithMissingInfo(t *testing.T) {
	svc := &fakeCompletion{response: "Bitte nennen Sie uns noch die Rechnungsnummer."}
	h := &ComposerHandler{base: testBase(svc)}
	st := newTestConversation("Rechnung", "siehe Anhang")
	st.RequireInfo([]string{"invoice number"})

	if _, err := h.Run(context.Background(), st); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if st.Status != statex.StatusWaitingForUser {
		t.Fatalf("expected waiting_for_user, got %q", st.Status)
	}
	if !strings.Contains(svc.lastContext, "invoice number") {
		t.Fatalf("missing info not rendered into context")
	}
}

func TestComposerFallbackReplyOnError(t *testing.T) {
	svc := &fakeCompletion{err: errors.New("model unavailable")}
	h := &ComposerHandler{base: testBase(svc)}
	st := newTestConversation("Angebot", "Bitte ein Angebot.")
	st.RequireInfo([]string{"which product"})

	if _, err := h.Run(context.Background(), st); err != nil {
		t.Fatalf("composer must absorb the error, got %v", err)
	}

	if st.FinalReply == "" {
		t.Fatalf("expected a fallback reply")
	}
	if !strings.Contains(st.FinalReply, "which product") {
		t.Fatalf("fallback reply should list open questions: %q", st.FinalReply)
	}
	if st.Status != statex.StatusWaitingForUser {
		t.Fatalf("expected waiting_for_user, got %q", st.Status)
	}
	assertLogPair(t, st, NameComposer, statex.LogFailed)
}

func TestComposerResume(t *testing.T) {
	svc := &fakeCompletion{response: "Danke, die Rechnungsnummer haben wir ergänzt."}
	h := &ComposerHandler{base: testBase(svc)}
	st := newTestConversation("Rechnung", "siehe Anhang")
	if err := st.Results.SetInvoice(statex.InvoiceResult{Summary: "incomplete"}); err != nil {
		t.Fatal(err)
	}
	st.RequireInfo([]string{"invoice number"})
	st.FinalReply = "Bitte senden Sie uns die Rechnungsnummer."
	st.AppendTranscript(statex.Message{Role: statex.RoleAssistant, Content: st.FinalReply, Timestamp: testClock()})

	if _, err := h.Resume(context.Background(), st, "Die Nummer ist RE-42."); err != nil {
		t.Fatalf("resume failed: %v", err)
	}

	if st.Status != statex.StatusCompleted {
		t.Fatalf("expected completed after follow-up, got %q", st.Status)
	}
	if st.MissingInfo != nil {
		t.Fatalf("missing info not cleared: %v", st.MissingInfo)
	}

	// transcript order: old assistant reply, user follow-up, new reply
	n := len(st.Transcript)
	if n != 3 {
		t.Fatalf("expected 3 transcript entries, got %d", n)
	}
	if st.Transcript[1].Role != statex.RoleUser || st.Transcript[1].Content != "Die Nummer ist RE-42." {
		t.Fatalf("user follow-up not appended before composition: %+v", st.Transcript[1])
	}
	if st.Transcript[2].Role != statex.RoleAssistant {
		t.Fatalf("new reply not appended: %+v", st.Transcript[2])
	}
	if !strings.Contains(svc.lastContext, "Die Nummer ist RE-42.") {
		t.Fatalf("follow-up not rendered into context")
	}

	// the follow-up is answered from the dialogue, not from a
	// rebuilt result digest
	if strings.Contains(svc.lastContext, "Result from") {
		t.Fatalf("resume context must come from the transcript only:\n%s", svc.lastContext)
	}
	if strings.Contains(svc.lastContext, "Subject:") {
		t.Fatalf("resume context must not re-render the email:\n%s", svc.lastContext)
	}
}

func TestNewRegistryDefaults(t *testing.T) {
	svc := &fakeCompletion{response: "{}"}
	reg, err := NewRegistry(Config{Completion: svc, Now: testClock})
	if err != nil {
		t.Fatalf("registry build failed: %v", err)
	}

	if reg.Classifier() == nil || reg.Composer() == nil {
		t.Fatalf("classifier or composer missing")
	}
	for _, cat := range statex.Categories() {
		if _, ok := reg.Domain(cat); !ok {
			t.Fatalf("no handler for category %q", cat)
		}
	}
	if _, ok := reg.Domain("spam"); ok {
		t.Fatalf("unknown category resolved to a handler")
	}
}

func TestNewRegistryRequiresCompletion(t *testing.T) {
	if _, err := NewRegistry(Config{}); err == nil {
		t.Fatalf("expected error without completion service")
	}
}
