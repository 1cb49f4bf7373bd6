package state

import (
	"errors"
	"testing"
	"time"
)

func testMessage(id string) IncomingMessage {
	return IncomingMessage{
		ID:         id,
		Sender:     "kunde@example.com",
		Subject:    "Angebot",
		Body:       "Bitte um ein Angebot für Hosting.",
		ReceivedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewConversationDefaults(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC)
	st := NewConversation(testMessage("m-1"), now)

	if st.ID != "m-1" {
		t.Fatalf("expected id m-1, got %q", st.ID)
	}
	if st.Status != StatusProcessing {
		t.Fatalf("expected processing status, got %q", st.Status)
	}
	if !st.UpdatedAt.Equal(now) {
		t.Fatalf("expected updated_at %v, got %v", now, st.UpdatedAt)
	}
	if len(st.Transcript) != 0 || len(st.Log) != 0 {
		t.Fatalf("expected empty transcript and log")
	}
}

func TestSetClassificationOnce(t *testing.T) {
	st := NewConversation(testMessage("m-1"), time.Now())

	if err := st.SetClassification(CategoryInvoice, 0.9); err != nil {
		t.Fatalf("first classification failed: %v", err)
	}
	err := st.SetClassification(CategorySupport, 0.8)
	if !errors.Is(err, ErrClassificationSet) {
		t.Fatalf("expected ErrClassificationSet, got %v", err)
	}
	if st.Classification != CategoryInvoice {
		t.Fatalf("classification overwritten to %q", st.Classification)
	}
}

func TestRequireInfo(t *testing.T) {
	st := NewConversation(testMessage("m-1"), time.Now())

	st.RequireInfo([]string{"  invoice number ", "", "invoice amount"})
	if st.Status != StatusWaitingForUser {
		t.Fatalf("expected waiting_for_user, got %q", st.Status)
	}
	if len(st.MissingInfo) != 2 || st.MissingInfo[0] != "invoice number" {
		t.Fatalf("unexpected missing info: %v", st.MissingInfo)
	}

	// second call overwrites, last handler wins
	st.RequireInfo([]string{"preferred date"})
	if len(st.MissingInfo) != 1 || st.MissingInfo[0] != "preferred date" {
		t.Fatalf("missing info not replaced: %v", st.MissingInfo)
	}
}

func TestRequireInfoIgnoresEmptyList(t *testing.T) {
	st := NewConversation(testMessage("m-1"), time.Now())

	st.RequireInfo(nil)
	st.RequireInfo([]string{"  ", ""})
	if st.Status != StatusProcessing {
		t.Fatalf("empty requirement changed status to %q", st.Status)
	}
	if st.MissingInfo != nil {
		t.Fatalf("empty requirement stored missing info: %v", st.MissingInfo)
	}
}

func TestFail(t *testing.T) {
	st := NewConversation(testMessage("m-1"), time.Now())
	st.Fail("completion unreachable")

	if st.Status != StatusFailed {
		t.Fatalf("expected failed status, got %q", st.Status)
	}
	if st.Error != "completion unreachable" {
		t.Fatalf("unexpected error text %q", st.Error)
	}
	if !st.Status.Terminal() {
		t.Fatalf("failed status should be terminal")
	}
}

func TestResultsNoOverwrite(t *testing.T) {
	var r Results
	if err := r.SetQuote(QuoteResult{Summary: "first"}); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	err := r.SetQuote(QuoteResult{Summary: "second"})
	if !errors.Is(err, ErrResultExists) {
		t.Fatalf("expected ErrResultExists, got %v", err)
	}
	if r.Quote.Summary != "first" {
		t.Fatalf("result overwritten: %q", r.Quote.Summary)
	}
}

func TestResultsEntriesOrder(t *testing.T) {
	var r Results
	if err := r.SetAppointment(AppointmentResult{Topic: "demo"}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetClassifier(ClassificationResult{Category: CategoryAppointment}); err != nil {
		t.Fatal(err)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "classifier" || entries[1].Name != "appointment" {
		t.Fatalf("unexpected entry order: %s, %s", entries[0].Name, entries[1].Name)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var nilConv *Conversation
	if nilConv.Clone() != nil {
		t.Fatalf("clone of nil must be nil")
	}

	st := NewConversation(testMessage("m-1"), time.Now())
	st.AppendTranscript(Message{Role: RoleUser, Content: "original", Timestamp: time.Now()})
	st.AppendLog(LogEntry{Handler: "classifier", Action: "classify", Status: LogStarted})
	st.RequireInfo([]string{"invoice number"})
	if err := st.Results.SetQuote(QuoteResult{Recommendations: []string{"P001"}, Summary: "hosting"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Results.SetAppointment(AppointmentResult{SuggestedSlots: []Slot{{Date: "2026-03-11", Time: "09:00", Available: true}}}); err != nil {
		t.Fatal(err)
	}

	cp := st.Clone()
	if cp == st {
		t.Fatalf("clone returned the same pointer")
	}

	cp.Transcript[0].Content = "mutated"
	cp.Log[0].Status = LogFailed
	cp.MissingInfo[0] = "mutated"
	cp.Results.Quote.Recommendations[0] = "mutated"
	cp.Results.Quote.Summary = "mutated"
	cp.Results.Appointment.SuggestedSlots[0].Available = false
	cp.Fail("mutated")

	if st.Transcript[0].Content != "original" {
		t.Fatalf("transcript shared with clone: %v", st.Transcript)
	}
	if st.Log[0].Status != LogStarted {
		t.Fatalf("log shared with clone: %v", st.Log)
	}
	if st.MissingInfo[0] != "invoice number" {
		t.Fatalf("missing info shared with clone: %v", st.MissingInfo)
	}
	if st.Results.Quote.Recommendations[0] != "P001" || st.Results.Quote.Summary != "hosting" {
		t.Fatalf("quote result shared with clone: %+v", st.Results.Quote)
	}
	if !st.Results.Appointment.SuggestedSlots[0].Available {
		t.Fatalf("appointment slots shared with clone")
	}
	if st.Status != StatusWaitingForUser {
		t.Fatalf("status changed through clone: %q", st.Status)
	}
}

func TestValidate(t *testing.T) {
	var nilConv *Conversation
	if err := nilConv.Validate(); !errors.Is(err, ErrNilConversation) {
		t.Fatalf("expected ErrNilConversation, got %v", err)
	}

	st := NewConversation(testMessage("  "), time.Now())
	st.ID = " "
	if err := st.Validate(); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}

	st = NewConversation(testMessage("m-1"), time.Now())
	st.Status = "paused"
	if err := st.Validate(); err == nil {
		t.Fatalf("expected error for invalid status")
	}

	st.Status = StatusWaitingForUser
	if err := st.Validate(); err != nil {
		t.Fatalf("valid conversation rejected: %v", err)
	}
}
