package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state-machine status of a conversation.
type Status string

const (
	StatusProcessing     Status = "processing"
	StatusWaitingForUser Status = "waiting_for_user"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// Terminal reports whether no further handler may run for this run.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Category is the closed set of classification labels.
type Category string

const (
	CategoryQuoteRequest Category = "quote_request"
	CategoryInvoice      Category = "invoice"
	CategorySupport      Category = "support"
	CategoryNewsletter   Category = "newsletter"
	CategoryAppointment  Category = "appointment"
)

// Categories lists every known label in fallback-priority order.
func Categories() []Category {
	return []Category{
		CategoryQuoteRequest,
		CategoryInvoice,
		CategorySupport,
		CategoryNewsletter,
		CategoryAppointment,
	}
}

// Role identifies who produced a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleAgent     Role = "agent"
)

// Message is one immutable entry of the conversation transcript.
type Message struct {
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	OriginHandler string    `json:"origin_handler,omitempty"`
}

// LogStatus marks the phase of a processing log entry.
type LogStatus string

const (
	LogStarted   LogStatus = "started"
	LogCompleted LogStatus = "completed"
	LogFailed    LogStatus = "failed"
)

// LogEntry is one row of the append-only audit trail. Every handler
// invocation writes one started entry followed by exactly one terminal
// (completed or failed) entry.
type LogEntry struct {
	Handler   string    `json:"handler_name"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
	Status    LogStatus `json:"status"`
}

// IncomingMessage is the immutable input to a workflow run.
type IncomingMessage struct {
	ID          string    `json:"id"`
	Sender      string    `json:"sender"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"received_at"`
	Attachments []string  `json:"attachments,omitempty"`
}

// ClassificationResult is what the classifier writes into state.
type ClassificationResult struct {
	Category   Category `json:"classification"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// QuoteResult summarizes a quote request against the product catalog.
type QuoteResult struct {
	RequestedProducts []string `json:"requested_products"`
	MissingInfo       []string `json:"missing_info,omitempty"`
	Recommendations   []string `json:"recommendations"`
	Summary           string   `json:"summary"`
}

// InvoiceResult is the completeness check of an invoice-like message.
type InvoiceResult struct {
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	InvoiceDate   string   `json:"invoice_date,omitempty"`
	TotalAmount   string   `json:"total_amount,omitempty"`
	IsComplete    bool     `json:"is_complete"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Issues        []string `json:"issues,omitempty"`
	Summary       string   `json:"summary"`
}

// SupportResult carries the FAQ lookup outcome for a support request.
type SupportResult struct {
	ProblemCategory string   `json:"problem_category"`
	SolutionFound   bool     `json:"solution_found"`
	FAQMatches      []string `json:"faq_matches,omitempty"`
	Response        string   `json:"response"`
	Escalate        bool     `json:"escalate"`
}

// NewsletterResult is the digest extracted from a newsletter.
type NewsletterResult struct {
	Headlines     []string `json:"headlines"`
	Summary       string   `json:"summary"`
	Categories    []string `json:"categories,omitempty"`
	TimeSensitive []string `json:"time_sensitive,omitempty"`
	Sender        string   `json:"sender,omitempty"`
}

// AppointmentResult holds scheduling analysis and candidate slots.
type AppointmentResult struct {
	Topic           string   `json:"topic"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	PreferredDates  []string `json:"preferred_dates,omitempty"`
	MissingInfo     []string `json:"missing_info,omitempty"`
	SuggestedSlots  []Slot   `json:"suggested_slots,omitempty"`
	Summary         string   `json:"summary"`
}

// Slot is a single candidate appointment time.
type Slot struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

var (
	ErrClassificationSet = errors.New("classification already set")
	ErrResultExists      = errors.New("handler result already present")
	ErrNilConversation   = errors.New("conversation is nil")
	ErrInvalidID         = errors.New("conversation id is empty")
)

// Results holds at most one structured result per handler. Typed
// variants instead of an open map so each handler's shape is checked
// at compile time; the no-overwrite invariant is enforced by the
// setters.
type Results struct {
	Classification *ClassificationResult `json:"classification,omitempty"`
	Quote          *QuoteResult          `json:"quote,omitempty"`
	Invoice        *InvoiceResult        `json:"invoice,omitempty"`
	Support        *SupportResult        `json:"support,omitempty"`
	Newsletter     *NewsletterResult     `json:"newsletter,omitempty"`
	Appointment    *AppointmentResult    `json:"appointment,omitempty"`
}

// ResultEntry pairs a handler name with its stored result for digest
// building.
type ResultEntry struct {
	Name  string
	Value any
}

// Entries returns every present result in a stable order.
func (r *Results) Entries() []ResultEntry {
	if r == nil {
		return nil
	}
	var out []ResultEntry
	if r.Classification != nil {
		out = append(out, ResultEntry{Name: "classifier", Value: r.Classification})
	}
	if r.Quote != nil {
		out = append(out, ResultEntry{Name: "quote", Value: r.Quote})
	}
	if r.Invoice != nil {
		out = append(out, ResultEntry{Name: "invoice", Value: r.Invoice})
	}
	if r.Support != nil {
		out = append(out, ResultEntry{Name: "support", Value: r.Support})
	}
	if r.Newsletter != nil {
		out = append(out, ResultEntry{Name: "newsletter", Value: r.Newsletter})
	}
	if r.Appointment != nil {
		out = append(out, ResultEntry{Name: "appointment", Value: r.Appointment})
	}
	return out
}

func (r *Results) SetClassifier(v ClassificationResult) error {
	if r.Classification != nil {
		return fmt.Errorf("%w: classifier", ErrResultExists)
	}
	r.Classification = &v
	return nil
}

func (r *Results) SetQuote(v QuoteResult) error {
	if r.Quote != nil {
		return fmt.Errorf("%w: quote", ErrResultExists)
	}
	r.Quote = &v
	return nil
}

func (r *Results) SetInvoice(v InvoiceResult) error {
	if r.Invoice != nil {
		return fmt.Errorf("%w: invoice", ErrResultExists)
	}
	r.Invoice = &v
	return nil
}

func (r *Results) SetSupport(v SupportResult) error {
	if r.Support != nil {
		return fmt.Errorf("%w: support", ErrResultExists)
	}
	r.Support = &v
	return nil
}

func (r *Results) SetNewsletter(v NewsletterResult) error {
	if r.Newsletter != nil {
		return fmt.Errorf("%w: newsletter", ErrResultExists)
	}
	r.Newsletter = &v
	return nil
}

func (r *Results) SetAppointment(v AppointmentResult) error {
	if r.Appointment != nil {
		return fmt.Errorf("%w: appointment", ErrResultExists)
	}
	r.Appointment = &v
	return nil
}

// Conversation is the central mutable record threaded through a
// workflow run. It is owned exclusively by the workflow engine while a
// run is in flight; handlers mutate it through the append/set methods
// below and must not retain a reference after returning.
type Conversation struct {
	ID      string          `json:"id"`
	Message IncomingMessage `json:"message"`

	Classification           Category `json:"classification,omitempty"`
	ClassificationConfidence float64  `json:"classification_confidence,omitempty"`

	Transcript []Message  `json:"transcript,omitempty"`
	Log        []LogEntry `json:"log,omitempty"`
	Results    Results    `json:"results"`

	MissingInfo []string `json:"missing_info,omitempty"`
	Status      Status   `json:"status"`
	FinalReply  string   `json:"final_reply,omitempty"`
	Error       string   `json:"error,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates the initial state for one incoming message.
func NewConversation(msg IncomingMessage, now time.Time) *Conversation {
	return &Conversation{
		ID:        msg.ID,
		Message:   msg,
		Status:    StatusProcessing,
		UpdatedAt: now.UTC(),
	}
}

// AppendTranscript appends one message; the transcript is append-only.
func (c *Conversation) AppendTranscript(m Message) {
	c.Transcript = append(c.Transcript, m)
}

// AppendLog appends one audit entry; the log is append-only.
func (c *Conversation) AppendLog(e LogEntry) {
	c.Log = append(c.Log, e)
}

// SetClassification records the label exactly once per run.
func (c *Conversation) SetClassification(category Category, confidence float64) error {
	if c.Classification != "" {
		return fmt.Errorf("%w: %s", ErrClassificationSet, c.Classification)
	}
	c.Classification = category
	c.ClassificationConfidence = confidence
	return nil
}

// RequireInfo overwrites the missing-information list and moves the
// conversation into the waiting-for-user status. The last handler to
// detect a gap wins.
func (c *Conversation) RequireInfo(items []string) {
	cleaned := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	c.MissingInfo = cleaned
	c.Status = StatusWaitingForUser
}

// Fail records an unrecoverable error and moves to the failed status.
func (c *Conversation) Fail(reason string) {
	c.Error = reason
	c.Status = StatusFailed
}

// Touch bumps the modification timestamp.
func (c *Conversation) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// Clone returns an independent deep copy. The registry stores and
// returns clones so one goroutine can read a conversation while
// another mutates its own copy.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Message.Attachments = cloneStrings(c.Message.Attachments)
	if c.Transcript != nil {
		out.Transcript = append([]Message(nil), c.Transcript...)
	}
	if c.Log != nil {
		out.Log = append([]LogEntry(nil), c.Log...)
	}
	out.MissingInfo = cloneStrings(c.MissingInfo)
	out.Results = c.Results.clone()
	return &out
}

func (r Results) clone() Results {
	out := r
	if r.Classification != nil {
		v := *r.Classification
		out.Classification = &v
	}
	if r.Quote != nil {
		v := *r.Quote
		v.RequestedProducts = cloneStrings(v.RequestedProducts)
		v.MissingInfo = cloneStrings(v.MissingInfo)
		v.Recommendations = cloneStrings(v.Recommendations)
		out.Quote = &v
	}
	if r.Invoice != nil {
		v := *r.Invoice
		v.MissingFields = cloneStrings(v.MissingFields)
		v.Issues = cloneStrings(v.Issues)
		out.Invoice = &v
	}
	if r.Support != nil {
		v := *r.Support
		v.FAQMatches = cloneStrings(v.FAQMatches)
		out.Support = &v
	}
	if r.Newsletter != nil {
		v := *r.Newsletter
		v.Headlines = cloneStrings(v.Headlines)
		v.Categories = cloneStrings(v.Categories)
		v.TimeSensitive = cloneStrings(v.TimeSensitive)
		out.Newsletter = &v
	}
	if r.Appointment != nil {
		v := *r.Appointment
		v.PreferredDates = cloneStrings(v.PreferredDates)
		v.MissingInfo = cloneStrings(v.MissingInfo)
		if v.SuggestedSlots != nil {
			v.SuggestedSlots = append([]Slot(nil), v.SuggestedSlots...)
		}
		out.Appointment = &v
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Validate checks the structural invariants a loaded snapshot must
// satisfy before the engine will resume it.
func (c *Conversation) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.ID) == "" {
		return ErrInvalidID
	}
	switch c.Status {
	case StatusProcessing, StatusWaitingForUser, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("invalid status %q", c.Status)
	}
	return nil
}
