package contract

import (
	"context"
	"time"

	statex "github.com/smartinbox/server/agent/state"
)

// CompletionService is the single outbound dependency every handler
// shares: a role instruction plus a built context string in, free-form
// text out. Implementations fail with ErrCompletionService on
// transport or timeout problems and never guarantee structured output.
type CompletionService interface {
	Invoke(ctx context.Context, roleInstruction string, userContext string) (string, error)
}

// Handler is the uniform contract implemented by the classifier, every
// domain handler, and the response composer. Run receives exclusive
// mutable access to the conversation for the duration of the call and
// returns the same state by convention.
type Handler interface {
	Name() string
	Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error)
}

// Composer extends Handler with the follow-up path: a waiting
// conversation is resumed with a new user message, building context
// purely from the transcript without re-running classification.
type Composer interface {
	Handler
	Resume(ctx context.Context, st *statex.Conversation, userMessage string) (*statex.Conversation, error)
}

// Registry resolves the handler bound to each classification label.
type Registry interface {
	Classifier() Handler
	Domain(category statex.Category) (Handler, bool)
	Composer() Composer
}

// CatalogProvider exposes the fixed product catalog to the quote
// handler. Safe for concurrent read-only access.
type CatalogProvider interface {
	Products() []Product
}

// FAQProvider exposes the support knowledge table.
type FAQProvider interface {
	Entries() []FAQEntry
}

// SlotProvider generates candidate appointment slots relative to now.
type SlotProvider interface {
	Slots(now time.Time) []statex.Slot
}
