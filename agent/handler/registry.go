package handler

import (
	"fmt"
	"time"

	contractx "github.com/smartinbox/server/agent/contract"
	"github.com/smartinbox/server/agent/prompt"
	statex "github.com/smartinbox/server/agent/state"
)

// Config assembles a handler registry. Completion is the only required
// field; every other field has a working default.
type Config struct {
	// Completion serves the domain handlers and is the fallback for
	// the classifier and composer when no override is set.
	Completion contractx.CompletionService

	// ClassifierCompletion and ComposerCompletion let those two roles
	// run against a different model than the domain handlers.
	ClassifierCompletion contractx.CompletionService
	ComposerCompletion   contractx.CompletionService

	Catalog contractx.CatalogProvider
	FAQ     contractx.FAQProvider
	Slots   contractx.SlotProvider

	// Now overrides the clock in tests.
	Now func() time.Time
}

type registry struct {
	classifier contractx.Handler
	domain     map[statex.Category]contractx.Handler
	composer   contractx.Composer
}

var _ contractx.Registry = (*registry)(nil)

// NewRegistry wires the classifier, the five domain handlers, and the
// composer with their prompts and data providers.
func NewRegistry(cfg Config) (contractx.Registry, error) {
	if cfg.Completion == nil {
		return nil, fmt.Errorf("handler registry: completion service is required")
	}
	if cfg.ClassifierCompletion == nil {
		cfg.ClassifierCompletion = cfg.Completion
	}
	if cfg.ComposerCompletion == nil {
		cfg.ComposerCompletion = cfg.Completion
	}
	if cfg.Catalog == nil {
		cfg.Catalog = staticCatalog(defaultCatalog())
	}
	if cfg.FAQ == nil {
		cfg.FAQ = staticFAQ(defaultFAQ())
	}
	if cfg.Slots == nil {
		cfg.Slots = slotFunc(generateSlots)
	}

	prompts := prompt.LoadPromptSet()
	stage := func(svc contractx.CompletionService, p string) base {
		return base{svc: svc, prompt: p, now: cfg.Now}
	}

	return &registry{
		classifier: &Classifier{base: stage(cfg.ClassifierCompletion, prompts.Classifier)},
		domain: map[statex.Category]contractx.Handler{
			statex.CategoryQuoteRequest: &Quote{
				base:    stage(cfg.Completion, prompts.Quote),
				catalog: cfg.Catalog.Products(),
			},
			statex.CategoryInvoice: &Invoice{base: stage(cfg.Completion, prompts.Invoice)},
			statex.CategorySupport: &Support{
				base: stage(cfg.Completion, prompts.Support),
				faq:  cfg.FAQ.Entries(),
			},
			statex.CategoryNewsletter: &Newsletter{base: stage(cfg.Completion, prompts.Newsletter)},
			statex.CategoryAppointment: &Appointment{
				base:  stage(cfg.Completion, prompts.Appointment),
				slots: cfg.Slots.Slots,
			},
		},
		composer: &ComposerHandler{base: stage(cfg.ComposerCompletion, prompts.Composer)},
	}, nil
}

func (r *registry) Classifier() contractx.Handler { return r.classifier }

func (r *registry) Domain(category statex.Category) (contractx.Handler, bool) {
	h, ok := r.domain[category]
	return h, ok
}

func (r *registry) Composer() contractx.Composer { return r.composer }
