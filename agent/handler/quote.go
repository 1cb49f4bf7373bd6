package handler

import (
	"context"
	"encoding/json"
	"fmt"

	contractx "github.com/smartinbox/server/agent/contract"
	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Quote analyzes quote requests against the product catalog and
// prepares recommendations.
type Quote struct {
	base
	catalog []contractx.Product
}

func (h *Quote) Name() string { return NameQuote }

func (h *Quote) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	runStage(ctx, h.base, st,
		NameQuote, "process_quote_request",
		"analyzing quote request",
		func() string {
			catalogJSON, _ := json.MarshalIndent(h.catalog, "", "  ")
			return emailContext(st.Message) + "\n\nAvailable products:\n" + string(catalogJSON)
		},
		quoteFallback,
		func(out parser.Outcome[statex.QuoteResult]) (string, error) {
			res := normalizeQuote(out.Value)
			if err := st.Results.SetQuote(res); err != nil {
				return "", err
			}
			st.RequireInfo(res.MissingInfo)
			return fmt.Sprintf("analysis done, %d recommendations", len(res.Recommendations)), nil
		},
		nil,
	)
	return st, nil
}

// quoteFallback keeps the raw model output as the summary; there is no
// pattern worth extracting from a free-form quote request.
func quoteFallback(raw string) statex.QuoteResult {
	return statex.QuoteResult{
		RequestedProducts: []string{},
		Recommendations:   []string{},
		Summary:           raw,
	}
}

func normalizeQuote(res statex.QuoteResult) statex.QuoteResult {
	if res.RequestedProducts == nil {
		res.RequestedProducts = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	return res
}

// defaultCatalog is the demo product catalog offered to the quote
// handler when no provider is configured.
func defaultCatalog() []contractx.Product {
	return []contractx.Product{
		{ID: "P001", Name: "Cloud-Hosting Paket S", Price: 49.99, Category: "hosting"},
		{ID: "P002", Name: "Cloud-Hosting Paket M", Price: 99.99, Category: "hosting"},
		{ID: "P003", Name: "Cloud-Hosting Paket L", Price: 199.99, Category: "hosting"},
		{ID: "P004", Name: "Beratungspaket 5h", Price: 500.00, Category: "consulting"},
		{ID: "P005", Name: "Beratungspaket 10h", Price: 950.00, Category: "consulting"},
		{ID: "P006", Name: "Custom Software Entwicklung", Price: 5000.00, Category: "development"},
	}
}

type staticCatalog []contractx.Product

func (c staticCatalog) Products() []contractx.Product { return c }
