package handler

import (
	"context"
	"regexp"

	"github.com/smartinbox/server/agent/parser"
	statex "github.com/smartinbox/server/agent/state"
)

// Invoice checks invoice-like messages for completeness.
type Invoice struct {
	base
}

func (h *Invoice) Name() string { return NameInvoice }

func (h *Invoice) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	runStage(ctx, h.base, st,
		NameInvoice, "validate_invoice",
		"checking invoice for completeness",
		func() string { return emailContext(st.Message) },
		func(string) statex.InvoiceResult { return invoiceFallback(st.Message.Body) },
		func(out parser.Outcome[statex.InvoiceResult]) (string, error) {
			res := out.Value
			if err := st.Results.SetInvoice(res); err != nil {
				return "", err
			}
			st.RequireInfo(res.MissingFields)

			detail := "invoice checked: complete"
			if !res.IsComplete {
				detail = "invoice checked: incomplete"
			}
			return detail, nil
		},
		nil,
	)
	return st, nil
}

const (
	missingInvoiceNumber = "invoice number"
	missingInvoiceAmount = "invoice amount"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`(?i)(?:Rechnung(?:snummer)?|Invoice|RE)[\s\-:]*([A-Z0-9\-]+)`)
	invoiceAmountPattern = regexp.MustCompile(`(?i)(?:Summe|Gesamt|Total|Betrag)[\s:]*€?\s*([0-9.,]+)`)
)

// invoiceFallback extracts the two well-known fields directly from the
// message body; anything it cannot find becomes missing information.
func invoiceFallback(body string) statex.InvoiceResult {
	res := statex.InvoiceResult{Summary: "automatic pattern analysis"}

	if m := invoiceNumberPattern.FindStringSubmatch(body); m != nil {
		res.InvoiceNumber = m[1]
	} else {
		res.MissingFields = append(res.MissingFields, missingInvoiceNumber)
	}

	if m := invoiceAmountPattern.FindStringSubmatch(body); m != nil {
		res.TotalAmount = m[1]
	} else {
		res.MissingFields = append(res.MissingFields, missingInvoiceAmount)
	}

	res.IsComplete = len(res.MissingFields) == 0
	return res
}
