package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/quote.txt
	quoteRaw string

	//go:embed template/invoice.txt
	invoiceRaw string

	//go:embed template/support.txt
	supportRaw string

	//go:embed template/newsletter.txt
	newsletterRaw string

	//go:embed template/appointment.txt
	appointmentRaw string

	//go:embed template/composer.txt
	composerRaw string
)

// PromptSet holds the role instruction of every handler.
type PromptSet struct {
	Classifier  string
	Quote       string
	Invoice     string
	Support     string
	Newsletter  string
	Appointment string
	Composer    string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:  strings.TrimSpace(classifierRaw),
		Quote:       strings.TrimSpace(quoteRaw),
		Invoice:     strings.TrimSpace(invoiceRaw),
		Support:     strings.TrimSpace(supportRaw),
		Newsletter:  strings.TrimSpace(newsletterRaw),
		Appointment: strings.TrimSpace(appointmentRaw),
		Composer:    strings.TrimSpace(composerRaw),
	}
}
