package workflow

import (
	"context"
	"fmt"

	contractx "github.com/smartinbox/server/agent/contract"
	statex "github.com/smartinbox/server/agent/state"
)

// Graph node names. Domain nodes are named after their category label
// so the routing table stays readable next to the branch map.
const (
	nodeClassify    = "classify"
	nodeQuote       = "quote_request"
	nodeInvoice     = "invoice"
	nodeSupport     = "support"
	nodeNewsletter  = "newsletter"
	nodeAppointment = "appointment"
	nodeCompose     = "compose"
	nodeAbort       = "abort"
)

// routeTable binds each classification label to its graph node.
var routeTable = map[statex.Category]string{
	statex.CategoryQuoteRequest: nodeQuote,
	statex.CategoryInvoice:      nodeInvoice,
	statex.CategorySupport:      nodeSupport,
	statex.CategoryNewsletter:   nodeNewsletter,
	statex.CategoryAppointment:  nodeAppointment,
}

// routeTargets is the closed set of nodes the classification branch may
// select, including the abort path.
func routeTargets() map[string]bool {
	targets := map[string]bool{nodeAbort: true}
	for _, node := range routeTable {
		targets[node] = true
	}
	return targets
}

// selectRoute picks the next node after classification. A failed run
// goes to abort; an unroutable label fails the run rather than guessing
// a handler.
func selectRoute(_ context.Context, st *statex.Conversation) (string, error) {
	if st == nil {
		return "", fmt.Errorf("%w: conversation state is nil", contractx.ErrValidation)
	}
	if st.Status == statex.StatusFailed {
		return nodeAbort, nil
	}
	node, ok := routeTable[st.Classification]
	if !ok {
		st.Fail(fmt.Sprintf("no handler bound for category %q", st.Classification))
		return nodeAbort, nil
	}
	return node, nil
}
