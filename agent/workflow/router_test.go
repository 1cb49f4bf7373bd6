package workflow

import (
	"context"
	"testing"
	"time"

	statex "github.com/smartinbox/server/agent/state"
)

func TestSelectRoutePerCategory(t *testing.T) {
	cases := map[statex.Category]string{
		statex.CategoryQuoteRequest: nodeQuote,
		statex.CategoryInvoice:      nodeInvoice,
		statex.CategorySupport:      nodeSupport,
		statex.CategoryNewsletter:   nodeNewsletter,
		statex.CategoryAppointment:  nodeAppointment,
	}

	for category, want := range cases {
		st := statex.NewConversation(statex.IncomingMessage{ID: "m-1", Body: "x"}, time.Now())
		st.Classification = category

		got, err := selectRoute(context.Background(), st)
		if err != nil {
			t.Fatalf("%s: %v", category, err)
		}
		if got != want {
			t.Fatalf("%s routed to %q, want %q", category, got, want)
		}
	}
}

func TestSelectRouteFailedRunAborts(t *testing.T) {
	st := statex.NewConversation(statex.IncomingMessage{ID: "m-1", Body: "x"}, time.Now())
	st.Fail("classification error")

	got, err := selectRoute(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if got != nodeAbort {
		t.Fatalf("failed run routed to %q, want abort", got)
	}
}

func TestSelectRouteUnknownLabelFailsClosed(t *testing.T) {
	st := statex.NewConversation(statex.IncomingMessage{ID: "m-1", Body: "x"}, time.Now())
	st.Classification = "spam"

	got, err := selectRoute(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	if got != nodeAbort {
		t.Fatalf("unknown label routed to %q, want abort", got)
	}
	if st.Status != statex.StatusFailed {
		t.Fatalf("unknown label must fail the run, got %q", st.Status)
	}
}

func TestSelectRouteNilState(t *testing.T) {
	if _, err := selectRoute(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil state")
	}
}

func TestRouteTargetsCoverTableAndAbort(t *testing.T) {
	targets := routeTargets()
	if !targets[nodeAbort] {
		t.Fatalf("abort missing from branch targets")
	}
	for _, node := range routeTable {
		if !targets[node] {
			t.Fatalf("node %q missing from branch targets", node)
		}
	}
	if len(targets) != len(routeTable)+1 {
		t.Fatalf("unexpected target count %d", len(targets))
	}
}
