// Package workflow runs the inbox state machine: classify the incoming
// message, route it to the matching domain handler, then compose the
// reply. The graph threads one *state.Conversation through every node;
// handlers absorb their own failures, so a run ends in exactly one of
// the completed, waiting_for_user or failed statuses.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/smartinbox/server/agent/contract"
	statex "github.com/smartinbox/server/agent/state"
)

var (
	ErrNotResumable = errors.New("conversation does not accept a user reply in its current status")
)

// Config assembles a workflow engine.
type Config struct {
	// Registry resolves the classifier, domain handlers and composer.
	Registry contractx.Registry

	// Sessions holds live conversations; a fresh registry is created
	// when nil.
	Sessions *statex.Registry

	// Store is the optional snapshot persistence. Saves are best
	// effort and never fail a run; loads serve resume and state reads
	// for conversations no longer in memory.
	Store statex.Store

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine owns the compiled graph and the conversation lifecycle around
// it.
type Engine struct {
	registry contractx.Registry
	sessions *statex.Registry
	store    statex.Store
	runner   compose.Runnable[*statex.Conversation, *statex.Conversation]
	now      func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.New("handler registry is required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = statex.NewRegistry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		registry: cfg.Registry,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		now:      cfg.Now,
	}

	runner, err := e.compileGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.runner = runner
	return e, nil
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

func (e *Engine) compileGraph(ctx context.Context) (compose.Runnable[*statex.Conversation, *statex.Conversation], error) {
	graph := compose.NewGraph[*statex.Conversation, *statex.Conversation]()

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
			return e.registry.Classifier().Run(ctx, st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}

	for category, node := range routeTable {
		h, ok := e.registry.Domain(category)
		if !ok {
			return nil, fmt.Errorf("%w: no handler registered for %q", contractx.ErrUnroutable, category)
		}
		handler := h
		if err := graph.AddLambdaNode(node,
			compose.InvokableLambda(func(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
				return handler.Run(ctx, st)
			}),
		); err != nil {
			return nil, fmt.Errorf("add node %s: %w", node, err)
		}
	}

	if err := graph.AddLambdaNode(nodeCompose,
		compose.InvokableLambda(func(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
			return e.registry.Composer().Run(ctx, st)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeCompose, err)
	}

	// abort carries a failed run straight to the end without touching
	// it further.
	if err := graph.AddLambdaNode(nodeAbort,
		compose.InvokableLambda(func(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeAbort, err)
	}

	branch := compose.NewGraphBranch(selectRoute, routeTargets())
	if err := graph.AddBranch(nodeClassify, branch); err != nil {
		return nil, fmt.Errorf("add classification branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeClassify},
		{nodeQuote, nodeCompose},
		{nodeInvoice, nodeCompose},
		{nodeSupport, nodeCompose},
		{nodeNewsletter, nodeCompose},
		{nodeAppointment, nodeCompose},
		{nodeCompose, compose.END},
		{nodeAbort, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("inbox.process_message"))
	if err != nil {
		return nil, fmt.Errorf("compile workflow graph: %w", err)
	}
	return runner, nil
}

// Run processes one incoming message end to end. Calling Run again
// with an id the engine already knows returns the existing conversation
// unchanged instead of reprocessing.
func (e *Engine) Run(ctx context.Context, msg statex.IncomingMessage) (*statex.Conversation, error) {
	if strings.TrimSpace(msg.ID) == "" {
		return nil, fmt.Errorf("%w: message id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(msg.Body) == "" {
		return nil, fmt.Errorf("%w: message body is required", contractx.ErrValidation)
	}

	st := statex.NewConversation(msg, e.clock())
	st.AppendTranscript(statex.Message{
		Role:      statex.RoleUser,
		Content:   msg.Body,
		Timestamp: e.clock(),
	})

	// Reserving first makes the id check and the insert one atomic
	// step; a concurrent duplicate gets the reserved snapshot back
	// instead of starting a second pipeline.
	existing, inserted, err := e.sessions.Reserve(st)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return existing, nil
	}

	out, err := e.runner.Invoke(ctx, st)
	if err != nil {
		e.sessions.Delete(msg.ID)
		return nil, fmt.Errorf("workflow run %s: %w", msg.ID, err)
	}

	e.persist(ctx, out)
	return out, nil
}

// Resume feeds a user follow-up into an existing conversation. Only
// conversations waiting for the user or already completed accept one;
// a run still processing or failed does not.
func (e *Engine) Resume(ctx context.Context, id, userMessage string) (*statex.Conversation, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	st, err := e.State(ctx, id)
	if err != nil {
		return nil, err
	}

	switch st.Status {
	case statex.StatusWaitingForUser, statex.StatusCompleted:
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrNotResumable, st.Status)
	}

	st, err = e.registry.Composer().Resume(ctx, st, userMessage)
	if err != nil {
		return nil, fmt.Errorf("resume conversation %s: %w", id, err)
	}

	e.persist(ctx, st)
	return st, nil
}

// State returns the conversation for id, falling back to the snapshot
// store for conversations no longer held in memory.
func (e *Engine) State(ctx context.Context, id string) (*statex.Conversation, error) {
	st, err := e.sessions.Get(id)
	if err == nil {
		return st, nil
	}
	if e.store == nil {
		return nil, err
	}

	st, loadErr := e.store.Load(ctx, id)
	if errors.Is(loadErr, statex.ErrStateNotFound) {
		return nil, statex.ErrConversationNotFound
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if putErr := e.sessions.Put(st); putErr != nil {
		return nil, putErr
	}
	return st, nil
}

// Latest returns the most recently started conversation in memory.
func (e *Engine) Latest() (*statex.Conversation, bool) {
	return e.sessions.Latest()
}

// Reset drops one conversation from memory and from the snapshot store
// when one is configured.
func (e *Engine) Reset(ctx context.Context, id string) error {
	e.sessions.Delete(id)
	if e.store == nil {
		return nil
	}
	if err := e.store.Delete(ctx, id); err != nil && !errors.Is(err, statex.ErrStateNotFound) {
		return err
	}
	return nil
}

// Clear drops every in-memory conversation. Snapshots in the store are
// left untouched.
func (e *Engine) Clear() {
	e.sessions.Reset()
}

func (e *Engine) persist(ctx context.Context, st *statex.Conversation) {
	if err := e.sessions.Put(st); err != nil {
		log.Error().Err(err).Str("conversation_id", st.ID).Msg("keep conversation in session registry")
	}
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, st); err != nil {
		log.Warn().Err(err).Str("conversation_id", st.ID).Msg("snapshot save failed, continuing without persistence")
	}
}
