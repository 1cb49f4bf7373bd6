package state

import (
	"errors"
	"strings"
	"sync"
)

var ErrConversationNotFound = errors.New("conversation not found")

// Registry holds the live conversations of the process, keyed by
// conversation id, so a waiting-for-user state can be resumed on a
// later call. Entries are snapshots: Put stores an independent copy
// and Get/Latest hand independent copies back, so an update is a true
// whole-state replacement and concurrent readers never share a
// mutable struct with a writer.
type Registry struct {
	mu    sync.Mutex
	byID  map[string]*Conversation
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Conversation, 16)}
}

// Get returns a snapshot of the conversation for id.
func (r *Registry) Get(id string) (*Conversation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byID[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return st.Clone(), nil
}

// Put replaces the stored conversation for its id with a snapshot of
// st.
func (r *Registry) Put(st *Conversation) error {
	if st == nil {
		return ErrNilConversation
	}
	if err := st.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[st.ID]; !ok {
		r.order = append(r.order, st.ID)
	}
	r.byID[st.ID] = st.Clone()
	return nil
}

// Reserve stores a snapshot of st only when its id is not yet present.
// When the id is already taken the stored conversation is returned
// instead, so concurrent runs on the same message collapse onto one
// winner.
func (r *Registry) Reserve(st *Conversation) (*Conversation, bool, error) {
	if st == nil {
		return nil, false, ErrNilConversation
	}
	if err := st.Validate(); err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[st.ID]; ok {
		return existing.Clone(), false, nil
	}
	r.order = append(r.order, st.ID)
	r.byID[st.ID] = st.Clone()
	return nil, true, nil
}

// Latest returns a snapshot of the most recently inserted
// conversation, if any.
func (r *Registry) Latest() (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		if st, ok := r.byID[r.order[i]]; ok {
			return st.Clone(), true
		}
	}
	return nil, false
}

// Delete removes the conversation for id, if present.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, strings.TrimSpace(id))
}

// Reset drops every stored conversation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]*Conversation, 16)
	r.order = nil
}
