package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	statex "github.com/smartinbox/server/agent/state"
)

// ComposerHandler turns the accumulated handler results into the final
// reply text. Unlike the domain handlers it expects plain prose from
// the completion service, so it does not go through the structured
// decode path. It also handles follow-up messages on a conversation
// that is waiting for the user.
type ComposerHandler struct {
	base
}

func (h *ComposerHandler) Name() string { return NameComposer }

func (h *ComposerHandler) Run(ctx context.Context, st *statex.Conversation) (*statex.Conversation, error) {
	h.compose(ctx, st, "compose_reply", "composing reply", composeContext(st))
	return st, nil
}

// Resume feeds a user follow-up back into the conversation. The user
// message joins the transcript before composition so the reply can see
// it alongside the earlier exchange.
func (h *ComposerHandler) Resume(ctx context.Context, st *statex.Conversation, userMessage string) (*statex.Conversation, error) {
	st.AppendTranscript(statex.Message{
		Role:      statex.RoleUser,
		Content:   userMessage,
		Timestamp: h.clock(),
	})
	st.MissingInfo = nil
	st.Status = statex.StatusProcessing

	h.compose(ctx, st, "handle_user_reply", "handling user follow-up", resumeContext(st))
	return st, nil
}

func (h *ComposerHandler) compose(ctx context.Context, st *statex.Conversation, action, startDetail, userContext string) {
	st.AppendLog(statex.LogEntry{
		Handler:   NameComposer,
		Action:    action,
		Timestamp: h.clock(),
		Detail:    startDetail,
		Status:    statex.LogStarted,
	})

	reply, err := h.svc.Invoke(ctx, h.prompt, userContext)
	reply = strings.TrimSpace(reply)
	if err != nil || reply == "" {
		detail := "empty reply, fallback used"
		if err != nil {
			detail = fmt.Sprintf("composition error, fallback reply used: %v", err)
			log.Error().Err(err).Msg("reply composition failed, using fallback text")
		}
		reply = fallbackReply(st)
		st.AppendLog(statex.LogEntry{
			Handler:   NameComposer,
			Action:    action,
			Timestamp: h.clock(),
			Detail:    detail,
			Status:    statex.LogFailed,
		})
	} else {
		st.AppendLog(statex.LogEntry{
			Handler:   NameComposer,
			Action:    action,
			Timestamp: h.clock(),
			Detail:    "reply composed",
			Status:    statex.LogCompleted,
		})
	}

	st.FinalReply = reply
	st.AppendTranscript(statex.Message{
		Role:          statex.RoleAssistant,
		Content:       reply,
		Timestamp:     h.clock(),
		OriginHandler: NameComposer,
	})

	if len(st.MissingInfo) > 0 {
		st.Status = statex.StatusWaitingForUser
	} else {
		st.Status = statex.StatusCompleted
	}
	st.Touch(h.clock())
}

// composeContext renders everything the handlers learned about the
// message into one digest for the reply prompt.
func composeContext(st *statex.Conversation) string {
	var sb strings.Builder
	sb.WriteString(emailContext(st.Message))
	sb.WriteString("\n\nClassification: " + string(st.Classification))

	for _, entry := range st.Results.Entries() {
		if entry.Name == NameClassifier {
			continue
		}
		blob, _ := json.MarshalIndent(entry.Value, "", "  ")
		sb.WriteString(fmt.Sprintf("\n\nResult from %s:\n%s", entry.Name, blob))
	}

	if len(st.MissingInfo) > 0 {
		sb.WriteString("\n\nMissing information to ask the sender for:\n")
		for _, item := range st.MissingInfo {
			sb.WriteString("- " + item + "\n")
		}
	}
	return sb.String()
}

// resumeContext renders only the conversation history. A follow-up is
// answered from the dialogue itself; the inbound message is the first
// transcript entry, so no fresh result digest is rebuilt.
func resumeContext(st *statex.Conversation) string {
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, m := range st.Transcript {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", m.Role, m.Content))
	}
	return sb.String()
}

// fallbackReply is used when the completion service cannot produce a
// reply; it still acknowledges the message and lists open questions.
func fallbackReply(st *statex.Conversation) string {
	var sb strings.Builder
	sb.WriteString("Thank you for your message. We have received your request")
	if st.Classification != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", st.Classification))
	}
	sb.WriteString(" and will get back to you shortly.")
	if len(st.MissingInfo) > 0 {
		sb.WriteString(" To proceed we still need the following information:")
		for _, item := range st.MissingInfo {
			sb.WriteString("\n- " + item)
		}
	}
	return sb.String()
}
