package chatws

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

const (
	frameOpen    = "open"
	frameClose   = "close"
	frameCompose = "compose"
	frameSend    = "send"
	frameMessage = "message"
	frameReact   = "react"
)

var (
	errInvalidPayload      = errors.New("invalid message payload")
	errUnsupportedType     = errors.New("unsupported message type")
	errInvalidConversation = errors.New("invalid conversation id")
	errInvalidMessageID    = errors.New("invalid message id")
)

// inboundFrame is a client frame after normalization.
type inboundFrame struct {
	Type           string
	ConversationID int64
	MessageID      string
	Content        string
	ReplyTo        *string
	Emoji          string
}

type rawFrame struct {
	Type           string          `json:"type"`
	ConversationID json.RawMessage `json:"conversation_id"`
	MessageID      string          `json:"message_id"`
	Content        string          `json:"content"`
	ReplyTo        *string         `json:"reply_to"`
	Emoji          string          `json:"emoji"`
}

// normalizeFrame is the only place client payloads are parsed. Conversation
// ids may arrive as numbers or numeric strings; anything it cannot make sense
// of is rejected.
func normalizeFrame(payload []byte) (inboundFrame, error) {
	var raw rawFrame
	if err := json.Unmarshal(payload, &raw); err != nil {
		return inboundFrame{}, errInvalidPayload
	}

	frame := inboundFrame{
		Type:      strings.ToLower(strings.TrimSpace(raw.Type)),
		MessageID: strings.TrimSpace(raw.MessageID),
		Content:   raw.Content,
		Emoji:     strings.TrimSpace(raw.Emoji),
	}
	if raw.ReplyTo != nil {
		if trimmed := strings.TrimSpace(*raw.ReplyTo); trimmed != "" {
			frame.ReplyTo = &trimmed
		}
	}

	switch frame.Type {
	case frameOpen, frameClose, frameCompose, frameSend, frameMessage, frameReact:
	default:
		return inboundFrame{}, errUnsupportedType
	}

	conversationID, ok := parseID(raw.ConversationID)
	if !ok {
		return inboundFrame{}, errInvalidConversation
	}
	frame.ConversationID = conversationID

	if frame.Type == frameReact && frame.MessageID == "" {
		return inboundFrame{}, errInvalidMessageID
	}

	return frame, nil
}

func parseID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
	}

	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
