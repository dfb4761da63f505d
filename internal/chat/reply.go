package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/richtext"
)

const (
	replyPreviewLimit = 100
	MissingReplyText  = "Message not found"
)

type ReplyPreview struct {
	MessageID string `json:"message_id"`
	SenderID  int64  `json:"sender_id,omitempty"`
	Text      string `json:"text"`
	Found     bool   `json:"found"`
}

// ResolveReply looks up the referenced message among the loaded ones. A
// missing message yields the placeholder preview.
func ResolveReply(replyTo string, loaded map[string]*models.ChatMessage) ReplyPreview {
	target, ok := loaded[replyTo]
	if !ok || target == nil {
		return ReplyPreview{MessageID: replyTo, Text: MissingReplyText}
	}

	return ReplyPreview{
		MessageID: replyTo,
		SenderID:  target.SenderID,
		Text:      PreviewText(target.Content),
		Found:     true,
	}
}

// PreviewText is a short plain-text rendition of a message, used for reply
// previews and inbox summaries.
func PreviewText(content string) string {
	switch Classify(content) {
	case KindVoice:
		return "Voice message"
	case KindImage:
		return "Photo"
	case KindFile:
		if name := AttachmentName(content); name != "" {
			return truncate(name)
		}
		return "File"
	}
	return truncate(richtext.PlainText(content))
}

func truncate(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= replyPreviewLimit {
		return text
	}
	runes := []rune(text)
	return string(runes[:replyPreviewLimit]) + "..."
}
