package chat

import (
	"net/url"
	"path"
	"strings"

	"github.com/talenthub/backend/internal/richtext"
)

// Kind decides how a message is laid out. It never changes the stored content.
type Kind string

const (
	KindVoice Kind = "voice"
	KindImage Kind = "image"
	KindFile  Kind = "file"
	KindEmoji Kind = "emoji"
	KindText  Kind = "text"
)

// VoiceMarker prefixes the content of recorded voice messages. The rest of
// the content is the audio URL.
const VoiceMarker = "[voice-message]"

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true,
}

var fileExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".zip": true, ".csv": true,
}

// Classify checks, in order: voice marker, image extension, document
// extension, emoji-only content, and falls back to rich text.
func Classify(content string) Kind {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, VoiceMarker) {
		return KindVoice
	}

	if ext, ok := attachmentExtension(trimmed); ok {
		if imageExtensions[ext] {
			return KindImage
		}
		if fileExtensions[ext] {
			return KindFile
		}
	}

	if richtext.IsEmojiOnly(trimmed) {
		return KindEmoji
	}
	return KindText
}

// attachmentExtension returns the lowercased extension of a bare URL. Query
// strings and fragments are ignored.
func attachmentExtension(content string) (string, bool) {
	if content == "" || strings.ContainsAny(content, " \t\n<>") {
		return "", false
	}
	parsed, err := url.Parse(content)
	if err != nil || parsed.Path == "" {
		return "", false
	}
	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	return strings.ToLower(path.Ext(parsed.Path)), true
}

// AttachmentName is the last path segment of an attachment URL.
func AttachmentName(content string) string {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), VoiceMarker))
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
