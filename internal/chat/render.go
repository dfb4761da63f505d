package chat

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/talenthub/backend/internal/models"
	"github.com/talenthub/backend/internal/richtext"
)

const dayLabelLayout = "January 2, 2006"

type DaySeparator struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

type RenderedMessage struct {
	ID           string          `json:"id"`
	SenderID     int64           `json:"sender_id"`
	Kind         Kind            `json:"kind"`
	Content      string          `json:"content"`
	HTML         string          `json:"html,omitempty"`
	FileName     string          `json:"file_name,omitempty"`
	Mine         bool            `json:"mine"`
	ShowSender   bool            `json:"show_sender"`
	SenderName   string          `json:"sender_name,omitempty"`
	SenderAvatar string          `json:"sender_avatar,omitempty"`
	Reply        *ReplyPreview   `json:"reply,omitempty"`
	Reactions    []ReactionGroup `json:"reactions,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Clock        string          `json:"clock"`
	RelativeTime string          `json:"relative_time"`
}

// Item is either a day separator or a message.
type Item struct {
	Separator *DaySeparator    `json:"separator,omitempty"`
	Message   *RenderedMessage `json:"message,omitempty"`
}

type RenderOptions struct {
	ViewerID         int64
	ConversationType string
	Participants     map[int64]models.DirectoryEntry
	Now              time.Time
	Location         *time.Location
}

// DayLabel names the calendar day of ts relative to now, both taken in loc.
func DayLabel(ts, now time.Time, loc *time.Location) string {
	day := startOfDay(ts, loc)
	today := startOfDay(now, loc)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format(dayLabelLayout)
	}
}

// RelativeLabel renders ts as "3 minutes ago" from the point of view of now.
func RelativeLabel(ts, now time.Time) string {
	return humanize.RelTime(ts, now, "ago", "from now")
}

func startOfDay(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Render walks messages in the order given and emits a day separator whenever
// the local calendar day changes. Messages are not re-sorted.
func Render(messages []models.ChatMessage, opts RenderOptions) []Item {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	viewer := strconv.FormatInt(opts.ViewerID, 10)

	loaded := make(map[string]*models.ChatMessage, len(messages))
	for i := range messages {
		loaded[messages[i].ID] = &messages[i]
	}

	items := make([]Item, 0, len(messages)+1)
	var prevDay time.Time
	var prevSender int64
	haveRun := false

	for i := range messages {
		message := &messages[i]
		day := startOfDay(message.CreatedAt, loc)
		if i == 0 || !day.Equal(prevDay) {
			items = append(items, Item{Separator: &DaySeparator{
				Date:  day.Format("2006-01-02"),
				Label: DayLabel(message.CreatedAt, now, loc),
			}})
			prevDay = day
			haveRun = false
		}

		rendered := renderMessage(message, opts, loaded, viewer, now, loc)
		if opts.ConversationType == models.ConversationGroup && !rendered.Mine {
			rendered.ShowSender = !haveRun || prevSender != message.SenderID
			if rendered.ShowSender {
				if entry, ok := opts.Participants[message.SenderID]; ok {
					rendered.SenderName = entry.DisplayName
					rendered.SenderAvatar = entry.AvatarURL
				}
			}
		}
		prevSender = message.SenderID
		haveRun = true

		items = append(items, Item{Message: rendered})
	}

	return items
}

func renderMessage(
	message *models.ChatMessage,
	opts RenderOptions,
	loaded map[string]*models.ChatMessage,
	viewer string,
	now time.Time,
	loc *time.Location,
) *RenderedMessage {
	kind := Classify(message.Content)
	rendered := &RenderedMessage{
		ID:           message.ID,
		SenderID:     message.SenderID,
		Kind:         kind,
		Content:      message.Content,
		Mine:         message.SenderID == opts.ViewerID,
		Reactions:    GroupReactions(message.Reactions, viewer),
		Timestamp:    message.CreatedAt,
		Clock:        message.CreatedAt.In(loc).Format("15:04"),
		RelativeTime: RelativeLabel(message.CreatedAt, now),
	}

	switch kind {
	case KindText, KindEmoji:
		rendered.HTML = richtext.Sanitize(message.Content)
	case KindFile, KindVoice:
		rendered.FileName = AttachmentName(message.Content)
	}

	if message.ReplyTo != nil && *message.ReplyTo != "" {
		preview := ResolveReply(*message.ReplyTo, loaded)
		rendered.Reply = &preview
	}
	return rendered
}
