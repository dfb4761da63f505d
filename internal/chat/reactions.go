package chat

import (
	"sort"

	"github.com/talenthub/backend/internal/models"
)

// ToggleReaction returns a new reaction map with userID added to emoji, or
// removed when it is already there. An emoji whose list becomes empty is
// removed. Entries for other emoji are copied untouched and the input is
// never modified.
func ToggleReaction(current models.Reactions, emoji, userID string) models.Reactions {
	next := make(models.Reactions, len(current)+1)
	for key, users := range current {
		next[key] = append([]string(nil), users...)
	}

	users := next[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(next, emoji)
			} else {
				next[emoji] = users
			}
			return next
		}
	}

	next[emoji] = append(users, userID)
	return next
}

// SetReaction returns a copy of current where userID is listed under emoji
// exactly when present is true.
func SetReaction(current models.Reactions, emoji, userID string, present bool) models.Reactions {
	if HasReacted(current, emoji, userID) != present {
		return ToggleReaction(current, emoji, userID)
	}
	next := make(models.Reactions, len(current))
	for key, users := range current {
		next[key] = append([]string(nil), users...)
	}
	return next
}

func sameReactions(a, b models.Reactions) bool {
	if len(a) != len(b) {
		return false
	}
	for emoji, users := range a {
		other, ok := b[emoji]
		if !ok || len(other) != len(users) {
			return false
		}
		for i := range users {
			if users[i] != other[i] {
				return false
			}
		}
	}
	return true
}

// HasReacted reports whether userID is listed under emoji.
func HasReacted(reactions models.Reactions, emoji, userID string) bool {
	for _, id := range reactions[emoji] {
		if id == userID {
			return true
		}
	}
	return false
}

type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
	Mine  bool     `json:"mine"`
}

// GroupReactions flattens a reaction map into a list ordered by emoji.
func GroupReactions(reactions models.Reactions, viewerID string) []ReactionGroup {
	if len(reactions) == 0 {
		return nil
	}

	groups := make([]ReactionGroup, 0, len(reactions))
	for emoji, users := range reactions {
		if len(users) == 0 {
			continue
		}
		groups = append(groups, ReactionGroup{
			Emoji: emoji,
			Count: len(users),
			Users: append([]string(nil), users...),
			Mine:  HasReacted(reactions, emoji, viewerID),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Emoji < groups[j].Emoji
	})
	return groups
}
