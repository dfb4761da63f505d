package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talenthub/backend/internal/models"
)

func TestToggleReactionTwiceRestoresOriginal(t *testing.T) {
	original := models.Reactions{"👍": {"2"}}

	for _, emoji := range []string{"👍", "❤️"} {
		once := ToggleReaction(original, emoji, "1")
		assert.True(t, HasReacted(once, emoji, "1"))

		twice := ToggleReaction(once, emoji, "1")
		assert.Equal(t, original, twice)
	}
}

func TestToggleReactionLeavesOtherEmojiAlone(t *testing.T) {
	original := models.Reactions{"👍": {"2", "3"}}

	next := ToggleReaction(original, "❤️", "2")

	assert.Equal(t, []string{"2", "3"}, next["👍"])
	assert.Equal(t, []string{"2"}, next["❤️"])
}

func TestToggleReactionRemovesEmptyEmoji(t *testing.T) {
	next := ToggleReaction(models.Reactions{"🔥": {"1"}}, "🔥", "1")

	_, ok := next["🔥"]
	assert.False(t, ok)
	assert.Empty(t, next)
}

func TestToggleReactionDoesNotMutateInput(t *testing.T) {
	original := models.Reactions{"👍": {"1", "2"}}

	_ = ToggleReaction(original, "👍", "1")

	assert.Equal(t, models.Reactions{"👍": {"1", "2"}}, original)
}

func TestGroupReactions(t *testing.T) {
	groups := GroupReactions(models.Reactions{"👍": {"1", "2"}, "🎉": {"3"}}, "1")

	assert.Equal(t, []ReactionGroup{
		{Emoji: "🎉", Count: 1, Users: []string{"3"}, Mine: false},
		{Emoji: "👍", Count: 2, Users: []string{"1", "2"}, Mine: true},
	}, groups)
}

func TestExecuteRevertsOnCommitFailure(t *testing.T) {
	state := 0
	err := Execute(context.Background(), Command{
		Apply:  func() { state = 1 },
		Commit: func(_ context.Context) error { return assert.AnError },
		Revert: func() { state = 0 },
	})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, state)
}

func TestSetReaction(t *testing.T) {
	current := models.Reactions{"👍": {"2"}, "❤": {"1", "3"}}

	added := SetReaction(current, "👍", "1", true)
	assert.Equal(t, models.Reactions{"👍": {"2", "1"}, "❤": {"1", "3"}}, added)

	again := SetReaction(added, "👍", "1", true)
	assert.Equal(t, added, again)

	removed := SetReaction(current, "❤", "1", false)
	assert.Equal(t, models.Reactions{"👍": {"2"}, "❤": {"3"}}, removed)

	assert.Equal(t, current, SetReaction(current, "🎉", "1", false))
	assert.Equal(t, models.Reactions{"👍": {"2"}, "❤": {"1", "3"}}, current)
}
