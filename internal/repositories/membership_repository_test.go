package repositories

import (
	"context"
	"testing"
	"time"

	"ping_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipRepository_Participants(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	left := time.Now().Add(-time.Hour)
	rows := []models.ConversationParticipant{
		{ConversationID: "conv-1", UserID: "user-a"},
		{ConversationID: "conv-1", UserID: "user-b", Muted: true},
		{ConversationID: "conv-1", UserID: "user-c", LeftAt: &left},
		{ConversationID: "conv-2", UserID: "user-d"},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	participants, err := repo.ParticipantsOf(ctx, "conv-1")
	require.NoError(t, err)
	// Departed members are no longer participants.
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, participants)

	muted, err := repo.IsConversationMuted(ctx, "user-b", "conv-1")
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = repo.IsConversationMuted(ctx, "user-a", "conv-1")
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestMembershipRepository_Channels(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.ChannelMember{ChannelID: "chan-1", UserID: "user-a"}).Error)
	require.NoError(t, db.Create(&models.ChannelMember{ChannelID: "chan-1", UserID: "user-b", Muted: true}).Error)

	visible, err := repo.CanViewChannel(ctx, "user-a", "chan-1")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = repo.CanViewChannel(ctx, "user-z", "chan-1")
	require.NoError(t, err)
	assert.False(t, visible)

	muted, err := repo.IsChannelMuted(ctx, "user-b", "chan-1")
	require.NoError(t, err)
	assert.True(t, muted)
}

func TestMembershipRepository_Audiences(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.CardWatcher{CardID: "card-1", UserID: "user-a", Role: models.WatcherRoleAssignee}).Error)
	require.NoError(t, db.Create(&models.CardWatcher{CardID: "card-1", UserID: "user-b", Role: models.WatcherRoleWatcher}).Error)
	require.NoError(t, db.Create(&models.BoardWatcher{BoardID: "board-1", UserID: "user-c", Role: models.WatcherRoleOwner}).Error)

	card, err := repo.CardAudience(ctx, "card-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-a", "user-b"}, card)

	board, err := repo.BoardAudience(ctx, "board-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-c"}, board)
}

func TestPreferenceRepository_DoNotDisturb(t *testing.T) {
	db := newTestDB(t)
	repo := NewPreferenceRepository(db)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.UserPreference{UserID: "user-indefinite", DoNotDisturb: true}).Error)
	require.NoError(t, db.Create(&models.UserPreference{UserID: "user-until", DoNotDisturb: true, DNDUntil: &future}).Error)
	require.NoError(t, db.Create(&models.UserPreference{UserID: "user-expired", DoNotDisturb: true, DNDUntil: &past}).Error)
	require.NoError(t, db.Create(&models.UserPreference{UserID: "user-off", DoNotDisturb: false}).Error)

	cases := []struct {
		userID string
		active bool
	}{
		{"user-indefinite", true},
		{"user-until", true},
		{"user-expired", false},
		{"user-off", false},
		{"user-unknown", false},
	}
	for _, tc := range cases {
		active, err := repo.IsDoNotDisturbActive(ctx, tc.userID)
		require.NoError(t, err)
		assert.Equal(t, tc.active, active, "user %s", tc.userID)
	}
}
