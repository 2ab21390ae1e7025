package services

import (
	"encoding/json"
	"testing"

	"ping_backend/internal/models"
	"ping_backend/internal/repositories"
	"ping_backend/internal/services/dto"
	"ping_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntakeRecord_AppendsPendingEvent(t *testing.T) {
	db := newServiceTestDB(t)
	intake := NewIntakeService(repositories.NewOutboxRepository(db))

	tx := db.Begin()
	err := intake.Record(tx, &dto.Fact{
		Kind:          models.FactKindChannelMention,
		ActorUserID:   "alice",
		ChannelID:     "chan-1",
		MessageID:     "msg-1",
		TargetUserIDs: []string{"bob", "carol"},
		Text:          "@bob @carol look at this",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	assert.Equal(t, models.FactKindChannelMention, event.Kind)
	assert.Equal(t, models.OutboxStatusPending, event.Status)
	require.NotNil(t, event.ChannelID)
	assert.Equal(t, "chan-1", *event.ChannelID)

	var ids []string
	require.NoError(t, json.Unmarshal(event.TargetUserIDs, &ids))
	assert.Equal(t, []string{"bob", "carol"}, ids)
}

func TestIntakeRecord_RollsBackWithCaller(t *testing.T) {
	db := newServiceTestDB(t)
	intake := NewIntakeService(repositories.NewOutboxRepository(db))

	tx := db.Begin()
	require.NoError(t, intake.Record(tx, &dto.Fact{
		Kind:        models.FactKindDirectMessage,
		ActorUserID: "alice",
		MessageID:   "msg-1",
		Text:        "hi",
	}))
	require.NoError(t, tx.Rollback().Error)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestIntakeRecord_RejectsBadFacts(t *testing.T) {
	db := newServiceTestDB(t)
	intake := NewIntakeService(repositories.NewOutboxRepository(db))

	cases := []struct {
		name string
		fact *dto.Fact
	}{
		{"unknown kind", &dto.Fact{Kind: "smoke_signal", ActorUserID: "alice", Text: "hi"}},
		{"missing actor", &dto.Fact{Kind: models.FactKindDirectMessage, Text: "hi"}},
		{"missing text", &dto.Fact{Kind: models.FactKindDirectMessage, ActorUserID: "alice"}},
	}
	for _, tc := range cases {
		err := intake.Record(db, tc.fact)
		require.Error(t, err, tc.name)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr, tc.name)
		assert.Equal(t, 400, appErr.HTTPCode, tc.name)
	}

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
