package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ping_backend/internal/models"
	"ping_backend/internal/repositories"
	"ping_backend/internal/services/dto"
	"ping_backend/internal/validator"
	"ping_backend/pkg/apperrors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IntakeService is how the message, kanban, invite, bot, and calendar
// services hand facts to the notification pipeline. Record runs inside the
// caller's transaction; if that transaction rolls back, so does the fact.
type IntakeService interface {
	Record(tx *gorm.DB, fact *dto.Fact) error
}

type intakeService struct {
	outbox    repositories.OutboxRepository
	validator *validator.Validator
}

func NewIntakeService(outbox repositories.OutboxRepository) IntakeService {
	return &intakeService{
		outbox:    outbox,
		validator: validator.New(),
	}
}

func (s *intakeService) Record(tx *gorm.DB, fact *dto.Fact) error {
	if err := s.validator.Validate(fact); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			return apperrors.ValidationError(verr.Errors)
		}
		return apperrors.InternalError(err)
	}
	if !models.ValidFactKind(fact.Kind) {
		return apperrors.NewBadRequestError(fmt.Sprintf("unknown fact kind %q", fact.Kind))
	}
	if fact.Type != "" && !models.ValidNotificationType(fact.Type) {
		return apperrors.NewBadRequestError(fmt.Sprintf("unknown notification type %q", fact.Type))
	}

	event := &models.OutboxEvent{
		Kind:                 fact.Kind,
		ActorUserID:          fact.ActorUserID,
		RecipientUserID:      optional(fact.RecipientUserID),
		DirectConversationID: optional(fact.DirectConversationID),
		ChannelID:            optional(fact.ChannelID),
		MessageID:            optional(fact.MessageID),
		TargetID:             optional(fact.TargetID),
		Type:                 fact.Type,
		Text:                 fact.Text,
		Status:               models.OutboxStatusPending,
	}
	if len(fact.TargetUserIDs) > 0 {
		raw, err := json.Marshal(fact.TargetUserIDs)
		if err != nil {
			return apperrors.InternalError(err)
		}
		event.TargetUserIDs = datatypes.JSON(raw)
	}

	if err := s.outbox.Append(tx, event); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "notifications", "Failed to record notification fact", http.StatusInternalServerError)
	}
	return nil
}
