package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// Notification publish lifecycle. Rows start PENDING; the dispatcher claims
// them PROCESSING, then marks SENT, FAILED (retryable) or DEAD (poison).
const (
	NotificationPublishStatusPending    = "PENDING"
	NotificationPublishStatusProcessing = "PROCESSING"
	NotificationPublishStatusSent       = "SENT"
	NotificationPublishStatusFailed     = "FAILED"
	NotificationPublishStatusDead       = "DEAD"
)

// NotificationRecord is the transactional outbox row: written inside the
// same transaction as the status change it announces, never published
// inline. The dispatcher publishes after commit, so a Pub/Sub outage can
// delay a notification but never roll back a reception.
type NotificationRecord struct {
	ID               int               `gorm:"primary_key" json:"id"`
	Event            NotificationEvent `gorm:"size:50;not null" json:"event"`
	RequestId        int               `gorm:"index;not null" json:"request_id"`
	Payload          []byte            `gorm:"type:json" json:"payload"`
	PublishStatus    string            `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts  int               `gorm:"not null;default:0" json:"publish_attempts"`
	LastPublishError *string           `gorm:"type:text" json:"last_publish_error"`
	NextAttemptAt    *time.Time        `json:"next_attempt_at"`
	LockedAt         *time.Time        `json:"locked_at"`
	LockedBy         *string           `gorm:"size:64" json:"locked_by"`
	PubSubMessageId  *string           `gorm:"size:128" json:"pub_sub_message_id"`
	CorrelationId    string            `gorm:"size:64" json:"correlation_id"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	PublishedAt      *time.Time        `json:"published_at"`
}

// NotificationPayload is the wire shape of a published notification.
type NotificationPayload struct {
	Event         NotificationEvent `json:"event"`
	RequestId     int               `json:"request_id"`
	ActorId       int               `json:"actor_id"`
	ActorName     string            `json:"actor_name"`
	CorrelationId string            `json:"correlation_id"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// queueNotification writes an outbox row inside the caller's transaction.
func queueNotification(tx *gorm.DB, event NotificationEvent, requestId int) error {
	ctx := tx.Statement.Context
	actorId, _ := utils.GetUserIdFromContext(ctx)
	actorName, _ := utils.GetUserNameFromContext(ctx)

	payload := NotificationPayload{
		Event:         event,
		RequestId:     requestId,
		ActorId:       actorId,
		ActorName:     actorName,
		CorrelationId: correlationIdFromContextOrNew(ctx),
		OccurredAt:    time.Now().UTC(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := NotificationRecord{
		Event:         event,
		RequestId:     requestId,
		Payload:       body,
		PublishStatus: NotificationPublishStatusPending,
		CorrelationId: payload.CorrelationId,
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// ReplayNotifications resets a request's FAILED/DEAD outbox rows to PENDING
// so the dispatcher picks them up again. Ops tooling for rows that went
// terminal during a prolonged Pub/Sub outage.
func ReplayNotifications(ctx context.Context, requestId int) (int64, error) {
	db := config.GetDB()

	res := db.WithContext(ctx).
		Model(&NotificationRecord{}).
		Where("request_id = ? AND publish_status IN ?", requestId,
			[]string{NotificationPublishStatusFailed, NotificationPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":     NotificationPublishStatusPending,
			"publish_attempts":   0,
			"last_publish_error": nil,
			"next_attempt_at":    nil,
			"locked_at":          nil,
			"locked_by":          nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return res.RowsAffected, nil
}
