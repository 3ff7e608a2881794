package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubscriptionEvent - запись истории подписки. Только добавление, без изменений.
type SubscriptionEvent struct {
	BaseModel
	SubscriptionID string                `gorm:"size:36;not null;index" json:"subscription_id"`
	Type           SubscriptionEventType `gorm:"size:32;not null" json:"type"`
	OccurredAt     time.Time             `gorm:"not null;index" json:"occurred_at"`
	Metadata       datatypes.JSONMap     `json:"metadata,omitempty"`
}

func (SubscriptionEvent) TableName() string {
	return "subscription_events"
}

// MetadataString достает строковое поле из metadata
func (e *SubscriptionEvent) MetadataString(key string) (string, bool) {
	if e.Metadata == nil {
		return "", false
	}
	v, ok := e.Metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
