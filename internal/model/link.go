package model

import (
	"time"

	"github.com/google/uuid"
)

// Link представляет одну сокращённую ссылку — единственную сущность ядра.
type Link struct {
	ID        uuid.UUID  `json:"id"`
	ShortCode string     `json:"short_code"`
	TargetURL string     `json:"target_url"`
	Clicks    int64      `json:"clicks"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// IsExpired сообщает, истёк ли срок действия ссылки на момент now.
// Ссылка без ExpiresAt бессрочна.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}
