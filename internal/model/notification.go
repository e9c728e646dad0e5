package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationFollow  NotificationKind = "follow"
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationFollow, NotificationLike, NotificationComment:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index:idx_notif_feed,priority:1" json:"user_id"` // recipient
	User      *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Kind      NotificationKind `gorm:"size:20;not null" json:"type"`
	SenderID  uuid.UUID        `gorm:"type:uuid;not null" json:"sender_id"` // user who triggered it
	Sender    *User            `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	PostID    *uuid.UUID       `gorm:"type:uuid" json:"post_id,omitempty"` // nil for follow notifications
	Post      *Post            `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index:idx_notif_feed,priority:2,sort:desc" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
