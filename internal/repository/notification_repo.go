package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/pagination"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*pagination.Result[*model.Notification], error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var notification model.Notification
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Post").
		Where("id = ?", id).
		First(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// FindByUserID orders by created_at descending; that is the canonical feed
// order for a recipient.
func (r *notificationRepository) FindByUserID(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*pagination.Result[*model.Notification], error) {
	query := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID).
		Preload("Sender").
		Preload("Post")
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	return pagination.Paginate[*model.Notification](query, limit, offset, "created_at desc")
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
