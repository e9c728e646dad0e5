package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/pagination"
)

type FollowRepository interface {
	Create(ctx context.Context, follow *model.Follow) error
	Delete(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Exists(ctx context.Context, followerID, followingID uuid.UUID) (bool, error)
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error)
	FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error)
	CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *model.Follow) error {
	return r.db.WithContext(ctx).Create(follow).Error
}

// Delete reports whether a row was actually removed, so callers can
// distinguish "unfollowed" from "was not following".
func (r *followRepository) Delete(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error) {
	query := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ?", userID).
		Preload("Follower")
	return pagination.Paginate[*model.Follow](query, limit, offset, "created_at desc")
}

func (r *followRepository) Following(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error) {
	query := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userID).
		Preload("Following")
	return pagination.Paginate[*model.Follow](query, limit, offset, "created_at desc")
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error
	return ids, err
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("following_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	return count, err
}
