package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/pagination"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error)
	FindByPostID(ctx context.Context, postID uuid.UUID, limit, offset int) (*pagination.Result[*model.Comment], error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *model.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", id).
		First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) FindByPostID(ctx context.Context, postID uuid.UUID, limit, offset int) (*pagination.Result[*model.Comment], error) {
	query := r.db.WithContext(ctx).Model(&model.Comment{}).
		Where("post_id = ?", postID).
		Preload("User")
	return pagination.Paginate[*model.Comment](query, limit, offset, "created_at desc")
}

func (r *commentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Comment{}).Error
}
