package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/pagination"
)

type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	FindAll(ctx context.Context, authorID *uuid.UUID, limit, offset int) (*pagination.Result[*model.Post], error)
	FindByAuthorIDs(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) (*pagination.Result[*model.Post], error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustLikesCount(ctx context.Context, id uuid.UUID, delta int) error
	AdjustCommentsCount(ctx context.Context, id uuid.UUID, delta int) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id = ?", id).
		First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindAll(ctx context.Context, authorID *uuid.UUID, limit, offset int) (*pagination.Result[*model.Post], error) {
	query := r.db.WithContext(ctx).Model(&model.Post{}).Preload("Author")
	if authorID != nil {
		query = query.Where("author_id = ?", *authorID)
	}
	return pagination.Paginate[*model.Post](query, limit, offset, "created_at desc")
}

func (r *postRepository) FindByAuthorIDs(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) (*pagination.Result[*model.Post], error) {
	query := r.db.WithContext(ctx).Model(&model.Post{}).
		Where("author_id IN ?", authorIDs).
		Preload("Author")
	return pagination.Paginate[*model.Post](query, limit, offset, "created_at desc")
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Post{}).Error
	})
}

func (r *postRepository) AdjustLikesCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		UpdateColumn("likes_count", gorm.Expr("GREATEST(likes_count + ?, 0)", delta)).Error
}

func (r *postRepository) AdjustCommentsCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).
		UpdateColumn("comments_count", gorm.Expr("GREATEST(comments_count + ?, 0)", delta)).Error
}
