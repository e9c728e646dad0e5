package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
)

type CreateCommentInput struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

type CommentList struct {
	Comments   []*model.Comment `json:"comments"`
	Pagination pagination.Meta  `json:"pagination"`
}

type CommentService interface {
	Create(ctx context.Context, userID, postID uuid.UUID, input CreateCommentInput) (*model.Comment, error)
	ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) (*CommentList, error)
	Delete(ctx context.Context, userID, commentID uuid.UUID) error
}

type commentService struct {
	repo          repository.CommentRepository
	postRepo      repository.PostRepository
	userRepo      repository.UserRepository
	notifications NotificationService
}

func NewCommentService(
	repo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
) CommentService {
	return &commentService{
		repo:          repo,
		postRepo:      postRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

func (s *commentService) Create(ctx context.Context, userID, postID uuid.UUID, input CreateCommentInput) (*model.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperror.New(422, "comment content is required", apperror.ErrInvalidInput)
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	comment := &model.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, err
	}
	if err := s.postRepo.AdjustCommentsCount(ctx, postID, 1); err != nil {
		log.Printf("comment: failed to bump comments_count of %s: %v", postID, err)
	}

	s.notifications.CreateNotification(ctx, post.AuthorID, model.NotificationComment, UserByID(userID), PostRecord(post))

	return s.repo.FindByID(ctx, comment.ID)
}

func (s *commentService) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) (*CommentList, error) {
	if _, err := s.postRepo.FindByID(ctx, postID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	page, err := s.repo.FindByPostID(ctx, postID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &CommentList{Comments: page.Data, Pagination: page.Meta()}, nil
}

func (s *commentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(404, "comment not found", apperror.ErrNotFound)
		}
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperror.ErrUnauthorized
	}
	if comment.UserID != userID && !user.IsAdmin() {
		return apperror.New(403, "you can only delete your own comments", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, commentID); err != nil {
		return err
	}
	if err := s.postRepo.AdjustCommentsCount(ctx, comment.PostID, -1); err != nil {
		log.Printf("comment: failed to lower comments_count of %s: %v", comment.PostID, err)
	}
	return nil
}
