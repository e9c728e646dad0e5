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
	"linkfeed.io/backend/pkg/storage"
)

type CreatePostInput struct {
	Content string `json:"content" form:"content" binding:"required,min=1,max=5000"`
}

type UpdatePostInput struct {
	Content *string `json:"content" binding:"omitempty,min=1,max=5000"`
}

type PostResponse struct {
	*model.Post
	Liked bool `json:"liked"`
}

type PostList struct {
	Posts      []*PostResponse `json:"posts"`
	Pagination pagination.Meta `json:"pagination"`
}

type PostService interface {
	Create(ctx context.Context, authorID uuid.UUID, input CreatePostInput, image *ImageFile) (*model.Post, error)
	Get(ctx context.Context, id, viewerID uuid.UUID) (*PostResponse, error)
	List(ctx context.Context, authorUsername string, viewerID uuid.UUID, limit, offset int) (*PostList, error)
	Feed(ctx context.Context, userID uuid.UUID, limit, offset int) (*PostList, error)
	Update(ctx context.Context, userID, postID uuid.UUID, input UpdatePostInput) (*model.Post, error)
	Delete(ctx context.Context, userID, postID uuid.UUID) error
	Like(ctx context.Context, userID, postID uuid.UUID) error
	Unlike(ctx context.Context, userID, postID uuid.UUID) error
}

type postService struct {
	repo          repository.PostRepository
	userRepo      repository.UserRepository
	likeRepo      repository.LikeRepository
	followRepo    repository.FollowRepository
	notifications NotificationService
	imageStorage  storage.ImageStorage
	search        SearchService
}

func NewPostService(
	repo repository.PostRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
	notifications NotificationService,
	imageStorage storage.ImageStorage,
	search SearchService,
) PostService {
	return &postService{
		repo:          repo,
		userRepo:      userRepo,
		likeRepo:      likeRepo,
		followRepo:    followRepo,
		notifications: notifications,
		imageStorage:  imageStorage,
		search:        search,
	}
}

func (s *postService) Create(ctx context.Context, authorID uuid.UUID, input CreatePostInput, image *ImageFile) (*model.Post, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperror.New(422, "post content is required", apperror.ErrInvalidInput)
	}

	post := &model.Post{
		AuthorID: authorID,
		Content:  content,
	}

	if image != nil && image.Reader != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, image.Reader, "posts", image.FileName)
		if err != nil {
			return nil, err
		}
		post.ImageURL = &url
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexPost(created); err != nil {
			log.Printf("post: failed to index post %s: %v", created.ID, err)
		}
	}

	return created, nil
}

func (s *postService) Get(ctx context.Context, id, viewerID uuid.UUID) (*PostResponse, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return nil, err
	}
	return s.withLikedFlag(ctx, post, viewerID)
}

func (s *postService) List(ctx context.Context, authorUsername string, viewerID uuid.UUID, limit, offset int) (*PostList, error) {
	var authorID *uuid.UUID
	if authorUsername != "" {
		author, err := s.userRepo.FindByUsername(ctx, authorUsername)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Unknown author filter yields an empty page, not an error.
				return &PostList{Posts: []*PostResponse{}}, nil
			}
			return nil, err
		}
		authorID = &author.ID
	}

	page, err := s.repo.FindAll(ctx, authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.buildList(ctx, page, viewerID)
}

func (s *postService) Feed(ctx context.Context, userID uuid.UUID, limit, offset int) (*PostList, error) {
	followingIDs, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(followingIDs) == 0 {
		return &PostList{Posts: []*PostResponse{}}, nil
	}

	page, err := s.repo.FindByAuthorIDs(ctx, followingIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.buildList(ctx, page, userID)
}

func (s *postService) Update(ctx context.Context, userID, postID uuid.UUID, input UpdatePostInput) (*model.Post, error) {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	if post.AuthorID != userID {
		return nil, apperror.New(403, "you can only update your own posts", apperror.ErrForbidden)
	}

	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, apperror.New(422, "post content is required", apperror.ErrInvalidInput)
		}
		post.Content = content
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexPost(post); err != nil {
			log.Printf("post: failed to reindex post %s: %v", post.ID, err)
		}
	}

	return post, nil
}

func (s *postService) Delete(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return apperror.ErrUnauthorized
	}
	if post.AuthorID != userID && !user.IsAdmin() {
		return apperror.New(403, "you can only delete your own posts", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return err
	}

	if post.ImageURL != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *post.ImageURL); err != nil {
			log.Printf("post: failed to delete image of %s: %v", postID, err)
		}
	}
	if s.search != nil {
		if err := s.search.RemovePost(postID.String()); err != nil {
			log.Printf("post: failed to remove post %s from index: %v", postID, err)
		}
	}

	return nil
}

func (s *postService) Like(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(404, "post not found", apperror.ErrNotFound)
		}
		return err
	}

	liked, err := s.likeRepo.Exists(ctx, userID, postID)
	if err != nil {
		return err
	}
	if liked {
		return apperror.New(409, "post already liked", apperror.ErrConflict)
	}

	if err := s.likeRepo.Create(ctx, &model.Like{UserID: userID, PostID: postID}); err != nil {
		return err
	}
	if err := s.repo.AdjustLikesCount(ctx, postID, 1); err != nil {
		log.Printf("post: failed to bump likes_count of %s: %v", postID, err)
	}

	// Author is notified; the post row is in hand, the liker only as an ID.
	s.notifications.CreateNotification(ctx, post.AuthorID, model.NotificationLike, UserByID(userID), PostRecord(post))

	return nil
}

func (s *postService) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	removed, err := s.likeRepo.Delete(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.New(404, "post not liked", apperror.ErrNotFound)
	}

	if err := s.repo.AdjustLikesCount(ctx, postID, -1); err != nil {
		log.Printf("post: failed to lower likes_count of %s: %v", postID, err)
	}
	return nil
}

func (s *postService) withLikedFlag(ctx context.Context, post *model.Post, viewerID uuid.UUID) (*PostResponse, error) {
	liked := false
	if viewerID != uuid.Nil {
		var err error
		liked, err = s.likeRepo.Exists(ctx, viewerID, post.ID)
		if err != nil {
			return nil, err
		}
	}
	return &PostResponse{Post: post, Liked: liked}, nil
}

func (s *postService) buildList(ctx context.Context, page *pagination.Result[*model.Post], viewerID uuid.UUID) (*PostList, error) {
	posts := make([]*PostResponse, 0, len(page.Data))
	for _, post := range page.Data {
		item, err := s.withLikedFlag(ctx, post, viewerID)
		if err != nil {
			return nil, err
		}
		posts = append(posts, item)
	}
	return &PostList{Posts: posts, Pagination: page.Meta()}, nil
}
