package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
	"linkfeed.io/backend/pkg/storage"
)

type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatar_url"`
	Location    *string   `json:"location"`
	Website     *string   `json:"website"`
	CreatedAt   time.Time `json:"created_at"`
	Followers   int64     `json:"followers"`
	Following   int64     `json:"following"`
	IsFollowing bool      `json:"is_following"`
}

type UpdateProfileInput struct {
	Bio      *string `json:"bio" form:"bio"`
	Location *string `json:"location" form:"location" binding:"omitempty,max=100"`
	Website  *string `json:"website" form:"website" binding:"omitempty,url"`
}

type UserList struct {
	Users      []*model.User   `json:"users"`
	Pagination pagination.Meta `json:"pagination"`
}

type UserService interface {
	CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
	GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput, avatar *ImageFile) (*model.User, error)
	Follow(ctx context.Context, followerID, targetID uuid.UUID) error
	Unfollow(ctx context.Context, followerID, targetID uuid.UUID) error
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) (*UserList, error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) (*UserList, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	repo          repository.UserRepository
	followRepo    repository.FollowRepository
	notifications NotificationService
	imageStorage  storage.ImageStorage
	search        SearchService
}

func NewUserService(
	repo repository.UserRepository,
	followRepo repository.FollowRepository,
	notifications NotificationService,
	imageStorage storage.ImageStorage,
	search SearchService,
) UserService {
	return &userService{
		repo:          repo,
		followRepo:    followRepo,
		notifications: notifications,
		imageStorage:  imageStorage,
		search:        search,
	}
}

func (s *userService) CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*ProfileResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	followers, err := s.followRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	isFollowing := false
	if viewerID != uuid.Nil && viewerID != user.ID {
		isFollowing, err = s.followRepo.Exists(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ProfileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Bio:         user.Bio,
		AvatarURL:   user.AvatarURL,
		Location:    user.Location,
		Website:     user.Website,
		CreatedAt:   user.CreatedAt,
		Followers:   followers,
		Following:   following,
		IsFollowing: isFollowing,
	}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput, avatar *ImageFile) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.Location != nil {
		user.Location = input.Location
	}
	if input.Website != nil {
		user.Website = input.Website
	}

	if avatar != nil && avatar.Reader != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, "avatars", avatar.FileName)
		if err != nil {
			return nil, err
		}
		if user.AvatarURL != nil {
			if err := s.imageStorage.DeleteImage(ctx, *user.AvatarURL); err != nil {
				log.Printf("user: failed to delete old avatar of %s: %v", userID, err)
			}
		}
		user.AvatarURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.IndexUser(user); err != nil {
			log.Printf("user: failed to reindex user %s: %v", userID, err)
		}
	}

	return user, nil
}

func (s *userService) Follow(ctx context.Context, followerID, targetID uuid.UUID) error {
	if followerID == targetID {
		return apperror.New(400, "users cannot follow themselves", apperror.ErrBadRequest)
	}

	follower, err := s.repo.FindByID(ctx, followerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrUnauthorized
		}
		return err
	}
	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(404, "user to follow not found", apperror.ErrNotFound)
		}
		return err
	}

	exists, err := s.followRepo.Exists(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if exists {
		return apperror.New(409, "already following this user", apperror.ErrConflict)
	}

	if err := s.followRepo.Create(ctx, &model.Follow{
		FollowerID:  followerID,
		FollowingID: targetID,
	}); err != nil {
		return err
	}

	// The target is notified; the follower record is already loaded, so pass
	// it through and spare the notification path a lookup.
	s.notifications.CreateNotification(ctx, targetID, model.NotificationFollow, UserRecord(follower), nil)

	return nil
}

func (s *userService) Unfollow(ctx context.Context, followerID, targetID uuid.UUID) error {
	removed, err := s.followRepo.Delete(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return apperror.New(404, "not following this user", apperror.ErrNotFound)
	}
	return nil
}

func (s *userService) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) (*UserList, error) {
	page, err := s.followRepo.Followers(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(page.Data))
	for _, follow := range page.Data {
		if follow.Follower != nil {
			users = append(users, follow.Follower)
		}
	}
	return &UserList{Users: users, Pagination: page.Meta()}, nil
}

// DeleteUser removes an account. Reserved for admins; the route guard
// enforces that.
func (s *userService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(404, "user not found", apperror.ErrNotFound)
		}
		return err
	}

	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}

	if user.AvatarURL != nil && s.imageStorage != nil {
		if err := s.imageStorage.DeleteImage(ctx, *user.AvatarURL); err != nil {
			log.Printf("user: failed to delete avatar of %s: %v", user.ID, err)
		}
	}
	if s.search != nil {
		if err := s.search.RemoveUser(user.ID.String()); err != nil {
			log.Printf("user: failed to deindex %s: %v", user.ID, err)
		}
	}
	return nil
}

func (s *userService) Following(ctx context.Context, userID uuid.UUID, limit, offset int) (*UserList, error) {
	page, err := s.followRepo.Following(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(page.Data))
	for _, follow := range page.Data {
		if follow.Following != nil {
			users = append(users, follow.Following)
		}
	}
	return &UserList{Users: users, Pagination: page.Meta()}, nil
}
