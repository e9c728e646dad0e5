package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/token"
)

type RegisterInput struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Bio      *string `json:"bio"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

// ImageFile is an uploaded image (avatar or post image) handed down from a
// multipart request.
type ImageFile struct {
	Reader   io.Reader
	FileName string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	tokens *token.Manager
	search SearchService
}

func NewAuthService(repo repository.UserRepository, tokens *token.Manager, search SearchService) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		search: search,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	if err := s.ensureUserUnique(ctx, input.Email, input.Username); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         model.RoleUser,
		Bio:          input.Bio,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Search indexing is best-effort; a down index never blocks signup.
	if s.search != nil {
		if err := s.search.IndexUser(user); err != nil {
			log.Printf("auth: failed to index user %s: %v", user.ID, err)
		}
	}

	return s.buildAuthResponse(user)
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(401, "invalid email or password", apperror.ErrUnauthorized)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.New(401, "invalid email or password", apperror.ErrUnauthorized)
	}

	return s.buildAuthResponse(user)
}

func (s *authService) ensureUserUnique(ctx context.Context, email, username string) error {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return apperror.New(409, "email is already registered", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return apperror.New(409, "username is already taken", apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return nil
}

func (s *authService) buildAuthResponse(user *model.User) (*AuthResponse, error) {
	accessToken, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        user,
	}, nil
}
