package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/internal/realtime"
	"linkfeed.io/backend/internal/repository"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
)

// UserRef identifies a notification sender either by bare ID or by an
// already-loaded record. Callers that have the row in hand pass it along and
// spare the service a lookup.
type UserRef struct {
	ID   uuid.UUID
	User *model.User
}

func UserByID(id uuid.UUID) UserRef {
	return UserRef{ID: id}
}

func UserRecord(u *model.User) UserRef {
	return UserRef{ID: u.ID, User: u}
}

// PostRef is the optional subject of a notification (present for like and
// comment, absent for follow).
type PostRef struct {
	ID   uuid.UUID
	Post *model.Post
}

func PostByID(id uuid.UUID) *PostRef {
	return &PostRef{ID: id}
}

func PostRecord(p *model.Post) *PostRef {
	return &PostRef{ID: p.ID, Post: p}
}

// SenderSummary is the sender block of a notification payload. Display fields
// are null when the sender could not be resolved; the id is always present.
type SenderSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  *string   `json:"username"`
	AvatarURL *string   `json:"avatar_url"`
	Bio       *string   `json:"bio"`
}

// PostSummary is the subject block of a notification payload.
type PostSummary struct {
	ID       uuid.UUID `json:"id"`
	Content  *string   `json:"content"`
	ImageURL *string   `json:"image_url"`
}

// NotificationPayload is both the live push payload and the REST list item.
type NotificationPayload struct {
	ID        uuid.UUID              `json:"id"`
	Kind      model.NotificationKind `json:"type"`
	Sender    SenderSummary          `json:"sender"`
	Post      *PostSummary           `json:"post"`
	IsRead    bool                   `json:"is_read"`
	CreatedAt time.Time              `json:"created_at"`
}

type NotificationList struct {
	Notifications []*NotificationPayload `json:"notifications"`
	Pagination    pagination.Meta        `json:"pagination"`
	UnreadCount   int64                  `json:"unreadCount"`
}

type NotificationService interface {
	// CreateNotification persists a notification and pushes it to the
	// recipient's live connections. It returns nil without error when the
	// recipient is the sender (self-actions never notify) and when
	// persistence fails (logged; the triggering request must not be
	// affected). It never returns an error.
	CreateNotification(ctx context.Context, recipientID uuid.UUID, kind model.NotificationKind, sender UserRef, subject *PostRef) *model.Notification
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*NotificationList, error)
	MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) (*NotificationPayload, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo     repository.NotificationRepository
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	emitter  realtime.Emitter
}

func NewNotificationService(
	repo repository.NotificationRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	emitter realtime.Emitter,
) NotificationService {
	return &notificationService{
		repo:     repo,
		userRepo: userRepo,
		postRepo: postRepo,
		emitter:  emitter,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, recipientID uuid.UUID, kind model.NotificationKind, sender UserRef, subject *PostRef) *model.Notification {
	if !kind.Valid() {
		log.Printf("notification: dropping event with unknown kind %q", kind)
		return nil
	}

	// Self-actions never notify. Not an error, nothing to log.
	if recipientID == sender.ID {
		return nil
	}

	notification := &model.Notification{
		UserID:   recipientID,
		Kind:     kind,
		SenderID: sender.ID,
		IsRead:   false,
	}
	if subject != nil {
		postID := subject.ID
		notification.PostID = &postID
	}

	persist := func(ctx context.Context) (*model.Notification, error) {
		if err := s.repo.Create(ctx, notification); err != nil {
			return nil, err
		}
		return notification, nil
	}

	// The push rides on the persisted result: the default selector picks the
	// recipient off the row, and the mapper expands sender/subject summaries.
	// A failed push is logged inside the wrapper and never unwinds here.
	created, err := realtime.Broadcast(s.emitter, realtime.BroadcastConfig[*model.Notification]{
		PayloadMapper: func(n *model.Notification) any {
			return s.buildPayload(ctx, n, sender, subject)
		},
	}, persist)(ctx)
	if err != nil {
		log.Printf("notification: failed to persist %s notification for user %s: %v", kind, recipientID, err)
		return nil
	}

	return created
}

// buildPayload expands the sender and subject references into summaries.
// Records passed in by the caller are used as-is; bare IDs are resolved, and
// a failed resolution degrades to an identity-only fragment instead of
// failing the notification.
func (s *notificationService) buildPayload(ctx context.Context, n *model.Notification, sender UserRef, subject *PostRef) *NotificationPayload {
	payload := &NotificationPayload{
		ID:        n.ID,
		Kind:      n.Kind,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}

	senderRecord := sender.User
	if senderRecord == nil {
		record, err := s.userRepo.FindByID(ctx, sender.ID)
		if err != nil {
			log.Printf("notification: could not resolve sender %s: %v", sender.ID, err)
		} else {
			senderRecord = record
		}
	}
	payload.Sender = senderSummary(sender.ID, senderRecord)

	if subject != nil {
		postRecord := subject.Post
		if postRecord == nil {
			record, err := s.postRepo.FindByID(ctx, subject.ID)
			if err != nil {
				log.Printf("notification: could not resolve post %s: %v", subject.ID, err)
			} else {
				postRecord = record
			}
		}
		payload.Post = postSummary(subject.ID, postRecord)
	}

	return payload
}

func senderSummary(id uuid.UUID, user *model.User) SenderSummary {
	summary := SenderSummary{ID: id}
	if user != nil {
		username := user.Username
		summary.Username = &username
		summary.AvatarURL = user.AvatarURL
		summary.Bio = user.Bio
	}
	return summary
}

func postSummary(id uuid.UUID, post *model.Post) *PostSummary {
	summary := &PostSummary{ID: id}
	if post != nil {
		content := post.Content
		summary.Content = &content
		summary.ImageURL = post.ImageURL
	}
	return summary
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*NotificationList, error) {
	page, err := s.repo.FindByUserID(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]*NotificationPayload, 0, len(page.Data))
	for _, n := range page.Data {
		items = append(items, payloadFromRow(n))
	}

	return &NotificationList{
		Notifications: items,
		Pagination:    page.Meta(),
		UnreadCount:   unread,
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID uuid.UUID) (*NotificationPayload, error) {
	notification, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, apperror.ErrNotFound
	}

	// Only the recipient may acknowledge.
	if notification.UserID != userID {
		return nil, apperror.ErrForbidden
	}

	if !notification.IsRead {
		if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
			return nil, err
		}
		notification.IsRead = true
	}

	return payloadFromRow(notification), nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// payloadFromRow shapes a row whose associations were preloaded by the
// repository. Missing associations degrade to identity-only fragments the
// same way push payload building does.
func payloadFromRow(n *model.Notification) *NotificationPayload {
	payload := &NotificationPayload{
		ID:        n.ID,
		Kind:      n.Kind,
		Sender:    senderSummary(n.SenderID, n.Sender),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.PostID != nil {
		payload.Post = postSummary(*n.PostID, n.Post)
	}
	return payload
}
