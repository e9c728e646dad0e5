package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
)

type fakeCommentRepo struct {
	comments map[uuid.UUID]*model.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[uuid.UUID]*model.Comment)}
}

func (r *fakeCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	r.comments[comment.ID] = comment
	return nil
}

func (r *fakeCommentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Comment, error) {
	if comment, ok := r.comments[id]; ok {
		return comment, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCommentRepo) FindByPostID(ctx context.Context, postID uuid.UUID, limit, offset int) (*pagination.Result[*model.Comment], error) {
	var rows []*model.Comment
	for _, comment := range r.comments {
		if comment.PostID == postID {
			rows = append(rows, comment)
		}
	}
	return &pagination.Result[*model.Comment]{Data: rows, Total: int64(len(rows)), Limit: limit}, nil
}

func (r *fakeCommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.comments, id)
	return nil
}

type commentFixture struct {
	*notificationFixture
	comments *fakeCommentRepo
	service  CommentService
}

func newCommentFixture() *commentFixture {
	base := newNotificationFixture()
	comments := newFakeCommentRepo()
	return &commentFixture{
		notificationFixture: base,
		comments:            comments,
		service:             NewCommentService(comments, base.posts, base.users, base.service),
	}
}

func (f *commentFixture) seedPost(author *model.User, content string) *model.Post {
	f.users.users[author.ID] = author
	post := &model.Post{ID: uuid.New(), AuthorID: author.ID, Author: author, Content: content}
	f.posts.posts[post.ID] = post
	return post
}

func TestCreateCommentNotifiesAuthor(t *testing.T) {
	f := newCommentFixture()
	author := newTestUser("alice")
	commenter := newTestUser("bob")
	f.users.users[commenter.ID] = commenter
	post := f.seedPost(author, "hello")

	comment, err := f.service.Create(context.Background(), commenter.ID, post.ID, CreateCommentInput{Content: "nice one"})
	require.NoError(t, err)
	assert.Equal(t, "nice one", comment.Content)

	require.Len(t, f.repo.rows, 1)
	row := f.repo.rows[0]
	assert.Equal(t, author.ID, row.UserID)
	assert.Equal(t, model.NotificationComment, row.Kind)
	assert.Equal(t, commenter.ID, row.SenderID)
	require.NotNil(t, row.PostID)
	assert.Equal(t, post.ID, *row.PostID)
	require.Len(t, f.emitter.calls, 1)
}

func TestCommentOwnPostDoesNotNotify(t *testing.T) {
	f := newCommentFixture()
	author := newTestUser("alice")
	post := f.seedPost(author, "hello")

	_, err := f.service.Create(context.Background(), author.ID, post.ID, CreateCommentInput{Content: "self reply"})
	require.NoError(t, err)

	assert.Empty(t, f.repo.rows)
	assert.Empty(t, f.emitter.calls)
}

func TestCreateCommentOnUnknownPost(t *testing.T) {
	f := newCommentFixture()

	_, err := f.service.Create(context.Background(), uuid.New(), uuid.New(), CreateCommentInput{Content: "hi"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteCommentOwnership(t *testing.T) {
	f := newCommentFixture()
	author := newTestUser("alice")
	commenter := newTestUser("bob")
	stranger := newTestUser("carol")
	admin := newTestUser("root")
	admin.Role = model.RoleAdmin
	f.users.users[commenter.ID] = commenter
	f.users.users[stranger.ID] = stranger
	f.users.users[admin.ID] = admin
	post := f.seedPost(author, "hello")

	comment, err := f.service.Create(context.Background(), commenter.ID, post.ID, CreateCommentInput{Content: "mine"})
	require.NoError(t, err)

	err = f.service.Delete(context.Background(), stranger.ID, comment.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, f.service.Delete(context.Background(), commenter.ID, comment.ID))

	// Admins may delete anyone's comment.
	comment, err = f.service.Create(context.Background(), commenter.ID, post.ID, CreateCommentInput{Content: "again"})
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(context.Background(), admin.ID, comment.ID))
}
