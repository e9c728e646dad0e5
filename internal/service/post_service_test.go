package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfeed.io/backend/internal/model"
	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
)

type likeKey struct {
	userID uuid.UUID
	postID uuid.UUID
}

type fakeLikeRepo struct {
	likes map[likeKey]struct{}
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[likeKey]struct{})}
}

func (r *fakeLikeRepo) Create(ctx context.Context, like *model.Like) error {
	r.likes[likeKey{userID: like.UserID, postID: like.PostID}] = struct{}{}
	return nil
}

func (r *fakeLikeRepo) Delete(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	key := likeKey{userID: userID, postID: postID}
	if _, ok := r.likes[key]; !ok {
		return false, nil
	}
	delete(r.likes, key)
	return true, nil
}

func (r *fakeLikeRepo) Exists(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	_, ok := r.likes[likeKey{userID: userID, postID: postID}]
	return ok, nil
}

type followKey struct {
	followerID  uuid.UUID
	followingID uuid.UUID
}

type fakeFollowRepo struct {
	follows map[followKey]*model.Follow
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{follows: make(map[followKey]*model.Follow)}
}

func (r *fakeFollowRepo) Create(ctx context.Context, follow *model.Follow) error {
	r.follows[followKey{followerID: follow.FollowerID, followingID: follow.FollowingID}] = follow
	return nil
}

func (r *fakeFollowRepo) Delete(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	key := followKey{followerID: followerID, followingID: followingID}
	if _, ok := r.follows[key]; !ok {
		return false, nil
	}
	delete(r.follows, key)
	return true, nil
}

func (r *fakeFollowRepo) Exists(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	_, ok := r.follows[followKey{followerID: followerID, followingID: followingID}]
	return ok, nil
}

func (r *fakeFollowRepo) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error) {
	var rows []*model.Follow
	for _, follow := range r.follows {
		if follow.FollowingID == userID {
			rows = append(rows, follow)
		}
	}
	return &pagination.Result[*model.Follow]{Data: rows, Total: int64(len(rows)), Limit: limit}, nil
}

func (r *fakeFollowRepo) Following(ctx context.Context, userID uuid.UUID, limit, offset int) (*pagination.Result[*model.Follow], error) {
	var rows []*model.Follow
	for _, follow := range r.follows {
		if follow.FollowerID == userID {
			rows = append(rows, follow)
		}
	}
	return &pagination.Result[*model.Follow]{Data: rows, Total: int64(len(rows)), Limit: limit}, nil
}

func (r *fakeFollowRepo) FollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, follow := range r.follows {
		if follow.FollowerID == userID {
			ids = append(ids, follow.FollowingID)
		}
	}
	return ids, nil
}

func (r *fakeFollowRepo) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	page, _ := r.Followers(ctx, userID, 0, 0)
	return page.Total, nil
}

func (r *fakeFollowRepo) CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error) {
	page, _ := r.Following(ctx, userID, 0, 0)
	return page.Total, nil
}

type fakeStorage struct{}

func (fakeStorage) UploadImage(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	return "https://cdn.example.com/" + folder + "/" + fileName, nil
}

func (fakeStorage) DeleteImage(ctx context.Context, fileURL string) error {
	return nil
}

type fakeSearch struct{}

func (fakeSearch) IndexUser(user *model.User) error { return nil }
func (fakeSearch) IndexPost(post *model.Post) error { return nil }
func (fakeSearch) RemoveUser(id string) error       { return nil }
func (fakeSearch) RemovePost(id string) error       { return nil }
func (fakeSearch) Search(query string, limit, offset int) (*SearchResults, error) {
	return &SearchResults{Query: query}, nil
}

type postFixture struct {
	*notificationFixture
	likes   *fakeLikeRepo
	follows *fakeFollowRepo
	service PostService
}

func newPostFixture() *postFixture {
	base := newNotificationFixture()
	likes := newFakeLikeRepo()
	follows := newFakeFollowRepo()
	return &postFixture{
		notificationFixture: base,
		likes:               likes,
		follows:             follows,
		service:             NewPostService(base.posts, base.users, likes, follows, base.service, fakeStorage{}, fakeSearch{}),
	}
}

func (f *postFixture) seedPost(t *testing.T, author *model.User, content string) *model.Post {
	t.Helper()
	f.users.users[author.ID] = author
	post := &model.Post{ID: uuid.New(), AuthorID: author.ID, Author: author, Content: content}
	f.posts.posts[post.ID] = post
	return post
}

func TestLikeNotifiesAuthor(t *testing.T) {
	f := newPostFixture()
	author := newTestUser("alice")
	liker := newTestUser("bob")
	f.users.users[liker.ID] = liker
	post := f.seedPost(t, author, "hello world")

	require.NoError(t, f.service.Like(context.Background(), liker.ID, post.ID))

	liked, err := f.likes.Exists(context.Background(), liker.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	require.Len(t, f.repo.rows, 1)
	row := f.repo.rows[0]
	assert.Equal(t, author.ID, row.UserID)
	assert.Equal(t, model.NotificationLike, row.Kind)
	assert.Equal(t, liker.ID, row.SenderID)
	require.NotNil(t, row.PostID)
	assert.Equal(t, post.ID, *row.PostID)

	require.Len(t, f.emitter.calls, 1)
	assert.Equal(t, author.ID, f.emitter.calls[0].owner)
	payload := f.emitter.calls[0].payload.(*NotificationPayload)
	require.NotNil(t, payload.Sender.Username)
	assert.Equal(t, "bob", *payload.Sender.Username)
	require.NotNil(t, payload.Post)
	require.NotNil(t, payload.Post.Content)
	assert.Equal(t, "hello world", *payload.Post.Content)
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	f := newPostFixture()
	author := newTestUser("alice")
	post := f.seedPost(t, author, "my own post")

	require.NoError(t, f.service.Like(context.Background(), author.ID, post.ID))

	liked, err := f.likes.Exists(context.Background(), author.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	assert.Empty(t, f.repo.rows)
	assert.Empty(t, f.emitter.calls)
}

func TestLikeSucceedsWhenNotificationPersistenceFails(t *testing.T) {
	f := newPostFixture()
	f.repo.createErr = errors.New("connection refused")
	author := newTestUser("alice")
	liker := newTestUser("bob")
	f.users.users[liker.ID] = liker
	post := f.seedPost(t, author, "hello")

	require.NoError(t, f.service.Like(context.Background(), liker.ID, post.ID))

	liked, err := f.likes.Exists(context.Background(), liker.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Empty(t, f.emitter.calls)
}

func TestLikeUnknownPost(t *testing.T) {
	f := newPostFixture()

	err := f.service.Like(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLikeTwiceConflicts(t *testing.T) {
	f := newPostFixture()
	author := newTestUser("alice")
	liker := newTestUser("bob")
	f.users.users[liker.ID] = liker
	post := f.seedPost(t, author, "hello")

	require.NoError(t, f.service.Like(context.Background(), liker.ID, post.ID))
	err := f.service.Like(context.Background(), liker.ID, post.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	// Only the first like notified.
	assert.Len(t, f.repo.rows, 1)
}

func TestUnlike(t *testing.T) {
	f := newPostFixture()
	author := newTestUser("alice")
	liker := newTestUser("bob")
	f.users.users[liker.ID] = liker
	post := f.seedPost(t, author, "hello")

	require.NoError(t, f.service.Like(context.Background(), liker.ID, post.ID))
	require.NoError(t, f.service.Unlike(context.Background(), liker.ID, post.ID))

	err := f.service.Unlike(context.Background(), liker.ID, post.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreatePostRequiresContent(t *testing.T) {
	f := newPostFixture()
	author := newTestUser("alice")
	f.users.users[author.ID] = author

	_, err := f.service.Create(context.Background(), author.ID, CreatePostInput{Content: "   "}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestFeedReturnsFollowedAuthorsOnly(t *testing.T) {
	f := newPostFixture()
	reader := newTestUser("reader")
	followed := newTestUser("followed")
	stranger := newTestUser("stranger")
	f.users.users[reader.ID] = reader
	f.seedPost(t, followed, "from followed")
	f.seedPost(t, stranger, "from stranger")

	require.NoError(t, f.follows.Create(context.Background(), &model.Follow{
		FollowerID:  reader.ID,
		FollowingID: followed.ID,
	}))

	feed, err := f.service.Feed(context.Background(), reader.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, feed.Posts, 1)
	assert.Equal(t, "from followed", feed.Posts[0].Content)
}

func TestFeedIsEmptyWhenFollowingNobody(t *testing.T) {
	f := newPostFixture()
	reader := newTestUser("reader")
	f.users.users[reader.ID] = reader

	feed, err := f.service.Feed(context.Background(), reader.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
}
