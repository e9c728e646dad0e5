package service

import (
	"html"
	"log"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"

	"linkfeed.io/backend/internal/model"
)

const (
	postsIndex = "posts"
	usersIndex = "users"
)

type SearchResults struct {
	Posts any    `json:"posts"`
	Users any    `json:"users"`
	Query string `json:"query"`
}

type SearchService interface {
	IndexUser(user *model.User) error
	IndexPost(post *model.Post) error
	RemoveUser(id string) error
	RemovePost(id string) error
	Search(query string, limit, offset int) (*SearchResults, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	postSortable := []string{"created_at"}
	if _, err := s.client.Index(postsIndex).UpdateSortableAttributes(&postSortable); err != nil {
		log.Printf("search: failed to update posts sortable attributes: %v", err)
	}

	userSortable := []string{"created_at"}
	if _, err := s.client.Index(usersIndex).UpdateSortableAttributes(&userSortable); err != nil {
		log.Printf("search: failed to update users sortable attributes: %v", err)
	}
}

type postDoc struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	ImageURL  string `json:"image_url"`
	CreatedAt int64  `json:"created_at"`
	Author    struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"author"`
}

type userDoc struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt int64  `json:"created_at"`
}

// cleanContent strips markup before indexing so snippets stay readable.
func (s *searchService) cleanContent(content string) string {
	sanitized := s.sanitizer.Sanitize(content)
	cleaned := html.UnescapeString(sanitized)
	return strings.Join(strings.Fields(cleaned), " ")
}

func (s *searchService) IndexPost(post *model.Post) error {
	doc := postDoc{
		ID:        post.ID.String(),
		Content:   s.cleanContent(post.Content),
		CreatedAt: post.CreatedAt.Unix(),
	}
	if post.ImageURL != nil {
		doc.ImageURL = *post.ImageURL
	}
	if post.Author != nil {
		doc.Author.Username = post.Author.Username
		if post.Author.AvatarURL != nil {
			doc.Author.AvatarURL = *post.Author.AvatarURL
		}
	}

	_, err := s.client.Index(postsIndex).AddDocuments([]postDoc{doc}, primaryKey("id"))
	return err
}

func (s *searchService) IndexUser(user *model.User) error {
	doc := userDoc{
		ID:        user.ID.String(),
		Username:  user.Username,
		CreatedAt: user.CreatedAt.Unix(),
	}
	if user.Bio != nil {
		doc.Bio = s.cleanContent(*user.Bio)
	}
	if user.AvatarURL != nil {
		doc.AvatarURL = *user.AvatarURL
	}

	_, err := s.client.Index(usersIndex).AddDocuments([]userDoc{doc}, primaryKey("id"))
	return err
}

func (s *searchService) RemovePost(id string) error {
	_, err := s.client.Index(postsIndex).DeleteDocument(id)
	return err
}

func (s *searchService) RemoveUser(id string) error {
	_, err := s.client.Index(usersIndex).DeleteDocument(id)
	return err
}

func (s *searchService) Search(query string, limit, offset int) (*SearchResults, error) {
	request := &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Offset: int64(offset),
	}

	posts, err := s.client.Index(postsIndex).Search(query, request)
	if err != nil {
		return nil, err
	}
	users, err := s.client.Index(usersIndex).Search(query, request)
	if err != nil {
		return nil, err
	}

	return &SearchResults{
		Posts: posts.Hits,
		Users: users.Hits,
		Query: query,
	}, nil
}

func primaryKey(key string) *string {
	return &key
}
