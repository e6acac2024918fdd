// Package bookmarks composes the stores, the bookmark file codec and the
// progress channel into the operations the HTTP layer exposes.
package bookmarks

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/progress"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
)

// Failure reasons reported in Result
const (
	ReasonNotFound  = "not found"
	ReasonNotOwner  = "not owner"
	ReasonInvalid   = "invalid"
	ReasonImmutable = "immutable field"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Result reports the outcome of an operation that can be refused
type Result struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

var succeeded = Result{Success: true}

func fail(reason string) Result {
	return Result{Reason: reason}
}

// Notifier receives progress messages for a user
type Notifier interface {
	Notify(userID uint, msg progress.Message)
}

type noopNotifier struct{}

func (noopNotifier) Notify(uint, progress.Message) {}

// Service implements link search, editing, import and export
type Service struct {
	stores   *store.Stores
	notifier Notifier
	validate *validator.Validate
	pageSize int
}

// NewService creates a service. A nil notifier drops progress messages and a
// pageSize below 1 falls back to DefaultPageSize.
func NewService(stores *store.Stores, notifier Notifier, pageSize int) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return &Service{
		stores:   stores,
		notifier: notifier,
		validate: validator.New(),
		pageSize: pageSize,
	}
}

// LinkView is a link as returned to clients. UserID is only set for the owner.
type LinkView struct {
	ID          uint      `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SavedAt     time.Time `json:"saved_at"`
	IsPublic    bool      `json:"is_public"`
	UserID      *uint     `json:"user_id,omitempty"`
	Tags        []string  `json:"tags"`
}

func newLinkView(link models.Link, tags []string, viewer *uint) LinkView {
	if tags == nil {
		tags = []string{}
	}
	v := LinkView{
		ID:          link.ID,
		URL:         link.URL,
		Title:       link.Title,
		Description: link.Description,
		SavedAt:     link.SavedAt,
		IsPublic:    link.IsPublic,
		Tags:        tags,
	}
	if viewer != nil && *viewer == link.UserID {
		owner := link.UserID
		v.UserID = &owner
	}
	return v
}
