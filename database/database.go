package database

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/model"
)

// ErrNotFound is returned (possibly wrapped) when a document does not exist.
var ErrNotFound = errors.New("not found")

// Store is the document persistence used by the application. All three
// backends (SQLite, MongoDB, memory) implement it.
type Store interface {
	ListFields(ctx context.Context) ([]model.FieldDefinition, error)
	GetField(ctx context.Context, id string) (model.FieldDefinition, error)
	InsertField(ctx context.Context, f *model.FieldDefinition) error
	ReplaceField(ctx context.Context, f model.FieldDefinition) error
	DeleteField(ctx context.Context, id string) error
	SetFieldOrder(ctx context.Context, id string, order int) error

	InsertSubmission(ctx context.Context, s *model.Submission) error
	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	DeleteSubmission(ctx context.Context, id string) error

	GetBanner(ctx context.Context) (model.Banner, error)
	PutBanner(ctx context.Context, b model.Banner) error

	FindUser(ctx context.Context, username string) (model.User, error)
	UpsertUser(ctx context.Context, u model.User) error
	StoreToken(ctx context.Context, t model.Token) error
	TakeToken(ctx context.Context, username, tokenID, refreshTokenID string) (model.Token, error)

	Close() error
}

const memoryURL = "memory:"

// Open picks the backend from cfg.DBUrl: a mongodb:// URL, "memory:", or a SQLite file path.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch {
	case cfg.IsMongo():
		return OpenMongo(ctx, cfg.DBUrl, cfg.MongoDatabase, cfg.MongoTimeout)
	case strings.HasPrefix(cfg.DBUrl, memoryURL):
		return NewMemory(), nil
	default:
		return OpenSQLite(cfg.DBUrl)
	}
}

func splitRoles(roles string) []string {
	var out []string
	for _, r := range strings.Split(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func fromJSONText(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
