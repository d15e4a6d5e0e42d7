package registration

import (
	"context"
	"strings"
	"time"

	"github.com/mbolis/event-registration/model"
)

type BannerStore interface {
	GetBanner(ctx context.Context) (model.Banner, error)
	PutBanner(ctx context.Context, b model.Banner) error
}

// Banner is the heading shown above the public registration form.
type Banner struct {
	store BannerStore
}

func NewBanner(store BannerStore) *Banner {
	return &Banner{store: store}
}

func (s *Banner) Get(ctx context.Context) (model.Banner, error) {
	b, err := s.store.GetBanner(ctx)
	if err != nil {
		return b, &StoreError{Op: "db.get_banner", Err: err}
	}
	return b, nil
}

func (s *Banner) Put(ctx context.Context, b model.Banner) (model.Banner, error) {
	b.Title = strings.TrimSpace(b.Title)
	b.Image = strings.TrimSpace(b.Image)
	if b.Image != "" && !strings.HasPrefix(b.Image, "/") &&
		!strings.HasPrefix(b.Image, "http://") && !strings.HasPrefix(b.Image, "https://") {
		return b, invalid("image must be an absolute path or an http(s) URL")
	}
	b.UpdatedAt = time.Now().UTC()
	if err := s.store.PutBanner(ctx, b); err != nil {
		return b, &StoreError{Op: "db.put_banner", Err: err}
	}
	return b, nil
}
