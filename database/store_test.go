package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mbolis/event-registration/model"
)

// StoreSuite runs the same behaviour checks against every backend.
type StoreSuite struct {
	suite.Suite
	open  func() Store
	drop  func(Store)
	store Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	s.store = s.open()
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	if s.drop != nil {
		s.drop(s.store)
	}
	s.Require().NoError(s.store.Close())
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func() Store { return NewMemory() }})
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{open: func() Store {
		store, err := OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		return store
	}})
}

func (s *StoreSuite) insertField(label string, order int) model.FieldDefinition {
	f := model.FieldDefinition{Label: label, Kind: model.KindText, Order: order}
	s.Require().NoError(s.store.InsertField(s.ctx, &f))
	s.Require().NotEmpty(f.ID)
	return f
}

func labels(fields []model.FieldDefinition) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func (s *StoreSuite) TestFieldOrdering() {
	s.Run("empty list", func() {
		fields, err := s.store.ListFields(s.ctx)
		s.Require().NoError(err)
		s.Empty(fields)
	})

	s.Run("sorts by order, ties by insertion", func() {
		s.insertField("Email", 2)
		s.insertField("Name", 1)
		s.insertField("Event", 1)
		s.insertField("Phone", 0)

		fields, err := s.store.ListFields(s.ctx)
		s.Require().NoError(err)
		s.Equal([]string{"Phone", "Name", "Event", "Email"}, labels(fields))
	})
}

func (s *StoreSuite) TestFieldLifecycle() {
	f := model.FieldDefinition{
		Label: "Event",
		Kind:  model.KindEvent,
		Events: []model.EventOption{
			{Name: "Retreat", Date: "2024-05-01", VenueKind: model.VenuePhysical, VenueName: "Hall A", Amount: 500},
			{Name: "Webinar", VenueKind: model.VenueOnline},
		},
		Required: true,
	}
	s.Require().NoError(s.store.InsertField(s.ctx, &f))

	got, err := s.store.GetField(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(f.Label, got.Label)
	s.Equal(model.KindEvent, got.Kind)
	s.Equal(f.Events, got.Events)
	s.True(got.Required)
	s.False(got.CreatedAt.IsZero())

	got.Label = "Programme"
	got.Events = got.Events[:1]
	s.Require().NoError(s.store.ReplaceField(s.ctx, got))

	again, err := s.store.GetField(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal("Programme", again.Label)
	s.Len(again.Events, 1)

	s.Require().NoError(s.store.SetFieldOrder(s.ctx, f.ID, 7))
	again, err = s.store.GetField(s.ctx, f.ID)
	s.Require().NoError(err)
	s.Equal(7, again.Order)

	s.Require().NoError(s.store.DeleteField(s.ctx, f.ID))
	_, err = s.store.GetField(s.ctx, f.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *StoreSuite) TestUnknownField() {
	s.ErrorIs(s.store.DeleteField(s.ctx, "missing"), ErrNotFound)
	s.ErrorIs(s.store.SetFieldOrder(s.ctx, "missing", 1), ErrNotFound)
	s.ErrorIs(s.store.ReplaceField(s.ctx, model.FieldDefinition{ID: "missing", Label: "x", Kind: model.KindText}), ErrNotFound)
}

func (s *StoreSuite) TestSubmissions() {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	insert := func(name string, at time.Time) model.Submission {
		sub := model.Submission{
			Answers:   model.Answers{"Name": model.TextAnswer(name)},
			CreatedAt: at,
		}
		s.Require().NoError(s.store.InsertSubmission(s.ctx, &sub))
		return sub
	}

	s.Run("lists newest first", func() {
		insert("first", base)
		insert("third", base.Add(2*time.Hour))
		insert("second", base.Add(time.Hour))

		subs, err := s.store.ListSubmissions(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(subs, 3)
		s.Equal("third", subs[0].Answers["Name"].Text)
		s.Equal("second", subs[1].Answers["Name"].Text)
		s.Equal("first", subs[2].Answers["Name"].Text)
		s.True(subs[0].CreatedAt.Equal(base.Add(2 * time.Hour)))
	})

	s.Run("keeps event answers", func() {
		event := model.EventOption{Name: "Retreat", Date: "2024-05-01", VenueKind: model.VenuePhysical, VenueName: "Hall A", Amount: 500}
		sub := model.Submission{
			Answers: model.Answers{
				"Email": model.TextAnswer("a@b.co"),
				"Event": model.EventAnswer(event),
			},
			CreatedAt: base.Add(24 * time.Hour),
		}
		s.Require().NoError(s.store.InsertSubmission(s.ctx, &sub))

		subs, err := s.store.ListSubmissions(s.ctx)
		s.Require().NoError(err)
		s.Equal(sub.ID, subs[0].ID)
		s.Equal(sub.Answers, subs[0].Answers)
	})

	s.Run("deletes", func() {
		sub := insert("gone", base.Add(-time.Hour))
		s.Require().NoError(s.store.DeleteSubmission(s.ctx, sub.ID))
		s.ErrorIs(s.store.DeleteSubmission(s.ctx, sub.ID), ErrNotFound)
	})
}

func (s *StoreSuite) TestFieldDeleteLeavesSubmissions() {
	f := s.insertField("Name", 0)
	sub := model.Submission{Answers: model.Answers{"Name": model.TextAnswer("Ann")}, CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.store.InsertSubmission(s.ctx, &sub))

	s.Require().NoError(s.store.DeleteField(s.ctx, f.ID))

	subs, err := s.store.ListSubmissions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("Ann", subs[0].Answers["Name"].Text)
}

func (s *StoreSuite) TestBanner() {
	b, err := s.store.GetBanner(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.Banner{}, b)

	put := model.Banner{Title: "Summer camp", Image: "/img/camp.jpg", UpdatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	s.Require().NoError(s.store.PutBanner(s.ctx, put))
	put.Title = "Winter camp"
	s.Require().NoError(s.store.PutBanner(s.ctx, put))

	b, err = s.store.GetBanner(s.ctx)
	s.Require().NoError(err)
	s.Equal("Winter camp", b.Title)
	s.Equal("/img/camp.jpg", b.Image)
	s.True(put.UpdatedAt.Equal(b.UpdatedAt))
}

func (s *StoreSuite) TestUsersAndTokens() {
	_, err := s.store.FindUser(s.ctx, "admin")
	s.ErrorIs(err, ErrNotFound)

	u := model.User{Username: "admin", PasswordHash: []byte("hash"), Roles: []string{"admin"}}
	s.Require().NoError(s.store.UpsertUser(s.ctx, u))
	u.PasswordHash = []byte("other")
	s.Require().NoError(s.store.UpsertUser(s.ctx, u))

	got, err := s.store.FindUser(s.ctx, "admin")
	s.Require().NoError(err)
	s.Equal([]byte("other"), got.PasswordHash)
	s.True(got.HasRole("admin"))

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.StoreToken(s.ctx, model.Token{Username: "admin", TokenID: "t1", RefreshTokenID: "r1", Expiration: exp}))

	tok, err := s.store.TakeToken(s.ctx, "admin", "t1", "r1")
	s.Require().NoError(err)
	s.True(exp.Equal(tok.Expiration))

	_, err = s.store.TakeToken(s.ctx, "admin", "t1", "r1")
	s.ErrorIs(err, ErrNotFound)
}
