package registration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/mbolis/event-registration/database"
	"github.com/mbolis/event-registration/metrics"
	"github.com/mbolis/event-registration/model"
)

type ServiceSuite struct {
	suite.Suite
	ctx         context.Context
	store       *database.Memory
	metrics     *metrics.Metrics
	fields      *Fields
	submissions *Submissions
	banner      *Banner
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = database.NewMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.fields = NewFields(s.store, s.metrics)
	s.submissions = NewSubmissions(s.store, s.metrics)
	s.banner = NewBanner(s.store)
}

func (s *ServiceSuite) create(label string, kind model.FieldKind, order int) model.FieldDefinition {
	f, err := s.fields.Create(s.ctx, model.FieldDefinition{Label: label, Kind: kind, Order: order})
	s.Require().NoError(err)
	return f
}

func labelsOf(fields []model.FieldDefinition) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Label
	}
	return out
}

func (s *ServiceSuite) TestCreateField() {
	s.Run("rejects invalid definitions", func() {
		_, err := s.fields.Create(s.ctx, model.FieldDefinition{Kind: model.KindText})
		var verr *ValidationError
		s.Require().ErrorAs(err, &verr)
		s.Equal("label is required", verr.Msg)

		_, err = s.fields.Create(s.ctx, model.FieldDefinition{Label: "Name"})
		s.ErrorAs(err, &verr)
	})

	s.Run("assigns id and keeps order default", func() {
		f := s.create("Name", model.KindText, 0)
		s.NotEmpty(f.ID)
		s.Equal(0, f.Order)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.FieldChanges.WithLabelValues("create")))
	})
}

func (s *ServiceSuite) TestUpdateField() {
	f := s.create("Size", model.KindDropdown, 1)

	label := "T-shirt size"
	updated, err := s.fields.Update(s.ctx, f.ID, model.FieldPatch{Label: &label, Options: []string{"S", "M"}, HasOptions: true})
	s.Require().NoError(err)
	s.Equal("T-shirt size", updated.Label)
	s.Equal([]string{"S", "M"}, updated.Options)
	s.Equal(1, updated.Order)

	empty := ""
	_, err = s.fields.Update(s.ctx, f.ID, model.FieldPatch{Label: &empty})
	var verr *ValidationError
	s.ErrorAs(err, &verr)

	_, err = s.fields.Update(s.ctx, "missing", model.FieldPatch{Label: &label})
	var nf *NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("field missing not found", nf.Error())
}

func (s *ServiceSuite) TestDeleteField() {
	f := s.create("Name", model.KindText, 0)
	_, err := s.submissions.Create(s.ctx, model.Answers{"Name": model.TextAnswer("Ann")})
	s.Require().NoError(err)

	s.Require().NoError(s.fields.Delete(s.ctx, f.ID))

	var nf *NotFoundError
	s.ErrorAs(s.fields.Delete(s.ctx, f.ID), &nf)

	subs, err := s.submissions.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(subs, 1)
	s.Equal("Ann", subs[0].Answers["Name"].Text)
}

func (s *ServiceSuite) TestListOrdering() {
	s.create("Email", model.KindEmail, 2)
	s.create("Name", model.KindText, 1)
	s.create("Phone", model.KindText, 1)

	fields, err := s.fields.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"Name", "Phone", "Email"}, labelsOf(fields))
}

func (s *ServiceSuite) TestReorder() {
	a := s.create("A", model.KindText, 0)
	b := s.create("B", model.KindText, 1)
	c := s.create("C", model.KindText, 2)

	pairs := []model.OrderPair{{ID: c.ID, Order: 0}, {ID: a.ID, Order: 1}, {ID: b.ID, Order: 2}}

	s.Run("applies every pair", func() {
		res, err := s.fields.Reorder(s.ctx, pairs)
		s.Require().NoError(err)
		s.Empty(res.Failed)
		s.Equal([]string{"C", "A", "B"}, labelsOf(res.Fields))
	})

	s.Run("is idempotent", func() {
		res, err := s.fields.Reorder(s.ctx, pairs)
		s.Require().NoError(err)
		s.Equal([]string{"C", "A", "B"}, labelsOf(res.Fields))
	})

	s.Run("reports unknown ids and applies the rest", func() {
		res, err := s.fields.Reorder(s.ctx, []model.OrderPair{
			{ID: "missing", Order: 0},
			{ID: b.ID, Order: -1},
			{ID: "", Order: 3},
		})
		s.Require().NoError(err)
		s.Equal([]model.ReorderFailure{
			{ID: "missing", Error: "field missing not found"},
			{ID: "", Error: "id is required"},
		}, res.Failed)
		s.Equal([]string{"B", "C", "A"}, labelsOf(res.Fields))
		s.Equal(2.0, testutil.ToFloat64(s.metrics.ReorderPairs.WithLabelValues("failed")))
	})
}

type failingOrderStore struct {
	*database.Memory
}

func (failingOrderStore) SetFieldOrder(ctx context.Context, id string, order int) error {
	return errors.New("disk full")
}

func (s *ServiceSuite) TestReorderStoreFailure() {
	store := failingOrderStore{database.NewMemory()}
	fields := NewFields(store, nil)
	f, err := fields.Create(s.ctx, model.FieldDefinition{Label: "A", Kind: model.KindText})
	s.Require().NoError(err)

	res, err := fields.Reorder(s.ctx, []model.OrderPair{{ID: f.ID, Order: 1}, {ID: f.ID, Order: 2}})
	var serr *StoreError
	s.Require().ErrorAs(err, &serr)
	s.Equal("db.reorder_fields", serr.Op)
	s.Contains(serr.Error(), "2 errors occurred")
	s.Len(res.Failed, 2)
}

func (s *ServiceSuite) TestCreateSubmission() {
	for _, raw := range []string{``, `null`, `{}`, `[]`, `"text"`, `42`} {
		_, err := s.submissions.CreateRaw(s.ctx, json.RawMessage(raw))
		var verr *ValidationError
		s.ErrorAs(err, &verr, "payload %q", raw)
	}
	s.Equal(6.0, testutil.ToFloat64(s.metrics.SubmissionsRejected))

	_, err := s.submissions.Create(s.ctx, model.Answers{})
	var verr *ValidationError
	s.ErrorAs(err, &verr)

	sub, err := s.submissions.CreateRaw(s.ctx, json.RawMessage(`{"Name":"Ann","Unknown label":"kept"}`))
	s.Require().NoError(err)
	s.NotEmpty(sub.ID)
	s.False(sub.CreatedAt.IsZero())
	s.Equal("kept", sub.Answers["Unknown label"].Text)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SubmissionsCreated))
}

func (s *ServiceSuite) TestSubmissionsNewestFirst() {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.submissions.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	for _, name := range []string{"first", "second", "third"} {
		_, err := s.submissions.Create(s.ctx, model.Answers{"Name": model.TextAnswer(name)})
		s.Require().NoError(err)
	}

	subs, err := s.submissions.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(subs, 3)
	s.Equal("third", subs[0].Answers["Name"].Text)
	s.Equal("first", subs[2].Answers["Name"].Text)
}

func (s *ServiceSuite) TestDeleteSubmission() {
	sub, err := s.submissions.Create(s.ctx, model.Answers{"Name": model.TextAnswer("Ann")})
	s.Require().NoError(err)

	s.Require().NoError(s.submissions.Delete(s.ctx, sub.ID))
	var nf *NotFoundError
	s.ErrorAs(s.submissions.Delete(s.ctx, sub.ID), &nf)
}

func (s *ServiceSuite) TestBanner() {
	b, err := s.banner.Get(s.ctx)
	s.Require().NoError(err)
	s.Empty(b.Title)

	_, err = s.banner.Put(s.ctx, model.Banner{Title: "Camp", Image: "javascript:alert(1)"})
	var verr *ValidationError
	s.ErrorAs(err, &verr)

	put, err := s.banner.Put(s.ctx, model.Banner{Title: " Camp ", Image: "https://cdn.example.org/camp.jpg"})
	s.Require().NoError(err)
	s.Equal("Camp", put.Title)
	s.False(put.UpdatedAt.IsZero())

	b, err = s.banner.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal("Camp", b.Title)
}
