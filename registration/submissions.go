package registration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mbolis/event-registration/metrics"
	"github.com/mbolis/event-registration/model"
)

type SubmissionStore interface {
	InsertSubmission(ctx context.Context, s *model.Submission) error
	ListSubmissions(ctx context.Context) ([]model.Submission, error)
	DeleteSubmission(ctx context.Context, id string) error
}

// Submissions stores completed forms. Answers are never checked against the
// current field definitions: a submission is a point-in-time capture.
type Submissions struct {
	store   SubmissionStore
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSubmissions(store SubmissionStore, m *metrics.Metrics) *Submissions {
	return &Submissions{
		store:   store,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

const errAnswers = "missing or invalid answers, please fill in the required fields"

// DecodeAnswers parses a raw answers payload. Absent, null, non-object and
// empty payloads are a ValidationError.
func DecodeAnswers(raw json.RawMessage) (model.Answers, error) {
	if len(raw) == 0 {
		return nil, invalid(errAnswers)
	}
	var shape any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, invalid("answers: %s", err)
	}
	if _, ok := shape.(map[string]any); !ok {
		return nil, invalid(errAnswers)
	}
	var answers model.Answers
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, invalid("answers: %s", err)
	}
	if len(answers) == 0 {
		return nil, invalid(errAnswers)
	}
	return answers, nil
}

func (s *Submissions) Create(ctx context.Context, answers model.Answers) (model.Submission, error) {
	if len(answers) == 0 {
		s.metrics.SubmissionRejected()
		return model.Submission{}, invalid(errAnswers)
	}
	sub := model.Submission{Answers: answers, CreatedAt: s.now()}
	if err := s.store.InsertSubmission(ctx, &sub); err != nil {
		return sub, &StoreError{Op: "db.insert_submission", Err: err}
	}
	s.metrics.SubmissionCreated()
	return sub, nil
}

// CreateRaw decodes and stores a raw answers payload.
func (s *Submissions) CreateRaw(ctx context.Context, raw json.RawMessage) (model.Submission, error) {
	answers, err := DecodeAnswers(raw)
	if err != nil {
		s.metrics.SubmissionRejected()
		return model.Submission{}, err
	}
	return s.Create(ctx, answers)
}

// List returns every submission, newest first.
func (s *Submissions) List(ctx context.Context) ([]model.Submission, error) {
	subs, err := s.store.ListSubmissions(ctx)
	if err != nil {
		return nil, &StoreError{Op: "db.list_submissions", Err: err}
	}
	return subs, nil
}

func (s *Submissions) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteSubmission(ctx, id); err != nil {
		return translate(err, "db.delete_submission", "submission", id)
	}
	s.metrics.SubmissionDeleted()
	return nil
}
