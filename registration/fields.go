package registration

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/mbolis/event-registration/metrics"
	"github.com/mbolis/event-registration/model"
)

type FieldStore interface {
	ListFields(ctx context.Context) ([]model.FieldDefinition, error)
	GetField(ctx context.Context, id string) (model.FieldDefinition, error)
	InsertField(ctx context.Context, f *model.FieldDefinition) error
	ReplaceField(ctx context.Context, f model.FieldDefinition) error
	DeleteField(ctx context.Context, id string) error
	SetFieldOrder(ctx context.Context, id string, order int) error
}

// Fields manages the field definitions of the registration form.
// There is no concurrency control: the last writer wins.
type Fields struct {
	store   FieldStore
	metrics *metrics.Metrics
}

func NewFields(store FieldStore, m *metrics.Metrics) *Fields {
	return &Fields{store: store, metrics: m}
}

// List returns every definition by ascending order, ties in insertion order.
func (s *Fields) List(ctx context.Context) ([]model.FieldDefinition, error) {
	fields, err := s.store.ListFields(ctx)
	if err != nil {
		return nil, &StoreError{Op: "db.list_fields", Err: err}
	}
	return fields, nil
}

func (s *Fields) Create(ctx context.Context, f model.FieldDefinition) (model.FieldDefinition, error) {
	f.ID = ""
	f.Normalize()
	if err := f.Validate(); err != nil {
		return f, &ValidationError{Msg: err.Error()}
	}
	if err := s.store.InsertField(ctx, &f); err != nil {
		return f, &StoreError{Op: "db.insert_field", Err: err}
	}
	s.metrics.FieldChanged("create")
	return f, nil
}

// Update merges the patch into the stored definition and validates the result.
func (s *Fields) Update(ctx context.Context, id string, patch model.FieldPatch) (model.FieldDefinition, error) {
	f, err := s.store.GetField(ctx, id)
	if err != nil {
		return f, translate(err, "db.get_field", "field", id)
	}
	patch.Apply(&f)
	f.Normalize()
	if err = f.Validate(); err != nil {
		return f, &ValidationError{Msg: err.Error()}
	}
	if err = s.store.ReplaceField(ctx, f); err != nil {
		return f, translate(err, "db.update_field", "field", id)
	}
	s.metrics.FieldChanged("update")
	return f, nil
}

// Delete removes a definition. Submissions keep their answers for its label.
func (s *Fields) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteField(ctx, id); err != nil {
		return translate(err, "db.delete_field", "field", id)
	}
	s.metrics.FieldChanged("delete")
	return nil
}

// Reorder applies every pair independently. It is not atomic: pairs naming
// unknown ids are reported in Failed while the others still take effect.
// A store failure on any pair is returned as a StoreError after all pairs ran.
func (s *Fields) Reorder(ctx context.Context, pairs []model.OrderPair) (model.ReorderResult, error) {
	res := model.ReorderResult{Failed: []model.ReorderFailure{}}
	var storeErrs *multierror.Error
	for _, p := range pairs {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			res.Failed = append(res.Failed, model.ReorderFailure{ID: p.ID, Error: "id is required"})
			continue
		}
		err := translate(s.store.SetFieldOrder(ctx, id, p.Order), "db.reorder_field", "field", id)
		switch err.(type) {
		case nil:
		case *NotFoundError:
			res.Failed = append(res.Failed, model.ReorderFailure{ID: id, Error: err.Error()})
		default:
			res.Failed = append(res.Failed, model.ReorderFailure{ID: id, Error: "store failure"})
			storeErrs = multierror.Append(storeErrs, err)
		}
	}
	s.metrics.FieldsReordered(len(pairs)-len(res.Failed), len(res.Failed))

	if err := storeErrs.ErrorOrNil(); err != nil {
		return res, &StoreError{Op: "db.reorder_fields", Err: err}
	}

	fields, err := s.List(ctx)
	if err != nil {
		return res, err
	}
	res.Fields = fields
	return res, nil
}
