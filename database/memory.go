package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mbolis/event-registration/model"
)

// Memory keeps every document in process memory. It backs "memory:" URLs and tests.
type Memory struct {
	mu          sync.RWMutex
	seq         int64
	fields      map[string]memField
	submissions map[string]memSubmission
	banner      model.Banner
	users       map[string]model.User
	tokens      map[model.Token]struct{}
}

type memField struct {
	seq   int64
	field model.FieldDefinition
}

type memSubmission struct {
	seq int64
	sub model.Submission
}

func NewMemory() *Memory {
	return &Memory{
		fields:      map[string]memField{},
		submissions: map[string]memSubmission{},
		users:       map[string]model.User{},
		tokens:      map[model.Token]struct{}{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) ListFields(ctx context.Context) ([]model.FieldDefinition, error) {
	m.mu.RLock()
	all := make([]memField, 0, len(m.fields))
	for _, f := range m.fields {
		all = append(all, f)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].field.Order != all[j].field.Order {
			return all[i].field.Order < all[j].field.Order
		}
		return all[i].seq < all[j].seq
	})
	out := make([]model.FieldDefinition, len(all))
	for i, f := range all {
		out[i] = cloneField(f.field)
	}
	return out, nil
}

func (m *Memory) GetField(ctx context.Context, id string) (model.FieldDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[id]
	if !ok {
		return model.FieldDefinition{}, ErrNotFound
	}
	return cloneField(f.field), nil
}

func (m *Memory) InsertField(ctx context.Context, f *model.FieldDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f.ID = uuid.NewString()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	m.seq++
	m.fields[f.ID] = memField{seq: m.seq, field: cloneField(*f)}
	return nil
}

func (m *Memory) ReplaceField(ctx context.Context, f model.FieldDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.fields[f.ID]
	if !ok {
		return ErrNotFound
	}
	f.CreatedAt = old.field.CreatedAt
	m.fields[f.ID] = memField{seq: old.seq, field: cloneField(f)}
	return nil
}

func (m *Memory) DeleteField(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fields[id]; !ok {
		return ErrNotFound
	}
	delete(m.fields, id)
	return nil
}

func (m *Memory) SetFieldOrder(ctx context.Context, id string, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return ErrNotFound
	}
	f.field.Order = order
	m.fields[id] = f
	return nil
}

func (m *Memory) InsertSubmission(ctx context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.NewString()
	m.seq++
	m.submissions[s.ID] = memSubmission{seq: m.seq, sub: cloneSubmission(*s)}
	return nil
}

func (m *Memory) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	m.mu.RLock()
	all := make([]memSubmission, 0, len(m.submissions))
	for _, s := range m.submissions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.sub.CreatedAt.Equal(b.sub.CreatedAt) {
			return a.sub.CreatedAt.After(b.sub.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]model.Submission, len(all))
	for i, s := range all {
		out[i] = cloneSubmission(s.sub)
	}
	return out, nil
}

func (m *Memory) DeleteSubmission(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.submissions[id]; !ok {
		return ErrNotFound
	}
	delete(m.submissions, id)
	return nil
}

func (m *Memory) GetBanner(ctx context.Context) (model.Banner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.banner, nil
}

func (m *Memory) PutBanner(ctx context.Context, b model.Banner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banner = b
	return nil
}

func (m *Memory) FindUser(ctx context.Context, username string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return u, ErrNotFound
	}
	return u, nil
}

func (m *Memory) UpsertUser(ctx context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	return nil
}

func (m *Memory) StoreToken(ctx context.Context, t model.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[t] = struct{}{}
	return nil
}

func (m *Memory) TakeToken(ctx context.Context, username, tokenID, refreshTokenID string) (model.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for t := range m.tokens {
		if t.Username == username && t.TokenID == tokenID && t.RefreshTokenID == refreshTokenID {
			delete(m.tokens, t)
			return t, nil
		}
	}
	return model.Token{Username: username, TokenID: tokenID, RefreshTokenID: refreshTokenID}, ErrNotFound
}

func cloneField(f model.FieldDefinition) model.FieldDefinition {
	f.Options = append([]string(nil), f.Options...)
	f.Events = append([]model.EventOption(nil), f.Events...)
	return f
}

func cloneSubmission(s model.Submission) model.Submission {
	answers := make(model.Answers, len(s.Answers))
	for k, v := range s.Answers {
		if v.Event != nil {
			e := *v.Event
			v.Event = &e
		}
		answers[k] = v
	}
	s.Answers = answers
	return s
}
