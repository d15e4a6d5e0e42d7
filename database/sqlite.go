package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/model"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open")
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite pragma")
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	err = migrateDB(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite migrate")
	}

	return &SQLiteStore{db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListFields(ctx context.Context) ([]model.FieldDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, kind, required, ord, options, created_at
		FROM form_field
		ORDER BY ord, created_at, rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "list fields")
	}
	defer rows.Close()

	fields := []model.FieldDefinition{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, errors.Wrap(rows.Err(), "list fields")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (f model.FieldDefinition, err error) {
	var kind, opts string
	var created int64
	err = row.Scan(&f.ID, &f.Label, &kind, &f.Required, &f.Order, &opts, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return f, ErrNotFound
		}
		return f, errors.Wrap(err, "scan field")
	}
	f.Kind = model.FieldKind(kind)
	f.CreatedAt = time.Unix(0, created).UTC()
	if err = f.DecodeOptions([]byte(opts)); err != nil {
		return f, errors.Wrapf(err, "decode options of field %s", f.ID)
	}
	return f, nil
}

func (s *SQLiteStore) GetField(ctx context.Context, id string) (model.FieldDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, kind, required, ord, options, created_at
		FROM form_field
		WHERE id = ?`,
		id,
	)
	return scanField(row)
}

func (s *SQLiteStore) InsertField(ctx context.Context, f *model.FieldDefinition) error {
	opts, err := f.EncodeOptions()
	if err != nil {
		return errors.Wrap(err, "encode options")
	}
	f.ID = uuid.NewString()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_field (id, label, kind, required, ord, options, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Label, string(f.Kind), f.Required, f.Order, string(opts), f.CreatedAt.UnixNano(),
	)
	return errors.Wrap(err, "insert field")
}

func (s *SQLiteStore) ReplaceField(ctx context.Context, f model.FieldDefinition) error {
	opts, err := f.EncodeOptions()
	if err != nil {
		return errors.Wrap(err, "encode options")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE form_field
		SET label = ?, kind = ?, required = ?, ord = ?, options = ?
		WHERE id = ?`,
		f.Label, string(f.Kind), f.Required, f.Order, string(opts), f.ID,
	)
	return affectedOne(res, err, "replace field")
}

func (s *SQLiteStore) DeleteField(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM form_field WHERE id = ?`, id)
	return affectedOne(res, err, "delete field")
}

func (s *SQLiteStore) SetFieldOrder(ctx context.Context, id string, order int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE form_field SET ord = ? WHERE id = ?`, order, id)
	return affectedOne(res, err, "set field order")
}

func (s *SQLiteStore) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	answers, err := jsonText(sub.Answers)
	if err != nil {
		return errors.Wrap(err, "encode answers")
	}
	sub.ID = uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO submission (id, answers, created_at) VALUES (?, ?, ?)`,
		sub.ID, answers, sub.CreatedAt.UnixNano(),
	)
	return errors.Wrap(err, "insert submission")
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, answers, created_at
		FROM submission
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var sub model.Submission
		var answers string
		var created int64
		if err = rows.Scan(&sub.ID, &answers, &created); err != nil {
			return nil, errors.Wrap(err, "scan submission")
		}
		if err = fromJSONText(answers, &sub.Answers); err != nil {
			return nil, errors.Wrapf(err, "decode answers of submission %s", sub.ID)
		}
		sub.CreatedAt = time.Unix(0, created).UTC()
		subs = append(subs, sub)
	}
	return subs, errors.Wrap(rows.Err(), "list submissions")
}

func (s *SQLiteStore) DeleteSubmission(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM submission WHERE id = ?`, id)
	return affectedOne(res, err, "delete submission")
}

func (s *SQLiteStore) GetBanner(ctx context.Context) (b model.Banner, err error) {
	var updated int64
	err = s.db.QueryRowContext(ctx, `
		SELECT title, image, updated_at FROM banner WHERE id = 1`,
	).Scan(&b.Title, &b.Image, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.Banner{}, nil
	case err != nil:
		return b, errors.Wrap(err, "get banner")
	}
	b.UpdatedAt = time.Unix(0, updated).UTC()
	return b, nil
}

func (s *SQLiteStore) PutBanner(ctx context.Context, b model.Banner) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO banner (id, title, image, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			image = excluded.image,
			updated_at = excluded.updated_at`,
		b.Title, b.Image, b.UpdatedAt.UnixNano(),
	)
	return errors.Wrap(err, "put banner")
}

func (s *SQLiteStore) FindUser(ctx context.Context, username string) (u model.User, err error) {
	var roles string
	err = s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, roles FROM user WHERE username = ?`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &roles)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return u, ErrNotFound
	case err != nil:
		return u, errors.Wrap(err, "find user")
	}
	u.Roles = splitRoles(roles)
	return u, nil
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (username, password_hash, roles) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			roles = excluded.roles`,
		u.Username, u.PasswordHash, strings.Join(u.Roles, ","),
	)
	return errors.Wrap(err, "upsert user")
}

func (s *SQLiteStore) StoreToken(ctx context.Context, t model.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)`,
		t.Username, t.TokenID, t.RefreshTokenID, t.Expiration.UnixNano(),
	)
	return errors.Wrap(err, "store token")
}

func (s *SQLiteStore) TakeToken(ctx context.Context, username, tokenID, refreshTokenID string) (model.Token, error) {
	t := model.Token{Username: username, TokenID: tokenID, RefreshTokenID: refreshTokenID}
	var expiration int64
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM token
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?
		RETURNING expiration`,
		username, tokenID, refreshTokenID,
	).Scan(&expiration)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return t, ErrNotFound
	case err != nil:
		return t, errors.Wrap(err, "take token")
	}
	t.Expiration = time.Unix(0, expiration).UTC()
	return t, nil
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n < 1 {
		return ErrNotFound
	}
	return nil
}
