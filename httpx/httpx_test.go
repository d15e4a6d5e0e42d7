package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/database"
	"github.com/mbolis/event-registration/registration"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", &registration.ValidationError{Msg: "label is required"}, http.StatusBadRequest, "label is required"},
		{"not found", &registration.NotFoundError{Kind: "field", ID: "42"}, http.StatusNotFound, "field 42 not found"},
		{"store", &registration.StoreError{Op: "db.list_fields", Err: errors.New("disk I/O error")}, http.StatusInternalServerError, "failed to list fields"},
		{"wrapped", errors.Wrap(&registration.NotFoundError{Kind: "submission", ID: "x"}, "delete"), http.StatusNotFound, "submission x not found"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			WriteError(rec, req, "test", tc.err)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, StatusOf(tc.err))
			assert.Equal(t, tc.msg, Message(tc.err))

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	assert.Empty(t, buf.Body())
	assert.Zero(t, buf.Status())

	buf.Header().Set("X-Test", "1")
	_, err := buf.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, buf.Status())

	rec := httptest.NewRecorder()
	require.NoError(t, buf.Flush(rec))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "hello", rec.Body.String())
}

func TestCredentialsVerifier(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemory()
	cfg := config.Config{AdminUser: "admin", AdminPassword: "pw", TokenSecret: "s", TokenTTL: time.Minute}
	require.NoError(t, EnsureAdmin(ctx, store, cfg))

	v := CredentialsVerifier(store)
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	assert.NoError(t, v.ValidateUser("admin", "pw", "", req))
	assert.Error(t, v.ValidateUser("admin", "nope", "", req))
	assert.ErrorIs(t, v.ValidateUser("ghost", "pw", "", req), database.ErrNotFound)

	claims, err := v.AddClaims(oauth.BearerToken, "admin", "t1", "", req)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"roles": RoleAdmin}, claims)

	require.NoError(t, v.StoreTokenID(oauth.BearerToken, "admin", "t1", "r1"))
	assert.NoError(t, v.ValidateTokenID(oauth.BearerToken, "admin", "t1", "r1"))
	assert.Error(t, v.ValidateTokenID(oauth.BearerToken, "admin", "t1", "r1"), "refresh tokens are single use")

	cv := v.(*credentialsVerifier)
	cv.now = func() time.Time { return time.Now().Add(-2 * RefreshTTL) }
	require.NoError(t, v.StoreTokenID(oauth.BearerToken, "admin", "t2", "r2"))
	cv.now = time.Now
	assert.Error(t, v.ValidateTokenID(oauth.BearerToken, "admin", "t2", "r2"), "expired")

	assert.Error(t, v.ValidateClient("id", "secret", "", req))
}

func TestEnsureAdminWithoutUser(t *testing.T) {
	store := database.NewMemory()
	require.NoError(t, EnsureAdmin(context.Background(), store, config.Config{}))
	_, err := store.FindUser(context.Background(), "")
	assert.ErrorIs(t, err, database.ErrNotFound)
}
