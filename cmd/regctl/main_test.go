package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/database"
	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/model"
	"github.com/mbolis/event-registration/routes"
)

func newServer(t *testing.T) (*httptest.Server, *database.Memory) {
	ctx := context.Background()
	cfg := config.Config{TokenSecret: "s", TokenTTL: time.Minute, AdminUser: "admin", AdminPassword: "pw", PublicDir: t.TempDir()}
	store := database.NewMemory()
	require.NoError(t, httpx.EnsureAdmin(ctx, store, cfg))

	f := model.FieldDefinition{Label: "Email", Kind: model.KindEmail, Required: true}
	require.NoError(t, store.InsertField(ctx, &f))
	f = model.FieldDefinition{Label: "Event", Kind: model.KindEvent, Order: 1, Events: []model.EventOption{
		{Name: "Retreat", Date: "2024-05-01", VenueKind: model.VenuePhysical, VenueName: "Hall A", Amount: 500},
	}}
	require.NoError(t, store.InsertField(ctx, &f))

	srv := httptest.NewServer(routes.Wire(app.New(store, httpx.NewBearerServer(store, cfg), cfg, nil)))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestRun(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()
	opts := options{url: srv.URL, timeout: time.Second}

	t.Run("fields", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run(ctx, opts, []string{"fields"}, &out))
		assert.Contains(t, out.String(), "Email")
		assert.Contains(t, out.String(), "event-select")
	})

	t.Run("submit checks required fields", func(t *testing.T) {
		var out bytes.Buffer
		err := run(ctx, opts, []string{"submit", "Event=Retreat"}, &out)
		assert.EqualError(t, err, "please fill in the required field: Email")

		err = run(ctx, opts, []string{"submit", "Phone=1"}, &out)
		assert.EqualError(t, err, `no field labelled "Phone"`)
	})

	t.Run("submit", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, run(ctx, opts, []string{"submit", "Email=a@b.co", "Event=Retreat"}, &out))
		assert.Contains(t, out.String(), "Retreat: 2024-05-01, Hall A, 500")
		assert.Contains(t, out.String(), "submitted")

		subs, err := store.ListSubmissions(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
	})

	t.Run("admin commands need credentials", func(t *testing.T) {
		err := run(ctx, opts, []string{"export"}, &bytes.Buffer{})
		assert.EqualError(t, err, "admin commands need -user and -password")
	})

	t.Run("export", func(t *testing.T) {
		admin := opts
		admin.user, admin.password = "admin", "pw"
		var out bytes.Buffer
		require.NoError(t, run(ctx, admin, []string{"export", "-format", "csv"}, &out))
		assert.Contains(t, out.String(), "S.No,Email,Event,CreatedAt")
		assert.Contains(t, out.String(), "a@b.co,Retreat | 2024-05-01 | Hall A | 500")
	})

	t.Run("submissions lists answers by label", func(t *testing.T) {
		admin := opts
		admin.user, admin.password = "admin", "pw"
		for i := 0; i < 5; i++ {
			var out bytes.Buffer
			require.NoError(t, run(ctx, admin, []string{"submissions"}, &out))
			assert.Contains(t, out.String(), "\tEmail: a@b.co\n\tEvent: Retreat\n")
		}
	})

	t.Run("unknown command", func(t *testing.T) {
		assert.EqualError(t, run(ctx, opts, []string{"frobnicate"}, &bytes.Buffer{}), `unknown command "frobnicate"`)
	})
}
