package app

import (
	"github.com/go-chi/oauth"

	"github.com/mbolis/event-registration/config"
	"github.com/mbolis/event-registration/database"
	"github.com/mbolis/event-registration/metrics"
	"github.com/mbolis/event-registration/registration"
)

// App carries what the HTTP handlers need.
type App struct {
	Fields      *registration.Fields
	Submissions *registration.Submissions
	Banner      *registration.Banner
	Metrics     *metrics.Metrics
	*oauth.BearerServer
	config.Config
}

// New builds the registration services over store.
func New(store database.Store, bearerServer *oauth.BearerServer, cfg config.Config, m *metrics.Metrics) App {
	return App{
		Fields:       registration.NewFields(store, m),
		Submissions:  registration.NewSubmissions(store, m),
		Banner:       registration.NewBanner(store),
		Metrics:      m,
		BearerServer: bearerServer,
		Config:       cfg,
	}
}
