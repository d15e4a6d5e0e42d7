package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/routes/middlewares"
)

// loginPage is where browsers without a valid session land.
const loginPage = "/login.html"

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.Get("/register", RegisterForm(app))
	root.Post("/register", SubmitRegisterForm(app))
	root.Handle("/metrics", promhttp.Handler())

	root.
		With(middlewares.CookieAuth(app.BearerServer, loginPage), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles(app.PrivateDir, "/admin"))
	root.Mount("/", servePublicFiles(app.PublicDir))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/form-fields", ListFields(app))
	api.Post("/submissions", CreateSubmission(app))
	api.Get("/banner", GetBanner(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.CookieAuth(app.BearerServer, ""), middlewares.Admin(app.TokenSecret))

		r.Post("/form-fields", CreateField(app))
		r.Put("/form-fields/order", ReorderFields(app))
		r.Put("/form-fields/{id}", UpdateField(app))
		r.Delete("/form-fields/{id}", DeleteField(app))

		r.Get("/submissions", ListSubmissions(app))
		r.Get("/submissions/export", ExportSubmissions(app))
		r.Delete("/submissions/{id}", DeleteSubmission(app))

		r.Put("/banner", PutBanner(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

func servePrivateFiles(dir, path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir(dir)))
}
