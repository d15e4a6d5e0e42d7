package routes

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/form"
	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/log"
	"github.com/mbolis/event-registration/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var registerTemplate = template.Must(template.ParseFS(templateFS, "templates/register.html"))

const registeredFlash = "Registration submitted, thank you!"

type registerInput struct {
	form.Input
	Value   string
	Details *form.EventDetails
}

type registerPage struct {
	Banner model.Banner
	Inputs []registerInput
	Flash  string
	Error  string
}

func newRegisterPage(banner model.Banner, inputs []form.Input, values map[string]string) registerPage {
	page := registerPage{Banner: banner}
	for _, in := range inputs {
		ri := registerInput{Input: in, Value: values[in.Label]}
		if d, ok := in.Describe(ri.Value); ok {
			ri.Details = &d
		}
		page.Inputs = append(page.Inputs, ri)
	}
	return page
}

func loadForm(ctx context.Context, app app.App) (model.Banner, []form.Input, error) {
	banner, err := app.Banner.Get(ctx)
	if err != nil {
		return banner, nil, err
	}
	fields, err := app.Fields.List(ctx)
	if err != nil {
		return banner, nil, err
	}
	return banner, form.Build(fields), nil
}

func renderRegister(w http.ResponseWriter, status int, page registerPage) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := registerTemplate.Execute(w, page); err != nil {
		log.Errorf("register.render: %s", err)
	}
}

// RegisterForm renders the public registration form.
func RegisterForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banner, inputs, err := loadForm(r.Context(), app)
		if err != nil {
			httpx.WriteError(w, r, "register.load", err)
			return
		}
		renderRegister(w, http.StatusOK, newRegisterPage(banner, inputs, form.Blank(inputs)))
	}
}

// SubmitRegisterForm stores a registration posted from the public form.
// On failure the form is shown again with the entered values.
func SubmitRegisterForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banner, inputs, err := loadForm(r.Context(), app)
		if err != nil {
			httpx.WriteError(w, r, "register.load", err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
		if err = r.ParseForm(); err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_form", "%s", err)
			return
		}
		values := form.Blank(inputs)
		for label := range values {
			values[label] = r.PostForm.Get(label)
		}

		if err = form.Validate(inputs, values); err != nil {
			app.Metrics.SubmissionRejected()
			page := newRegisterPage(banner, inputs, values)
			page.Error = err.Error()
			renderRegister(w, http.StatusBadRequest, page)
			return
		}

		_, err = app.Submissions.Create(r.Context(), form.Answers(inputs, values))
		if err != nil {
			log.Debugf("register.create_submission: %s", err)
			page := newRegisterPage(banner, inputs, values)
			page.Error = httpx.Message(err)
			renderRegister(w, httpx.StatusOf(err), page)
			return
		}

		page := newRegisterPage(banner, inputs, form.Blank(inputs))
		page.Flash = registeredFlash
		renderRegister(w, http.StatusOK, page)
	}
}
