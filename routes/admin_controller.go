package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/export"
	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/log"
	"github.com/mbolis/event-registration/model"
)

func CreateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field := model.FieldDefinition{}
		err := render.DecodeJSON(r.Body, &field)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		field, err = app.Fields.Create(r.Context(), field)
		if err != nil {
			httpx.WriteError(w, r, "create_field", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, field)
	}
}

func UpdateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldId := chi.URLParam(r, "id")

		patch := model.FieldPatch{}
		err := render.DecodeJSON(r.Body, &patch)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		field, err := app.Fields.Update(r.Context(), fieldId, patch)
		if err != nil {
			httpx.WriteError(w, r, "update_field", err)
			return
		}

		render.JSON(w, r, field)
	}
}

func DeleteField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := app.Fields.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "delete_field", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ReorderFields applies a batch of {id, order} pairs and reports the ones
// that could not be applied alongside the resulting list.
func ReorderFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pairs []model.OrderPair
		err := render.DecodeJSON(r.Body, &pairs)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "payload must be an array of {id, order}")
			return
		}

		result, err := app.Fields.Reorder(r.Context(), pairs)
		if err != nil {
			httpx.WriteError(w, r, "reorder_fields", err)
			return
		}

		render.JSON(w, r, result)
	}
}

func ListSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := app.Submissions.List(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "list_submissions", err)
			return
		}

		render.JSON(w, r, subs)
	}
}

func DeleteSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := app.Submissions.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpx.WriteError(w, r, "delete_submission", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ExportSubmissions streams every submission projected onto the current
// field set, as CSV (default) or XLSX.
func ExportSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, ok := export.ParseFormat(r.URL.Query().Get("format"))
		if !ok {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.format", "unsupported export format %q", r.URL.Query().Get("format"))
			return
		}

		fields, err := app.Fields.List(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "export.fields", err)
			return
		}
		subs, err := app.Submissions.List(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "export.submissions", err)
			return
		}

		w.Header().Set("content-type", format.ContentType())
		w.Header().Set("content-disposition", `attachment; filename="`+format.Filename()+`"`)
		err = export.Write(w, format, export.Project(fields, subs))
		if err != nil {
			// headers are gone already
			log.Errorf("export.write: %s", err)
			return
		}
		app.Metrics.Exported(string(format))
	}
}

func PutBanner(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banner := model.Banner{}
		err := render.DecodeJSON(r.Body, &banner)
		if err != nil {
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		banner, err = app.Banner.Put(r.Context(), banner)
		if err != nil {
			httpx.WriteError(w, r, "put_banner", err)
			return
		}

		render.JSON(w, r, banner)
	}
}
