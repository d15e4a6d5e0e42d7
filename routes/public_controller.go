package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/app"
	"github.com/mbolis/event-registration/httpx"
	"github.com/mbolis/event-registration/log"
)

func ListFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fields, err := app.Fields.List(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "list_fields", err)
			return
		}

		render.JSON(w, r, fields)
	}
}

// submissionRequest accepts the answer map under "answers", or under
// "dynamicData" as older form clients send it.
type submissionRequest struct {
	Answers     json.RawMessage `json:"answers"`
	DynamicData json.RawMessage `json:"dynamicData"`
}

func (req submissionRequest) raw() json.RawMessage {
	if len(req.Answers) == 0 {
		return req.DynamicData
	}
	return req.Answers
}

// maxSubmissionBytes bounds the body of the public submission endpoints.
const maxSubmissionBytes = 1 << 20

func CreateSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBytes)

		req := submissionRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			app.Metrics.SubmissionRejected()
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.LogStatusMsg(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_too_large", "submission exceeds %d bytes", tooLarge.Limit)
				return
			}
			httpx.LogStatusMsg(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "%s", err)
			return
		}

		submission, err := app.Submissions.CreateRaw(r.Context(), req.raw())
		if err != nil {
			httpx.WriteError(w, r, "create_submission", err)
			return
		}
		log.WithFields(log.Fields{"id": submission.ID, "answers": len(submission.Answers)}).Debug("submission.created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, submission)
	}
}

func GetBanner(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		banner, err := app.Banner.Get(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "get_banner", err)
			return
		}

		render.JSON(w, r, banner)
	}
}
