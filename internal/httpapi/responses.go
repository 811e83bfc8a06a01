package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/renderers/html"
	"github.com/goliatone/go-formdee/pkg/store"
	"github.com/goliatone/go-formdee/pkg/submission"
)

// Accepted is returned when a response is stored.
type Accepted struct {
	ID string `json:"id"`
}

func (s *Server) listResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := s.forms.ListResponses(r.Context(), r.PathValue("id"))
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	replyJSON(w, http.StatusOK, responses)
}

// submitResponse accepts JSON bodies from API clients and urlencoded or
// multipart posts from the rendered HTML form. Browser posts get the form
// back with inline errors on failure and a redirect on success.
func (s *Server) submitResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := s.forms.GetForm(ctx, r.PathValue("id"))
	if err != nil {
		s.replyStoreError(w, err)
		return
	}

	browser := !isJSONRequest(r)
	var (
		values   map[string]any
		oversize submission.Result
	)
	if browser {
		values, oversize, err = s.decodeFormPost(w, r, form)
	} else {
		err = decodeJSONBody(r, s.maxBody, &values)
	}
	if err != nil {
		replyWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.checker.Validate(form, values)
	result.Merge(oversize)
	if s.metrics != nil {
		s.metrics.Submission(result)
	}

	if !result.Valid() {
		if browser {
			s.renderPage(w, r, http.StatusUnprocessableEntity, form, html.RenderOptions{Values: values, Errors: result})
			return
		}
		replyJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	saved, err := s.forms.SaveResponse(ctx, form.ID, values)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			replyWithError(w, http.StatusNotFound, "form not found")
			return
		}
		s.replyStoreError(w, err)
		return
	}
	s.logger.Info().Str("form", form.ID).Str("response", saved.ID).Msg("response stored")

	if browser {
		http.Redirect(w, r, "/forms/"+url.PathEscape(form.ID)+"?submitted="+url.QueryEscape(saved.ID), http.StatusSeeOther)
		return
	}
	replyJSON(w, http.StatusCreated, Accepted{ID: saved.ID})
}

// decodeFormPost flattens a browser post into submission values. Uploaded
// files are represented by their names; their sizes are checked against
// the field limit here because only the request carries them. Keys starting
// with an underscore, such as the hidden form id, are dropped.
func (s *Server) decodeFormPost(w http.ResponseWriter, r *http.Request, form model.FormConfig) (map[string]any, submission.Result, error) {
	var oversize submission.Result
	posted := url.Values{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, s.multipartLimit(form))
		if err := r.ParseMultipartForm(s.maxBody); err != nil {
			return nil, oversize, fmt.Errorf("parsing multipart form: %w", err)
		}
		defer r.MultipartForm.RemoveAll()
		for key, list := range r.MultipartForm.Value {
			posted[key] = append(posted[key], list...)
		}
		for key, headers := range r.MultipartForm.File {
			field, _ := form.Field(key)
			for _, header := range headers {
				posted.Add(key, header.Filename)
				if msg := checkFileSize(field, header); msg != "" {
					oversize.AddField(key, msg)
				}
			}
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
		if err := r.ParseForm(); err != nil {
			return nil, oversize, fmt.Errorf("parsing form: %w", err)
		}
		posted = r.PostForm
	}

	for key := range posted {
		if strings.HasPrefix(key, "_") {
			posted.Del(key)
		}
	}
	return submission.FromURLValues(form, posted), oversize, nil
}

// multipartLimit caps a multipart body at the largest file limit of the form
// plus the regular body size, so a slightly oversized file still gets a
// field error rather than a rejected request.
func (s *Server) multipartLimit(form model.FormConfig) int64 {
	limit := s.maxBody
	for _, field := range form.Fields {
		if !field.Type.IsFile() || field.MaxFileSize == nil {
			continue
		}
		if candidate := *field.MaxFileSize + s.maxBody; candidate > limit {
			limit = candidate
		}
	}
	return limit
}

func checkFileSize(field model.FieldDefinition, header *multipart.FileHeader) string {
	if field.MaxFileSize == nil || header.Size <= *field.MaxFileSize {
		return ""
	}
	return fmt.Sprintf("%s is larger than %d MB.", header.Filename, *field.MaxFileSize>>20)
}
