package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/openapi"
	"github.com/goliatone/go-formdee/pkg/renderers/html"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/store"
)

// SavedForm is returned after a form is created or replaced.
type SavedForm struct {
	Form     model.FormConfig `json:"form"`
	Warnings []model.Warning  `json:"warnings,omitempty"`
}

// IssuesResponse lists structural problems keyed by attribute path, for
// example "fields[0].key".
type IssuesResponse struct {
	Issues map[string][]string `json:"issues"`
}

func (s *Server) getRules(w http.ResponseWriter, _ *http.Request) {
	replyJSON(w, http.StatusOK, rules.Groups())
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.forms.ListForms(r.Context())
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	replyJSON(w, http.StatusOK, forms)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.forms.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	replyJSON(w, http.StatusOK, form)
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	s.saveForm(w, r, "", http.StatusCreated)
}

func (s *Server) putForm(w http.ResponseWriter, r *http.Request) {
	s.saveForm(w, r, r.PathValue("id"), http.StatusOK)
}

// saveForm checks, derives and stores the posted form. An empty id lets the
// store assign one.
func (s *Server) saveForm(w http.ResponseWriter, r *http.Request, id string, status int) {
	var form model.FormConfig
	if err := decodeJSONBody(r, s.maxBody, &form); err != nil {
		replyWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	form.ID = strings.TrimSpace(id)

	if err := model.Apply(&form, model.DeriveDecorator, model.CheckDecorator); err != nil {
		replyJSON(w, http.StatusUnprocessableEntity, IssuesResponse{Issues: model.IssueMap(err)})
		return
	}

	saved, err := s.forms.SaveForm(r.Context(), form)
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	s.logger.Info().Str("form", saved.ID).Int("fields", len(saved.Fields)).Msg("form saved")
	replyJSON(w, status, SavedForm{Form: saved, Warnings: saved.Warnings()})
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.forms.DeleteForm(r.Context(), r.PathValue("id")); err != nil {
		s.replyStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getFormDocument(w http.ResponseWriter, r *http.Request) {
	form, err := s.forms.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	doc, err := openapi.Document(r.Context(), openapi.Info{Title: form.Title}, form)
	if err != nil {
		s.logger.Error().Err(err).Str("form", form.ID).Msg("openapi document failed")
		replyWithError(w, http.StatusInternalServerError, "could not build document")
		return
	}
	replyJSON(w, http.StatusOK, doc)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	forms, err := s.forms.ListForms(r.Context())
	if err != nil {
		s.replyStoreError(w, err)
		return
	}
	doc, err := openapi.Document(r.Context(), openapi.DefaultInfo, forms...)
	if err != nil {
		s.logger.Error().Err(err).Msg("openapi document failed")
		replyWithError(w, http.StatusInternalServerError, "could not build document")
		return
	}
	replyJSON(w, http.StatusOK, doc)
}

func (s *Server) getFormPage(w http.ResponseWriter, r *http.Request) {
	form, err := s.forms.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.replyStoreError(w, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, form, html.RenderOptions{})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, form model.FormConfig, opts html.RenderOptions) {
	opts.Action = "/api/forms/" + form.ID + "/responses"
	opts.Hidden = append(opts.Hidden, html.FormID(form.ID))
	out, err := s.renderer.Render(r.Context(), form, opts)
	if err != nil {
		s.logger.Error().Err(err).Str("form", form.ID).Msg("render failed")
		http.Error(w, "could not render form", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (s *Server) replyStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		replyWithError(w, http.StatusNotFound, "form not found")
		return
	}
	s.logger.Error().Err(err).Msg("store request failed")
	replyWithError(w, http.StatusInternalServerError, "internal error")
}
