package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formdee/pkg/model"
)

// Version is the OpenAPI version emitted by Document.
const Version = "3.0.3"

// ResponsesPath is the submission endpoint template. Forms with an ID get
// the ID substituted; forms without one keep the {id} parameter.
const ResponsesPath = "/api/forms/{id}/responses"

// ErrDuplicateForm is returned when two forms map to the same path.
var ErrDuplicateForm = errors.New("openapi: duplicate form path")

var componentName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Info carries document metadata.
type Info struct {
	Title   string
	Version string
}

// DefaultInfo is used when Document is called without explicit metadata.
var DefaultInfo = Info{Title: "FormDee responses", Version: "1.0.0"}

// Document builds a validated OpenAPI document with one submission operation
// per form.
func Document(ctx context.Context, info Info, forms ...model.FormConfig) (*openapi3.T, error) {
	if info.Title == "" {
		info.Title = DefaultInfo.Title
	}
	if info.Version == "" {
		info.Version = DefaultInfo.Version
	}

	shared := sharedSchemas{
		errors:   errorSchema(),
		accepted: openapi3.NewObjectSchema().WithProperty("id", openapi3.NewStringSchema()),
	}
	doc := &openapi3.T{
		OpenAPI: Version,
		Info:    &openapi3.Info{Title: info.Title, Version: info.Version},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"SubmissionErrors":   openapi3.NewSchemaRef("", shared.errors),
				"SubmissionAccepted": openapi3.NewSchemaRef("", shared.accepted),
			},
		},
	}

	for _, form := range forms {
		path, name := formPath(form)
		if doc.Paths.Value(path) != nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateForm, path)
		}
		if _, exists := doc.Components.Schemas[name]; exists {
			return nil, fmt.Errorf("%w: component %s", ErrDuplicateForm, name)
		}
		body := SubmissionSchema(form)
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", body)
		doc.AddOperation(path, http.MethodPost, submitOperation(form, path, name, body, shared))
	}

	if err := doc.Validate(ctx, openapi3.SetRegexCompiler(RegexCompiler(nil))); err != nil {
		return nil, fmt.Errorf("openapi: validate document: %w", err)
	}
	return doc, nil
}

func formPath(form model.FormConfig) (path, name string) {
	id := strings.TrimSpace(form.ID)
	if id == "" {
		return ResponsesPath, "FormResponse"
	}
	return strings.Replace(ResponsesPath, "{id}", id, 1), "FormResponse_" + componentName.ReplaceAllString(id, "_")
}

type sharedSchemas struct {
	errors   *openapi3.Schema
	accepted *openapi3.Schema
}

// submitOperation references component schemas; the resolved values are
// attached to each ref so the document validates without a loader pass.
func submitOperation(form model.FormConfig, path, name string, body *openapi3.Schema, shared sharedSchemas) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = "submit_" + strings.TrimPrefix(strings.TrimPrefix(name, "FormResponse"), "_")
	if op.OperationID == "submit_" {
		op.OperationID = "submit"
	}
	op.Summary = "Submit a response to " + form.Title
	op.Tags = []string{"responses"}

	if strings.Contains(path, "{id}") {
		op.Parameters = openapi3.Parameters{
			&openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").
				WithDescription("Form identifier").
				WithSchema(openapi3.NewStringSchema())},
		}
	}

	ref := "#/components/schemas/"
	op.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(openapi3.NewSchemaRef(ref+name, body)),
	}
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(http.StatusCreated, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Response stored").
				WithJSONSchemaRef(openapi3.NewSchemaRef(ref+"SubmissionAccepted", shared.accepted)),
		}),
		openapi3.WithStatus(http.StatusUnprocessableEntity, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("Validation failed").
				WithJSONSchemaRef(openapi3.NewSchemaRef(ref+"SubmissionErrors", shared.errors)),
		}),
		openapi3.WithStatus(http.StatusNotFound, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Form not found"),
		}),
	)
	return op
}

func errorSchema() *openapi3.Schema {
	messages := openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	fields := openapi3.NewObjectSchema().WithAdditionalProperties(messages)
	return openapi3.NewObjectSchema().
		WithProperty("fields", fields).
		WithProperty("form", messages)
}
