// Package handlers serves the catalog as a JSON admin API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/relations"
	"github.com/icco/catalog/lib/repository"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/lib/validation"
)

const defaultPageSize = 20

// errBadRequest marks malformed input.
var errBadRequest = errors.New("bad request")

// errUnavailable marks an optional integration that is not configured.
var errUnavailable = errors.New("not configured")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// writeError maps an error to its status code and writes it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ce *catalog.ConflictError
		fe *validation.FieldError
	)
	switch {
	case errors.As(err, &ce):
		extra := map[string]any{"entity": ce.Entity, "field": ce.Field, "value": ce.Value}
		if ce.Reason != "" {
			extra["reason"] = ce.Reason
		}
		validation.WriteError(w, err, http.StatusConflict, extra)
	case errors.As(err, &fe):
		validation.WriteError(w, err, http.StatusBadRequest, map[string]any{"field": fe.Field, "rule": fe.Rule})
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrUnknownReference),
		errors.Is(err, relations.ErrIndexOutOfRange):
		validation.WriteError(w, err, http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, relations.ErrMovieNotFound),
		errors.Is(err, relations.ErrSeriesNotFound),
		errors.Is(err, relations.ErrActorNotFound),
		errors.Is(err, relations.ErrEpisodeNotFound),
		errors.Is(err, syncer.ErrUnknownTarget):
		validation.WriteError(w, err, http.StatusNotFound)
	case errors.Is(err, relations.ErrDuplicateEdge),
		errors.Is(err, relations.ErrNotEpisodic):
		validation.WriteError(w, err, http.StatusConflict)
	case errors.Is(err, errUnavailable), errors.Is(err, catalog.ErrNoTMDB):
		validation.WriteError(w, err, http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		validation.WriteError(w, errors.New("internal server error"), http.StatusInternalServerError)
	}
}

func notFound(w http.ResponseWriter, what string) {
	validation.WriteError(w, fmt.Errorf("%s not found", what), http.StatusNotFound)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func stringParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return "", badRequest("missing %s", name)
	}
	return raw, nil
}

var reservedParams = map[string]bool{"q": true, "sort": true, "order": true, "page": true, "size": true}

// listOptions reads q, sort, order, page and size. Every other query
// parameter is a field filter.
func listOptions(r *http.Request) (query.Options, error) {
	v := r.URL.Query()
	opts := query.Options{
		Query:   v.Get("q"),
		Sort:    v.Get("sort"),
		Order:   query.ParseOrder(v.Get("order")),
		Page:    1,
		Size:    defaultPageSize,
		Filters: map[string]string{},
	}
	var err error
	if s := v.Get("page"); s != "" {
		if opts.Page, err = strconv.Atoi(s); err != nil {
			return opts, badRequest("invalid page %q", s)
		}
	}
	if s := v.Get("size"); s != "" {
		if opts.Size, err = strconv.Atoi(s); err != nil {
			return opts, badRequest("invalid size %q", s)
		}
	}
	if err := validation.ValidatePagination(opts.Page, opts.Size); err != nil {
		return opts, badRequest("%v", err)
	}
	for key, vals := range v {
		if reservedParams[key] || len(vals) == 0 {
			continue
		}
		opts.Filters[key] = vals[0]
	}
	return opts, nil
}
