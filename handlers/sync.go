package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/lib/validation"
)

type syncResponse struct {
	Report syncer.Report `json:"report"`
	// Started is false when a sync of the target was already running and
	// this trigger was dropped.
	Started bool `json:"started"`
}

func HandleSyncAll(o *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := o.SyncAll(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, reports, http.StatusOK)
	}
}

// HandleSync refreshes one target. A trigger that arrives while the target
// is syncing answers 202 with the in-flight report.
func HandleSync(o *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, started, err := o.Sync(r.Context(), chi.URLParam(r, "entity"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		status := http.StatusOK
		if !started {
			status = http.StatusAccepted
		}
		validation.WriteJSON(w, syncResponse{Report: report, Started: started}, status)
	}
}

func HandleSyncStatuses(o *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation.WriteJSON(w, o.Statuses(), http.StatusOK)
	}
}

func HandleSyncStatus(o *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := o.Status(chi.URLParam(r, "entity"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, report, http.StatusOK)
	}
}

// HandleAcknowledge returns a finished sync to idle once its message was seen.
func HandleAcknowledge(o *syncer.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := o.Acknowledge(chi.URLParam(r, "entity"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, report, http.StatusOK)
	}
}

func HandleSyncHistory(h *db.History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > validation.MaxPageSize {
				writeError(w, r, badRequest("invalid limit %q", s))
				return
			}
			limit = n
		}
		if h == nil {
			validation.WriteJSON(w, []db.SyncRun{}, http.StatusOK)
			return
		}
		runs, err := h.Recent(r.Context(), chi.URLParam(r, "entity"), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, runs, http.StatusOK)
	}
}

type availability struct {
	Available bool `json:"available"`
}

func HandleGetAvailability(s *db.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation.WriteJSON(w, availability{Available: s.ServiceAvailable(r.Context())}, http.StatusOK)
	}
}

// HandleSetAvailability persists the availability flag. With ?reload=true the
// catalog is reloaded at once; otherwise the flag applies to the next load or
// sync.
func HandleSetAvailability(s *db.Settings, c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req availability
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.SetServiceAvailable(r.Context(), req.Available); err != nil {
			writeError(w, r, err)
			return
		}
		if reload, _ := strconv.ParseBool(r.URL.Query().Get("reload")); reload {
			validation.WriteJSON(w, c.Reload(r.Context()), http.StatusOK)
			return
		}
		validation.WriteJSON(w, req, http.StatusOK)
	}
}

type sessionRequest struct {
	Token string `json:"token"`
}

func HandleSetSession(s *db.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.SetSessionToken(r.Context(), req.Token); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleStatus(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation.WriteJSON(w, c.Status(), http.StatusOK)
	}
}

func HandleStats(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation.WriteJSON(w, c.Stats(), http.StatusOK)
	}
}

func HandleCounts(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		validation.WriteJSON(w, c.Counts(), http.StatusOK)
	}
}
