package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/market-intel/internal/editor"
	"github.com/sells-group/market-intel/internal/filter"
	"github.com/sells-group/market-intel/internal/tenor"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Editor.Catalog())
}

func (s *Server) handleTenors(w http.ResponseWriter, r *http.Request) {
	var ref time.Time
	if v := r.URL.Query().Get("ref"); v != "" {
		t, err := time.Parse(tenor.DateLayout, v)
		if err != nil {
			badRequest(w, "ref", "ref must be a YYYY-MM-DD date")
			return
		}
		ref = t
	}
	writeJSON(w, http.StatusOK, map[string][]string{"codes": s.deps.Editor.Tenors(ref)})
}

func (s *Server) filterState(r *http.Request) (filter.State, error) {
	var st filter.State
	err := s.query.Decode(&st, r.URL.Query())
	return st, err
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	st, err := s.filterState(r)
	if err != nil {
		badRequest(w, "", err.Error())
		return
	}
	view, err := s.deps.Editor.View(r.Context(), st)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func decodeInput(w http.ResponseWriter, r *http.Request) (editor.Input, bool) {
	var in editor.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "", "invalid request body")
		return in, false
	}
	return in, true
}

func (s *Server) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	rec, err := s.deps.Editor.Add(r.Context(), in, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	rec, err := s.deps.Editor.Edit(r.Context(), chi.URLParam(r, "name"), in, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Editor.Delete(r.Context(), chi.URLParam(r, "name"), s.actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "", "invalid request body")
		return
	}
	entry, err := s.deps.Editor.Comment(r.Context(), chi.URLParam(r, "name"), req.Comment, s.actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleRecordHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Editor.History(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Editor.AllHistory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, err := s.filterState(r)
	if err != nil {
		badRequest(w, "", err.Error())
		return
	}

	var (
		data        []byte
		filename    string
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "xlsx":
		data, filename, err = s.deps.Editor.Export(r.Context(), st)
		contentType = xlsxContentType
	case "csv":
		data, filename, err = s.deps.Editor.ExportCSV(r.Context(), st)
		contentType = "text/csv"
	default:
		badRequest(w, "format", "format must be xlsx or csv")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	typed := r.URL.Query()["tag"]
	if len(typed) == 0 {
		badRequest(w, "tag", "at least one tag is required")
		return
	}
	got, err := s.deps.Editor.SuggestTags(r.Context(), typed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}
