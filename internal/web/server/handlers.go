package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/redline-cms/redline/internal/cms/caps"
	"github.com/redline-cms/redline/internal/cms/record"
	"github.com/redline-cms/redline/internal/cms/revision"
	"github.com/redline-cms/redline/internal/cms/shadow"
	"github.com/redline-cms/redline/internal/web/auth"
	"github.com/redline-cms/redline/internal/web/cache"
)

type recordPayload struct {
	ID        int64     `json:"id"`
	GUID      string    `json:"guid"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ParentID  int64     `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPayload(r *record.Record) recordPayload {
	return recordPayload{
		ID:        r.ID,
		GUID:      r.GUID,
		Type:      r.Type,
		Status:    r.Status,
		Slug:      r.Slug,
		Title:     r.Title,
		Body:      r.Body,
		ParentID:  r.ParentID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Server) recordID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	dec, err := s.limiter.Allow(r.Context(), host)
	if err != nil {
		s.logger.Warn("login rate limit check failed", zap.Error(err))
	} else if !dec.Allowed {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(dec.RetryAt).Seconds())+1, 10))
		respondError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req struct {
		User     string `json:"user"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.User != s.cfg.AdminUser || !auth.CheckPassword(req.Password, s.cfg.AdminPasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.Generate(req.User, s.cfg.AdminRoles)
	if err != nil {
		s.logger.Error("token generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := record.ListQuery{
		Type:           r.URL.Query().Get("type"),
		Status:         r.URL.Query().Get("status"),
		MetaKey:        r.URL.Query().Get("meta_key"),
		IncludeShadows: r.URL.Query().Get("include_shadows") == "1",
	}

	cacheKey := "list:" + r.URL.RawQuery
	if s.cache != nil {
		if cached, err := s.cache.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(cached)
			return
		} else if !cache.IsCacheMiss(err) {
			s.logger.Warn("listing cache read failed", zap.Error(err))
		}
	}

	records, err := s.app.Records.List(r.Context(), q)
	if err != nil {
		s.logger.Error("record listing failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	payload := make([]recordPayload, 0, len(records))
	for _, rec := range records {
		payload = append(payload, toPayload(rec))
	}
	body, err := json.Marshal(payload)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode records")
		return
	}

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cacheKey, body, 0); err != nil {
			s.logger.Warn("listing cache write failed", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req recordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Type == "" {
		respondError(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.Status == "" {
		req.Status = record.StatusDraft
	}

	rec := &record.Record{
		Type:   req.Type,
		Status: req.Status,
		Slug:   req.Slug,
		Title:  req.Title,
		Body:   req.Body,
	}
	id, err := s.app.Records.Create(r.Context(), rec)
	if err != nil {
		s.logger.Error("record creation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to create record")
		return
	}

	created, err := s.app.Records.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load created record")
		return
	}
	respondJSON(w, http.StatusCreated, toPayload(created))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := s.app.Records.Get(r.Context(), id)
	if err != nil {
		if record.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	respondJSON(w, http.StatusOK, toPayload(rec))
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec, err := s.app.Records.Get(r.Context(), id)
	if err != nil {
		if record.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load record")
		return
	}

	// Shadow drafts carry their own edit capability.
	if _, isShadow := s.app.Shadow.ShadowOf(r.Context(), id); isShadow {
		if !s.app.Caps.Allowed(r.Context(), caps.ActionEditShadow, id) {
			respondError(w, http.StatusForbidden, "you are not allowed to edit shadow drafts")
			return
		}
	}

	var req recordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.Slug = req.Slug
	rec.Title = req.Title
	rec.Body = req.Body
	if req.Status != "" {
		rec.Status = req.Status
	}

	// This save runs the full pipeline; publishing a shadow draft resolves
	// here, deleting the record that was just updated.
	if err := s.app.Records.Update(r.Context(), rec); err != nil {
		s.logger.Error("record update failed", zap.Int64("record", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update record")
		return
	}

	updated, err := s.app.Records.Get(r.Context(), id)
	if err != nil {
		if record.IsNotFound(err) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"published": true})
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	respondJSON(w, http.StatusOK, toPayload(updated))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if err := s.app.Records.Delete(r.Context(), id); err != nil {
		if record.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrashRecord(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if err := s.app.Records.Trash(r.Context(), id); err != nil {
		if record.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to trash record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUntrashRecord(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	if err := s.app.Records.Untrash(r.Context(), id); err != nil {
		if record.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to untrash record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateShadow is the admin action behind the "create shadow draft"
// link. Success redirects to the editor for the new draft; each precondition
// failure produces its own terminal message.
func (s *Server) handleCreateShadow(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	shadowID, err := s.app.Shadow.Create(r.Context(), id)
	if err != nil {
		switch {
		case record.IsNotFound(err):
			respondError(w, http.StatusNotFound, "record not found")
		case errors.Is(err, shadow.ErrUnsupportedType):
			respondError(w, http.StatusBadRequest, "this record type does not support shadow drafts")
		case errors.Is(err, shadow.ErrAlreadyShadowed):
			respondError(w, http.StatusConflict, "a shadow draft already exists for this record")
		case errors.Is(err, shadow.ErrIsShadow):
			respondError(w, http.StatusBadRequest, "cannot create a shadow draft of a shadow draft")
		case errors.Is(err, shadow.ErrNotPermitted):
			respondError(w, http.StatusForbidden, "you are not allowed to create shadow drafts")
		default:
			s.logger.Error("shadow creation failed", zap.Int64("record", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "shadow draft creation failed")
		}
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/admin/records/%d/edit", shadowID), http.StatusFound)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	snaps, err := s.app.Records.List(r.Context(), record.ListQuery{
		Type:     record.TypeRevision,
		ParentID: id,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	payload := make([]recordPayload, 0, len(snaps))
	for _, snap := range snaps {
		payload = append(payload, toPayload(snap))
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	id, err := s.recordID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	if err := s.app.Engine.Restore(r.Context(), id); err != nil {
		switch {
		case record.IsNotFound(err):
			respondError(w, http.StatusNotFound, "snapshot not found")
		case errors.Is(err, revision.ErrNotSnapshot):
			respondError(w, http.StatusBadRequest, "record is not a snapshot")
		default:
			s.logger.Error("snapshot restore failed", zap.Int64("snapshot", id), zap.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to restore snapshot")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
