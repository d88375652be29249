package http

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
)

func (h *Handler) handleAPIListProperties(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListProperties(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := propertyIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.service.GetProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAPICreateProperty(w http.ResponseWriter, r *http.Request) {
	var req application.CreatePropertyInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "code": "invalid_input"})
		return
	}
	var actor *uint
	if identity, ok := identityFromContext(r.Context()); ok {
		actor = &identity.User.ID
	}
	p, err := h.service.CreateProperty(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type apiTokenActionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (h *Handler) handleAPIApplyTokenAction(w http.ResponseWriter, r *http.Request) {
	id, err := propertyIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req apiTokenActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "code": "invalid_input"})
		return
	}
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "code": "unauthorized"})
		return
	}

	res, err := h.service.ApplyTokenizationAction(r.Context(), application.TokenActionRequest{
		PropertyID: id,
		Action:     domain.TokenAction(strings.ToLower(strings.TrimSpace(req.Action))),
		ActorID:    identity.User.ID,
		Reason:     req.Reason,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleAPIPropertyActionLogs(w http.ResponseWriter, r *http.Request) {
	id, err := propertyIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListActionLogs(r.Context(), domain.ActionLogQuery{
		EntityID: &id,
		Action:   domain.TokenAction(r.URL.Query().Get("action")),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPIActionLogs(w http.ResponseWriter, r *http.Request) {
	query := domain.ActionLogQuery{
		Action: domain.TokenAction(r.URL.Query().Get("action")),
		Limit:  queryInt(r, "limit"),
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("property_id")); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		query.EntityID = &id
	}
	items, err := h.service.ListActionLogs(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAPITokenizationOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.TokenizationOverview(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func propertyIDParam(r *http.Request) (uint, error) {
	return parseID(chi.URLParam(r, "id"))
}

func parseID(raw string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: id must be a positive number", domain.ErrInvalidInput)
	}
	return uint(v), nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
