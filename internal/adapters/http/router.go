package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kushmahi07/Rentzy-sub001/internal/application"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
)

const sessionCookieName = "rentzy_session"

type contextKey string

const identityKey contextKey = "identity"

type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
	Handler() http.Handler
}

type Options struct {
	Logger     logrus.FieldLogger
	Metrics    HTTPMetrics
	SessionTTL time.Duration
	LoginRate  float64
	LoginBurst int

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For/X-Real-IP.
	// Off by default: the login limiter and audit IP use the peer address.
	TrustProxyHeaders bool
}

type Handler struct {
	service    *application.BackofficeService
	log        logrus.FieldLogger
	sessionTTL time.Duration
}

func NewRouter(service *application.BackofficeService, opts Options) http.Handler {
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	h := &Handler{service: service, log: opts.Logger, sessionTTL: opts.SessionTTL}
	limiter := newLoginLimiter(opts.LoginRate, opts.LoginBurst, opts.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(observe(opts.Logger, opts.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.With(limiter.Handler).Post("/auth/login", h.handleAPILogin)
		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/auth/whoami", h.handleAPIWhoAmI)
		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Post("/auth/logout", h.handleAPILogout)

		api.With(h.requireAuthAPI(application.PermissionAccessRead)).Get("/access/users", h.handleAPIListUsers)
		api.With(h.requireAuthAPI(application.PermissionAccessWrite)).Post("/access/users", h.handleAPICreateUser)
		api.With(h.requireAuthAPI(application.PermissionAccessRead)).Get("/access/roles", h.handleAPIListRoles)
		api.With(h.requireAuthAPI(application.PermissionAccessWrite)).Post("/access/assign-role", h.handleAPIAssignRole)
		api.With(h.requireAuthAPI(application.PermissionAuditRead)).Get("/audit/logs", h.handleAPIListAuditLogs)

		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/properties", h.handleAPIListProperties)
		api.With(h.requireAuthAPI(application.PermissionPropertyWrite)).Post("/properties", h.handleAPICreateProperty)
		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/properties/{id}", h.handleAPIGetProperty)
		api.With(h.requireAuthAPI(application.PermissionTokenizationAct)).Post("/properties/{id}/tokenization/actions", h.handleAPIApplyTokenAction)
		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/properties/{id}/tokenization/logs", h.handleAPIPropertyActionLogs)

		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/tokenization/overview", h.handleAPITokenizationOverview)
		api.With(h.requireAuthAPI(application.PermissionPropertyRead)).Get("/tokenization/logs", h.handleAPIActionLogs)
	})

	return r
}

func (h *Handler) requireAuthAPI(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := h.authenticateRequest(r)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "code": "unauthorized"})
				return
			}
			if !h.service.Can(identity, permission) {
				writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "code": "forbidden"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[7:])
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return identity, true
		}
	}

	return domain.Identity{}, false
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(identityKey)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL.Seconds()),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

type apiLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "code": "invalid_input"})
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	switch mode {
	case "session":
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password, h.sessionTTL)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials", "code": "unauthorized"})
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "mode": "session"})
	case "jwt":
		u, token, expiresAt, err := h.service.LoginWithJWT(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "token": token, "expires_at": expiresAt, "mode": "jwt"})
	case "token":
		u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials", "code": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "token": token, "mode": "token"})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "mode must be session, token or jwt", "code": "invalid_input"})
	}
}

func (h *Handler) handleAPIWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	perms := make([]string, 0, len(identity.Permissions))
	for p := range identity.Permissions {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	writeJSON(w, http.StatusOK, map[string]any{"id": identity.User.ID, "email": identity.User.Email, "permissions": perms})
}

func (h *Handler) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		_ = h.service.LogoutSession(r.Context(), c.Value)
		h.clearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListUsers(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type apiCreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   uint   `json:"role_id"`
}

func (h *Handler) handleAPICreateUser(w http.ResponseWriter, r *http.Request) {
	var req apiCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "code": "invalid_input"})
		return
	}
	v, err := h.service.CreateUser(r.Context(), req.Email, req.Password, req.RoleID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeAudit(r.Context(), "access.user.create", "user", &v.ID)
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleAPIListRoles(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListRoles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type apiAssignRoleRequest struct {
	UserID uint `json:"user_id"`
	RoleID uint `json:"role_id"`
}

func (h *Handler) handleAPIAssignRole(w http.ResponseWriter, r *http.Request) {
	var req apiAssignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload", "code": "invalid_input"})
		return
	}
	if err := h.service.AssignRole(r.Context(), req.UserID, req.RoleID); err != nil {
		writeError(w, err)
		return
	}
	h.writeAudit(r.Context(), "access.role.assign", "user", &req.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIListAuditLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAuditLogs(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses. The message is passed
// through unchanged so clients can show it to the operator.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrInvalidTransition):
		status, code = http.StatusUnprocessableEntity, "invalid_transition"
	case errors.Is(err, domain.ErrPersistence):
		code = "persistence_failure"
	}
	writeJSON(w, status, map[string]any{"error": err.Error(), "code": code})
}

func (h *Handler) writeAudit(ctx context.Context, action, targetType string, targetID *uint) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		h.service.WriteAudit(ctx, nil, action, targetType, targetID, "")
		return
	}
	h.service.WriteAudit(ctx, &identity.User.ID, action, targetType, targetID, "")
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return v
}
