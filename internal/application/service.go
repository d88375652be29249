package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	PermissionAll             = "*"
	PermissionPropertyRead    = "property.read"
	PermissionPropertyWrite   = "property.write"
	PermissionTokenizationAct = "tokenization.act"
	PermissionAccessRead      = "access.read"
	PermissionAccessWrite     = "access.write"
	PermissionAuditRead       = "audit.read"
)

// ActionRecorder counts tokenization outcomes.
type ActionRecorder interface {
	RecordTokenAction(action, result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordTokenAction(string, string) {}

type BackofficeService struct {
	access     domain.AccessRepository
	properties domain.PropertyRepository
	clock      Clock
	log        logrus.FieldLogger
	recorder   ActionRecorder
	tokens     *tokenIssuer
}

type Option func(*BackofficeService)

func WithClock(c Clock) Option {
	return func(s *BackofficeService) { s.clock = c }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *BackofficeService) { s.log = l }
}

func WithRecorder(r ActionRecorder) Option {
	return func(s *BackofficeService) { s.recorder = r }
}

// WithJWT enables signed access tokens. An empty secret leaves them disabled.
func WithJWT(secret, issuer string, ttl time.Duration) Option {
	return func(s *BackofficeService) {
		if strings.TrimSpace(secret) == "" {
			s.tokens = nil
			return
		}
		s.tokens = &tokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
	}
}

func NewBackofficeService(access domain.AccessRepository, properties domain.PropertyRepository, opts ...Option) *BackofficeService {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &BackofficeService{
		access:     access,
		properties: properties,
		clock:      NewMonotonicClock(),
		log:        discard,
		recorder:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BackofficeService) JWTEnabled() bool { return s.tokens != nil }

// BootstrapAdmin provisions the permission catalogue and the built-in roles,
// then creates the first administrator when the user table is empty.
func (s *BackofficeService) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: bootstrap admin email and password are required", domain.ErrInvalidInput)
	}

	adminRoleID, err := s.provisionRoles(ctx)
	if err != nil {
		return err
	}

	count, err := s.access.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u, err := s.access.CreateUser(ctx, domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash})
	if err != nil {
		return err
	}
	if err := s.access.AssignRoleToUser(ctx, u.ID, adminRoleID); err != nil {
		return err
	}

	s.log.WithField("user_id", u.ID).Info("bootstrap admin created")
	return s.access.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.bootstrap_admin", TargetType: "user", TargetID: &u.ID, Metadata: "initial admin created"})
}

func (s *BackofficeService) provisionRoles(ctx context.Context) (uint, error) {
	roles := []struct {
		key, name   string
		permissions []string
	}{
		{"admin", "Administrator", []string{PermissionAll}},
		{"property_manager", "Property Manager", []string{PermissionPropertyRead}},
		{"auditor", "Auditor", []string{PermissionPropertyRead, PermissionAuditRead}},
	}

	var adminRoleID uint
	for _, role := range roles {
		roleID, err := s.access.CreateRoleIfMissing(ctx, role.key, role.name)
		if err != nil {
			return 0, err
		}
		if role.key == "admin" {
			adminRoleID = roleID
		}
		for _, key := range role.permissions {
			permID, err := s.access.CreatePermissionIfMissing(ctx, key)
			if err != nil {
				return 0, err
			}
			if err := s.access.GrantPermissionToRole(ctx, roleID, permID); err != nil {
				return 0, err
			}
		}
	}
	for _, key := range []string{PermissionPropertyWrite, PermissionTokenizationAct, PermissionAccessRead, PermissionAccessWrite} {
		if _, err := s.access.CreatePermissionIfMissing(ctx, key); err != nil {
			return 0, err
		}
	}
	return adminRoleID, nil
}

func (s *BackofficeService) LoginWithSession(ctx context.Context, email, password string, ttl time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.access.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().UTC().Add(ttl),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.access.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.session", TargetType: "user", TargetID: &u.ID, Metadata: "session login"})
	return u, plain, nil
}

func (s *BackofficeService) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := time.Now().UTC().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.access.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	_ = s.access.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.api_token", TargetType: "user", TargetID: &u.ID, Metadata: "api token issued"})
	return u, plain, nil
}

// LoginWithJWT issues a signed access token. It fails when no signing secret
// is configured.
func (s *BackofficeService) LoginWithJWT(ctx context.Context, email, password string) (domain.User, string, time.Time, error) {
	if s.tokens == nil {
		return domain.User{}, "", time.Time{}, fmt.Errorf("%w: jwt login is not enabled", domain.ErrInvalidInput)
	}
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", time.Time{}, err
	}

	token, expiresAt, err := s.tokens.issue(u, time.Now().UTC())
	if err != nil {
		return domain.User{}, "", time.Time{}, err
	}

	_ = s.access.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.login.jwt", TargetType: "user", TargetID: &u.ID, Metadata: "jwt issued"})
	return u, token, expiresAt, nil
}

func (s *BackofficeService) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	hash := hashToken(token)
	session, err := s.access.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if session.ExpiresAt.Before(time.Now().UTC()) {
		_ = s.access.DeleteSessionByTokenHash(ctx, hash)
		return domain.Identity{}, fmt.Errorf("%w: session expired", domain.ErrUnauthorized)
	}

	return s.identityByUserID(ctx, session.UserID)
}

// AuthenticateBearerToken accepts either a signed JWT or an opaque API token.
func (s *BackofficeService) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	if s.tokens != nil && looksLikeJWT(token) {
		userID, err := s.tokens.verify(token)
		if err != nil {
			return domain.Identity{}, err
		}
		return s.identityByUserID(ctx, userID)
	}

	hash := hashToken(token)
	apit, err := s.access.GetAPITokenByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(time.Now().UTC()) {
		return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	}

	return s.identityByUserID(ctx, apit.UserID)
}

func (s *BackofficeService) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.access.DeleteSessionByTokenHash(ctx, hashToken(token))
}

func (s *BackofficeService) Can(identity domain.Identity, permission string) bool {
	if _, ok := identity.Permissions[PermissionAll]; ok {
		return true
	}
	_, ok := identity.Permissions[permission]
	return ok
}

// WriteAudit records an access audit entry. It is a no-op when the service
// runs without an access repository.
func (s *BackofficeService) WriteAudit(ctx context.Context, actorUserID *uint, action, targetType string, targetID *uint, metadata string) {
	if s.access == nil {
		return
	}
	err := s.access.CreateAuditLog(ctx, domain.AuditLog{
		ActorUserID: actorUserID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    metadata,
	})
	if err != nil {
		s.log.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}

func (s *BackofficeService) CreateUser(ctx context.Context, email, password string, roleID uint) (domain.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	value := domain.User{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: hash}
	if roleID != 0 {
		return s.access.CreateUserWithRole(ctx, value, roleID)
	}
	return s.access.CreateUser(ctx, value)
}

func (s *BackofficeService) ListUsers(ctx context.Context, query string, limit int) ([]domain.User, error) {
	return s.access.ListUsers(ctx, query, clampLimit(limit, 200, 2000))
}

func (s *BackofficeService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.access.ListRoles(ctx)
}

func (s *BackofficeService) AssignRole(ctx context.Context, userID, roleID uint) error {
	if userID == 0 || roleID == 0 {
		return fmt.Errorf("%w: user_id and role_id are required", domain.ErrInvalidInput)
	}
	return s.access.AssignRoleToUser(ctx, userID, roleID)
}

func (s *BackofficeService) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	return s.access.ListAuditLogs(ctx, clampLimit(limit, 200, 2000))
}

func (s *BackofficeService) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.access.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return u, nil
}

func (s *BackofficeService) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.access.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, domain.ErrUnauthorized
		}
		return domain.Identity{}, err
	}
	permList, err := s.access.GetPermissionsByUserID(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	permMap := make(map[string]struct{}, len(permList))
	for _, p := range permList {
		permMap[p] = struct{}{}
	}
	return domain.Identity{User: u, Permissions: permMap}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
