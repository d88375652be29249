package domain

import "context"

type AccessRepository interface {
	CreateUser(ctx context.Context, value User) (User, error)
	// CreateUserWithRole stores the user and its role grant together. Nothing
	// is stored when the role does not exist or either write fails.
	CreateUserWithRole(ctx context.Context, value User, roleID uint) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
	CreateRoleIfMissing(ctx context.Context, key, name string) (uint, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreatePermissionIfMissing(ctx context.Context, key string) (uint, error)
	GrantPermissionToRole(ctx context.Context, roleID, permissionID uint) error
	AssignRoleToUser(ctx context.Context, userID, roleID uint) error
	ListUsers(ctx context.Context, query string, limit int) ([]User, error)
	GetPermissionsByUserID(ctx context.Context, userID uint) ([]string, error)
	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]AuditRecord, error)
}

// PropertyRepository stores properties and their tokenization audit trail.
//
// CommitTokenAction must write the new token state and the log entry as one
// unit: either both are stored or neither is. The update only applies when the
// stored version still equals expectedVersion; otherwise it returns
// ErrConflict. Failures of the underlying store are wrapped in ErrPersistence.
type PropertyRepository interface {
	CreateProperty(ctx context.Context, value Property) (Property, error)
	GetPropertyByID(ctx context.Context, id uint) (Property, error)
	ListProperties(ctx context.Context, query PropertyQuery) ([]Property, error)
	CommitTokenAction(ctx context.Context, propertyID uint, expectedVersion int64, state PropertyTokenState, entry AdminActionLogEntry) (Property, AdminActionLogEntry, error)
	ListActionLogs(ctx context.Context, query ActionLogQuery) ([]AdminActionLogEntry, error)
}
