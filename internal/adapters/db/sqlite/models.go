package sqlite

import (
	"time"

	"gorm.io/datatypes"
)

type PropertyModel struct {
	ID                     uint   `gorm:"primaryKey"`
	Name                   string `gorm:"not null;index"`
	Location               string `gorm:"not null;default:''"`
	TokenizationStatus     string `gorm:"not null;default:'not_started'"`
	TokenSaleStatus        string `gorm:"not null;default:'not_started'"`
	SecondaryTradingStatus string `gorm:"not null;default:'enabled'"`
	MintingStatus          string `gorm:"not null;default:'enabled'"`
	TotalTokens            int64  `gorm:"not null;default:0"`
	TokensIssued           int64  `gorm:"not null;default:0"`
	TokensSold             int64  `gorm:"not null;default:0"`
	LastActionAt           *time.Time
	LastActionBy           *uint
	Version                int64 `gorm:"not null;default:1"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (PropertyModel) TableName() string { return "properties" }

type AdminActionLogModel struct {
	ID            uint           `gorm:"primaryKey"`
	ActionID      string         `gorm:"not null;uniqueIndex"`
	AdminID       uint           `gorm:"not null;index"`
	Action        string         `gorm:"not null;index"`
	EntityType    string         `gorm:"not null;index:idx_action_entity"`
	EntityID      uint           `gorm:"not null;index:idx_action_entity"`
	EntityName    string         `gorm:"not null;default:''"`
	PreviousState datatypes.JSON `gorm:"not null"`
	NewState      datatypes.JSON `gorm:"not null"`
	Reason        string         `gorm:"not null"`
	IPAddress     string         `gorm:"not null;default:''"`
	UserAgent     string         `gorm:"not null;default:''"`
	CreatedAt     time.Time      `gorm:"not null"`
}

func (AdminActionLogModel) TableName() string { return "admin_action_logs" }

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type RoleModel struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (RoleModel) TableName() string { return "roles" }

type PermissionModel struct {
	ID        uint   `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (PermissionModel) TableName() string { return "permissions" }

type UserRoleModel struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"not null;index:idx_user_role,unique"`
	RoleID    uint `gorm:"not null;index:idx_user_role,unique"`
	CreatedAt time.Time
}

func (UserRoleModel) TableName() string { return "user_roles" }

type RolePermissionModel struct {
	ID           uint `gorm:"primaryKey"`
	RoleID       uint `gorm:"not null;index:idx_role_perm,unique"`
	PermissionID uint `gorm:"not null;index:idx_role_perm,unique"`
	CreatedAt    time.Time
}

func (RolePermissionModel) TableName() string { return "role_permissions" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null;index"`
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }
