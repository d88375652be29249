package domain

import "time"

type Property struct {
	ID        uint               `json:"id"`
	Name      string             `json:"name"`
	Location  string             `json:"location"`
	Token     PropertyTokenState `json:"token"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type PropertyQuery struct {
	Query string
	// Name matches the whole property name, ignoring case.
	Name  string
	Limit int
}

type User struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	Action      string
	TargetType  string
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

type Identity struct {
	User        User
	Permissions map[string]struct{}
}

type Role struct {
	ID        uint      `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuditRecord struct {
	ID             uint      `json:"id"`
	ActorUserID    *uint     `json:"actorUserId,omitempty"`
	ActorUserEmail string    `json:"actorUserEmail"`
	Action         string    `json:"action"`
	TargetType     string    `json:"targetType"`
	TargetID       *uint     `json:"targetId,omitempty"`
	Metadata       string    `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AdminActionLogEntry is one row of the tokenization audit trail. Entries are
// written once and never changed.
type AdminActionLogEntry struct {
	ID            uint           `json:"id"`
	ActionID      string         `json:"actionId"`
	AdminID       uint           `json:"adminId"`
	Action        TokenAction    `json:"action"`
	EntityType    string         `json:"entityType"`
	EntityID      uint           `json:"entityId"`
	EntityName    string         `json:"entityName"`
	PreviousState StatusSnapshot `json:"previousState"`
	NewState      StatusSnapshot `json:"newState"`
	Reason        string         `json:"reason"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type ActionLogQuery struct {
	EntityID *uint
	Action   TokenAction
	Limit    int
}

// TokenizationOverview aggregates the lifecycle state of every property.
type TokenizationOverview struct {
	Properties             int                            `json:"properties"`
	TokenizationStatus     map[TokenizationStatus]int     `json:"tokenizationStatus"`
	TokenSaleStatus        map[TokenSaleStatus]int        `json:"tokenSaleStatus"`
	SecondaryTradingStatus map[SecondaryTradingStatus]int `json:"secondaryTradingStatus"`
	MintingStatus          map[MintingStatus]int          `json:"mintingStatus"`
	TotalTokens            int64                          `json:"totalTokens"`
	TokensIssued           int64                          `json:"tokensIssued"`
	TokensSold             int64                          `json:"tokensSold"`
}

const EntityTypeProperty = "property"
