package domain

import (
	"fmt"
	"strings"
	"time"
)

type TokenizationStatus string

const (
	TokenizationNotStarted TokenizationStatus = "not_started"
	TokenizationInProgress TokenizationStatus = "in_progress"
	TokenizationCompleted  TokenizationStatus = "completed"
	TokenizationFailed     TokenizationStatus = "failed"
)

type TokenSaleStatus string

const (
	TokenSaleNotStarted TokenSaleStatus = "not_started"
	TokenSaleActive     TokenSaleStatus = "active"
	TokenSalePaused     TokenSaleStatus = "paused"
	TokenSaleFrozen     TokenSaleStatus = "frozen"
	TokenSaleCompleted  TokenSaleStatus = "completed"
)

type SecondaryTradingStatus string

const (
	SecondaryTradingEnabled  SecondaryTradingStatus = "enabled"
	SecondaryTradingFrozen   SecondaryTradingStatus = "frozen"
	SecondaryTradingDisabled SecondaryTradingStatus = "disabled"
)

type MintingStatus string

const (
	MintingEnabled  MintingStatus = "enabled"
	MintingDisabled MintingStatus = "disabled"
)

type TokenAction string

const (
	ActionFreezeTokenSale        TokenAction = "freeze_token_sale"
	ActionFreezeSecondaryTrading TokenAction = "freeze_secondary_trading"
	ActionDisableMinting         TokenAction = "disable_minting"
	ActionUnfreezeTokenSale      TokenAction = "unfreeze_token_sale"
	ActionEnableSecondaryTrading TokenAction = "enable_secondary_trading"
	ActionEnableMinting          TokenAction = "enable_minting"
)

var TokenActions = []TokenAction{
	ActionFreezeTokenSale,
	ActionFreezeSecondaryTrading,
	ActionDisableMinting,
	ActionUnfreezeTokenSale,
	ActionEnableSecondaryTrading,
	ActionEnableMinting,
}

// PropertyTokenState is the tokenization subset of a property record.
type PropertyTokenState struct {
	TokenizationStatus     TokenizationStatus     `json:"tokenizationStatus" yaml:"tokenizationStatus"`
	TokenSaleStatus        TokenSaleStatus        `json:"tokenSaleStatus" yaml:"tokenSaleStatus"`
	SecondaryTradingStatus SecondaryTradingStatus `json:"secondaryTradingStatus" yaml:"secondaryTradingStatus"`
	MintingStatus          MintingStatus          `json:"mintingStatus" yaml:"mintingStatus"`
	TotalTokens            int64                  `json:"totalTokens" yaml:"totalTokens"`
	TokensIssued           int64                  `json:"tokensIssued" yaml:"tokensIssued"`
	TokensSold             int64                  `json:"tokensSold" yaml:"tokensSold"`
	LastActionAt           *time.Time             `json:"lastActionAt,omitempty" yaml:"-"`
	LastActionBy           *uint                  `json:"lastActionBy,omitempty" yaml:"-"`
}

// StatusSnapshot is what the audit trail records before and after an action.
type StatusSnapshot struct {
	TokenSaleStatus        TokenSaleStatus        `json:"tokenSaleStatus"`
	SecondaryTradingStatus SecondaryTradingStatus `json:"secondaryTradingStatus"`
	MintingStatus          MintingStatus          `json:"mintingStatus"`
	TotalTokens            int64                  `json:"totalTokens"`
}

func DefaultTokenState() PropertyTokenState {
	return PropertyTokenState{
		TokenizationStatus:     TokenizationNotStarted,
		TokenSaleStatus:        TokenSaleNotStarted,
		SecondaryTradingStatus: SecondaryTradingEnabled,
		MintingStatus:          MintingEnabled,
	}
}

func (s PropertyTokenState) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		TokenSaleStatus:        s.TokenSaleStatus,
		SecondaryTradingStatus: s.SecondaryTradingStatus,
		MintingStatus:          s.MintingStatus,
		TotalTokens:            s.TotalTokens,
	}
}

// WithDefaults fills blank status fields with the creation defaults.
func (s PropertyTokenState) WithDefaults() PropertyTokenState {
	d := DefaultTokenState()
	if s.TokenizationStatus == "" {
		s.TokenizationStatus = d.TokenizationStatus
	}
	if s.TokenSaleStatus == "" {
		s.TokenSaleStatus = d.TokenSaleStatus
	}
	if s.SecondaryTradingStatus == "" {
		s.SecondaryTradingStatus = d.SecondaryTradingStatus
	}
	if s.MintingStatus == "" {
		s.MintingStatus = d.MintingStatus
	}
	return s
}

// Check verifies enum membership and tokensSold <= tokensIssued <= totalTokens.
func (s PropertyTokenState) Check() error {
	switch s.TokenizationStatus {
	case TokenizationNotStarted, TokenizationInProgress, TokenizationCompleted, TokenizationFailed:
	default:
		return fmt.Errorf("%w: unknown tokenization status %q", ErrInvalidInput, s.TokenizationStatus)
	}
	switch s.TokenSaleStatus {
	case TokenSaleNotStarted, TokenSaleActive, TokenSalePaused, TokenSaleFrozen, TokenSaleCompleted:
	default:
		return fmt.Errorf("%w: unknown token sale status %q", ErrInvalidInput, s.TokenSaleStatus)
	}
	switch s.SecondaryTradingStatus {
	case SecondaryTradingEnabled, SecondaryTradingFrozen, SecondaryTradingDisabled:
	default:
		return fmt.Errorf("%w: unknown secondary trading status %q", ErrInvalidInput, s.SecondaryTradingStatus)
	}
	switch s.MintingStatus {
	case MintingEnabled, MintingDisabled:
	default:
		return fmt.Errorf("%w: unknown minting status %q", ErrInvalidInput, s.MintingStatus)
	}
	if s.TokensSold < 0 || s.TokensIssued < 0 || s.TotalTokens < 0 {
		return fmt.Errorf("%w: token counters must not be negative", ErrInvalidInput)
	}
	if s.TokensSold > s.TokensIssued {
		return fmt.Errorf("%w: tokens sold (%d) exceed tokens issued (%d)", ErrInvalidInput, s.TokensSold, s.TokensIssued)
	}
	if s.TokensIssued > s.TotalTokens {
		return fmt.Errorf("%w: tokens issued (%d) exceed total tokens (%d)", ErrInvalidInput, s.TokensIssued, s.TotalTokens)
	}
	return nil
}

func ParseTokenAction(raw string) (TokenAction, error) {
	action := TokenAction(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range TokenActions {
		if action == known {
			return action, nil
		}
	}
	return "", fmt.Errorf("%w: unknown tokenization action %q", ErrInvalidInput, raw)
}

// ValidateAction reports whether action may run against s. It never mutates s.
func ValidateAction(s PropertyTokenState, action TokenAction) error {
	reject := func(reason string) error {
		return &TransitionError{Action: action, Reason: reason}
	}

	switch action {
	case ActionFreezeTokenSale:
		if s.TokenSaleStatus != TokenSaleActive {
			return reject("Can only freeze an active token sale")
		}
	case ActionFreezeSecondaryTrading:
		if s.SecondaryTradingStatus != SecondaryTradingEnabled {
			return reject("Can only freeze secondary trading while it is enabled")
		}
	case ActionDisableMinting:
		if s.TokenizationStatus != TokenizationCompleted {
			return reject("Can only disable minting for properties with completed tokenization")
		}
		if s.TokenSaleStatus != TokenSaleActive {
			return reject("Can only disable minting while the token sale is active")
		}
		if s.TokensSold <= 0 {
			return reject("Can only disable minting for properties with tokens already sold")
		}
		if s.MintingStatus != MintingEnabled {
			return reject("Minting is already disabled")
		}
	case ActionUnfreezeTokenSale:
		if s.TokenSaleStatus != TokenSaleFrozen {
			return reject("Can only unfreeze a frozen token sale")
		}
	case ActionEnableSecondaryTrading:
		if s.SecondaryTradingStatus == SecondaryTradingEnabled {
			return reject("Secondary trading is already enabled")
		}
	case ActionEnableMinting:
		return reject("Minting cannot be re-enabled once disabled")
	default:
		return fmt.Errorf("%w: unknown tokenization action %q", ErrInvalidInput, action)
	}
	return nil
}

// ApplyAction returns the state after a permitted action. Callers must run
// ValidateAction first; ApplyAction does not check preconditions.
func ApplyAction(s PropertyTokenState, action TokenAction, actorID uint, at time.Time) PropertyTokenState {
	next := s
	switch action {
	case ActionFreezeTokenSale:
		next.TokenSaleStatus = TokenSaleFrozen
	case ActionFreezeSecondaryTrading:
		next.SecondaryTradingStatus = SecondaryTradingFrozen
	case ActionDisableMinting:
		next.MintingStatus = MintingDisabled
		// supply is locked at what has been issued so far
		next.TotalTokens = s.TokensIssued
	case ActionUnfreezeTokenSale:
		next.TokenSaleStatus = TokenSaleActive
	case ActionEnableSecondaryTrading:
		next.SecondaryTradingStatus = SecondaryTradingEnabled
	case ActionEnableMinting:
		next.MintingStatus = MintingEnabled
	}

	actionAt := at
	actor := actorID
	next.LastActionAt = &actionAt
	next.LastActionBy = &actor
	return next
}
