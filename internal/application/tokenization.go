package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"github.com/sirupsen/logrus"
)

// maxCommitAttempts bounds how often an action is re-validated after losing a
// version race.
const maxCommitAttempts = 3

type TokenActionRequest struct {
	PropertyID uint
	Action     domain.TokenAction
	ActorID    uint
	Reason     string
	IPAddress  string
	UserAgent  string
}

type TokenActionResult struct {
	Property domain.Property            `json:"property"`
	Entry    domain.AdminActionLogEntry `json:"entry"`
}

// ApplyTokenizationAction validates the action against the current property
// state, applies it and appends one audit entry. Rejected actions leave the
// property and the log untouched.
func (s *BackofficeService) ApplyTokenizationAction(ctx context.Context, req TokenActionRequest) (TokenActionResult, error) {
	checkErr := req.normalize()
	log := s.log.WithFields(logrus.Fields{
		"property_id": req.PropertyID,
		"action":      req.Action,
		"actor_id":    req.ActorID,
	})

	if err := checkErr; err != nil {
		s.recorder.RecordTokenAction(string(req.Action), "invalid")
		log.WithError(err).WithField("result", "invalid").Info("tokenization action refused")
		return TokenActionResult{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		current, err := s.properties.GetPropertyByID(ctx, req.PropertyID)
		if err != nil {
			s.recordFailure(log, req.Action, err)
			return TokenActionResult{}, err
		}

		if err := domain.ValidateAction(current.Token, req.Action); err != nil {
			s.recordFailure(log, req.Action, err)
			return TokenActionResult{}, err
		}

		now := s.clock.Now()
		next := domain.ApplyAction(current.Token, req.Action, req.ActorID, now)
		entry := domain.AdminActionLogEntry{
			ActionID:      newActionID(),
			AdminID:       req.ActorID,
			Action:        req.Action,
			EntityType:    domain.EntityTypeProperty,
			EntityID:      current.ID,
			EntityName:    current.Name,
			PreviousState: current.Token.Snapshot(),
			NewState:      next.Snapshot(),
			Reason:        req.Reason,
			IPAddress:     req.IPAddress,
			UserAgent:     req.UserAgent,
			CreatedAt:     now,
		}

		updated, logged, err := s.properties.CommitTokenAction(ctx, current.ID, current.Version, next, entry)
		if errors.Is(err, domain.ErrConflict) {
			lastErr = err
			log.WithField("attempt", attempt).Debug("property changed during action, retrying")
			continue
		}
		if err != nil {
			s.recordFailure(log, req.Action, err)
			return TokenActionResult{}, err
		}

		s.recorder.RecordTokenAction(string(req.Action), "applied")
		log.WithFields(logrus.Fields{
			"result":    "applied",
			"action_id": logged.ActionID,
		}).Info("tokenization action applied")
		return TokenActionResult{Property: updated, Entry: logged}, nil
	}

	s.recordFailure(log, req.Action, lastErr)
	return TokenActionResult{}, lastErr
}

func (s *BackofficeService) recordFailure(log logrus.FieldLogger, action domain.TokenAction, err error) {
	result := "error"
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		result = "rejected"
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrConflict):
		result = "conflict"
	}
	s.recorder.RecordTokenAction(string(action), result)

	entry := log.WithError(err).WithField("result", result)
	if result == "error" {
		entry.Error("tokenization action failed")
		return
	}
	entry.Info("tokenization action refused")
}

// normalize checks the request and rewrites Action to its canonical form.
func (req *TokenActionRequest) normalize() error {
	if req.PropertyID == 0 {
		return fmt.Errorf("%w: property id is required", domain.ErrInvalidInput)
	}
	if req.ActorID == 0 {
		return fmt.Errorf("%w: admin id is required", domain.ErrInvalidInput)
	}
	action, err := domain.ParseTokenAction(string(req.Action))
	if err != nil {
		return err
	}
	req.Action = action
	if strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%w: a reason is required for tokenization actions", domain.ErrInvalidInput)
	}
	return nil
}

func newActionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ListActionLogs returns audit entries newest first. A property filter must
// name an existing property.
func (s *BackofficeService) ListActionLogs(ctx context.Context, query domain.ActionLogQuery) ([]domain.AdminActionLogEntry, error) {
	if query.EntityID != nil {
		if _, err := s.properties.GetPropertyByID(ctx, *query.EntityID); err != nil {
			return nil, err
		}
	}
	if query.Action != "" {
		action, err := domain.ParseTokenAction(string(query.Action))
		if err != nil {
			return nil, err
		}
		query.Action = action
	}
	query.Limit = clampLimit(query.Limit, 200, 2000)
	return s.properties.ListActionLogs(ctx, query)
}

func (s *BackofficeService) TokenizationOverview(ctx context.Context) (domain.TokenizationOverview, error) {
	items, err := s.properties.ListProperties(ctx, domain.PropertyQuery{})
	if err != nil {
		return domain.TokenizationOverview{}, err
	}

	out := domain.TokenizationOverview{
		TokenizationStatus:     map[domain.TokenizationStatus]int{},
		TokenSaleStatus:        map[domain.TokenSaleStatus]int{},
		SecondaryTradingStatus: map[domain.SecondaryTradingStatus]int{},
		MintingStatus:          map[domain.MintingStatus]int{},
	}
	for _, p := range items {
		out.Properties++
		out.TokenizationStatus[p.Token.TokenizationStatus]++
		out.TokenSaleStatus[p.Token.TokenSaleStatus]++
		out.SecondaryTradingStatus[p.Token.SecondaryTradingStatus]++
		out.MintingStatus[p.Token.MintingStatus]++
		out.TotalTokens += p.Token.TotalTokens
		out.TokensIssued += p.Token.TokensIssued
		out.TokensSold += p.Token.TokensSold
	}
	return out, nil
}
