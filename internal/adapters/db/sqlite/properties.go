package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
	"gorm.io/gorm"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) CreateProperty(ctx context.Context, value domain.Property) (domain.Property, error) {
	m := PropertyModel{
		Name:                   value.Name,
		Location:               value.Location,
		TokenizationStatus:     string(value.Token.TokenizationStatus),
		TokenSaleStatus:        string(value.Token.TokenSaleStatus),
		SecondaryTradingStatus: string(value.Token.SecondaryTradingStatus),
		MintingStatus:          string(value.Token.MintingStatus),
		TotalTokens:            value.Token.TotalTokens,
		TokensIssued:           value.Token.TokensIssued,
		TokensSold:             value.Token.TokensSold,
		Version:                1,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Property{}, fmt.Errorf("%w: create property: %v", domain.ErrPersistence, err)
	}
	return toProperty(m), nil
}

func (r *PropertyRepository) GetPropertyByID(ctx context.Context, id uint) (domain.Property, error) {
	var m PropertyModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Property{}, fmt.Errorf("property %d: %w", id, domain.ErrNotFound)
		}
		return domain.Property{}, fmt.Errorf("%w: load property: %v", domain.ErrPersistence, err)
	}
	return toProperty(m), nil
}

func (r *PropertyRepository) ListProperties(ctx context.Context, query domain.PropertyQuery) ([]domain.Property, error) {
	q := r.db.WithContext(ctx).Model(&PropertyModel{})
	if strings.TrimSpace(query.Query) != "" {
		like := "%" + strings.TrimSpace(query.Query) + "%"
		q = q.Where("name LIKE ? OR location LIKE ?", like, like)
	}
	if name := strings.TrimSpace(query.Name); name != "" {
		q = q.Where("lower(name) = ?", strings.ToLower(name))
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	rows := make([]PropertyModel, 0)
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list properties: %v", domain.ErrPersistence, err)
	}
	result := make([]domain.Property, 0, len(rows))
	for _, m := range rows {
		result = append(result, toProperty(m))
	}
	return result, nil
}

func (r *PropertyRepository) CommitTokenAction(ctx context.Context, propertyID uint, expectedVersion int64, state domain.PropertyTokenState, entry domain.AdminActionLogEntry) (domain.Property, domain.AdminActionLogEntry, error) {
	previous, err := json.Marshal(entry.PreviousState)
	if err != nil {
		return domain.Property{}, domain.AdminActionLogEntry{}, fmt.Errorf("%w: encode previous state: %v", domain.ErrPersistence, err)
	}
	next, err := json.Marshal(entry.NewState)
	if err != nil {
		return domain.Property{}, domain.AdminActionLogEntry{}, fmt.Errorf("%w: encode new state: %v", domain.ErrPersistence, err)
	}

	var (
		updated PropertyModel
		logged  AdminActionLogModel
	)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PropertyModel{}).
			Where("id = ? AND version = ?", propertyID, expectedVersion).
			Updates(map[string]any{
				"tokenization_status":      string(state.TokenizationStatus),
				"token_sale_status":        string(state.TokenSaleStatus),
				"secondary_trading_status": string(state.SecondaryTradingStatus),
				"minting_status":           string(state.MintingStatus),
				"total_tokens":             state.TotalTokens,
				"tokens_issued":            state.TokensIssued,
				"tokens_sold":              state.TokensSold,
				"last_action_at":           state.LastActionAt,
				"last_action_by":           state.LastActionBy,
				"version":                  gorm.Expr("version + 1"),
				"updated_at":               time.Now().UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("%w: update property: %v", domain.ErrPersistence, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&PropertyModel{}).Where("id = ?", propertyID).Count(&count).Error; err != nil {
				return fmt.Errorf("%w: load property: %v", domain.ErrPersistence, err)
			}
			if count == 0 {
				return fmt.Errorf("property %d: %w", propertyID, domain.ErrNotFound)
			}
			return domain.ErrConflict
		}

		logged = AdminActionLogModel{
			ActionID:      entry.ActionID,
			AdminID:       entry.AdminID,
			Action:        string(entry.Action),
			EntityType:    entry.EntityType,
			EntityID:      entry.EntityID,
			EntityName:    entry.EntityName,
			PreviousState: previous,
			NewState:      next,
			Reason:        entry.Reason,
			IPAddress:     entry.IPAddress,
			UserAgent:     entry.UserAgent,
			CreatedAt:     entry.CreatedAt,
		}
		if err := tx.Create(&logged).Error; err != nil {
			return fmt.Errorf("%w: insert action log: %v", domain.ErrPersistence, err)
		}

		if err := tx.First(&updated, propertyID).Error; err != nil {
			return fmt.Errorf("%w: reload property: %v", domain.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return domain.Property{}, domain.AdminActionLogEntry{}, err
		}
		return domain.Property{}, domain.AdminActionLogEntry{}, fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}

	out, err := toActionLog(logged)
	if err != nil {
		return domain.Property{}, domain.AdminActionLogEntry{}, err
	}
	return toProperty(updated), out, nil
}

func (r *PropertyRepository) ListActionLogs(ctx context.Context, query domain.ActionLogQuery) ([]domain.AdminActionLogEntry, error) {
	q := r.db.WithContext(ctx).Model(&AdminActionLogModel{})
	if query.EntityID != nil {
		q = q.Where("entity_type = ? AND entity_id = ?", domain.EntityTypeProperty, *query.EntityID)
	}
	if query.Action != "" {
		q = q.Where("action = ?", string(query.Action))
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	rows := make([]AdminActionLogModel, 0)
	if err := q.Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list action logs: %v", domain.ErrPersistence, err)
	}
	result := make([]domain.AdminActionLogEntry, 0, len(rows))
	for _, m := range rows {
		entry, err := toActionLog(m)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

func toProperty(m PropertyModel) domain.Property {
	return domain.Property{
		ID:       m.ID,
		Name:     m.Name,
		Location: m.Location,
		Token: domain.PropertyTokenState{
			TokenizationStatus:     domain.TokenizationStatus(m.TokenizationStatus),
			TokenSaleStatus:        domain.TokenSaleStatus(m.TokenSaleStatus),
			SecondaryTradingStatus: domain.SecondaryTradingStatus(m.SecondaryTradingStatus),
			MintingStatus:          domain.MintingStatus(m.MintingStatus),
			TotalTokens:            m.TotalTokens,
			TokensIssued:           m.TokensIssued,
			TokensSold:             m.TokensSold,
			LastActionAt:           m.LastActionAt,
			LastActionBy:           m.LastActionBy,
		},
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toActionLog(m AdminActionLogModel) (domain.AdminActionLogEntry, error) {
	entry := domain.AdminActionLogEntry{
		ID:         m.ID,
		ActionID:   m.ActionID,
		AdminID:    m.AdminID,
		Action:     domain.TokenAction(m.Action),
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		EntityName: m.EntityName,
		Reason:     m.Reason,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		CreatedAt:  m.CreatedAt,
	}
	if err := json.Unmarshal(m.PreviousState, &entry.PreviousState); err != nil {
		return domain.AdminActionLogEntry{}, fmt.Errorf("%w: decode previous state of log %d: %v", domain.ErrPersistence, m.ID, err)
	}
	if err := json.Unmarshal(m.NewState, &entry.NewState); err != nil {
		return domain.AdminActionLogEntry{}, fmt.Errorf("%w: decode new state of log %d: %v", domain.ErrPersistence, m.ID, err)
	}
	return entry, nil
}
