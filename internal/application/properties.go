package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/kushmahi07/Rentzy-sub001/internal/domain"
)

type CreatePropertyInput struct {
	Name     string                     `json:"name" yaml:"name"`
	Location string                     `json:"location" yaml:"location"`
	Token    *domain.PropertyTokenState `json:"tokenState,omitempty" yaml:"tokenState,omitempty"`
}

// CreateProperty registers a property. The initial token state may only be
// set here; afterwards it changes through tokenization actions alone.
func (s *BackofficeService) CreateProperty(ctx context.Context, actorID *uint, in CreatePropertyInput) (domain.Property, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Property{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	state := domain.DefaultTokenState()
	if in.Token != nil {
		state = in.Token.WithDefaults()
		state.LastActionAt = nil
		state.LastActionBy = nil
	}
	if err := state.Check(); err != nil {
		return domain.Property{}, err
	}

	p, err := s.properties.CreateProperty(ctx, domain.Property{
		Name:     name,
		Location: strings.TrimSpace(in.Location),
		Token:    state,
	})
	if err != nil {
		return domain.Property{}, err
	}

	s.WriteAudit(ctx, actorID, "property.create", domain.EntityTypeProperty, &p.ID, p.Name)
	return p, nil
}

func (s *BackofficeService) GetProperty(ctx context.Context, id uint) (domain.Property, error) {
	if id == 0 {
		return domain.Property{}, fmt.Errorf("%w: property id is required", domain.ErrInvalidInput)
	}
	return s.properties.GetPropertyByID(ctx, id)
}

// FindPropertyByName returns the newest property whose name equals name,
// ignoring case.
func (s *BackofficeService) FindPropertyByName(ctx context.Context, name string) (domain.Property, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Property{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	items, err := s.properties.ListProperties(ctx, domain.PropertyQuery{Name: name, Limit: 1})
	if err != nil {
		return domain.Property{}, err
	}
	if len(items) == 0 {
		return domain.Property{}, fmt.Errorf("%w: property %q", domain.ErrNotFound, name)
	}
	return items[0], nil
}

func (s *BackofficeService) ListProperties(ctx context.Context, query string, limit int) ([]domain.Property, error) {
	return s.properties.ListProperties(ctx, domain.PropertyQuery{Query: query, Limit: clampLimit(limit, 100, 1000)})
}
