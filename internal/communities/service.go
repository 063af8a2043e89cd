package communities

import (
	"context"
	"fmt"
	"strings"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/security"
	"github.com/google/uuid"
)

const (
	codePrefix      = "COM"
	codeHexLength   = 8
	maxCodeAttempts = 5
	defaultCountry  = "India"
	maxSearchLength = 100
)

// Service manages communities.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateCommunityInput) (*CommunityDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CommunityDTO, error)
	List(ctx context.Context) ([]CommunityDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateCommunityInput) (*CommunityDTO, error)
	SetActive(ctx context.Context, actor policy.Actor, id uuid.UUID, active bool) (*CommunityDTO, error)
	Stats(ctx context.Context, actor policy.Actor) ([]Stats, error)
	Search(ctx context.Context, query string) ([]CommunityDTO, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

// ServiceParams bundles the community service dependencies.
type ServiceParams struct {
	Repo    Repository
	Logger  *logger.Logger
	NewCode func() (string, error)
}

type service struct {
	repo    Repository
	logg    *logger.Logger
	newCode func() (string, error)
}

// NewService builds the community service. NewCode defaults to COM plus 8
// random uppercase hex characters.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("community repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	newCode := params.NewCode
	if newCode == nil {
		newCode = func() (string, error) { return security.PrefixedCode(codePrefix, codeHexLength) }
	}
	return &service{repo: params.Repo, logg: logg, newCode: newCode}, nil
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateCommunityInput) (*CommunityDTO, error) {
	if err := policy.Authorize(actor, policy.CommunityManage, policy.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	country := strings.TrimSpace(input.Country)
	if country == "" {
		country = defaultCountry
	}

	community := &models.Community{
		Name:        name,
		Description: input.Description,
		Address:     input.Address,
		City:        input.City,
		State:       input.State,
		Country:     country,
		PostalCode:  input.PostalCode,
		AdminName:   input.AdminName,
		AdminEmail:  input.AdminEmail,
		AdminPhone:  input.AdminPhone,
		IsActive:    true,
	}

	// a code collision surfaces as CONFLICT; draw a fresh code and try again
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		community.ID = uuid.Nil
		community.Code, err = s.newCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate community code")
		}
		err = s.repo.Create(ctx, community)
		if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "code", community.Code), "community code collision")
	}
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"community_id": community.ID.String(),
		"code":         community.Code,
	}), "community created")
	return FromModel(community), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CommunityDTO, error) {
	community, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(community), nil
}

func (s *service) List(ctx context.Context) ([]CommunityDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return fromModels(rows), nil
}

func (s *service) Search(ctx context.Context, query string) ([]CommunityDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if len(query) > maxSearchLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("search query must be at most %d characters", maxSearchLength))
	}
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return fromModels(rows), nil
}

// Delete hard-deletes an empty community. Communities with members or vendors
// are refused with CONFLICT; SetActive(false) retires those.
func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := policy.Authorize(actor, policy.CommunityManage, policy.Resource{}); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "community_id", id.String()), "community deleted")
	return nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateCommunityInput) (*CommunityDTO, error) {
	if err := policy.Authorize(actor, policy.CommunityManage, policy.Resource{}); err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	community, err := s.repo.Update(ctx, id, input.updates())
	if err != nil {
		return nil, err
	}
	return FromModel(community), nil
}

func (s *service) SetActive(ctx context.Context, actor policy.Actor, id uuid.UUID, active bool) (*CommunityDTO, error) {
	if err := policy.Authorize(actor, policy.CommunityManage, policy.Resource{}); err != nil {
		return nil, err
	}
	community, err := s.repo.Update(ctx, id, map[string]any{"is_active": active})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"community_id": id.String(),
		"is_active":    active,
	}), "community status changed")
	return FromModel(community), nil
}

func (s *service) Stats(ctx context.Context, actor policy.Actor) ([]Stats, error) {
	if err := policy.Authorize(actor, policy.CommunityManage, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx)
}
