package vendors

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/internal/users"
	"github.com/communityhub/marketplace-backend/pkg/config"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	dbtypes "github.com/communityhub/marketplace-backend/pkg/db/types"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/outbox"
	"github.com/communityhub/marketplace-backend/pkg/outbox/payloads"
	"github.com/communityhub/marketplace-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const generatedPasswordLength = 16

// Laundry profile defaults applied when a laundry vendor is created.
var (
	DefaultPickupCharge       = decimal.RequireFromString("20.00")
	DefaultDeliveryCharge     = decimal.RequireFromString("30.00")
	DefaultMinimumOrderAmount = decimal.RequireFromString("100.00")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type communityLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
}

// Service manages vendors.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateVendorInput) (*CreateVendorResult, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*VendorDTO, error)
	List(ctx context.Context, actor policy.Actor, vendorType *enums.VendorType) ([]VendorDTO, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateVendorInput) (*VendorDTO, error)
}

// ServiceParams groups the vendor service dependencies.
type ServiceParams struct {
	Repo           Repository
	Users          users.Repository
	Communities    communityLookup
	Tx             txRunner
	Outbox         outbox.Emitter
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	repo        Repository
	users       users.Repository
	communities communityLookup
	tx          txRunner
	outbox      outbox.Emitter
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the vendor service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Communities == nil {
		return nil, fmt.Errorf("community lookup required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:        params.Repo,
		users:       params.Users,
		communities: params.Communities,
		tx:          params.Tx,
		outbox:      params.Outbox,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         params.Now,
	}, nil
}

// Create provisions the vendor, its operator account and, for laundry
// vendors, a laundry profile in one transaction. The account password is
// either supplied or generated; it is returned here and never again.
func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateVendorInput) (*CreateVendorResult, error) {
	if err := policy.Authorize(actor, policy.VendorCreate, policy.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor type")
	}
	email := strings.ToLower(strings.TrimSpace(input.Account.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account email is required")
	}

	community, err := s.communities.FindByID(ctx, input.CommunityID)
	if err != nil {
		return nil, err
	}
	if !community.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "community is not active")
	}

	creds, err := s.issueCredentials(email, input.Account.Password)
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(creds.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	firstName := strings.TrimSpace(input.Account.FirstName)
	if firstName == "" {
		firstName = name
	}
	lastName := strings.TrimSpace(input.Account.LastName)
	if lastName == "" {
		lastName = "Admin"
	}

	var (
		account *models.User
		vendor  *models.Vendor
		profile *models.LaundryVendor
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		account, err = s.users.WithTx(tx).Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: hash,
			FirstName:    firstName,
			LastName:     lastName,
			Phone:        input.ContactPhone,
			Role:         enums.UserRoleVendor,
			CommunityID:  &community.ID,
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				return pkgerrors.New(pkgerrors.CodeConflict, "account email already registered")
			}
			return err
		}

		vendor = &models.Vendor{
			Name:           name,
			Type:           input.Type,
			Description:    input.Description,
			CommunityID:    community.ID,
			AdminID:        &account.ID,
			ContactEmail:   input.ContactEmail,
			ContactPhone:   input.ContactPhone,
			Address:        input.Address,
			OperatingHours: dbtypes.StringMap(input.OperatingHours),
			IsActive:       true,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, vendor); err != nil {
			return err
		}

		if input.Type == enums.VendorTypeLaundry {
			profile = &models.LaundryVendor{
				VendorID:           vendor.ID,
				BusinessName:       name,
				Description:        input.Description,
				PickupTimeStart:    "08:00",
				PickupTimeEnd:      "18:00",
				DeliveryTimeHours:  24,
				MinimumOrderAmount: DefaultMinimumOrderAmount,
				PickupCharge:       DefaultPickupCharge,
				DeliveryCharge:     DefaultDeliveryCharge,
				ServiceAreas:       dbtypes.StringList{},
				IsActive:           true,
			}
			if err := repo.CreateLaundryProfile(ctx, profile); err != nil {
				return err
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorCreated,
			AggregateType: enums.AggregateVendor,
			AggregateID:   vendor.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role), CommunityID: actor.CommunityID},
			OccurredAt:    s.now().UTC(),
			Data: payloads.VendorCreatedEvent{
				VendorID:    vendor.ID,
				AccountID:   account.ID,
				CommunityID: community.ID,
				VendorType:  vendor.Type,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(vendor)
	if profile != nil {
		dto.LaundryVendorID = &profile.ID
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vendor_id":          vendor.ID.String(),
		"account_id":         account.ID.String(),
		"vendor_type":        string(vendor.Type),
		"password_generated": creds.Generated,
	}), "vendor created")

	return &CreateVendorResult{
		Vendor:      dto,
		Account:     users.FromModel(account),
		Credentials: creds,
	}, nil
}

func (s *service) issueCredentials(email, supplied string) (Credentials, error) {
	if supplied != "" {
		if len(supplied) < 12 {
			return Credentials{}, pkgerrors.New(pkgerrors.CodeValidation, "account password must be at least 12 characters")
		}
		return Credentials{Email: email, Password: supplied}, nil
	}
	generated, err := security.GenerateTempPassword(generatedPasswordLength)
	if err != nil {
		return Credentials{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate password")
	}
	return Credentials{Email: email, Password: generated, Generated: true}, nil
}

// Get returns a vendor. Non-master callers only see vendors of their own
// community.
func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*VendorDTO, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsMaster() && !sameCommunity(actor, vendor) && !operates(actor, vendor) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to view vendor")
	}
	return s.withProfile(ctx, vendor)
}

func (s *service) List(ctx context.Context, actor policy.Actor, vendorType *enums.VendorType) ([]VendorDTO, error) {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if vendorType != nil && !vendorType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid vendor type")
	}
	filter := ListFilter{Type: vendorType}
	if !actor.IsMaster() {
		if actor.CommunityID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not associated with any community")
		}
		filter.CommunityID = actor.CommunityID
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]VendorDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateVendorInput) (*VendorDTO, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.VendorManage, policy.Resource{VendorAccountID: vendor.AdminID}); err != nil {
		return nil, err
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	updated, err := s.repo.Update(ctx, id, input.updates())
	if err != nil {
		return nil, err
	}
	return s.withProfile(ctx, updated)
}

func (s *service) withProfile(ctx context.Context, vendor *models.Vendor) (*VendorDTO, error) {
	dto := FromModel(vendor)
	if vendor.Type != enums.VendorTypeLaundry {
		return dto, nil
	}
	profileID, err := s.repo.LaundryProfileID(ctx, vendor.ID)
	if err != nil {
		return nil, err
	}
	dto.LaundryVendorID = profileID
	return dto, nil
}

func sameCommunity(actor policy.Actor, vendor *models.Vendor) bool {
	return actor.CommunityID != nil && *actor.CommunityID == vendor.CommunityID
}

func operates(actor policy.Actor, vendor *models.Vendor) bool {
	return policy.Allowed(actor, policy.VendorManage, policy.Resource{VendorAccountID: vendor.AdminID})
}
