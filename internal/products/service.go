package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/communityhub/marketplace-backend/internal/policy"
	"github.com/communityhub/marketplace-backend/pkg/db/models"
	"github.com/communityhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/communityhub/marketplace-backend/pkg/errors"
	"github.com/communityhub/marketplace-backend/pkg/logger"
	"github.com/communityhub/marketplace-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service exposes vendor product management operations.
type Service interface {
	CreateProduct(ctx context.Context, actor policy.Actor, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, actor policy.Actor, vendorID uuid.UUID, includeUnavailable bool, params pagination.Params) (pagination.Page[ProductDTO], error)
	UpdateProduct(ctx context.Context, actor policy.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor policy.Actor, productID uuid.UUID) error
}

type vendorLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error)
}

type service struct {
	repo    Repository
	vendors vendorLoader
	logg    *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo Repository, vendors vendorLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, vendors: vendors, logg: logg}, nil
}

// CreateProduct adds a product to a non-laundry vendor's catalog.
func (s *service) CreateProduct(ctx context.Context, actor policy.Actor, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	vendor, err := s.manage(ctx, actor, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Type == enums.VendorTypeLaundry {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "laundry vendors list items in their laundry catalog")
	}
	if !vendor.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor is inactive")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	product := &models.Product{
		VendorID:    vendorID,
		Name:        name,
		Description: trimPtr(input.Description),
		Price:       input.Price.Round(2),
		Category:    trimPtr(input.Category),
		Unit:        trimPtr(input.Unit),
		ImageURL:    trimPtr(input.ImageURL),
		IsAvailable: true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"vendor_id":  vendorID.String(),
		"product_id": product.ID.String(),
	}), "product created")
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

// ListProducts pages a vendor's products. Unavailable products are only
// returned to the vendor's operator or master, and only on request.
func (s *service) ListProducts(ctx context.Context, actor policy.Actor, vendorID uuid.UUID, includeUnavailable bool, params pagination.Params) (pagination.Page[ProductDTO], error) {
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return pagination.Page[ProductDTO]{}, err
	}
	if includeUnavailable && !policy.Allowed(actor, policy.VendorManage, policy.Resource{VendorAccountID: vendor.AdminID}) {
		includeUnavailable = false
	}

	page, err := s.repo.ListByVendor(ctx, vendorID, includeUnavailable, params)
	if err != nil {
		return pagination.Page[ProductDTO]{}, err
	}
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items = append(out.Items, NewProductDTO(&page.Items[i]))
	}
	return out, nil
}

func (s *service) UpdateProduct(ctx context.Context, actor policy.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.manage(ctx, actor, product.VendorID); err != nil {
		return nil, err
	}
	updates, err := productUpdates(input)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, productID, updates)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(updated)
	return &dto, nil
}

// DeleteProduct marks the product unavailable.
func (s *service) DeleteProduct(ctx context.Context, actor policy.Actor, productID uuid.UUID) error {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return err
	}
	if _, err := s.manage(ctx, actor, product.VendorID); err != nil {
		return err
	}
	_, err = s.repo.Update(ctx, productID, map[string]any{"is_available": false})
	return err
}

func (s *service) manage(ctx context.Context, actor policy.Actor, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.vendors.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.VendorManage, policy.Resource{VendorAccountID: vendor.AdminID}); err != nil {
		return nil, err
	}
	return vendor, nil
}

func productUpdates(in UpdateProductInput) (map[string]any, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price"] = in.Price.Round(2)
	}
	optional := map[string]*string{
		"description": in.Description,
		"category":    in.Category,
		"unit":        in.Unit,
		"image_url":   in.ImageURL,
	}
	for column, value := range optional {
		if value != nil {
			updates[column] = trimPtr(value)
		}
	}
	if in.IsAvailable != nil {
		updates["is_available"] = *in.IsAvailable
	}
	return updates, nil
}

// trimPtr trims v and maps blank strings to nil.
func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
