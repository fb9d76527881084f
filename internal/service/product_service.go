package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sachero10/backend-tienda-ropa/internal/dto"
	"github.com/sachero10/backend-tienda-ropa/internal/model"
	"github.com/sachero10/backend-tienda-ropa/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductService defines the business logic contract for the catalog.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductCreatedResponse, error)
	Get(ctx context.Context, id uuid.UUID, withDeleted bool) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]dto.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// GenerateSKU builds NAM-SIZE-COL-NNNN from the first letters of name and
// color, the full size and a random four digit suffix.
func GenerateSKU(name, size, color string) string {
	return fmt.Sprintf("%s-%s-%s-%d",
		prefix(name, 3),
		strings.ToUpper(strings.TrimSpace(size)),
		prefix(color, 3),
		1000+rand.Intn(9000))
}

func prefix(s string, n int) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductCreatedResponse, error) {
	p := &model.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Brand:       req.Brand,
		Category:    req.Category,
	}
	for _, v := range req.Variants {
		p.Variants = append(p.Variants, newVariant(p.Name, v))
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, translateCatalogError("create product", err)
	}
	return &dto.ProductCreatedResponse{Message: "Product created successfully", ProductID: p.ID.String()}, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID, withDeleted bool) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id, withDeleted)
	if err != nil {
		return nil, translateCatalogError("get product", err)
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) ([]dto.ProductResponse, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, &StorageError{Op: "list products", Err: err}
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, *productToResponse(&products[i]))
	}
	return out, nil
}

// Update rewrites the product fields and upserts variants. Existing variants
// keep their stock; stock changes go through the stock ledger.
func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id, true)
	if err != nil {
		return nil, translateCatalogError("get product", err)
	}
	existing := make(map[uuid.UUID]*model.Variant, len(p.Variants))
	for i := range p.Variants {
		existing[p.Variants[i].ID] = &p.Variants[i]
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Brand != nil {
		p.Brand = *req.Brand
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	p.UpdatedAt = time.Now().UTC()

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, p); err != nil {
			return err
		}
		for _, vr := range req.Variants {
			if vr.ID == "" {
				v := newVariant(p.Name, vr)
				v.ProductID = p.ID
				if err := s.repo.CreateVariantTx(tx, &v); err != nil {
					return err
				}
				continue
			}
			vid, err := uuid.Parse(vr.ID)
			if err != nil {
				return fmt.Errorf("%w: variant id %q", ErrValidationFailed, vr.ID)
			}
			v, ok := existing[vid]
			if !ok {
				return fmt.Errorf("variant %s of product %s: %w", vid, p.ID, ErrNotFound)
			}
			v.Size = vr.Size
			v.Color = vr.Color
			v.CostPrice = vr.CostPrice
			v.SellPrice = vr.SellPrice
			if sku := strings.TrimSpace(vr.SKU); sku != "" {
				v.SKU = sku
			}
			v.UpdatedAt = p.UpdatedAt
			if err := s.repo.UpdateVariantTx(tx, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateCatalogError("update product", err)
	}
	return s.Get(ctx, id, true)
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	return translateCatalogError("delete product", s.repo.SoftDelete(ctx, id))
}

func (s *productService) Restore(ctx context.Context, id uuid.UUID) error {
	return translateCatalogError("restore product", s.repo.Restore(ctx, id))
}

func newVariant(productName string, v dto.VariantRequest) model.Variant {
	sku := strings.TrimSpace(v.SKU)
	if sku == "" {
		sku = GenerateSKU(productName, v.Size, v.Color)
	}
	return model.Variant{
		Size:      v.Size,
		Color:     v.Color,
		CostPrice: v.CostPrice,
		SellPrice: v.SellPrice,
		Stock:     v.Stock,
		SKU:       sku,
	}
}

func translateCatalogError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: sku already exists: %w", op, ErrConflict)
	}
	return asStorageFailure(op, err)
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	resp := &dto.ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Brand:       p.Brand,
		Category:    p.Category,
		Deleted:     p.DeletedAt.Valid,
		Variants:    make([]dto.VariantResponse, 0, len(p.Variants)),
	}
	for i := range p.Variants {
		resp.Variants = append(resp.Variants, *variantToResponse(&p.Variants[i], false))
	}
	return resp
}

// variantToResponse optionally nests the owning product, without its variants.
func variantToResponse(v *model.Variant, withProduct bool) *dto.VariantResponse {
	resp := &dto.VariantResponse{
		ID:        v.ID.String(),
		ProductID: v.ProductID.String(),
		Size:      v.Size,
		Color:     v.Color,
		CostPrice: v.CostPrice,
		SellPrice: v.SellPrice,
		Stock:     v.Stock,
		SKU:       v.SKU,
		Deleted:   v.DeletedAt.Valid,
	}
	if withProduct && v.Product != nil {
		resp.Product = &dto.ProductResponse{
			ID:          v.Product.ID.String(),
			Name:        v.Product.Name,
			Description: v.Product.Description,
			Brand:       v.Product.Brand,
			Category:    v.Product.Category,
			Deleted:     v.Product.DeletedAt.Valid,
		}
	}
	return resp
}
