package usecase

import (
	"errors"

	"rental-assistant/internal/domain"
)

// ProductCatalog is the read-only catalog consumed by the browsing endpoints.
type ProductCatalog interface {
	All() []domain.Product
	GetByID(id string) (domain.Product, bool)
	Search(query string) []domain.Product
}

type ProductService struct {
	catalog ProductCatalog
}

func NewProductService(c ProductCatalog) (*ProductService, error) {
	if c == nil {
		return nil, errors.New("usecase: product catalog must not be nil")
	}
	return &ProductService{catalog: c}, nil
}

func (s *ProductService) List() []domain.Product {
	return s.catalog.All()
}

func (s *ProductService) Get(id string) (domain.Product, error) {
	p, ok := s.catalog.GetByID(id)
	if !ok {
		return domain.Product{}, newError(ErrorNotFound, "product_not_found", nil)
	}
	return p, nil
}

func (s *ProductService) Search(query string) []domain.Product {
	return s.catalog.Search(query)
}
