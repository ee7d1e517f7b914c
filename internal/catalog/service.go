// Package catalog is the read-only view of products, delivery addresses and
// user display names owned by external systems.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bidmart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
	"github.com/angelmondragon/bidmart-backend/pkg/types"
)

type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetAddress(ctx context.Context, userID, id uuid.UUID) (*models.Address, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "product not found", "load product")
	}
	return product, nil
}

// GetActiveProduct treats an inactive product the same as a missing one.
func (s *service) GetActiveProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

// GetAddress returns the address only when userID owns it.
func (s *service) GetAddress(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	address, err := s.repo.FindAddress(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "address not found", "load address")
	}
	if address.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return address, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindUser(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "user not found", "load user")
	}
	return user, nil
}

// ProductSnapshot copies the display fields an order keeps by value.
func ProductSnapshot(p *models.Product) types.ProductSnapshot {
	if p == nil {
		return types.ProductSnapshot{}
	}
	return types.ProductSnapshot{
		ProductID: p.ID.String(),
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Category:  string(p.Category),
	}
}

func AddressSnapshot(a *models.Address) types.AddressSnapshot {
	if a == nil {
		return types.AddressSnapshot{}
	}
	snap := types.AddressSnapshot{
		AddressID:  a.ID.String(),
		Name:       a.Name,
		Phone:      a.Phone,
		Type:       string(a.Type),
		Line1:      a.Line1,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Line2:      a.Line2,
		Landmark:   a.Landmark,
		Country:    a.Country,
	}
	return snap.Normalize()
}

func mapLookupError(err error, notFound, op string) error {
	if errors.Is(err, errNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
