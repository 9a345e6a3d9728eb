package directory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"gorm.io/gorm"
)

// Candidate is one shop that survived role, radius and exclusion filtering.
type Candidate struct {
	Shop       uuid.UUID
	OwnerID    uuid.UUID
	Role       enums.ShopRole
	Name       string
	Phone      string
	Location   geo.Point
	DistanceKm float64
}

// SearchParams filters the active-shop scan.
type SearchParams struct {
	Origin   geo.Point
	RadiusKm float64
	// Roles limits results to the listed roles; empty means any role.
	Roles []enums.ShopRole
	// ActingUserID removes every shop the acting identity operates, matched
	// independently by owner id and by registered contact phone.
	ActingUserID uuid.UUID
}

// Service resolves vendor shops near a point. It is a deliberate linear scan
// with Haversine filtering; shop cardinality does not warrant spatial
// indexing.
type Service interface {
	Search(ctx context.Context, params SearchParams) ([]Candidate, error)
	ShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Candidate, error)
}

type service struct {
	repo Repository
}

// NewService wires the directory with its shop source.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "directory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Search(ctx context.Context, params SearchParams) ([]Candidate, error) {
	shops, err := s.repo.ListActiveShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active shops")
	}

	excludedOwners, excludedPhones, err := s.exclusionKeys(ctx, params.ActingUserID)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(shops))
	for _, shop := range shops {
		if !roleAllowed(shop.Role, params.Roles) {
			continue
		}
		if excludedOwners[shop.OwnerID] {
			continue
		}
		if shop.Phone != "" && excludedPhones[shop.Phone] {
			continue
		}
		point, ok := geo.ParsePoint(shop.Lat, shop.Lng)
		if !ok {
			// Shops without usable coordinates are skipped, never an error.
			continue
		}
		distance := geo.Distance(params.Origin, point)
		if params.RadiusKm >= 0 && distance > params.RadiusKm {
			continue
		}
		candidates = append(candidates, Candidate{
			Shop:       shop.ID,
			OwnerID:    shop.OwnerID,
			Role:       shop.Role,
			Name:       shop.Name,
			Phone:      shop.Phone,
			Location:   point,
			DistanceKm: distance,
		})
	}

	// Stable sort keeps repository scan order for equal distances, making
	// tie-breaks deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
	return candidates, nil
}

func (s *service) ShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Candidate, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	shops, err := s.repo.ListShopsByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shops by owner")
	}
	out := make([]Candidate, 0, len(shops))
	for _, shop := range shops {
		candidate := Candidate{
			Shop:    shop.ID,
			OwnerID: shop.OwnerID,
			Role:    shop.Role,
			Name:    shop.Name,
			Phone:   shop.Phone,
		}
		if point, ok := geo.ParsePoint(shop.Lat, shop.Lng); ok {
			candidate.Location = point
		}
		out = append(out, candidate)
	}
	return out, nil
}

// exclusionKeys collects both self-exclusion keys for the acting identity.
// The phone key also catches duplicate shop records registered under the
// same number but a different owner id, so both sets are always applied.
func (s *service) exclusionKeys(ctx context.Context, actingUserID uuid.UUID) (map[uuid.UUID]bool, map[string]bool, error) {
	owners := map[uuid.UUID]bool{}
	phones := map[string]bool{}
	if actingUserID == uuid.Nil {
		return owners, phones, nil
	}

	owners[actingUserID] = true

	user, err := s.repo.FindUser(ctx, actingUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load acting identity")
	}
	if user != nil && user.Phone != "" {
		phones[user.Phone] = true
	}

	owned, err := s.repo.ListShopsByOwner(ctx, actingUserID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list acting identity shops")
	}
	for _, shop := range owned {
		if shop.Phone != "" {
			phones[shop.Phone] = true
		}
	}
	return owners, phones, nil
}

func roleAllowed(role enums.ShopRole, allowed []enums.ShopRole) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
