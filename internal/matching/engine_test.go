package matching

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/directory"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/geo"
)

type stubDirectory struct {
	searchFn func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error)
}

func (s *stubDirectory) Search(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, params)
	}
	return nil, nil
}

func (s *stubDirectory) ShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]directory.Candidate, error) {
	return nil, nil
}

func candidate(owner uuid.UUID, role enums.ShopRole, distanceKm float64) directory.Candidate {
	return directory.Candidate{
		Shop:       uuid.New(),
		OwnerID:    owner,
		Role:       role,
		DistanceKm: distanceKm,
	}
}

func TestNearestShopPicksFirstCandidate(t *testing.T) {
	owner := uuid.New()
	first := candidate(owner, enums.ShopRoleB2C, 1.5)
	second := candidate(owner, enums.ShopRoleB2C, 4.0)

	eng, err := NewEngine(&stubDirectory{
		searchFn: func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
			if params.RadiusKm != 15 {
				t.Fatalf("expected radius passed through, got %f", params.RadiusKm)
			}
			return []directory.Candidate{first, second}, nil
		},
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	got, err := eng.NearestShop(context.Background(), NearestParams{
		Origin:   geo.Point{Lat: 12.90, Lng: 77.60},
		RadiusKm: 15,
		Roles:    []enums.ShopRole{enums.ShopRoleB2C, enums.ShopRoleCombined},
	})
	if err != nil {
		t.Fatalf("NearestShop: %v", err)
	}
	if got == nil || got.Shop != first.Shop {
		t.Fatalf("expected nearest candidate, got %v", got)
	}
}

func TestNearestShopNoCandidateIsNotAnError(t *testing.T) {
	eng, _ := NewEngine(&stubDirectory{}, nil, nil)

	got, err := eng.NearestShop(context.Background(), NearestParams{
		Origin:   geo.Point{Lat: 12.90, Lng: 77.60},
		RadiusKm: 15,
	})
	if err != nil {
		t.Fatalf("expected no error for empty match, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil candidate, got %v", got)
	}
}

func TestBulkPoolsPartitionsAndDedupes(t *testing.T) {
	ownerA := uuid.New()
	ownerB := uuid.New()

	industrial := candidate(ownerA, enums.ShopRoleB2B, 2)
	retail := candidate(ownerA, enums.ShopRoleB2C, 3)
	combined := candidate(ownerB, enums.ShopRoleCombined, 4)

	eng, _ := NewEngine(&stubDirectory{
		searchFn: func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
			// Duplicate entry exercises shop-level dedupe.
			return []directory.Candidate{industrial, retail, retail, combined}, nil
		},
	}, nil, nil)

	result, err := eng.BulkPools(context.Background(), PoolParams{
		Origin:        geo.Point{Lat: 12.90, Lng: 77.60},
		RadiusKm:      50,
		BuyerID:       uuid.New(),
		BuyerShopRole: enums.ShopRoleB2B,
	})
	if err != nil {
		t.Fatalf("BulkPools: %v", err)
	}
	if len(result.Industrial) != 1 || result.Industrial[0].Shop != industrial.Shop {
		t.Fatalf("expected one industrial shop, got %d", len(result.Industrial))
	}
	if len(result.Retail) != 2 {
		t.Fatalf("expected two retail shops after dedupe, got %d", len(result.Retail))
	}
}

func TestBulkPoolsRetailBuyerReachesRetailOnly(t *testing.T) {
	ownerA := uuid.New()
	ownerB := uuid.New()
	industrial := candidate(ownerA, enums.ShopRoleB2B, 2)
	retail := candidate(ownerB, enums.ShopRoleB2C, 3)

	eng, _ := NewEngine(&stubDirectory{
		searchFn: func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
			return []directory.Candidate{industrial, retail}, nil
		},
	}, nil, nil)

	for _, role := range []enums.ShopRole{enums.ShopRoleB2C, enums.ShopRoleCombined} {
		result, err := eng.BulkPools(context.Background(), PoolParams{
			BuyerID:       uuid.New(),
			BuyerShopRole: role,
		})
		if err != nil {
			t.Fatalf("BulkPools(%s): %v", role, err)
		}
		if len(result.Recipients) != 1 || result.Recipients[0].OwnerID != ownerB {
			t.Fatalf("%s buyer: expected only retail recipients, got %v", role, result.Recipients)
		}
	}
}

func TestBulkPoolsIndustrialBuyerReachesBothPools(t *testing.T) {
	ownerA := uuid.New()
	ownerB := uuid.New()
	industrial := candidate(ownerA, enums.ShopRoleB2B, 2)
	retail := candidate(ownerB, enums.ShopRoleB2C, 3)

	eng, _ := NewEngine(&stubDirectory{
		searchFn: func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
			return []directory.Candidate{industrial, retail}, nil
		},
	}, nil, nil)

	result, err := eng.BulkPools(context.Background(), PoolParams{
		BuyerID:       uuid.New(),
		BuyerShopRole: enums.ShopRoleB2B,
	})
	if err != nil {
		t.Fatalf("BulkPools: %v", err)
	}
	if len(result.Recipients) != 2 {
		t.Fatalf("expected both owners notified, got %d", len(result.Recipients))
	}
}

func TestBulkPoolsGroupsMultiShopOwner(t *testing.T) {
	owner := uuid.New()
	retailOne := candidate(owner, enums.ShopRoleB2C, 2)
	retailTwo := candidate(owner, enums.ShopRoleCombined, 3)

	eng, _ := NewEngine(&stubDirectory{
		searchFn: func(ctx context.Context, params directory.SearchParams) ([]directory.Candidate, error) {
			return []directory.Candidate{retailOne, retailTwo}, nil
		},
	}, nil, nil)

	result, err := eng.BulkPools(context.Background(), PoolParams{
		BuyerID:       uuid.New(),
		BuyerShopRole: enums.ShopRoleB2C,
	})
	if err != nil {
		t.Fatalf("BulkPools: %v", err)
	}
	if len(result.Recipients) != 1 {
		t.Fatalf("expected one recipient group for multi-shop owner, got %d", len(result.Recipients))
	}
	if len(result.Recipients[0].Shops) != 2 {
		t.Fatalf("expected both shops grouped under one owner, got %d", len(result.Recipients[0].Shops))
	}
}
