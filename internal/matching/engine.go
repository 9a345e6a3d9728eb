package matching

import (
	"context"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/directory"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/metrics"
)

// NearestParams selects candidates for a single pickup request.
type NearestParams struct {
	Origin       geo.Point
	RadiusKm     float64
	Roles        []enums.ShopRole
	ActingUserID uuid.UUID
}

// PoolParams selects the vendor pools for a bulk purchase request.
type PoolParams struct {
	Origin   geo.Point
	RadiusKm float64
	BuyerID  uuid.UUID
	// BuyerShopRole is the role of the shop the buyer is acting through.
	BuyerShopRole enums.ShopRole
	// BuyerAccountRole is the account-level role signal, which can disagree
	// with the shop role on combined accounts. The shop role wins; a
	// disagreement is logged, never guessed around.
	BuyerAccountRole *enums.ShopRole
}

// OwnerGroup is one owning identity and the deduplicated shops it operates
// inside the notified pools. Each identity receives exactly one notification.
type OwnerGroup struct {
	OwnerID uuid.UUID
	Shops   []directory.Candidate
}

// PoolResult partitions eligible vendors and lists notification recipients.
type PoolResult struct {
	Industrial []directory.Candidate
	Retail     []directory.Candidate
	Recipients []OwnerGroup
}

// Engine proposes vendors for pickup and bulk requests.
type Engine interface {
	// NearestShop returns the closest eligible shop, or nil when nothing is
	// in range. An empty match is an expected outcome, not an error.
	NearestShop(ctx context.Context, params NearestParams) (*directory.Candidate, error)
	BulkPools(ctx context.Context, params PoolParams) (PoolResult, error)
}

type engine struct {
	dir   directory.Service
	logg  *logger.Logger
	stats *metrics.CoreMetrics
}

// NewEngine wires the matcher with the vendor directory.
func NewEngine(dir directory.Service, logg *logger.Logger, stats *metrics.CoreMetrics) (Engine, error) {
	if dir == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vendor directory required")
	}
	return &engine{dir: dir, logg: logg, stats: stats}, nil
}

func (e *engine) NearestShop(ctx context.Context, params NearestParams) (*directory.Candidate, error) {
	candidates, err := e.dir.Search(ctx, directory.SearchParams{
		Origin:       params.Origin,
		RadiusKm:     params.RadiusKm,
		Roles:        params.Roles,
		ActingUserID: params.ActingUserID,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.stats.ObserveMatch(false)
		return nil, nil
	}
	// Directory results are distance-sorted with stable tie order.
	nearest := candidates[0]
	e.stats.ObserveMatch(true)
	return &nearest, nil
}

func (e *engine) BulkPools(ctx context.Context, params PoolParams) (PoolResult, error) {
	candidates, err := e.dir.Search(ctx, directory.SearchParams{
		Origin:       params.Origin,
		RadiusKm:     params.RadiusKm,
		ActingUserID: params.BuyerID,
	})
	if err != nil {
		return PoolResult{}, err
	}

	result := PoolResult{}
	seen := map[uuid.UUID]bool{}
	for _, candidate := range candidates {
		if seen[candidate.Shop] {
			continue
		}
		seen[candidate.Shop] = true
		if candidate.Role.ServesRetail() {
			result.Retail = append(result.Retail, candidate)
		} else {
			result.Industrial = append(result.Industrial, candidate)
		}
	}

	notified := result.Retail
	if e.buyerNotifiesIndustrial(ctx, params) {
		notified = append(append([]directory.Candidate{}, result.Retail...), result.Industrial...)
	}
	result.Recipients = groupByOwner(notified)
	return result, nil
}

// buyerNotifiesIndustrial decides pool reach from the buyer's role. A retail
// or combined buyer reaches only the retail pool; a strictly industrial
// buyer reaches both.
func (e *engine) buyerNotifiesIndustrial(ctx context.Context, params PoolParams) bool {
	effective := params.BuyerShopRole
	if params.BuyerAccountRole != nil && *params.BuyerAccountRole != effective && e.logg != nil {
		e.logg.Warn(e.logg.WithFields(ctx, map[string]any{
			"buyer_id":     params.BuyerID.String(),
			"shop_role":    effective.String(),
			"account_role": params.BuyerAccountRole.String(),
		}), "buyer role signals disagree, shop role wins")
	}
	return effective == enums.ShopRoleB2B
}

func groupByOwner(candidates []directory.Candidate) []OwnerGroup {
	index := map[uuid.UUID]int{}
	groups := make([]OwnerGroup, 0, len(candidates))
	for _, candidate := range candidates {
		if at, ok := index[candidate.OwnerID]; ok {
			groups[at].Shops = append(groups[at].Shops, candidate)
			continue
		}
		index[candidate.OwnerID] = len(groups)
		groups = append(groups, OwnerGroup{
			OwnerID: candidate.OwnerID,
			Shops:   []directory.Candidate{candidate},
		})
	}
	return groups
}
