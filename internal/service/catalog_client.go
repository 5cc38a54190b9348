package service

import (
	"context"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/redisclient"
	"booking-service/internal/store"
	"booking-service/internal/util"

	"go.uber.org/zap"
)

const offeringCacheTTL = 5 * time.Minute

// CatalogClient reads service offerings. The catalog is owned elsewhere;
// this service only consumes provider, price and currency defaults, cached
// in Redis.
type CatalogClient struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogClient creates a new catalog client
func NewCatalogClient(store *store.Store, redis *redisclient.Client) *CatalogClient {
	return &CatalogClient{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// GetOffering retrieves a service offering, preferring the Redis cache.
func (cc *CatalogClient) GetOffering(ctx context.Context, id int64) (*models.ServiceOffering, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.GetOffering")
	defer span.End()

	var cached models.ServiceOffering
	hit, err := cc.redis.GetCachedOffering(ctx, id, &cached)
	if err != nil {
		cc.logger.Warn("Offering cache read failed, falling back to DB",
			zap.Int64("offering_id", id),
			zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	offering, err := cc.store.GetOffering(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := cc.redis.CacheOffering(ctx, id, offering, offeringCacheTTL); err != nil {
		cc.logger.Warn("Failed to cache offering",
			zap.Int64("offering_id", id),
			zap.Error(err))
	}

	return offering, nil
}
