// Package catalog serves product reads for the cart and checkout paths.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/safar/go-storefront/internal/models"
)

type Reader interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// Cache is a cache-aside Reader in front of the product store. Redis
// failures fall through to the store and are only logged.
type Cache struct {
	client *redis.Client
	source Reader
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCache(client *redis.Client, source Reader, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog_cache").Logger(),
	}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *Cache) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	cached, err := c.client.Get(ctx, productKey(id)).Bytes()
	switch {
	case err == nil:
		var product models.Product
		if err := json.Unmarshal(cached, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn().Int64("product_id", id).Msg("discarding undecodable cached product")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Int64("product_id", id).Msg("product cache read failed")
	}

	product, err := c.source.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(product)
	if err != nil {
		return product, nil
	}
	if err := c.client.Set(ctx, productKey(id), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("product_id", id).Msg("product cache write failed")
	}

	return product, nil
}

// Invalidate drops cached copies after stock or price changes.
func (c *Cache) Invalidate(ctx context.Context, ids ...int64) {
	if len(ids) == 0 {
		return
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Ints64("product_ids", ids).Msg("product cache invalidation failed")
	}
}
