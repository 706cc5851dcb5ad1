package cart

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safar/go-storefront/internal/models"
)

// Each cart is one hash keyed "{kind}:{userID}" with fields
// "{productID}:{compositeKey}". Every mutation is a single script so
// concurrent adds for one user cannot lose increments.
var (
	incrementScript = redis.NewScript(`
		local n = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
		if n <= 0 then
			redis.call('HDEL', KEYS[1], ARGV[1])
		end
		redis.call('PEXPIRE', KEYS[1], ARGV[3])
		return n
	`)

	setScript = redis.NewScript(`
		if tonumber(ARGV[2]) <= 0 then
			redis.call('HDEL', KEYS[1], ARGV[1])
		else
			redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
		end
		redis.call('PEXPIRE', KEYS[1], ARGV[3])
		return 1
	`)
)

type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRepository(client *redis.Client, ttl time.Duration) *Repository {
	return &Repository{client: client, ttl: ttl}
}

func cartKey(kind models.CartKind, userID int64) string {
	return fmt.Sprintf("%s:%d", kind, userID)
}

func itemField(productID int64, compositeKey string) string {
	return strconv.FormatInt(productID, 10) + ":" + compositeKey
}

// Increment adds delta to one entry and returns the new quantity. Entries
// that reach zero or below are removed.
func (r *Repository) Increment(ctx context.Context, kind models.CartKind, userID, productID int64, compositeKey string, delta int) (int, error) {
	n, err := incrementScript.Run(ctx, r.client,
		[]string{cartKey(kind, userID)},
		itemField(productID, compositeKey), delta, r.ttl.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("increment cart item: %w", err)
	}
	return n, nil
}

// Set stores an absolute quantity. Zero removes the entry.
func (r *Repository) Set(ctx context.Context, kind models.CartKind, userID, productID int64, compositeKey string, quantity int) error {
	err := setScript.Run(ctx, r.client,
		[]string{cartKey(kind, userID)},
		itemField(productID, compositeKey), quantity, r.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("set cart item: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, kind models.CartKind, userID int64) (models.Cart, error) {
	fields, err := r.client.HGetAll(ctx, cartKey(kind, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart := models.Cart{}
	for field, raw := range fields {
		idPart, compositeKey, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		productID, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil {
			continue
		}
		quantity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity for %s: %w", field, err)
		}
		if quantity <= 0 {
			continue
		}

		if cart[productID] == nil {
			cart[productID] = map[string]int{}
		}
		cart[productID][compositeKey] = quantity
	}

	return cart, nil
}

func (r *Repository) Clear(ctx context.Context, kind models.CartKind, userID int64) error {
	if err := r.client.Del(ctx, cartKey(kind, userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
