package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/liamcarterppt/MailControlHub-sub001/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CacheService fronts the read-mostly projections: the plan catalog and the
// reseller dashboard. Financial state is never cached; every state-changing
// read goes to the store.
type CacheService interface {
	GetPlans(ctx context.Context) ([]*models.Plan, error)
	SetPlans(ctx context.Context, plans []*models.Plan, ttl time.Duration) error
	InvalidatePlans(ctx context.Context) error

	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

// ErrCacheMiss is returned when the key is absent; callers fall through to
// the store.
var ErrCacheMiss = redis.Nil

const plansKey = "plans:active"

// DashboardKey builds the cache key for one reseller's dashboard projection.
func DashboardKey(resellerID uuid.UUID) string {
	return fmt.Sprintf("reseller:%s:dashboard", resellerID.String())
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "rediss://"), "redis://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", err, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func (s *redisCacheService) GetPlans(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.GetJSON(ctx, plansKey, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *redisCacheService) SetPlans(ctx context.Context, plans []*models.Plan, ttl time.Duration) error {
	return s.SetJSON(ctx, plansKey, plans, ttl)
}

func (s *redisCacheService) InvalidatePlans(ctx context.Context) error {
	return s.Delete(ctx, plansKey)
}

func (s *redisCacheService) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *redisCacheService) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
