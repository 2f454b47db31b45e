package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/example/product-view/internal/domain/product"
)

const (
	redisKeyPrefix = "product:"
	redisIndexKey  = "products"
)

// Redis stores each product as a JSON value under product:<id> and keeps a
// set of all ids for scans.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) FindByID(ctx context.Context, id product.ID) (*product.Product, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+string(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, product.WrapStoreError("redis get", err)
	}
	var p product.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, product.WrapStoreError("redis decode product", err)
	}
	return &p, nil
}

func (r *Redis) FindAll(ctx context.Context) ([]product.Product, error) {
	return r.scan(ctx, func(product.Product) bool { return true })
}

func (r *Redis) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return r.scan(ctx, func(p product.Product) bool { return matchesCategory(p, category) })
}

func (r *Redis) FindByPriceBetween(ctx context.Context, min, max product.Price) ([]product.Product, error) {
	return r.scan(ctx, func(p product.Product) bool { return matchesPrice(p, min, max) })
}

func (r *Redis) FindByCategoryAndPriceBetween(ctx context.Context, category string, min, max product.Price) ([]product.Product, error) {
	return r.scan(ctx, func(p product.Product) bool {
		return matchesCategory(p, category) && matchesPrice(p, min, max)
	})
}

func (r *Redis) Save(ctx context.Context, p product.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return product.WrapStoreError("redis encode product", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+string(p.ProductID), data, 0)
		pipe.SAdd(ctx, redisIndexKey, string(p.ProductID))
		return nil
	})
	if err != nil {
		return product.WrapStoreError("redis save", err)
	}
	return nil
}

func (r *Redis) DeleteByID(ctx context.Context, id product.ID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisKeyPrefix+string(id))
		pipe.SRem(ctx, redisIndexKey, string(id))
		return nil
	})
	if err != nil {
		return product.WrapStoreError("redis delete", err)
	}
	return nil
}

func (r *Redis) ExistsByID(ctx context.Context, id product.ID) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+string(id)).Result()
	if err != nil {
		return false, product.WrapStoreError("redis exists", err)
	}
	return n > 0, nil
}

func (r *Redis) scan(ctx context.Context, match func(product.Product) bool) ([]product.Product, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, product.WrapStoreError("redis scan index", err)
	}
	if len(ids) == 0 {
		return []product.Product{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, product.WrapStoreError("redis scan values", err)
	}

	out := make([]product.Product, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Value deleted between SMEMBERS and MGET.
			continue
		}
		var p product.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, product.WrapStoreError("redis decode product", err)
		}
		if match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}
