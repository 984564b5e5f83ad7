package reconcilesources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"agri-evidence-workers/internal/evidence"
)

// CacheKey hashes the query and sources; identical evidence for the same
// question shares one entry.
func CacheKey(prefix, query string, sources []evidence.Source) (string, error) {
	payload, err := json.Marshal(struct {
		Query   string            `json:"query"`
		Sources []evidence.Source `json:"sources"`
	}{query, sources})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return prefix + hex.EncodeToString(sum[:]), nil
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// get returns (nil, nil) on a miss.
func (c *reportCache) get(ctx context.Context, key string) (*evidence.ReconciliationReport, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report evidence.ReconciliationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *reportCache) set(ctx context.Context, key string, report *evidence.ReconciliationReport) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
