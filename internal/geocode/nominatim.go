package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/config"
	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/service"
)

var ErrNoResult = errors.New("geocode: no result")

// Cache stores resolved addresses by rounded coordinate.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// NominatimClient resolves coordinates to a display address via the Nominatim reverse API.
type NominatimClient struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
	cache     Cache
	log       zerolog.Logger
}

var _ service.Geocoder = (*NominatimClient)(nil)

func NewNominatimClient(cfg config.GeocodeConfig, cache Cache, log zerolog.Logger) *NominatimClient {
	return &NominatimClient{
		Endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		UserAgent: cfg.UserAgent,
		Client:    &http.Client{Timeout: 5 * time.Second},
		cache:     cache,
		log:       log,
	}
}

func (n *NominatimClient) ReverseGeocode(ctx context.Context, lon, lat float64) (string, error) {
	key := cacheKey(lon, lat)
	if n.cache != nil {
		if address, ok := n.cache.Get(ctx, key); ok {
			return address, nil
		}
	}

	start := time.Now()
	address, err := n.lookup(ctx, lon, lat)
	metrics.ExternalCallDuration.WithLabelValues("geocoder", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if n.cache != nil {
		n.cache.Set(ctx, key, address)
	}
	return address, nil
}

func (n *NominatimClient) lookup(ctx context.Context, lon, lat float64) (string, error) {
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/reverse?"+query.Encode(), http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Error != "" || strings.TrimSpace(out.DisplayName) == "" {
		return "", ErrNoResult
	}
	return out.DisplayName, nil
}

// cacheKey rounds to five decimals, roughly a metre, so nearby fixes share an entry.
func cacheKey(lon, lat float64) string {
	return fmt.Sprintf("geocode:%.5f:%.5f", lon, lat)
}

// RedisCache is the shared Cache used when REDIS_ADDR is configured.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("geocode cache read")
		}
		return "", false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("geocode cache write")
	}
}
