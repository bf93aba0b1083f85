package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/internal/domain"
	"go.uber.org/zap"
)

const tokenCacheKey = "registra:registry:service_account_token"

// TokenProvider supplies a bearer token for registry calls.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type tokenProvider struct {
	httpClient *http.Client
	redis      *redis.Client
	log        *zap.Logger

	tokenURL     string
	clientID     string
	clientSecret string
}

// NewTokenProvider returns a client-credentials token source with a
// redis-backed cache. The cache TTL trails expires_in by a safety margin
// so a cached token is never handed out near expiry.
func NewTokenProvider(cfg config.Config, redisClient *redis.Client, log *zap.Logger) TokenProvider {
	return &tokenProvider{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		redis:        redisClient,
		log:          log.Named("registry.token"),
		tokenURL:     cfg.Registry.TokenURL,
		clientID:     cfg.Registry.ClientID,
		clientSecret: cfg.Registry.ClientSecret,
	}
}

func (p *tokenProvider) Token(ctx context.Context) (string, error) {
	if p.redis != nil {
		cached, err := p.redis.Get(ctx, tokenCacheKey).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
		if err != nil && err != redis.Nil {
			p.log.Warn("token cache read failed", zap.Error(err))
		}
	}

	token, ttl, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}

	if p.redis != nil && ttl > 0 {
		if err := p.redis.Set(ctx, tokenCacheKey, token, ttl).Err(); err != nil {
			p.log.Warn("token cache write failed", zap.Error(err))
		}
	}
	return token, nil
}

func (p *tokenProvider) fetch(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: token endpoint: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("%w: token endpoint returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", 0, fmt.Errorf("%w: decode token response: %v", domain.ErrServiceUnavailable, err)
	}
	if decoded.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: empty access token", domain.ErrServiceUnavailable)
	}

	ttl := time.Duration(decoded.ExpiresIn-30) * time.Second
	if ttl < 0 {
		ttl = 0
	}
	return decoded.AccessToken, ttl, nil
}
