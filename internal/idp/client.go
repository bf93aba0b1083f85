// Package idp reflects membership decisions into the identity provider's
// group model. The core decides which calls to make; this package makes
// them.
package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/internal/domain"
	"go.uber.org/zap"
)

// GroupAccountHolders is the group every user with at least one active
// membership belongs to.
const GroupAccountHolders = "account_holders"

// Client is the identity-provider admin API surface the core consumes.
type Client interface {
	UserGroups(ctx context.Context, userGUID string) ([]string, error)
	AddToGroup(ctx context.Context, userGUID, group string) error
	RemoveFromGroup(ctx context.Context, userGUID, group string) error
}

type client struct {
	httpClient *http.Client
	log        *zap.Logger

	baseURL      string
	realm        string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	adminToken  string
	tokenExpiry time.Time

	groupIDs sync.Map // group name -> id
}

// NewClient returns the Keycloak-style admin client.
func NewClient(cfg config.Config, log *zap.Logger) Client {
	return &client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		log:          log.Named("idp.client"),
		baseURL:      strings.TrimRight(cfg.IDP.BaseURL, "/"),
		realm:        cfg.IDP.Realm,
		clientID:     cfg.IDP.ClientID,
		clientSecret: cfg.IDP.ClientSecret,
	}
}

type groupRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *client) UserGroups(ctx context.Context, userGUID string) ([]string, error) {
	url := fmt.Sprintf("%s/admin/realms/%s/users/%s/groups", c.baseURL, c.realm, userGUID)
	var groups []groupRepresentation
	if err := c.doJSON(ctx, http.MethodGet, url, &groups); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(groups))
	for _, group := range groups {
		names = append(names, group.Name)
	}
	return names, nil
}

func (c *client) AddToGroup(ctx context.Context, userGUID, group string) error {
	groupID, err := c.groupID(ctx, group)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/admin/realms/%s/users/%s/groups/%s", c.baseURL, c.realm, userGUID, groupID)
	return c.doJSON(ctx, http.MethodPut, url, nil)
}

func (c *client) RemoveFromGroup(ctx context.Context, userGUID, group string) error {
	groupID, err := c.groupID(ctx, group)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/admin/realms/%s/users/%s/groups/%s", c.baseURL, c.realm, userGUID, groupID)
	return c.doJSON(ctx, http.MethodDelete, url, nil)
}

func (c *client) groupID(ctx context.Context, name string) (string, error) {
	if cached, ok := c.groupIDs.Load(name); ok {
		return cached.(string), nil
	}

	lookup := fmt.Sprintf("%s/admin/realms/%s/groups?search=%s&exact=true", c.baseURL, c.realm, url.QueryEscape(name))
	var groups []groupRepresentation
	if err := c.doJSON(ctx, http.MethodGet, lookup, &groups); err != nil {
		return "", err
	}
	for _, group := range groups {
		if group.Name == name {
			c.groupIDs.Store(name, group.ID)
			return group.ID, nil
		}
	}
	return "", fmt.Errorf("%w: idp group %q", domain.ErrNotFound, name)
}

func (c *client) doJSON(ctx context.Context, method, url string, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: idp: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: idp returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode idp response: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

func (c *client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adminToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.adminToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: idp token: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: idp token returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var decoded struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode idp token: %v", domain.ErrServiceUnavailable, err)
	}

	c.adminToken = decoded.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(decoded.ExpiresIn-30) * time.Second)
	return c.adminToken, nil
}
