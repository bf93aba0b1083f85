package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/pkg/telemetry"
	"go.uber.org/zap"
)

// Gateway performs the raw calls against registry backends.
type Gateway interface {
	// FetchBatch posts the identifier batch plus search filter to one
	// source and decodes the per-source payload.
	FetchBatch(ctx context.Context, source config.RegistrySource, identifiers []string, filter SearchFilter) (*BatchResponse, error)

	// FetchPartyNames returns the composed registered-party names of a
	// firm (organization name, or "last, first[ middle-initial]").
	FetchPartyNames(ctx context.Context, businessIdentifier string) ([]string, error)

	// FetchNameRequest resolves a single name request by number.
	FetchNameRequest(ctx context.Context, nrNumber string) (*NameRequest, error)
}

type client struct {
	httpClient *http.Client
	token      TokenProvider
	log        *zap.Logger
	metrics    *telemetry.Metrics

	legalAPIURL string
	namesAPIURL string
}

// NewGateway returns the HTTP registry gateway.
func NewGateway(cfg config.Config, token TokenProvider, log *zap.Logger, metrics *telemetry.Metrics) Gateway {
	return &client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		token:       token,
		log:         log.Named("registry.gateway"),
		metrics:     metrics,
		legalAPIURL: strings.TrimRight(cfg.Registry.LegalAPIURL, "/"),
		namesAPIURL: strings.TrimRight(cfg.Registry.NamesURL, "/"),
	}
}

type batchRequest struct {
	Identifiers []string `json:"identifiers"`
	SearchFilter
}

func (c *client) FetchBatch(ctx context.Context, source config.RegistrySource, identifiers []string, filter SearchFilter) (result *BatchResponse, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.RecordRegistryBatch(source.Name, status, time.Since(start))
	}()

	body, err := json.Marshal(batchRequest{Identifiers: identifiers, SearchFilter: filter})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, source.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrServiceUnavailable, source.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", domain.ErrServiceUnavailable, source.Name, resp.StatusCode)
	}

	var decoded BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrServiceUnavailable, source.Name, err)
	}
	return &decoded, nil
}

type partiesResponse struct {
	Parties []struct {
		Officer struct {
			PartyType        string `json:"partyType"`
			OrganizationName string `json:"organizationName"`
			FirstName        string `json:"firstName"`
			LastName         string `json:"lastName"`
			MiddleInitial    string `json:"middleInitial"`
		} `json:"officer"`
	} `json:"parties"`
}

func (c *client) FetchPartyNames(ctx context.Context, businessIdentifier string) ([]string, error) {
	url := fmt.Sprintf("%s/businesses/%s/parties", c.legalAPIURL, businessIdentifier)
	var decoded partiesResponse
	if err := c.getJSON(ctx, url, &decoded); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(decoded.Parties))
	for _, party := range decoded.Parties {
		officer := party.Officer
		if officer.PartyType == "organization" {
			names = append(names, officer.OrganizationName)
			continue
		}
		name := officer.LastName + ", " + officer.FirstName
		if officer.MiddleInitial != "" {
			name = name + " " + officer.MiddleInitial
		}
		names = append(names, name)
	}
	return names, nil
}

func (c *client) FetchNameRequest(ctx context.Context, nrNumber string) (*NameRequest, error) {
	url := fmt.Sprintf("%s/requests/%s", c.namesAPIURL, nrNumber)
	var decoded NameRequest
	if err := c.getJSON(ctx, url, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (c *client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s returned %d", domain.ErrServiceUnavailable, url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrServiceUnavailable, err)
	}
	return nil
}

func (c *client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.token.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
