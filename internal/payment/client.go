// Package payment queries the payments service for invoice status.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/registra/internal/config"
	"github.com/smallbiznis/registra/internal/domain"
	"github.com/smallbiznis/registra/internal/registry"
	"go.uber.org/zap"
)

// InvoiceStatusCompleted marks a fully paid invoice.
const InvoiceStatusCompleted = "COMPLETED"

// Client exposes payment lookups used by affiliation validation.
type Client interface {
	// LatestInvoiceStatus returns the status of the most recent invoice
	// for a business identifier, or ErrNotFound when none exists.
	LatestInvoiceStatus(ctx context.Context, businessIdentifier string) (string, error)
}

type client struct {
	httpClient *http.Client
	token      registry.TokenProvider
	log        *zap.Logger
	payAPIURL  string
}

// NewClient returns the payments REST client.
func NewClient(cfg config.Config, token registry.TokenProvider, log *zap.Logger) Client {
	return &client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      token,
		log:        log.Named("payment.client"),
		payAPIURL:  strings.TrimRight(cfg.Registry.PayAPIURL, "/"),
	}
}

type invoicesResponse struct {
	Invoices []struct {
		StatusCode string `json:"statusCode"`
	} `json:"invoices"`
}

func (c *client) LatestInvoiceStatus(ctx context.Context, businessIdentifier string) (string, error) {
	url := fmt.Sprintf("%s/payment-requests?businessIdentifier=%s", c.payAPIURL, businessIdentifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	token, err := c.token.Token(ctx)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: pay api returned %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	var decoded invoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode pay response: %v", domain.ErrServiceUnavailable, err)
	}
	if len(decoded.Invoices) == 0 {
		return "", domain.ErrNotFound
	}
	return decoded.Invoices[0].StatusCode, nil
}
