package identityhttp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"

	"github.com/meridianhq/meridian/modules/core/domain/entities/identity"
)

const (
	maxRetries = 3
	baseDelay  = time.Second
)

// WebhookProvider deletes external identity-provider accounts through a
// configured HTTP endpoint. The endpoint receives
// DELETE <base>/accounts/<externalID> and must respond idempotently:
// 404 on an already-deleted account counts as success.
type WebhookProvider struct {
	baseURL string
	client  *http.Client
}

func NewWebhookProvider(baseURL string) identity.Provider {
	return &WebhookProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *WebhookProvider) DeleteExternalAccount(ctx context.Context, externalID string) error {
	if externalID == "" {
		return errors.New("external account id is required")
	}
	endpoint := fmt.Sprintf("%s/accounts/%s", p.baseURL, url.PathEscape(externalID))

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return nil
		case resp.StatusCode >= 500:
			lastErr = errors.Errorf("identity provider returned %d", resp.StatusCode)
			continue
		default:
			return errors.Errorf("identity provider returned %d", resp.StatusCode)
		}
	}
	return errors.Wrap(lastErr, "failed to delete external identity account")
}
