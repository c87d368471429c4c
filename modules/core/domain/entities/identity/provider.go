package identity

import "context"

// Provider abstracts the external identity system holding the
// authentication-side account. DeleteExternalAccount revokes it; callers
// may instead defer that to an asynchronous webhook.
type Provider interface {
	DeleteExternalAccount(ctx context.Context, externalID string) error
}

// NoopProvider is wired when external identity cleanup is handled out of
// band (e.g. by the provider's own webhook on session invalidation).
type NoopProvider struct{}

func (NoopProvider) DeleteExternalAccount(ctx context.Context, externalID string) error {
	return nil
}
