package auth

import (
	"context"

	"github.com/eovidiu/personal-q-tui/internal/client"
)

// Verifier performs the literal session check against the backend and
// enforces the failure contract: any failed check, whether the server
// said no or the network never answered, removes the stored session.
type Verifier struct {
	api   *client.Client
	store *Store
}

func NewVerifier(api *client.Client, store *Store) *Verifier {
	return &Verifier{api: api, store: store}
}

// Verify asks the backend who the current credentials belong to. On
// success it returns the identity and leaves the store untouched; the
// caller decides what marker to record. On failure the store is
// cleared and the original error comes back for classification.
func (v *Verifier) Verify(ctx context.Context) (*client.UserInfo, error) {
	user, err := v.api.Me(ctx)
	if err != nil {
		v.store.Clear()
		return nil, err
	}
	return user, nil
}
