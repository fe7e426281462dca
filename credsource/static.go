// Package credsource provides spec.CredentialSource implementations: a static
// in-memory set, a YAML file loader, and a caching wrapper for slow sources.
package credsource

import (
	"context"
	"slices"
	"strings"

	"github.com/flexigpt/skillchain-go/spec"
)

// Static serves a fixed holder -> credentials mapping. Holder addresses are
// matched case-insensitively, since hex addresses vary only by checksum case.
type Static struct {
	byHolder map[string][]spec.Credential
}

var _ spec.CredentialSource = (*Static)(nil)

func NewStatic(byHolder map[string][]spec.Credential) *Static {
	m := make(map[string][]spec.Credential, len(byHolder))
	for h, creds := range byHolder {
		k := holderKey(h)
		m[k] = append(m[k], creds...)
	}
	return &Static{byHolder: m}
}

// Credentials returns a copy of the holder's credentials; unknown holders have
// none.
func (s *Static) Credentials(ctx context.Context, holder string) ([]spec.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.byHolder[holderKey(holder)]), nil
}

func holderKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
