// Package mock provides a configurable diarize.Provider for tests.
package mock

import (
	"context"

	"github.com/meetmemo/meetmemo/pkg/provider/diarize"
)

// Compile-time assertion that Provider implements diarize.Provider.
var _ diarize.Provider = (*Provider)(nil)

// Provider is a test double for diarize.Provider.
type Provider struct {
	DiarizeFunc func(ctx context.Context, audioPath string) (*diarize.Result, error)
}

func (p *Provider) Diarize(ctx context.Context, audioPath string) (*diarize.Result, error) {
	if p.DiarizeFunc != nil {
		return p.DiarizeFunc(ctx, audioPath)
	}
	return &diarize.Result{}, nil
}
