package stream

import (
	"context"
)

//Resolver is implemented by every resolver in this package.
type Resolver interface {
	Qualities(ctx context.Context, sourceURL string) ([]string, error)
	PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error)
}

//ManifestResolver also exposes the full rendition list, bandwidth and resolution included.
type ManifestResolver interface {
	Resolver
	Manifest(ctx context.Context, sourceURL string) (*Manifest, error)
}

var (
	_ ManifestResolver = (*HLSResolver)(nil)
	_ ManifestResolver = (*TwitchResolver)(nil)
	_ ManifestResolver = (*AutoResolver)(nil)
	_ Resolver         = (*StaticResolver)(nil)
	_ ManifestResolver = DirectResolver{}
)
