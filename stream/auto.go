package stream

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//AutoResolver picks a resolver by looking at the source URL: twitch.tv goes through
//TwitchResolver, *.m3u8 through HLSResolver, anything else is played directly.
type AutoResolver struct {
	Twitch *TwitchResolver
	HLS    *HLSResolver
	Direct DirectResolver
}

func NewAutoResolver(client *http.Client, twitchClientID string) *AutoResolver {
	return &AutoResolver{
		Twitch: NewTwitchResolver(client, twitchClientID),
		HLS:    &HLSResolver{Client: client},
	}
}

func IsHLSURL(sourceURL string) bool {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

func (a *AutoResolver) pick(sourceURL string) Resolver {
	switch {
	case IsTwitchURL(sourceURL):
		if a.Twitch == nil {
			return NewTwitchResolver(nil, "")
		}
		return a.Twitch
	case IsHLSURL(sourceURL):
		if a.HLS == nil {
			return &HLSResolver{}
		}
		return a.HLS
	}
	return a.Direct
}

func (a *AutoResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	return a.pick(sourceURL).Qualities(ctx, sourceURL)
}

func (a *AutoResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	return a.pick(sourceURL).PlaybackURL(ctx, sourceURL, quality)
}

//Manifest returns the rendition table of whichever resolver handles sourceURL.
func (a *AutoResolver) Manifest(ctx context.Context, sourceURL string) (*Manifest, error) {
	r := a.pick(sourceURL)
	mr, ok := r.(ManifestResolver)
	if !ok {
		return nil, errors.Wrapf(types.ErrResolution, "no rendition table for %v", sourceURL)
	}
	return mr.Manifest(ctx, sourceURL)
}
