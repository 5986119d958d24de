package probe

import (
	"context"
	"net/url"
	"strings"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes/core"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//SchemeProber routes a playback URL to a prober by URL scheme. When the scheme specific
//prober fails, Fallback gets a second try.
type SchemeProber struct {
	Schemes  map[string]core.Prober
	Fallback core.Prober
}

//NewSchemeProber probes rtmp natively and everything else with fallback.
func NewSchemeProber(fallback core.Prober) *SchemeProber {
	return &SchemeProber{
		Schemes:  map[string]core.Prober{"rtmp": &RTMPProber{}},
		Fallback: fallback,
	}
}

func (p *SchemeProber) ProbeVideo(ctx context.Context, playbackURL string) (types.StreamMetadata, error) {
	var scheme string
	if u, err := url.Parse(playbackURL); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}
	if pr, ok := p.Schemes[scheme]; ok && pr != nil {
		m, err := pr.ProbeVideo(ctx, playbackURL)
		if err == nil || p.Fallback == nil || ctx.Err() != nil {
			return m, err
		}
		glog.Infof("Probing %v as %v failed, falling back: %v", playbackURL, scheme, err)
	}
	if p.Fallback == nil {
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "no prober for %v", playbackURL)
	}
	return p.Fallback.ProbeVideo(ctx, playbackURL)
}
