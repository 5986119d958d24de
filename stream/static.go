package stream

import (
	"context"
	"strings"

	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//StaticResolver serves a fixed quality to URL table, ignoring the source URL.
type StaticResolver struct {
	qualities []string
	urls      map[string]string
}

//NewStaticResolver takes quality, url pairs. Order is kept for Qualities.
func NewStaticResolver(pairs ...string) *StaticResolver {
	r := &StaticResolver{urls: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		if _, ok := r.urls[pairs[i]]; !ok {
			r.qualities = append(r.qualities, pairs[i])
		}
		r.urls[pairs[i]] = pairs[i+1]
	}
	return r
}

func (r *StaticResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	return append([]string(nil), r.qualities...), nil
}

func (r *StaticResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	u, ok := r.urls[quality]
	if !ok {
		return "", &types.QualityUnavailableError{Quality: quality, Available: append([]string(nil), r.qualities...)}
	}
	return u, nil
}

//DirectResolver treats the source as already playable (rtmp://, srt://, files, single media playlists).
//It offers a single rendition under the best and worst labels.
type DirectResolver struct{}

func (DirectResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, errors.Wrap(types.ErrResolution, "empty source url")
	}
	return []string{QualityWorst, QualityBest}, nil
}

func (d DirectResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	qs, err := d.Qualities(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	if quality != QualityBest && quality != QualityWorst {
		return "", &types.QualityUnavailableError{Quality: quality, Available: qs}
	}
	return sourceURL, nil
}

//Manifest lists one variant per offered label, all pointing at the source itself.
func (d DirectResolver) Manifest(ctx context.Context, sourceURL string) (*Manifest, error) {
	qs, err := d.Qualities(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	m := &Manifest{SourceURL: sourceURL}
	for _, q := range qs {
		m.Variants = append(m.Variants, Variant{Quality: q, URL: sourceURL})
	}
	m.worst, m.best = &m.Variants[0], &m.Variants[len(m.Variants)-1]
	return m, nil
}
