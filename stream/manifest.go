package stream

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/livepeer/m3u8"
	"github.com/livepeer/streamframes/ffmpeg"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

const (
	QualityBest      = "best"
	QualityWorst     = "worst"
	QualityAudioOnly = "audio_only"
)

//Variant is one rendition of a master playlist.
type Variant struct {
	Quality    string
	URL        string
	Bandwidth  uint32
	Resolution string
	AudioOnly  bool
}

//Manifest is the set of renditions a source offers, keyed by quality label.
type Manifest struct {
	SourceURL string
	Variants  []Variant
	best      *Variant
	worst     *Variant
}

//ParseManifest decodes an HLS master playlist. Relative variant URIs are resolved against masterURL.
func ParseManifest(masterURL string, data []byte) (*Manifest, error) {
	base, err := url.Parse(masterURL)
	if err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "bad playlist url %v: %v", masterURL, err)
	}
	pl, lt, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "decoding playlist %v: %v", masterURL, err)
	}
	if lt != m3u8.MASTER {
		return nil, errors.Wrapf(types.ErrResolution, "%v is a media playlist, not a master playlist", masterURL)
	}
	master := pl.(*m3u8.MasterPlaylist)

	// EXT-X-MEDIA tags are attached to whichever variant follows them, so gather them first.
	groupNames := make(map[string]string)
	for _, v := range master.Variants {
		for _, alt := range v.Alternatives {
			if alt != nil && alt.Type == "VIDEO" && alt.Name != "" {
				groupNames[alt.GroupId] = alt.Name
			}
		}
	}

	m := &Manifest{SourceURL: masterURL}
	seen := make(map[string]bool)
	for _, v := range master.Variants {
		if v == nil || v.Iframe {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(v.URI))
		if err != nil {
			glog.Errorf("Skipping variant with bad URI %q: %v", v.URI, err)
			continue
		}
		q := variantQuality(v, groupNames)
		for seen[q] {
			q += "_alt"
		}
		seen[q] = true
		m.Variants = append(m.Variants, Variant{
			Quality:    q,
			URL:        base.ResolveReference(ref).String(),
			Bandwidth:  v.Bandwidth,
			Resolution: v.Resolution,
			AudioOnly:  q == QualityAudioOnly || (v.Resolution == "" && isAudioCodecs(v.Codecs)),
		})
	}
	if len(m.Variants) == 0 {
		return nil, errors.Wrapf(types.ErrResolution, "no variants in %v", masterURL)
	}

	for i := range m.Variants {
		v := &m.Variants[i]
		if v.AudioOnly {
			continue
		}
		if m.best == nil || rank(v) > rank(m.best) {
			m.best = v
		}
		if m.worst == nil || rank(v) < rank(m.worst) {
			m.worst = v
		}
	}
	return m, nil
}

func variantQuality(v *m3u8.Variant, groupNames map[string]string) string {
	name := groupNames[v.Video]
	if name == "" {
		name = v.Name
	}
	if name == "" && v.Video == QualityAudioOnly {
		name = QualityAudioOnly
	}
	if name != "" {
		name = strings.TrimSuffix(name, " (source)")
		return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	}
	if _, h, err := ffmpeg.ParseResolution(v.Resolution); err == nil {
		return ffmpeg.QualityName(h, 0)
	}
	return strconv.FormatUint(uint64(v.Bandwidth/1000), 10) + "k"
}

func isAudioCodecs(codecs string) bool {
	if codecs == "" {
		return false
	}
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		if !strings.HasPrefix(c, "mp4a") && !strings.HasPrefix(c, "opus") && !strings.HasPrefix(c, "ac-3") {
			return false
		}
	}
	return true
}

//rank orders video variants by pixel count, then bandwidth.
func rank(v *Variant) uint64 {
	var px uint64
	if w, h, err := ffmpeg.ParseResolution(v.Resolution); err == nil {
		px = uint64(w) * uint64(h)
	}
	return px<<32 | uint64(v.Bandwidth)
}

//Qualities lists labels in playlist order followed by the worst and best aliases.
func (m *Manifest) Qualities() []string {
	qs := make([]string, 0, len(m.Variants)+2)
	for _, v := range m.Variants {
		qs = append(qs, v.Quality)
	}
	if m.worst != nil && !contains(qs, QualityWorst) {
		qs = append(qs, QualityWorst)
	}
	if m.best != nil && !contains(qs, QualityBest) {
		qs = append(qs, QualityBest)
	}
	return qs
}

func (m *Manifest) Variant(quality string) (Variant, error) {
	for _, v := range m.Variants {
		if v.Quality == quality {
			return v, nil
		}
	}
	switch {
	case quality == QualityBest && m.best != nil:
		return *m.best, nil
	case quality == QualityWorst && m.worst != nil:
		return *m.worst, nil
	}
	return Variant{}, &types.QualityUnavailableError{Quality: quality, Available: m.Qualities()}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
