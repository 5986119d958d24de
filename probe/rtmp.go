package probe

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/joy4/av"
	joy4rtmp "github.com/livepeer/joy4/format/rtmp"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

const DefaultRTMPTimeout = 10 * time.Second

//RTMPProber reads stream headers straight off an rtmp:// playback URL, no ffprobe needed.
type RTMPProber struct {
	Timeout time.Duration
}

func (p *RTMPProber) ProbeVideo(ctx context.Context, playbackURL string) (types.StreamMetadata, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultRTMPTimeout
	}
	conn, err := joy4rtmp.DialTimeout(playbackURL, timeout)
	if err != nil {
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "rtmp dial %v: %v", playbackURL, err)
	}
	defer conn.Close()

	type result struct {
		streams []av.CodecData
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := conn.Streams()
		ch <- result{s, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "rtmp %v: %v", playbackURL, r.err)
		}
		glog.V(2).Infof("RTMP %v streams: %v", playbackURL, len(r.streams))
		return metadataFromStreams(r.streams)
	case <-ctx.Done():
		return types.StreamMetadata{}, ctx.Err()
	case <-time.After(timeout):
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "rtmp %v: no stream headers after %v", playbackURL, timeout)
	}
}

func metadataFromStreams(streams []av.CodecData) (types.StreamMetadata, error) {
	for _, s := range streams {
		if s == nil || !s.Type().IsVideo() {
			continue
		}
		vs, ok := s.(av.VideoCodecData)
		if !ok {
			continue
		}
		m := types.StreamMetadata{Width: vs.Width(), Height: vs.Height(), CodecName: s.Type().String()}
		if m.Valid() {
			return m, nil
		}
	}
	return types.StreamMetadata{}, errors.Wrap(types.ErrProbe, "no video stream found")
}
