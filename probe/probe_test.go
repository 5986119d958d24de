package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/livepeer/joy4/av"
	"github.com/livepeer/streamframes/core"
	"github.com/livepeer/streamframes/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProber struct {
	meta  types.StreamMetadata
	err   error
	calls []string
}

func (s *stubProber) ProbeVideo(ctx context.Context, u string) (types.StreamMetadata, error) {
	s.calls = append(s.calls, u)
	return s.meta, s.err
}

type fakeCodec struct {
	typ  av.CodecType
	w, h int
}

func (c fakeCodec) Type() av.CodecType { return c.typ }
func (c fakeCodec) Width() int         { return c.w }
func (c fakeCodec) Height() int        { return c.h }

type audioCodec struct{}

func (audioCodec) Type() av.CodecType { return av.AAC }

func TestSchemeProberDispatch(t *testing.T) {
	rtmp := &stubProber{meta: types.StreamMetadata{Width: 640, Height: 360}}
	fallback := &stubProber{meta: types.StreamMetadata{Width: 1280, Height: 720}}
	p := &SchemeProber{Schemes: map[string]core.Prober{"rtmp": rtmp}, Fallback: fallback}

	m, err := p.ProbeVideo(context.Background(), "rtmp://localhost/live/abc")
	require.NoError(t, err)
	assert.Equal(t, 640, m.Width)

	m, err = p.ProbeVideo(context.Background(), "https://cdn.test/720p.m3u8")
	require.NoError(t, err)
	assert.Equal(t, 1280, m.Width)

	assert.Equal(t, []string{"rtmp://localhost/live/abc"}, rtmp.calls)
	assert.Equal(t, []string{"https://cdn.test/720p.m3u8"}, fallback.calls)
}

func TestSchemeProberFallsBack(t *testing.T) {
	rtmp := &stubProber{err: types.ErrProbe}
	fallback := &stubProber{meta: types.StreamMetadata{Width: 1280, Height: 720}}
	p := &SchemeProber{Schemes: map[string]core.Prober{"rtmp": rtmp}, Fallback: fallback}
	m, err := p.ProbeVideo(context.Background(), "rtmp://localhost/live/abc")
	require.NoError(t, err)
	assert.Equal(t, 720, m.Height)
	assert.Len(t, fallback.calls, 1)
}

func TestSchemeProberNoFallback(t *testing.T) {
	p := &SchemeProber{}
	_, err := p.ProbeVideo(context.Background(), "https://cdn.test/720p.m3u8")
	assert.True(t, errors.Is(err, types.ErrProbe))
}

func TestRTMPProberUnreachable(t *testing.T) {
	p := &RTMPProber{Timeout: time.Second}
	_, err := p.ProbeVideo(context.Background(), "rtmp://127.0.0.1:1/live/nothing")
	assert.True(t, errors.Is(err, types.ErrProbe))
}

func TestMetadataFromStreams(t *testing.T) {
	m, err := metadataFromStreams([]av.CodecData{audioCodec{}, fakeCodec{typ: av.H264, w: 1920, h: 1080}})
	require.NoError(t, err)
	assert.Equal(t, 1920, m.Width)
	assert.Equal(t, 1080, m.Height)
	assert.Equal(t, av.H264.String(), m.CodecName)

	_, err = metadataFromStreams([]av.CodecData{audioCodec{}})
	assert.True(t, errors.Is(err, types.ErrProbe))

	_, err = metadataFromStreams([]av.CodecData{fakeCodec{typ: av.H264}})
	assert.True(t, errors.Is(err, types.ErrProbe))
}
