package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"testing/iotest"

	"github.com/livepeer/streamframes/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	qualities []string
	urls      map[string]string
	err       error
	calls     int
}

func (r *fakeResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.qualities, nil
}

func (r *fakeResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	u, ok := r.urls[quality]
	if !ok {
		return "", &types.QualityUnavailableError{Quality: quality, Available: r.qualities}
	}
	return u, nil
}

type fakeProber struct {
	metas []types.StreamMetadata
	err   error
	urls  []string
}

func (p *fakeProber) ProbeVideo(ctx context.Context, playbackURL string) (types.StreamMetadata, error) {
	p.urls = append(p.urls, playbackURL)
	if p.err != nil {
		return types.StreamMetadata{}, p.err
	}
	m := p.metas[0]
	if len(p.metas) > 1 {
		p.metas = p.metas[1:]
	}
	return m, nil
}

type fakeProcess struct {
	r       io.Reader
	waitErr error
	events  []string
}

func (p *fakeProcess) Read(b []byte) (int, error) {
	if len(p.events) > 0 {
		return 0, os.ErrClosed
	}
	return p.r.Read(b)
}

func (p *fakeProcess) Close() error {
	p.events = append(p.events, "close")
	return nil
}

func (p *fakeProcess) Wait() error {
	p.events = append(p.events, "wait")
	return p.waitErr
}

type fakeDecoder struct {
	data      []byte
	wrap      func(io.Reader) io.Reader
	launchErr error
	waitErr   error
	urls      []string
	procs     []*fakeProcess
}

func (d *fakeDecoder) Launch(ctx context.Context, playbackURL string) (DecoderProcess, error) {
	d.urls = append(d.urls, playbackURL)
	if d.launchErr != nil {
		return nil, d.launchErr
	}
	var r io.Reader = bytes.NewReader(d.data)
	if d.wrap != nil {
		r = d.wrap(r)
	}
	p := &fakeProcess{r: r, waitErr: d.waitErr}
	d.procs = append(d.procs, p)
	return p, nil
}

func newTestReader(quality string, w, h int, data []byte) (*FrameReader, *fakeResolver, *fakeProber, *fakeDecoder) {
	res := &fakeResolver{
		qualities: []string{"best", "720p"},
		urls:      map[string]string{"best": "https://cdn.test/U1.m3u8", "720p": "https://cdn.test/U2.m3u8"},
	}
	prb := &fakeProber{metas: []types.StreamMetadata{{Width: w, Height: h, PixelFormat: "yuv420p"}}}
	dec := &fakeDecoder{data: data}
	return NewFrameReader(types.NewStreamSource("https://www.twitch.tv/test", quality), res, prb, dec), res, prb, dec
}

func collect(t *testing.T, r *FrameReader) ([]*types.Frame, error) {
	var frames []*types.Frame
	for f, err := range r.Frames(context.Background()) {
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestFramesTwoPixels(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 1, []byte{0, 0, 0, 255, 255, 255})
	frames, err := collect(t, r)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, types.BGR{0, 0, 0}, frames[0].Pixel(0, 0))
	assert.Equal(t, types.BGR{255, 255, 255}, frames[0].Pixel(0, 1))
	assert.Equal(t, []string{"https://cdn.test/U1.m3u8"}, dec.urls)
}

func TestFramesEndOfStream(t *testing.T) {
	data := pattern(types.FrameSize(2, 2) * 3)
	r, _, _, dec := newTestReader("best", 2, 2, data)
	frames, err := collect(t, r)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for i, f := range frames {
		assert.Equal(t, data[i*12:(i+1)*12], f.Pix)
	}
	require.Len(t, dec.procs, 1)
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFramesEmptyStream(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 2, nil)
	frames, err := collect(t, r)
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFramesShortReadsAccumulate(t *testing.T) {
	data := pattern(types.FrameSize(3, 2) * 2)
	r, _, _, dec := newTestReader("best", 3, 2, data)
	dec.wrap = iotest.OneByteReader
	frames, err := collect(t, r)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, data[:18], frames[0].Pix)
	assert.Equal(t, data[18:], frames[1].Pix)
}

func TestFramesTruncatedFrame(t *testing.T) {
	data := pattern(types.FrameSize(2, 2) + 5)
	r, _, _, dec := newTestReader("best", 2, 2, data)
	frames, err := collect(t, r)
	assert.Len(t, frames, 1)
	assert.True(t, errors.Is(err, types.ErrDecodeStream), "got %v", err)
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFramesEarlyBreak(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 2, pattern(types.FrameSize(2, 2)*5))
	dec.waitErr = errors.New("signal: broken pipe")
	n := 0
	for f, err := range r.Frames(context.Background()) {
		require.NoError(t, err)
		require.NotNil(t, f)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
	require.Len(t, dec.procs, 1)
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFramesReadError(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 2, nil)
	dec.wrap = func(io.Reader) io.Reader { return iotest.ErrReader(errors.New("pipe exploded")) }
	frames, err := collect(t, r)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, types.ErrDecodeStream))
	assert.Contains(t, err.Error(), "pipe exploded")
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFramesDecoderExitFailure(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 2, nil)
	dec.waitErr = errors.New("exit status 1")
	frames, err := collect(t, r)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, types.ErrDecodeStream))
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestQualityUnavailableLaunchesNothing(t *testing.T) {
	r, _, prb, dec := newTestReader("1080p60", 2, 2, pattern(12))
	_, err := r.PlaybackURL(context.Background())
	assert.True(t, errors.Is(err, types.ErrQualityUnavailable))

	frames, err := collect(t, r)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, types.ErrQualityUnavailable))
	var qerr *types.QualityUnavailableError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, []string{"best", "720p"}, qerr.Available)
	assert.Empty(t, prb.urls)
	assert.Empty(t, dec.urls)
}

func TestPlaybackURLSelectsQuality(t *testing.T) {
	r, _, _, _ := newTestReader("720p", 2, 2, nil)
	u, err := r.PlaybackURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/U2.m3u8", u)
}

func TestDefaultQuality(t *testing.T) {
	r := NewFrameReader(types.StreamSource{URL: "x"}, nil, nil, nil)
	assert.Equal(t, "best", r.Source().Quality)
}

func TestQualities(t *testing.T) {
	r, res, _, _ := newTestReader("best", 2, 2, nil)
	qs, err := r.Qualities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"best", "720p"}, qs)

	res.err = errors.New("dial tcp: no such host")
	_, err = r.Qualities(context.Background())
	assert.True(t, errors.Is(err, types.ErrResolution))
}

func TestProbeFailureLaunchesNothing(t *testing.T) {
	r, _, prb, dec := newTestReader("best", 2, 2, nil)
	prb.err = errors.New("ffprobe timed out")
	frames, err := collect(t, r)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, types.ErrProbe))
	assert.Empty(t, dec.urls)
}

func TestProbeInvalidDimensions(t *testing.T) {
	r, _, _, dec := newTestReader("best", 0, 0, nil)
	_, _, err := r.Dimensions(context.Background())
	assert.True(t, errors.Is(err, types.ErrProbe))
	_, err = collect(t, r)
	assert.True(t, errors.Is(err, types.ErrProbe))
	assert.Empty(t, dec.urls)
}

func TestDecoderLaunchFailure(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 2, nil)
	dec.launchErr = errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
	frames, err := collect(t, r)
	assert.Empty(t, frames)
	assert.True(t, errors.Is(err, types.ErrDecoderLaunch))
	assert.Empty(t, dec.procs)
}

func TestDimensionsNotCached(t *testing.T) {
	r, _, prb, _ := newTestReader("720p", 2, 2, nil)
	prb.metas = []types.StreamMetadata{{Width: 1280, Height: 720}, {Width: 1920, Height: 1080}}
	w, h, err := r.Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1280, 720}, []int{w, h})
	w, h, err = r.Dimensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1920, 1080}, []int{w, h})
	assert.Equal(t, []string{"https://cdn.test/U2.m3u8", "https://cdn.test/U2.m3u8"}, prb.urls)
}

func TestFramesRestartable(t *testing.T) {
	r, res, prb, dec := newTestReader("best", 2, 1, []byte{1, 2, 3, 4, 5, 6})
	seq := r.Frames(context.Background())
	for i := 0; i < 2; i++ {
		n := 0
		for f, err := range seq {
			require.NoError(t, err)
			assert.Equal(t, types.BGR{4, 5, 6}, f.Pixel(0, 1))
			n++
		}
		assert.Equal(t, 1, n)
	}
	require.Len(t, dec.procs, 2)
	assert.NotSame(t, dec.procs[0], dec.procs[1])
	// resolved and probed exactly once per iteration
	assert.Equal(t, 2, res.calls)
	assert.Len(t, prb.urls, 2)
}

func TestFrameStreamPull(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 1, pattern(12))
	s, err := r.Open(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())

	f, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, pattern(12)[:6], f.Pix)
	assert.EqualValues(t, 1, s.Count())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Next()
	assert.Equal(t, ErrStreamClosed, err)
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}

func TestFrameStreamFramesAreIndependent(t *testing.T) {
	r, _, _, _ := newTestReader("best", 2, 1, pattern(12))
	s, err := r.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()
	a, err := s.Next()
	require.NoError(t, err)
	b, err := s.Next()
	require.NoError(t, err)
	a.Pix[0] = 0xAA
	assert.NotEqual(t, byte(0xAA), b.Pix[0])
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestFrameStreamContextCanceled(t *testing.T) {
	r, _, _, dec := newTestReader("best", 2, 1, pattern(12))
	ctx, cancel := context.WithCancel(context.Background())
	s, err := r.Open(ctx)
	require.NoError(t, err)
	cancel()
	_, err = s.Next()
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"close", "wait"}, dec.procs[0].events)
}
