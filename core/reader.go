package core

import (
	"context"
	"io"
	"iter"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//Resolver turns a source URL into quality labels and playback URLs.
type Resolver interface {
	Qualities(ctx context.Context, sourceURL string) ([]string, error)
	PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error)
}

//Prober reports metadata of the first video stream behind a playback URL.
type Prober interface {
	ProbeVideo(ctx context.Context, playbackURL string) (types.StreamMetadata, error)
}

//Decoder launches a process that writes headerless BGR24 frames for a playback URL.
type Decoder interface {
	Launch(ctx context.Context, playbackURL string) (DecoderProcess, error)
}

//DecoderProcess is a running decoder. Read returns its raw output, Close closes the
//output pipe and Wait blocks until the process has exited.
type DecoderProcess interface {
	io.Reader
	Close() error
	Wait() error
}

//FrameReader yields decoded frames of a live stream. It does no I/O until one of its methods is called.
type FrameReader struct {
	src      types.StreamSource
	resolver Resolver
	prober   Prober
	decoder  Decoder
}

func NewFrameReader(src types.StreamSource, resolver Resolver, prober Prober, decoder Decoder) *FrameReader {
	if src.Quality == "" {
		src.Quality = types.DefaultQuality
	}
	return &FrameReader{src: src, resolver: resolver, prober: prober, decoder: decoder}
}

func (r *FrameReader) Source() types.StreamSource { return r.src }

//Qualities returns the quality labels offered by the source, in resolver order.
func (r *FrameReader) Qualities(ctx context.Context) ([]string, error) {
	qs, err := r.resolver.Qualities(ctx, r.src.URL)
	if err != nil {
		glog.Errorf("Error listing qualities for %v: %v", r.src.URL, err)
		return nil, classify(err, types.ErrResolution)
	}
	return qs, nil
}

//PlaybackURL resolves the configured quality to a URL the decoder can open directly.
func (r *FrameReader) PlaybackURL(ctx context.Context) (string, error) {
	u, err := r.resolver.PlaybackURL(ctx, r.src.URL, r.src.Quality)
	if err != nil {
		glog.Errorf("Error resolving %v: %v", r.src, err)
		return "", classify(err, types.ErrResolution)
	}
	return u, nil
}

//Dimensions probes the playback URL. The result is not cached.
func (r *FrameReader) Dimensions(ctx context.Context) (width, height int, err error) {
	u, err := r.PlaybackURL(ctx)
	if err != nil {
		return 0, 0, err
	}
	meta, err := r.probe(ctx, u)
	if err != nil {
		return 0, 0, err
	}
	return meta.Width, meta.Height, nil
}

func (r *FrameReader) probe(ctx context.Context, playbackURL string) (types.StreamMetadata, error) {
	meta, err := r.prober.ProbeVideo(ctx, playbackURL)
	if err != nil {
		glog.Errorf("Error probing %v: %v", r.src, err)
		return types.StreamMetadata{}, classify(err, types.ErrProbe)
	}
	if !meta.Valid() {
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "invalid video dimensions %v", meta.Resolution())
	}
	return meta, nil
}

//Open resolves and probes the stream once, then launches a decoder. The caller must Close the returned stream.
func (r *FrameReader) Open(ctx context.Context) (*FrameStream, error) {
	u, err := r.PlaybackURL(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := r.probe(ctx, u)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	proc, err := r.decoder.Launch(ctx, u)
	if err != nil {
		glog.Errorf("Cannot launch decoder for %v: %v", r.src, err)
		return nil, classify(err, types.ErrDecoderLaunch)
	}
	glog.Infof("Decoding %v at %v, id=%v", r.src, meta.Resolution(), id)
	return newFrameStream(ctx, id, proc, meta.Width, meta.Height), nil
}

//Frames returns a fresh single pass sequence on every call. Each iteration runs its own decoder,
//which is shut down when the loop ends for any reason.
func (r *FrameReader) Frames(ctx context.Context) iter.Seq2[*types.Frame, error] {
	return func(yield func(*types.Frame, error) bool) {
		s, err := r.Open(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer s.Close()

		for {
			f, err := s.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(f, nil) {
				glog.V(2).Infof("Consumer stopped %v after %v frames", s.ID(), s.Count())
				return
			}
		}
	}
}

//classify tags err with kind unless it already belongs to the error taxonomy.
func classify(err error, kind error) error {
	for _, k := range []error{types.ErrResolution, types.ErrQualityUnavailable, types.ErrProbe, types.ErrDecoderLaunch, types.ErrDecodeStream} {
		if errors.Is(err, k) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrapf(kind, "%v", err)
}
