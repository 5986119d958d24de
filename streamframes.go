//Package streamframes reads decoded frames out of live streams.
//
//A reader resolves the source (a twitch.tv channel, an HLS master playlist, or anything ffmpeg
//can open directly) to a playback URL, probes it for its resolution and runs ffmpeg to decode it
//into raw BGR24 frames:
//
//	r := streamframes.New("https://www.twitch.tv/somechannel", "720p60")
//	for frame, err := range r.Frames(ctx) {
//		if err != nil {
//			return err
//		}
//		px := frame.Pixel(0, 0)
//	}
package streamframes

import (
	"net/http"
	"time"

	"github.com/livepeer/streamframes/core"
	"github.com/livepeer/streamframes/ffmpeg"
	"github.com/livepeer/streamframes/probe"
	"github.com/livepeer/streamframes/stream"
	"github.com/livepeer/streamframes/types"
)

type config struct {
	ffmpegPath     string
	ffprobePath    string
	probeTimeout   time.Duration
	httpClient     *http.Client
	twitchClientID string
	logLevel       ffmpeg.LogLevel

	resolver core.Resolver
	prober   core.Prober
	decoder  core.Decoder
}

type Option func(*config)

func WithFFmpegPath(p string) Option { return func(c *config) { c.ffmpegPath = p } }

func WithFFprobePath(p string) Option { return func(c *config) { c.ffprobePath = p } }

func WithProbeTimeout(d time.Duration) Option { return func(c *config) { c.probeTimeout = d } }

func WithHTTPClient(hc *http.Client) Option { return func(c *config) { c.httpClient = hc } }

func WithTwitchClientID(id string) Option { return func(c *config) { c.twitchClientID = id } }

func WithFFmpegLogLevel(l ffmpeg.LogLevel) Option { return func(c *config) { c.logLevel = l } }

func WithResolver(r core.Resolver) Option { return func(c *config) { c.resolver = r } }

func WithProber(p core.Prober) Option { return func(c *config) { c.prober = p } }

func WithDecoder(d core.Decoder) Option { return func(c *config) { c.decoder = d } }

//New builds a FrameReader for sourceURL. An empty quality means "best". Nothing is fetched or started until the reader is used.
func New(sourceURL, quality string, opts ...Option) *core.FrameReader {
	c := &config{probeTimeout: ffmpeg.DefaultProbeTimeout, logLevel: ffmpeg.FFLogError}
	for _, o := range opts {
		o(c)
	}
	if c.resolver == nil {
		c.resolver = stream.NewAutoResolver(c.httpClient, c.twitchClientID)
	}
	if c.prober == nil {
		c.prober = probe.NewSchemeProber(ffmpeg.NewProber(c.ffprobePath, c.probeTimeout))
	}
	if c.decoder == nil {
		d := ffmpeg.NewDecoder(c.ffmpegPath)
		d.LogLevel = c.logLevel
		c.decoder = d
	}
	return core.NewFrameReader(types.NewStreamSource(sourceURL, quality), c.resolver, c.prober, c.decoder)
}
