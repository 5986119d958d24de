package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes"
	"github.com/livepeer/streamframes/ffmpeg"
	"github.com/livepeer/streamframes/stream"
	"github.com/livepeer/streamframes/types"
	"github.com/olekukonko/tablewriter"
)

func main() {
	flag.Set("logtostderr", "true")
	src := flag.String("url", "", "Stream URL: twitch.tv channel, HLS master playlist or anything ffmpeg can open")
	quality := flag.String("quality", types.DefaultQuality, "Quality label to decode")
	list := flag.Bool("list", false, "List available qualities and exit")
	frames := flag.Int("frames", 0, "Stop after this many frames, 0 reads until the stream ends")
	ffmpegPath := flag.String("ffmpeg", ffmpeg.DefaultFFmpegPath, "Path to the ffmpeg binary")
	ffprobePath := flag.String("ffprobe", ffmpeg.DefaultFFprobePath, "Path to the ffprobe binary")
	probeTimeout := flag.Duration("probe-timeout", ffmpeg.DefaultProbeTimeout, "Give up probing after this long")
	clientID := flag.String("twitch-client-id", "", "Override the Twitch client id")
	flag.Parse()

	if *src == "" && flag.NArg() > 0 {
		*src = flag.Arg(0)
	}
	if *src == "" {
		fmt.Fprintln(os.Stderr, "Usage: framegrab [-quality q] [-list] [-frames n] -url <stream url>")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	resolver := stream.NewAutoResolver(nil, *clientID)
	if *list {
		if err := listQualities(ctx, resolver, *src); err != nil {
			glog.Exit(err)
		}
		return
	}

	r := streamframes.New(*src, *quality,
		streamframes.WithResolver(resolver),
		streamframes.WithFFmpegPath(*ffmpegPath),
		streamframes.WithFFprobePath(*ffprobePath),
		streamframes.WithProbeTimeout(*probeTimeout))

	u, err := r.PlaybackURL(ctx)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("Playing %v from %v", r.Source(), u)

	start := time.Now()
	n := 0
	for f, err := range r.Frames(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			glog.Exit(err)
		}
		if n == 0 {
			fmt.Printf("Dimensions %dx%d\n", f.Width, f.Height)
		}
		m := meanColor(f)
		fmt.Printf("frame %d mean b=%.1f g=%.1f r=%.1f\n", n, m[0], m[1], m[2])
		n++
		if *frames > 0 && n >= *frames {
			break
		}
	}
	took := time.Since(start)
	fps := 0.0
	if took > 0 {
		fps = float64(n) / took.Seconds()
	}
	fmt.Printf("Read %d frames in %v (%.2f fps)\n", n, took.Round(time.Millisecond), fps)
}

func listQualities(ctx context.Context, resolver *stream.AutoResolver, src string) error {
	m, err := resolver.Manifest(ctx, src)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Quality", "Resolution", "Bandwidth", "URL"})
	for _, v := range m.Variants {
		bw := ""
		if v.Bandwidth > 0 {
			bw = strconv.FormatUint(uint64(v.Bandwidth), 10)
		}
		table.Append([]string{v.Quality, v.Resolution, bw, v.URL})
	}
	table.Render()
	fmt.Println("Qualities:", m.Qualities())
	return nil
}

func meanColor(f *types.Frame) [3]float64 {
	var sum [3]uint64
	for i := 0; i+2 < len(f.Pix); i += 3 {
		sum[0] += uint64(f.Pix[i])
		sum[1] += uint64(f.Pix[i+1])
		sum[2] += uint64(f.Pix[i+2])
	}
	px := float64(len(f.Pix) / 3)
	if px == 0 {
		return [3]float64{}
	}
	return [3]float64{float64(sum[0]) / px, float64(sum[1]) / px, float64(sum[2]) / px}
}
