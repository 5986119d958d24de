package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//Prober runs ffprobe against a playback URL, looking at video streams only.
type Prober struct {
	Path      string
	Timeout   time.Duration
	InputArgs []string
}

func NewProber(path string, timeout time.Duration) *Prober {
	if path == "" {
		path = DefaultFFprobePath
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{Path: path, Timeout: timeout}
}

func ProbeArgs(inputArgs []string, playbackURL string) []string {
	args := []string{"-v", "error", "-select_streams", "v", "-show_streams", "-print_format", "json"}
	args = append(args, inputArgs...)
	return append(args, playbackURL)
}

type probeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	PixFmt    string `json:"pix_fmt"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

func (p *Prober) ProbeVideo(ctx context.Context, playbackURL string) (types.StreamMetadata, error) {
	path, timeout := p.Path, p.Timeout
	if path == "" {
		path = DefaultFFprobePath
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(pctx, path, ProbeArgs(p.InputArgs, playbackURL)...)
	cmd.WaitDelay = waitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return types.StreamMetadata{}, ctx.Err()
		}
		if pctx.Err() == context.DeadlineExceeded {
			return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "ffprobe %v timed out after %v", playbackURL, timeout)
		}
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "ffprobe %v: %v: %s", playbackURL, err, bytes.TrimSpace(stderr.Bytes()))
	}
	glog.V(2).Infof("ffprobe %v: %s", playbackURL, out)
	return ParseProbeOutput(out)
}

//ParseProbeOutput picks the first video stream with usable dimensions out of ffprobe's json.
func ParseProbeOutput(out []byte) (types.StreamMetadata, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return types.StreamMetadata{}, errors.Wrapf(types.ErrProbe, "parsing ffprobe output: %v", err)
	}
	for _, s := range po.Streams {
		if s.CodecType != "" && s.CodecType != "video" {
			continue
		}
		m := types.StreamMetadata{Width: s.Width, Height: s.Height, PixelFormat: s.PixFmt, CodecName: s.CodecName}
		if !m.Valid() {
			continue
		}
		return m, nil
	}
	return types.StreamMetadata{}, errors.Wrap(types.ErrProbe, "no video stream found")
}
