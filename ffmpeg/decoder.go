package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes/core"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

//Decoder runs ffmpeg to turn a playback URL into headerless BGR24 frames on stdout.
type Decoder struct {
	Path     string
	LogLevel LogLevel
	//InputArgs go right before -i, e.g. {"-rw_timeout", "10000000"} or {"-f", "lavfi"}.
	InputArgs []string
}

func NewDecoder(path string) *Decoder {
	if path == "" {
		path = DefaultFFmpegPath
	}
	return &Decoder{Path: path, LogLevel: FFLogError}
}

func DecodeArgs(level LogLevel, inputArgs []string, playbackURL string) []string {
	if level == "" {
		level = FFLogError
	}
	args := []string{"-nostdin", "-hide_banner", "-loglevel", string(level)}
	args = append(args, inputArgs...)
	return append(args,
		"-i", playbackURL,
		"-map", "0:v:0", "-an", "-sn", "-dn",
		"-f", "rawvideo", "-pix_fmt", PixelFormatBGR24,
		"pipe:1")
}

func (d *Decoder) Launch(ctx context.Context, playbackURL string) (core.DecoderProcess, error) {
	path := d.Path
	if path == "" {
		path = DefaultFFmpegPath
	}
	args := DecodeArgs(d.LogLevel, d.InputArgs, playbackURL)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = waitDelay
	stderr := &stderrLogger{prefix: fmt.Sprintf("ffmpeg[%v]", playbackURL)}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(types.ErrDecoderLaunch, "stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		glog.Errorf("Cannot start %v: %v", path, err)
		return nil, errors.Wrapf(types.ErrDecoderLaunch, "starting %v: %v", path, err)
	}
	glog.V(2).Infof("Started %v pid=%v args=%v", path, cmd.Process.Pid, args)
	return &Process{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

//Process is a running ffmpeg decoder.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *stderrLogger
}

func (p *Process) Read(b []byte) (int, error) { return p.stdout.Read(b) }

//Close closes our end of the output pipe. ffmpeg exits on its next write.
func (p *Process) Close() error { return p.stdout.Close() }

func (p *Process) Wait() error {
	err := p.cmd.Wait()
	if err == nil {
		return nil
	}
	if last := p.stderr.LastLine(); last != "" {
		return errors.Wrapf(err, "ffmpeg: %v", last)
	}
	return err
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }
