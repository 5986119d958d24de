package ffmpeg

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

type LogLevel string

const (
	FFLogQuiet   LogLevel = "quiet"
	FFLogError   LogLevel = "error"
	FFLogWarning LogLevel = "warning"
	FFLogInfo    LogLevel = "info"
	FFLogDebug   LogLevel = "debug"
)

const (
	DefaultFFmpegPath   = "ffmpeg"
	DefaultFFprobePath  = "ffprobe"
	DefaultProbeTimeout = 15 * time.Second

	// how long Wait may block on stdio copying after the process is gone
	waitDelay = 5 * time.Second
)

//stderrLogger forwards a child's stderr to glog line by line and remembers the last line
//so that exit errors can say something useful.
type stderrLogger struct {
	prefix string
	mu     sync.Mutex
	buf    bytes.Buffer
	last   string
}

func (l *stderrLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

func (l *stderrLogger) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l.last = line
	glog.V(2).Infof("%v: %v", l.prefix, line)
}

//LastLine returns the last non-empty stderr line, including a trailing unterminated one.
func (l *stderrLogger) LastLine() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
	return l.last
}
