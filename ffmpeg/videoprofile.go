package ffmpeg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidResolution = errors.New("InvalidResolution")

const PixelFormatBGR24 = "bgr24"

//Common stream renditions, by height:
//1080p60: 6000kbps
//720p60: 4500kbps
//720p30: 3000kbps
//480p30: 1500kbps
//360p30: 700kbps
//160p30: 250kbps

//ParseResolution parses "1280x720" (or "1280:720") into width and height.
func ParseResolution(res string) (int, int, error) {
	res = strings.Replace(res, ":", "x", 1)
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidResolution
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, ErrInvalidResolution
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, ErrInvalidResolution
	}
	if w <= 0 || h <= 0 {
		return 0, 0, ErrInvalidResolution
	}
	return w, h, nil
}

//QualityName builds the conventional rendition label, e.g. "720p" or "720p60".
//The frame rate is only part of the name above 30fps.
func QualityName(height int, framerate float64) string {
	if framerate > 30 {
		return fmt.Sprintf("%vp%v", height, int(framerate+0.5))
	}
	return fmt.Sprintf("%vp", height)
}
