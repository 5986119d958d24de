package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrResolution = errors.New("StreamResolutionFailed")
var ErrQualityUnavailable = errors.New("StreamQualityUnavailable")
var ErrProbe = errors.New("StreamProbeFailed")
var ErrDecoderLaunch = errors.New("DecoderLaunchFailed")
var ErrDecodeStream = errors.New("DecodeStreamFailed")

//QualityUnavailableError is returned when the requested quality label is not offered by the source.
type QualityUnavailableError struct {
	Quality   string
	Available []string
}

func (e *QualityUnavailableError) Error() string {
	return fmt.Sprintf("%v: %q not in [%v]", ErrQualityUnavailable, e.Quality, strings.Join(e.Available, ", "))
}

func (e *QualityUnavailableError) Is(target error) bool {
	return target == ErrQualityUnavailable
}
