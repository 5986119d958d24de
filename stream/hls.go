package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

const maxPlaylistSize = 1 << 20

var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

//HLSResolver resolves qualities of a plain HLS master playlist URL.
type HLSResolver struct {
	Client *http.Client
}

func (r *HLSResolver) Manifest(ctx context.Context, masterURL string) (*Manifest, error) {
	data, err := fetch(ctx, r.Client, masterURL, nil)
	if err != nil {
		return nil, err
	}
	return ParseManifest(masterURL, data)
}

func (r *HLSResolver) Qualities(ctx context.Context, sourceURL string) ([]string, error) {
	m, err := r.Manifest(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	return m.Qualities(), nil
}

func (r *HLSResolver) PlaybackURL(ctx context.Context, sourceURL, quality string) (string, error) {
	m, err := r.Manifest(ctx, sourceURL)
	if err != nil {
		return "", err
	}
	v, err := m.Variant(quality)
	if err != nil {
		return "", err
	}
	return v.URL, nil
}

//StatusError is a non-2xx answer from a playlist or token endpoint. It matches types.ErrResolution.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: GET %v: %v %v", types.ErrResolution, e.URL, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool { return target == types.ErrResolution }

func fetch(ctx context.Context, client *http.Client, u string, header http.Header) ([]byte, error) {
	if client == nil {
		client = defaultHTTPClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "bad url %v: %v", u, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(types.ErrResolution, "%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		glog.Errorf("GET %v returned %v", u, resp.Status)
		return nil, errors.WithStack(&StatusError{URL: u, Code: resp.StatusCode})
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPlaylistSize))
	if err != nil {
		return nil, errors.Wrapf(types.ErrResolution, "reading %v: %v", u, err)
	}
	return data, nil
}

func httpStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
