package core

import (
	"context"
	"io"

	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
	"github.com/livepeer/streamframes/types"
	"github.com/pkg/errors"
)

var ErrStreamClosed = errors.New("FrameStreamClosed")

//FrameStream is one run of the decoder. It is not safe for concurrent use.
type FrameStream struct {
	//ctx is the context of the iteration that launched the decoder.
	ctx    context.Context
	id     string
	proc   DecoderProcess
	width  int
	height int
	count  uint64

	//exited is set once the decoder has stopped writing on its own.
	exited   bool
	closed   bool
	closeErr error
}

func newFrameStream(ctx context.Context, id string, proc DecoderProcess, width, height int) *FrameStream {
	return &FrameStream{ctx: ctx, id: id, proc: proc, width: width, height: height}
}

func (s *FrameStream) ID() string { return s.id }

//Count is the number of frames returned so far.
func (s *FrameStream) Count() uint64 { return s.count }

func (s *FrameStream) Dimensions() (int, int) { return s.width, s.height }

//Next blocks until a whole frame is available. It returns io.EOF once the decoder output ends
//on a frame boundary. Short pipe reads are accumulated; a trailing partial frame is an error.
func (s *FrameStream) Next() (*types.Frame, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}
	if err := s.ctx.Err(); err != nil {
		s.Close()
		return nil, err
	}

	buf := make([]byte, types.FrameSize(s.width, s.height))
	n, err := io.ReadFull(s.proc, buf)
	switch {
	case err == io.EOF:
		if cerr := s.ctx.Err(); cerr != nil {
			s.Close()
			return nil, cerr
		}
		s.exited = true
		if cerr := s.Close(); cerr != nil {
			return nil, errors.Wrapf(types.ErrDecodeStream, "decoder failed after %v frames: %v", s.count, cerr)
		}
		glog.Infof("End of stream %v after %v frames", s.id, s.count)
		return nil, io.EOF
	case err == io.ErrUnexpectedEOF:
		s.exited = true
		if cerr := s.Close(); cerr != nil {
			glog.Errorf("Decoder %v: %v", s.id, cerr)
		}
		return nil, errors.Wrapf(types.ErrDecodeStream, "truncated frame %v: got %v of %v bytes", s.count, n, len(buf))
	case err != nil:
		s.Close()
		if cerr := s.ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, errors.Wrapf(types.ErrDecodeStream, "reading frame %v: %v", s.count, err)
	}

	f, err := types.NewFrame(s.width, s.height, buf)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(types.ErrDecodeStream, "%v", err)
	}
	s.count++
	if glog.V(3) {
		glog.Infof("Stream %v frame %v", s.id, s.count)
	}
	return f, nil
}

//Close closes the decoder output and waits for the decoder to exit. It is safe to call more than once.
//Exit errors are only reported when the decoder stopped on its own; after an early stop the decoder
//is expected to die on the closed pipe.
func (s *FrameStream) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true

	var result *multierror.Error
	if err := s.proc.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "closing decoder output"))
	}
	if err := s.proc.Wait(); err != nil {
		if s.exited {
			result = multierror.Append(result, err)
		} else {
			glog.V(2).Infof("Decoder %v stopped: %v", s.id, err)
		}
	}
	s.closeErr = result.ErrorOrNil()
	return s.closeErr
}
