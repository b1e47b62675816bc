// Package rpc serves the estimation core over a byte stream, typically the
// stdin and stdout of a child process. Each call is a method name followed by
// its arguments. The server answers with any number of Progress and Log
// messages, then either AnswerFollows and the result or a single Error.
package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Harshitk-cp/prest/internal/codec"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/estimation"
	"go.uber.org/zap"
)

// MessageTag discriminates server messages.
type MessageTag uint8

const (
	TagProgress MessageTag = iota
	TagAnswerFollows
	TagError
	TagLog
)

// LogLevel is the level carried by a Log message.
type LogLevel int64

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

const (
	MethodEstimate = "estimate"
	MethodStats    = "stats"
	MethodFail     = "fail"
	MethodCrash    = "crash"
	MethodQuit     = "quit"
)

var (
	ErrCrashRequested = errors.New("crash requested")
	ErrUnknownMethod  = errors.New("unknown method")
)

// Server answers calls against a shared estimation cache.
type Server struct {
	cache   estimation.Cache
	space   estimation.InstanceSpace
	workers int
	logger  *zap.Logger
}

func NewServer(cache estimation.Cache, space estimation.InstanceSpace, workers int, logger *zap.Logger) *Server {
	return &Server{
		cache:   cache,
		space:   space,
		workers: workers,
		logger:  logger,
	}
}

// session serializes writes from the call loop and from progress callbacks.
type session struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *codec.Encoder
}

func (s *session) send(fn func(*codec.Encoder)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.enc)
	if err := s.enc.Err(); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *session) progress(position int) error {
	return s.send(func(e *codec.Encoder) {
		e.Uint8(uint8(TagProgress))
		e.Int(int64(position))
	})
}

func (s *session) log(level LogLevel, msg string) error {
	return s.send(func(e *codec.Encoder) {
		e.Uint8(uint8(TagLog))
		e.Int(int64(level))
		e.Text(msg)
	})
}

func (s *session) fail(msg string, extra []byte) error {
	return s.send(func(e *codec.Encoder) {
		e.Uint8(uint8(TagError))
		e.Text(msg)
		e.Bytes(extra)
	})
}

func (s *session) answer(fn func(*codec.Encoder)) error {
	return s.send(func(e *codec.Encoder) {
		e.Uint8(uint8(TagAnswerFollows))
		fn(e)
	})
}

// Serve reads calls from r until quit or end of input. Failures of a single
// call are reported to the client as Error messages; malformed input, write
// failures and crash requests end the loop with an error.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := codec.NewDecoder(r)
	bw := bufio.NewWriter(w)
	sess := &session{w: bw, enc: codec.NewEncoder(bw)}

	for {
		method := dec.Text()
		if err := dec.Err(); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("core input closed")
				return nil
			}
			return fmt.Errorf("read method: %w", err)
		}

		s.logger.Debug("core call", zap.String("method", method))

		var err error
		switch method {
		case MethodEstimate:
			err = s.estimate(ctx, dec, sess)
		case MethodStats:
			err = s.stats(dec, sess)
		case MethodFail:
			msg := dec.Text()
			if dec.Err() == nil {
				err = sess.fail(msg, nil)
			}
		case MethodCrash:
			msg := dec.Text()
			if dec.Err() == nil {
				return fmt.Errorf("%w: %s", ErrCrashRequested, msg)
			}
		case MethodQuit:
			s.logger.Info("core quit")
			return nil
		default:
			return fmt.Errorf("%w: %q", ErrUnknownMethod, method)
		}

		if derr := dec.Err(); derr != nil {
			return fmt.Errorf("read %s arguments: %w", method, derr)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
}

func (s *Server) estimate(ctx context.Context, dec *codec.Decoder, sess *session) error {
	req := estimation.DecodeRequest(dec)
	if dec.Err() != nil {
		return nil
	}

	if err := sess.log(LevelInfo, fmt.Sprintf("estimating %d subjects", len(req.Subjects))); err != nil {
		return err
	}

	var writeErr error
	var once sync.Once
	resps, err := estimation.Run(ctx, s.cache, s.space, req,
		estimation.WithWorkers(s.workers),
		estimation.WithProgress(func(done, _ int) {
			if perr := sess.progress(done); perr != nil {
				once.Do(func() { writeErr = perr })
			}
		}),
	)
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		s.logger.Warn("estimation failed", zap.Int("subjects", len(req.Subjects)), zap.Error(err))
		return sess.fail(err.Error(), failedSubject(err))
	}

	return sess.answer(func(e *codec.Encoder) {
		estimation.EncodeResponses(e, resps)
	})
}

// failedSubject names the subject an estimation error belongs to, if any.
func failedSubject(err error) []byte {
	var se *estimation.SubjectError
	if errors.As(err, &se) {
		return []byte(se.Subject)
	}
	return nil
}

func (s *Server) stats(dec *codec.Decoder, sess *session) error {
	subj := dec.PackedSubject()
	if dec.Err() != nil {
		return nil
	}

	st := domain.Summarize(subj)
	return sess.answer(func(e *codec.Encoder) {
		e.Text(st.Name)
		e.Int(int64(st.Observations))
		e.Int(int64(st.ActiveChoices))
		e.Int(int64(st.Deferrals))
	})
}
