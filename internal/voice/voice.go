// Package voice turns an on-device speech-to-text stream into entry text.
//
// Recognition itself is done by an external local engine (for example a
// whisper.cpp stream process) that writes its running transcript, one line
// per update, to a pipe or file. Nothing leaves the machine.
package voice

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/apperror"
)

// Transcript is one recognizer update. Text is the full transcript so far.
type Transcript struct {
	Text  string
	Final bool
	Err   error
}

// Recognizer streams transcript updates until the source ends or ctx is
// done. The returned channel is closed when the stream ends.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Transcript, error)
}

// OpenFunc opens the transcript source.
type OpenFunc func() (io.ReadCloser, error)

// FileSource opens path for reading; "-" means standard input.
func FileSource(path string) OpenFunc {
	return func() (io.ReadCloser, error) {
		if path == "-" {
			return interruptible{os.Stdin}, nil
		}
		return os.Open(path)
	}
}

// interruptible reads from a file it does not own. Close leaves the file
// open but expires any pending Read, so a reader blocked on a pipe returns
// when the session ends. Files without deadline support, such as a
// terminal, keep blocking until the next line.
type interruptible struct {
	f *os.File
}

func (r interruptible) Read(p []byte) (int, error) { return r.f.Read(p) }

func (r interruptible) Close() error {
	if err := r.f.SetReadDeadline(time.Now()); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		return err
	}
	return nil
}

// LineRecognizer reads newline-delimited transcripts. Each non-empty line
// replaces the previous text; the last line before end of input is final.
type LineRecognizer struct {
	open OpenFunc
}

// NewLineRecognizer creates a LineRecognizer over open.
func NewLineRecognizer(open OpenFunc) *LineRecognizer {
	return &LineRecognizer{open: open}
}

// Start opens the source. A source that cannot be opened for lack of
// permission fails with PermissionDenied; a missing source with
// ExternalServiceUnavailable.
func (r *LineRecognizer) Start(ctx context.Context) (<-chan Transcript, error) {
	const op = "voice.Start"

	src, err := r.open()
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, apperror.PermissionDenied(op, "the transcript source cannot be read", err)
	case err != nil:
		return nil, apperror.ServiceUnavailable(op, err)
	}

	out := make(chan Transcript)
	go func() {
		defer close(out)
		defer src.Close()

		lines := make(chan string)
		scanErr := make(chan error, 1)
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(src)
			for sc.Scan() {
				select {
				case lines <- sc.Text():
				case <-ctx.Done():
					return
				}
			}
			scanErr <- sc.Err()
		}()

		var last string
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					var err error
					select {
					case err = <-scanErr:
					default:
					}
					send(ctx, out, Transcript{Text: last, Final: true, Err: err})
					return
				}
				text := strings.TrimSpace(line)
				if text == "" {
					continue
				}
				last = text
				if !send(ctx, out, Transcript{Text: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}

func send(ctx context.Context, out chan<- Transcript, t Transcript) bool {
	select {
	case out <- t:
		return true
	case <-ctx.Done():
		return false
	}
}

// Result is the outcome of one recording session.
type Result struct {
	Text     string
	Duration time.Duration
	Stopped  bool
}

// Recorder runs at most one recording session at a time.
type Recorder struct {
	rec    Recognizer
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewRecorder creates a Recorder over rec.
func NewRecorder(rec Recognizer, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{rec: rec, logger: logger, now: time.Now}
}

// Record runs a session until the transcript is final, Stop is called or
// ctx is done. Stopping early keeps the text recognized so far. onPartial,
// when set, receives every intermediate transcript.
func (r *Recorder) Record(ctx context.Context, onPartial func(string)) (Result, error) {
	const op = "voice.Record"

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return Result{}, apperror.Busy(op)
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
	}()

	start := r.now()
	stream, err := r.rec.Start(ctx)
	if err != nil {
		return Result{}, err
	}
	r.logger.Info("recording started")

	var res Result
	for {
		select {
		case <-ctx.Done():
			res.Stopped = true
			res.Duration = r.now().Sub(start)
			r.logger.Info("recording stopped", zap.Duration("duration", res.Duration))
			return res, nil
		case t, ok := <-stream:
			if !ok {
				res.Stopped = ctx.Err() != nil
				res.Duration = r.now().Sub(start)
				return res, nil
			}
			if t.Text != "" {
				res.Text = t.Text
			}
			if t.Err != nil {
				res.Duration = r.now().Sub(start)
				r.logger.Warn("transcript stream failed", zap.Error(t.Err))
				return res, apperror.ServiceUnavailable(op, t.Err)
			}
			if t.Final {
				res.Duration = r.now().Sub(start)
				r.logger.Info("recording finished", zap.Duration("duration", res.Duration), zap.Int("chars", len(res.Text)))
				return res, nil
			}
			if onPartial != nil {
				onPartial(t.Text)
			}
		}
	}
}

// Stop ends the active session, if any.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Active reports whether a session is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
