// SPDX-License-Identifier: MPL-2.0

package harvest

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/harvestkit/harvest/internal/issue"
	"github.com/harvestkit/harvest/pkg/credparse"
)

// defaultConcurrency bounds parallel file parsing when no option is given.
const defaultConcurrency = 4

type (
	// Capture is the extraction result for one input.
	Capture struct {
		// Source is the file path, or "-" for stdin.
		Source string
		// Err is set when the input could not be read and the session skips
		// unreadable files. The capture then carries no records.
		Err error
		credparse.Result
	}

	// Report is the outcome of one Session call.
	Report struct {
		// Captures holds one entry per input, in argument order.
		Captures []Capture
		// Records are the credentials not reported earlier in the session,
		// in input order then discovery order.
		Records credparse.Batch
	}

	// Session extracts credentials and deduplicates them across calls. It is
	// safe for concurrent use.
	Session struct {
		extractor   *credparse.Extractor
		logger      *log.Logger
		sink        credparse.Sink
		concurrency int

		// skipUnreadable turns read failures into per-capture errors.
		skipUnreadable bool

		mu   sync.Mutex
		seen map[credparse.Key]struct{}
	}

	// Option configures a Session.
	Option func(*Session)
)

// WithLogger sets the session and extractor logger. A nil logger is ignored.
func WithLogger(logger *log.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConcurrency bounds how many files are parsed at once. Values below one
// are ignored.
func WithConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSink forwards every capture's new records to sink.
func WithSink(sink credparse.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithSkipUnreadable logs files that cannot be read and records the failure
// on their Capture instead of failing the call, so the rest of the batch is
// still reported.
func WithSkipUnreadable() Option {
	return func(s *Session) {
		s.skipUnreadable = true
	}
}

// NewSession creates a Session with an empty seen-set.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger:      log.New(io.Discard),
		concurrency: defaultConcurrency,
		seen:        make(map[credparse.Key]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = credparse.NewExtractor(credparse.WithLogger(s.logger))
	return s
}

// Seen returns how many distinct credentials the session has reported.
func (s *Session) Seen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// ExtractFiles reads and parses paths concurrently. A file that cannot be
// read fails the whole call unless WithSkipUnreadable is set; unrecognized
// content never does.
func (s *Session) ExtractFiles(ctx context.Context, paths ...string) (Report, error) {
	captures := make([]Capture, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				err = issue.NewErrorContext().
					WithOperation("read capture").
					WithResource(path).
					WithSuggestion("Check that the file exists and is readable").
					Wrap(err).
					BuildError()
				if !s.skipUnreadable {
					return err
				}
				s.logger.Warn("skipping unreadable capture", "source", path, "err", err)
				captures[i] = Capture{Source: path, Err: err}
				return nil
			}
			captures[i] = s.extract(path, string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return s.absorb(ctx, captures)
}

// ExtractReader parses everything read from r as a single capture.
func (s *Session) ExtractReader(ctx context.Context, source string, r io.Reader) (Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, issue.WrapWithContext(err, "read capture", source)
	}
	return s.absorb(ctx, []Capture{s.extract(source, string(data))})
}

func (s *Session) extract(source, raw string) Capture {
	res := s.extractor.Extract(raw)
	if res.Format == credparse.FormatUnknown {
		s.logger.Info("no credential output recognized", "source", source)
	}
	return Capture{Source: source, Result: res}
}

// absorb filters captures against the seen-set in order and forwards each
// capture's new records to the sink.
func (s *Session) absorb(ctx context.Context, captures []Capture) (Report, error) {
	report := Report{Captures: captures, Records: credparse.Batch{}}
	fresh := make([]credparse.Batch, len(captures))

	s.mu.Lock()
	for i, c := range captures {
		for _, r := range c.Records {
			key := r.Key()
			if _, ok := s.seen[key]; ok {
				continue
			}
			s.seen[key] = struct{}{}
			fresh[i] = append(fresh[i], r)
		}
		report.Records = append(report.Records, fresh[i]...)
	}
	s.mu.Unlock()

	if s.sink == nil {
		return report, nil
	}
	for i, c := range captures {
		if len(fresh[i]) == 0 {
			continue
		}
		if err := s.sink.Store(ctx, c.Source, fresh[i]); err != nil {
			return report, fmt.Errorf("store credentials from %s: %w", c.Source, err)
		}
	}
	return report, nil
}
