// SPDX-License-Identifier: MPL-2.0

package credparse

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// FormatUnknown is reported when no marker matched.
	FormatUnknown Format = "unknown"
	// FormatDump is credential-dump output opening with a Hostname banner.
	FormatDump Format = "credential-dump"
	// FormatPrompt is prompted-credential output.
	FormatPrompt Format = "prompted-credentials"
	// FormatCapturedText is captured dialog text.
	FormatCapturedText Format = "captured-text"

	dumpMarker         = "Hostname:"
	promptMarker       = "[+] Prompted credentials:"
	promptDelimiter    = "->"
	capturedTextMarker = "text returned:"
)

type (
	// Format identifies which kind of tool output was recognized.
	Format string

	// Result is the outcome of an extraction.
	Result struct {
		// Records are the deduplicated credentials in discovery order.
		Records Batch
		// Format is the recognized output kind.
		Format Format
		// Strategy names the dump parser that produced the records, if any.
		Strategy string
		// Warnings describe input that was recognized but could not be parsed.
		Warnings []string
	}

	// Extractor parses tool output. The zero value is not usable; use
	// NewExtractor.
	Extractor struct {
		logger *log.Logger
	}

	// ExtractorOption configures an Extractor.
	ExtractorOption func(*Extractor)
)

// WithLogger sends extraction diagnostics to logger. A nil logger is ignored.
func WithLogger(logger *log.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor creates an Extractor. Without options diagnostics are
// discarded.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor()

// Extract returns the credentials found in raw, or an empty batch when the
// output is not recognized.
func Extract(raw string) Batch {
	return defaultExtractor.Extract(raw).Records
}

// Extract dispatches raw to the parser matching its first line. Leading
// whitespace is ignored. It never panics; a parser failure is reported as a
// warning with whatever records were recovered before it.
func (e *Extractor) Extract(raw string) (res Result) {
	res.Format = FormatUnknown
	res.Records = Batch{}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("parser failure: %v", r)
			e.logger.Error("credential extraction aborted", "format", res.Format, "err", r)
			res.Warnings = append(res.Warnings, msg)
			res.Records = Dedup(res.Records)
		}
	}()

	text := strings.TrimLeft(strings.ReplaceAll(raw, "\r\n", "\n"), " \t\r\n")
	first, _, _ := strings.Cut(text, "\n")

	switch {
	case strings.HasPrefix(first, dumpMarker):
		res.Format = FormatDump
		e.extractDump(text, &res)
	case strings.HasPrefix(first, promptMarker):
		res.Format = FormatPrompt
		e.extractPrompt(text, &res)
	case strings.Contains(text, capturedTextMarker):
		res.Format = FormatCapturedText
		e.extractCapturedText(text, &res)
	default:
		e.logger.Debug("no credential marker in output")
		return res
	}

	before := len(res.Records)
	res.Records = Dedup(res.Records)
	if dropped := before - len(res.Records); dropped > 0 {
		e.logger.Debug("dropped duplicate credentials", "count", dropped)
	}
	e.logger.Debug("extracted credentials", "format", res.Format, "strategy", res.Strategy, "count", len(res.Records))
	return res
}

// extractPrompt parses "[+] Prompted credentials: -> DOMAIN\user:password".
func (e *Extractor) extractPrompt(text string, res *Result) {
	parts := strings.Split(text, promptDelimiter)
	if len(parts) != 2 {
		e.warn(res, "prompted credentials: expected exactly one %q delimiter, found %d", promptDelimiter, len(parts)-1)
		return
	}

	line, _, _ := strings.Cut(parts[1], "\n")
	username, password, ok := strings.Cut(line, ":")
	if !ok {
		e.warn(res, "prompted credentials: missing ':' between username and password")
		return
	}
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	domain := ""
	if d, u, found := strings.Cut(username, `\`); found {
		domain = strings.TrimSpace(d)
		username = strings.TrimSpace(u)
	}

	res.Records = append(res.Records, Record{
		Kind:     KindPlaintext,
		Domain:   domain,
		Username: username,
		Secret:   password,
	})
}

// extractCapturedText takes the text after the last "text returned:" marker.
func (e *Extractor) extractCapturedText(text string, res *Result) {
	segment := text[strings.LastIndex(text, capturedTextMarker)+len(capturedTextMarker):]
	secret, _, _ := strings.Cut(segment, "\n")
	secret = strings.TrimSpace(secret)
	if secret == "" {
		e.warn(res, "captured text: empty value after marker")
		return
	}
	res.Records = append(res.Records, Record{Kind: KindPlaintext, Secret: secret})
}

func (e *Extractor) warn(res *Result, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e.logger.Warn(msg)
	res.Warnings = append(res.Warnings, msg)
}
