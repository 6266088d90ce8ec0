// SPDX-License-Identifier: MPL-2.0

package psscript

import (
	"io"

	"github.com/charmbracelet/log"
)

type (
	// options holds configuration shared by ParseCatalog and Minimize.
	options struct {
		logger     *log.Logger
		normalizer *Normalizer
		keywords   KeywordSet
	}

	// Option configures catalog parsing and minimization.
	Option func(*options)
)

// defaultOptions returns options with a discarding logger and the default
// normalizer.
func defaultOptions() options {
	return options{
		logger:     log.New(io.Discard),
		normalizer: defaultNormalizer,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger routes diagnostics (duplicate definitions, unresolved names,
// missing PSReflect boilerplate) to logger. A nil logger is ignored.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNormalizer replaces the normalizer applied to every function body and to
// the PSReflect boilerplate. A nil normalizer is ignored.
func WithNormalizer(n *Normalizer) Option {
	return func(o *options) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// WithKeywords sets the keyword substitutions applied to the assembled script.
// The set is copied; later changes by the caller have no effect.
func WithKeywords(keywords KeywordSet) Option {
	return func(o *options) {
		o.keywords = keywords.Clone()
	}
}
