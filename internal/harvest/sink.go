// SPDX-License-Identifier: MPL-2.0

package harvest

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/harvestkit/harvest/internal/render"
	"github.com/harvestkit/harvest/pkg/credparse"
)

var sourceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))

// RenderSink writes each stored batch to a terminal or file in a fixed
// format. Table output is titled with the capture source; machine formats
// are written bare so each batch is a complete document.
type RenderSink struct {
	mu     sync.Mutex
	w      io.Writer
	format render.Format
}

// NewRenderSink creates a sink writing to w.
func NewRenderSink(w io.Writer, format render.Format) *RenderSink {
	return &RenderSink{w: w, format: format}
}

// Store implements credparse.Sink.
func (s *RenderSink) Store(ctx context.Context, source string, batch credparse.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == render.FormatTable {
		if _, err := fmt.Fprintln(s.w, sourceStyle.Render(source)); err != nil {
			return err
		}
	}
	return render.Write(s.w, s.format, batch)
}
