// SPDX-License-Identifier: MPL-2.0

// Package render writes credential batches as a terminal table or as
// json, yaml, toml or csv documents.
package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/harvestkit/harvest/pkg/credparse"
)

const (
	// FormatTable is a bordered terminal table.
	FormatTable Format = "table"
	// FormatJSON is an indented JSON array.
	FormatJSON Format = "json"
	// FormatYAML is a YAML sequence.
	FormatYAML Format = "yaml"
	// FormatTOML is a TOML document with a "records" array of tables.
	FormatTOML Format = "toml"
	// FormatCSV is RFC 4180 CSV with a header row.
	FormatCSV Format = "csv"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

var (
	formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatTOML, FormatCSV}

	// Columns are the field names in Record.Tuple order.
	Columns = []string{"kind", "domain", "username", "secret", "host", "sid"}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	hashStyle   = cellStyle.Foreground(lipgloss.Color("#F59E0B"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

type (
	// Format names an output encoding.
	Format string

	// tomlDocument wraps a batch because TOML has no top-level arrays.
	tomlDocument struct {
		Records credparse.Batch `toml:"records"`
	}
)

// Formats returns the supported format names.
func Formats() []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// ParseFormat validates a format name (case-insensitive).
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(formats, f) {
		return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownFormat, s, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Write renders batch to w in format f. An empty batch still produces a
// well-formed document: "[]" for json and yaml, a header for table and csv.
func Write(w io.Writer, f Format, batch credparse.Batch) error {
	if batch == nil {
		batch = credparse.Batch{}
	}

	switch f {
	case FormatTable:
		_, err := fmt.Fprintln(w, Table(batch))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(batch); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(tomlDocument{Records: batch}); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	case FormatCSV:
		return writeCSV(w, batch)
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
}

// Table returns batch as a bordered table. Hash secrets are highlighted.
func Table(batch credparse.Batch) string {
	headers := make([]string, len(Columns))
	for i, c := range Columns {
		headers[i] = strings.ToUpper(c)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && row >= 0 && row < len(batch) && batch[row].Kind == credparse.KindHash:
				return hashStyle
			default:
				return cellStyle
			}
		})
	for _, r := range batch {
		tuple := r.Tuple()
		t.Row(tuple[:]...)
	}
	return t.String()
}

func writeCSV(w io.Writer, batch credparse.Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range batch {
		tuple := r.Tuple()
		if err := cw.Write(tuple[:]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
