// Package output renders CLI results as a text table, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Table is the text rendering of a result.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t *Table) Add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

type Writer struct {
	w      io.Writer
	format Format
}

func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

func (w *Writer) Format() Format {
	return w.format
}

// Render writes v in the structured formats and table in text format.
func (w *Writer) Render(v any, table Table) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return writeYAML(w.w, v)
	default:
		return writeTable(w.w, table)
	}
}

// Message writes a one-line result. Structured formats wrap it as
// {key: msg}.
func (w *Writer) Message(key, msg string) error {
	if w.format == FormatText {
		_, err := fmt.Fprintln(w.w, msg)
		return err
	}
	return w.Render(map[string]string{key: msg}, Table{})
}

func writeTable(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Header) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// writeYAML goes through the JSON encoding so json tags and custom
// marshalers apply, then re-emits the document in block style. Decoding
// into a yaml.Node keeps the field order.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
