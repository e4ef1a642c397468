package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Tabular — данные команды, которые выводятся таблицей или JSON.
// В JSON-режиме сериализуется само значение.
type Tabular interface {
	Header() []string
	Rows() [][]string
}

// Output — вывод команд: данные в stdout, сообщения в stderr.
type Output struct {
	jsonMode bool
	stdout   io.Writer
	stderr   io.Writer
}

// NewOutput создаёт Output для терминала.
func NewOutput(jsonMode bool) *Output {
	return newOutputTo(jsonMode, os.Stdout, os.Stderr)
}

func newOutputTo(jsonMode bool, stdout, stderr io.Writer) *Output {
	return &Output{jsonMode: jsonMode, stdout: stdout, stderr: stderr}
}

// Render выводит данные в выбранном формате.
func (o *Output) Render(data Tabular) error {
	if o.jsonMode {
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	tw := tabwriter.NewWriter(o.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(data.Header(), "\t"))
	for _, row := range data.Rows() {
		for i, cell := range row {
			if cell == "" {
				row[i] = "-"
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Text выводит текст как есть.
func (o *Output) Text(s string) {
	fmt.Fprint(o.stdout, s)
}

// Notice выводит сообщение для человека в stderr; в JSON-режиме не мешает данным.
func (o *Output) Notice(format string, args ...any) {
	fmt.Fprintf(o.stderr, format+"\n", args...)
}
