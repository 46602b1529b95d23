package reports

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	line = strings.TrimRight(line, "\r\n") + "\r\n"
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// WriteCSV streams the report as CSV with a commented metadata header.
func WriteCSV(w io.Writer, report Report) error {
	streamer := newCSVStreamer(w)
	meta := []string{
		"# " + report.Title,
		"# Period: " + report.Period.String(),
		"# Generated: " + report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for _, line := range meta {
		if err := streamer.writeComment(line); err != nil {
			return err
		}
	}
	if err := streamer.writeRow(tableHeader(report)); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := streamer.writeRow(tableRow(row)); err != nil {
			return err
		}
	}
	if err := streamer.writeRow(tableRow(report.GrandTotal)); err != nil {
		return err
	}
	return streamer.Close()
}

func tableHeader(report Report) []string {
	header := make([]string, 0, len(report.Columns)+3)
	header = append(header, "Unit", "Records")
	header = append(header, report.Columns...)
	return append(header, "Total")
}

func tableRow(row Row) []string {
	out := make([]string, 0, len(row.Counts)+3)
	out = append(out, row.Name, strconv.Itoa(row.Records))
	for _, c := range row.Counts {
		out = append(out, strconv.Itoa(c))
	}
	return append(out, strconv.Itoa(row.Total))
}
