package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/flockwatch/flockwatch/internal/scope"
)

func sampleReport() Report {
	return Report{
		Type:    scope.ReportRegion,
		Title:   Title(scope.ReportRegion),
		Period:  Period{Year: 2024, Month: 3},
		Columns: attendanceColumns,
		Rows: []Row{
			{UnitID: 10, Name: "Ikeja, North", Records: 2, Counts: []int{5, 7, 0, 0, 1, 1}, Total: 14},
		},
		GrandTotal:  Row{Name: "Total", Records: 2, Counts: []int{5, 7, 0, 0, 1, 1}, Total: 14},
		GeneratedAt: time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "# Region Attendance", lines[0])
	assert.Equal(t, "# Period: 2024-03", lines[1])
	assert.Equal(t, "# Generated: 2024-04-02T08:00:00Z", lines[2])
	assert.Equal(t, "Unit,Records,Men,Women,Youth Boys,Youth Girls,Children Boys,Children Girls,Total", lines[3])
	assert.Equal(t, `"Ikeja, North",2,5,7,0,0,1,1,14`, lines[4])
	assert.Equal(t, "Total,2,5,7,0,0,1,1,14", lines[5])
}

func TestCSVStreamerFlushesPeriodically(t *testing.T) {
	var buf bytes.Buffer
	s := newCSVStreamer(&buf)
	s.flushEvery = 2
	require.NoError(t, s.writeRow([]string{"a"}))
	assert.Zero(t, buf.Len())
	require.NoError(t, s.writeRow([]string{"b"}))
	assert.Equal(t, "a\r\nb\r\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Unit", rows[0][0])
	assert.Equal(t, "Total", rows[0][8])
	assert.Equal(t, "Ikeja, North", rows[1][0])
	assert.Equal(t, "14", rows[2][8])
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7"), nil
}

func TestRenderPDF(t *testing.T) {
	r := &fakeRenderer{}
	data, err := RenderPDF(context.Background(), r, sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.Contains(t, r.html, "<h1>Region Attendance</h1>")
	assert.Contains(t, r.html, "Period 2024-03")
	assert.Contains(t, r.html, "<td>Ikeja, North</td>")

	_, err = RenderPDF(context.Background(), &fakeRenderer{err: errors.New("boom")}, sampleReport())
	require.Error(t, err)

	_, err = RenderPDF(context.Background(), nil, sampleReport())
	require.Error(t, err)
}
