package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// A report is a small CSV table:
//
//	GPU,<device>
//	Simulation,<mode>
//	Parameters,<particles>,duration,<duration>,seed,<seed>,run,<run id>
//	Frames,Frame Mean,Frame StdDev,Frame Variance,Compute Mean,...
//	<one row per run>
var header = []string{
	"Frames",
	"Frame Mean", "Frame StdDev", "Frame Variance",
	"Compute Mean", "Compute StdDev", "Compute Variance",
	"Graphics Mean", "Graphics StdDev", "Graphics Variance",
	"Difference Mean", "Difference StdDev", "Difference Variance",
}

type Row struct {
	Frames     float64
	Frame      Stats
	Compute    Stats
	Graphics   Stats
	Difference Stats
}

func (r Row) record() []string {
	out := []string{formatFloat(r.Frames)}
	for _, s := range []Stats{r.Frame, r.Compute, r.Graphics, r.Difference} {
		out = append(out, formatFloat(s.Mean), formatFloat(s.StdDev), formatFloat(s.Variance))
	}
	return out
}

func parseRow(record []string) (Row, error) {
	if len(record) < len(header) {
		return Row{}, fmt.Errorf("data row has %d columns, expected %d", len(record), len(header))
	}
	values := make([]float64, len(header))
	for i := range values {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return Row{}, fmt.Errorf("column %q: %w", header[i], err)
		}
		values[i] = v
	}
	stats := func(i int) Stats {
		return Stats{Mean: values[i], StdDev: values[i+1], Variance: values[i+2]}
	}
	return Row{
		Frames:     values[0],
		Frame:      stats(1),
		Compute:    stats(4),
		Graphics:   stats(7),
		Difference: stats(10),
	}, nil
}

// Dataset is a parsed report.
type Dataset struct {
	Device     string
	Mode       string
	Particles  uint32
	Parameters []string
	Rows       []Row
}

func WriteCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		{"GPU", s.Run.Device},
		{"Simulation", s.Run.Mode},
		{
			"Parameters", strconv.FormatUint(uint64(s.Run.Particles), 10),
			"duration", s.Run.Duration.String(),
			"seed", strconv.FormatUint(s.Run.Seed, 10),
			"run", s.RunID,
		},
		header,
		s.Row().record(),
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func WriteCSVFile(path string, s Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	if len(records) < 5 {
		return nil, fmt.Errorf("report has %d rows, expected at least 5", len(records))
	}
	if len(records[0]) < 2 || len(records[1]) < 2 || len(records[2]) < 2 {
		return nil, fmt.Errorf("report preamble is incomplete")
	}
	particles, err := strconv.ParseUint(records[2][1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("particle count: %w", err)
	}

	ds := &Dataset{
		Device:     records[0][1],
		Mode:       records[1][1],
		Particles:  uint32(particles),
		Parameters: records[2][1:],
	}
	for i, record := range records[4:] {
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+5, err)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}
