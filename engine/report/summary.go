package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

// Stats of a series of timings in milliseconds.
type Stats struct {
	Mean     float64
	StdDev   float64
	Variance float64
}

func describe(x []float64) Stats {
	switch len(x) {
	case 0:
		return Stats{}
	case 1:
		return Stats{Mean: x[0]}
	}
	mean, variance := stat.MeanVariance(x, nil)
	return Stats{Mean: mean, StdDev: math.Sqrt(variance), Variance: variance}
}

// Summary is the result of one run.
type Summary struct {
	RunID    string
	Run      Run
	Frames   uint64
	Failures int
	Wall     time.Duration
	Frame    Stats
	Compute  Stats
	Graphics Stats
	// Difference is graphics time minus compute time, per frame.
	Difference Stats
}

// Row is the data part of a report.
func (s Summary) Row() Row {
	return Row{
		Frames:     float64(s.Frames),
		Frame:      s.Frame,
		Compute:    s.Compute,
		Graphics:   s.Graphics,
		Difference: s.Difference,
	}
}

// RenderSummary prints the end of run table.
func RenderSummary(w io.Writer, s Summary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Timing (ms)", "Mean", "StdDev", "Variance")
	rows := [][]string{
		statsRow("frame", s.Frame),
		statsRow("compute", s.Compute),
		statsRow("graphics", s.Graphics),
		statsRow("difference", s.Difference),
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "run %s: %s, %s mode, %d particles, %d frames (%d failed) in %s\n",
		s.RunID, s.Run.Device, s.Run.Mode, s.Run.Particles, s.Frames, s.Failures, s.Wall.Round(time.Millisecond))
	return err
}

func statsRow(name string, s Stats) []string {
	return []string{name, formatFloat(s.Mean), formatFloat(s.StdDev), formatFloat(s.Variance)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
