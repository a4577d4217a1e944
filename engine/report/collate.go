package report

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"
)

type Collated struct {
	Device    string
	Mode      string
	Particles uint32
	Runs      int
	Row
}

type collateKey struct {
	device    string
	mode      string
	particles uint32
}

// Collate averages the runs of every device, mode and particle count. Means
// are averaged; variances are averaged and the deviation derived from them.
func Collate(sets []*Dataset) []Collated {
	groups := make(map[collateKey][]Row)
	for _, ds := range sets {
		key := collateKey{device: ds.Device, mode: ds.Mode, particles: ds.Particles}
		groups[key] = append(groups[key], ds.Rows...)
	}

	out := make([]Collated, 0, len(groups))
	for key, rows := range groups {
		if len(rows) == 0 {
			continue
		}
		out = append(out, Collated{
			Device:    key.device,
			Mode:      key.mode,
			Particles: key.particles,
			Runs:      len(rows),
			Row:       averageRows(rows),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		if out[i].Particles != out[j].Particles {
			return out[i].Particles < out[j].Particles
		}
		return out[i].Mode < out[j].Mode
	})
	return out
}

func averageRows(rows []Row) Row {
	column := func(get func(Row) float64) []float64 {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = get(r)
		}
		return values
	}
	average := func(get func(Row) Stats) Stats {
		mean := stat.Mean(column(func(r Row) float64 { return get(r).Mean }), nil)
		variance := stat.Mean(column(func(r Row) float64 { return get(r).Variance }), nil)
		return Stats{Mean: mean, StdDev: math.Sqrt(variance), Variance: variance}
	}
	return Row{
		Frames:     stat.Mean(column(func(r Row) float64 { return r.Frames }), nil),
		Frame:      average(func(r Row) Stats { return r.Frame }),
		Compute:    average(func(r Row) Stats { return r.Compute }),
		Graphics:   average(func(r Row) Stats { return r.Graphics }),
		Difference: average(func(r Row) Stats { return r.Difference }),
	}
}

// LoadDatasets reads every report in paths. Directories contribute the
// *.csv files directly inside them.
func LoadDatasets(paths []string) ([]*Dataset, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.csv"))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}

	sets := make([]*Dataset, 0, len(files))
	for _, f := range files {
		ds, err := ReadCSVFile(f)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ds)
	}
	return sets, nil
}

func collatedHeader() []string {
	return append([]string{"GPU", "PCount", "Simulation", "Runs"}, header...)
}

func (c Collated) record() []string {
	return append([]string{
		c.Device,
		strconv.FormatUint(uint64(c.Particles), 10),
		c.Mode,
		strconv.Itoa(c.Runs),
	}, c.Row.record()...)
}

func WriteCollatedCSV(w io.Writer, rows []Collated) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(collatedHeader()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderCollated prints the means of the collated rows.
func RenderCollated(w io.Writer, rows []Collated) error {
	table := tablewriter.NewWriter(w)
	table.Header("GPU", "PCount", "Simulation", "Runs", "Frames", "Frame (ms)", "Compute (ms)", "Graphics (ms)", "Difference (ms)")
	for _, r := range rows {
		if err := table.Append([]string{
			r.Device,
			strconv.FormatUint(uint64(r.Particles), 10),
			r.Mode,
			strconv.Itoa(r.Runs),
			strconv.FormatFloat(r.Frames, 'f', 0, 64),
			formatFloat(r.Frame.Mean),
			formatFloat(r.Compute.Mean),
			formatFloat(r.Graphics.Mean),
			formatFloat(r.Difference.Mean),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
