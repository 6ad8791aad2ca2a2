package trajlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pflow-xyz/go-dae/dae"
)

// WriteCSV writes a Solution as CSV: a header row ("time" plus one name
// per state component), then one row per accepted time point. names may
// be nil, in which case components are labeled x0, x1, ...
func WriteCSV(w io.Writer, sol *dae.Solution, names []string) error {
	if len(sol.U) == 0 {
		return fmt.Errorf("trajlog: empty solution")
	}
	n := len(sol.U[0])
	if names == nil {
		names = make([]string, n)
		for i := range names {
			names[i] = "x" + strconv.Itoa(i)
		}
	}
	if len(names) != n {
		return fmt.Errorf("trajlog: %d names for %d state components", len(names), n)
	}

	cw := csv.NewWriter(w)
	record := make([]string, n+1)
	record[0] = "time"
	copy(record[1:], names)
	if err := cw.Write(record); err != nil {
		return err
	}
	for k, u := range sol.U {
		record[0] = strconv.FormatFloat(sol.T[k], 'g', -1, 64)
		for i, v := range u {
			record[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes a Solution to a CSV file.
func ExportCSV(filename string, sol *dae.Solution, names []string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, sol, names); err != nil {
		return err
	}
	return f.Close()
}
