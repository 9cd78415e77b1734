package lightcurve

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadTable loads a whitespace-delimited light curve table. The first
// non-empty line is a header naming the columns; MJD, uJy, and duJy are
// required, chi/N and flag are read when present, and any other columns
// are ignored. The returned curve is sorted by MJD.
func ReadTable(path string) (*LightCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var header []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		header = strings.Fields(line)
		break
	}
	if header == nil {
		return nil, fmt.Errorf("%s: empty light curve table", path)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{ColMJD, ColFlux, ColFluxErr} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, required)
		}
	}

	lc := &LightCurve{}
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < len(header) {
			return nil, fmt.Errorf("%s:%d: expected %d columns, got %d", path, lineNum, len(header), len(fields))
		}

		var m Measurement
		if m.MJD, err = parseFloatField(fields[cols[ColMJD]]); err != nil {
			return nil, fmt.Errorf("%s:%d: bad MJD: %w", path, lineNum, err)
		}
		if m.FluxUJy, err = parseFloatField(fields[cols[ColFlux]]); err != nil {
			return nil, fmt.Errorf("%s:%d: bad uJy: %w", path, lineNum, err)
		}
		if m.FluxErr, err = parseFloatField(fields[cols[ColFluxErr]]); err != nil {
			return nil, fmt.Errorf("%s:%d: bad duJy: %w", path, lineNum, err)
		}
		m.Chi2 = math.NaN()
		if idx, ok := cols[ColChi2]; ok {
			if m.Chi2, err = parseFloatField(fields[idx]); err != nil {
				return nil, fmt.Errorf("%s:%d: bad chi/N: %w", path, lineNum, err)
			}
		}
		if idx, ok := cols[ColFlag]; ok {
			// Base 0 accepts both plain integers and 0x-prefixed hex.
			v, err := strconv.ParseUint(fields[idx], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: bad flag: %w", path, lineNum, err)
			}
			m.Flag = Flag(v)
		}
		lc.Points = append(lc.Points, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lc.SortByMJD()
	return lc, nil
}

// WriteTable writes a light curve as a whitespace-delimited table with
// the flag column in hexadecimal. It refuses to clobber an existing
// file unless overwrite is set, and writes through a temporary file so
// a failed unit never leaves a partial table behind.
func WriteTable(path string, lc *LightCurve, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: already exists (use overwrite to replace)", path)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s %s %s %s %s\n", ColMJD, ColFlux, ColFluxErr, ColChi2, ColFlag)
	for i := range lc.Points {
		m := &lc.Points[i]
		fmt.Fprintf(w, "%s %s %s %s %#x\n",
			formatFloatField(m.MJD),
			formatFloatField(m.FluxUJy),
			formatFloatField(m.FluxErr),
			formatFloatField(m.Chi2),
			uint32(m.Flag))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// WriteAveragedTable writes the binned output of one averaging pass,
// one row per bin with MJD at the bin center.
func WriteAveragedTable(path string, avg *AveragedLightCurve, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: already exists (use overwrite to replace)", path)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s %s %s stdev x2 Nclip Ngood %s\n", ColMJD, ColFlux, ColFluxErr, ColFlag)
	for _, b := range avg.Bins {
		fmt.Fprintf(w, "%s %s %s %s %s %d %d %#x\n",
			formatFloatField(b.MJDCenter),
			formatFloatField(b.FluxUJy),
			formatFloatField(b.FluxErr),
			formatFloatField(b.Stdev),
			formatFloatField(b.X2),
			b.Nclip,
			b.Ngood,
			uint32(b.Flag))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func parseFloatField(s string) (float64, error) {
	// ATLAS forced photometry tables use NaN for missing values.
	if strings.EqualFold(s, "nan") || s == "-" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// formatFloatField renders the shortest decimal string that parses
// back to the same float64, so save/load round-trips are exact.
func formatFloatField(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
