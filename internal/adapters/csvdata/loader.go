package csvdata

// loader.go: lectura de CSV de precios.
//
//   - Valida que estén Open, High, Low, Close, Volume.
//   - La primera columna cuyo nombre contiene "date" (sin distinguir mayúsculas)
//     se parsea como fecha y ordena la tabla de forma ascendente.
//   - Las columnas no numéricas se ignoran; las filas con celdas vacías se descartan.

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/predtrader/internal/domain"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02T15:04:05",
}

var errEmpty = errors.New("no rows left after dropping missing values")

// Loader implementa ports.DataLoader sobre archivos CSV locales o URLs http(s).
type Loader struct {
	remote *Fetcher
}

// NewLoader crea un Loader con el Fetcher por defecto.
func NewLoader() *Loader {
	return &Loader{remote: NewFetcher(0)}
}

// NewLoaderWithFetcher crea un Loader que descarga URLs con f.
func NewLoaderWithFetcher(f *Fetcher) *Loader {
	return &Loader{remote: f}
}

// Load lee el CSV en path. Si path es un URL http(s) lo descarga primero.
func (l *Loader) Load(ctx context.Context, path string) (*domain.Table, error) {
	var src io.Reader
	if isRemote(path) {
		body, err := l.remote.Fetch(ctx, path)
		if err != nil {
			return nil, &domain.DataError{Path: path, Err: err}
		}
		src = bytes.NewReader(body)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, &domain.DataError{Path: path, Err: err}
		}
		defer f.Close()
		src = f
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := Parse(src)
	if err != nil {
		var se *domain.SchemaError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &domain.DataError{Path: path, Err: err}
	}

	slog.Debug("csv loaded", "path", path, "rows", tbl.Len(), "columns", len(tbl.Order))
	return tbl, nil
}

// Parse lee un CSV con cabecera desde r.
func Parse(r io.Reader) (*domain.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csvdata.Parse: read: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csvdata.Parse: %w", errEmpty)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows := records[1:]

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing}
	}

	dateIdx := -1
	for i, name := range header {
		if strings.Contains(strings.ToLower(name), "date") {
			dateIdx = i
			break
		}
	}

	// Una fila con alguna celda vacía cuenta como faltante (dropna).
	complete := rows[:0:0]
	for _, row := range rows {
		if len(row) != len(header) || hasEmpty(row) {
			continue
		}
		complete = append(complete, row)
	}

	numeric := numericColumns(header, complete, dateIdx)
	for _, req := range domain.RequiredColumns {
		if !numeric[indexOf(header, req)] {
			return nil, fmt.Errorf("csvdata.Parse: column %q is not numeric", req)
		}
	}

	type parsedRow struct {
		date   time.Time
		values map[int]float64
	}
	parsed := make([]parsedRow, 0, len(complete))
	for n, row := range complete {
		pr := parsedRow{values: make(map[int]float64, len(header))}
		if dateIdx >= 0 {
			d, err := parseDate(row[dateIdx])
			if err != nil {
				return nil, fmt.Errorf("csvdata.Parse: row %d: %w", n+2, err)
			}
			pr.date = d
		}
		for i := range header {
			if !numeric[i] {
				continue
			}
			v, _ := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			pr.values[i] = v
		}
		parsed = append(parsed, pr)
	}

	if len(parsed) == 0 {
		return nil, fmt.Errorf("csvdata.Parse: %w", errEmpty)
	}

	if dateIdx >= 0 {
		sort.SliceStable(parsed, func(a, b int) bool { return parsed[a].date.Before(parsed[b].date) })
	}

	tbl := domain.NewTable()
	if dateIdx >= 0 {
		tbl.Dates = make([]time.Time, len(parsed))
		for i, pr := range parsed {
			tbl.Dates[i] = pr.date
		}
	}
	for i, name := range header {
		if !numeric[i] {
			continue
		}
		col := make([]float64, len(parsed))
		for j, pr := range parsed {
			col[j] = pr.values[i]
		}
		tbl.AddColumn(name, col)
	}
	return tbl, nil
}

// --- helpers internos ---

func missingColumns(header []string) []string {
	var missing []string
	for _, req := range domain.RequiredColumns {
		if indexOf(header, req) < 0 {
			missing = append(missing, req)
		}
	}
	return missing
}

// numericColumns marca las columnas cuyas celdas parsean todas como float finito.
func numericColumns(header []string, rows [][]string, dateIdx int) map[int]bool {
	out := make(map[int]bool, len(header))
	for i := range header {
		if i == dateIdx {
			continue
		}
		ok := true
		for _, row := range rows {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
		}
		out[i] = ok
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func hasEmpty(row []string) bool {
	for _, cell := range row {
		c := strings.TrimSpace(cell)
		if c == "" || strings.EqualFold(c, "nan") || strings.EqualFold(c, "null") {
			return true
		}
	}
	return false
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}
