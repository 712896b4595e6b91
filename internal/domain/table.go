package domain

import (
	"strconv"
	"time"
)

// Nombres de columna que usa el pipeline.
const (
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
	ColSMA    = "SMA"
	ColEMA    = "EMA"
)

// RequiredColumns son las columnas que toda fuente debe traer.
var RequiredColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// FeatureColumns es el orden de las features que ve el predictor.
var FeatureColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume, ColSMA, ColEMA}

// Table es una tabla de precios ordenada cronológicamente, sin valores faltantes.
// Dates puede estar vacío si la fuente no tiene columna de fecha.
type Table struct {
	Dates   []time.Time
	Columns map[string][]float64
	Order   []string // orden original de las columnas numéricas
}

// NewTable crea una tabla vacía.
func NewTable() *Table {
	return &Table{Columns: make(map[string][]float64)}
}

// Len devuelve el número de filas.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	if len(t.Order) > 0 {
		return len(t.Columns[t.Order[0]])
	}
	return len(t.Dates)
}

// Column devuelve la columna pedida y si existe.
func (t *Table) Column(name string) ([]float64, bool) {
	col, ok := t.Columns[name]
	return col, ok
}

// AddColumn añade (o reemplaza) una columna manteniendo el orden de inserción.
func (t *Table) AddColumn(name string, values []float64) {
	if _, exists := t.Columns[name]; !exists {
		t.Order = append(t.Order, name)
	}
	t.Columns[name] = values
}

// Slice devuelve una copia de las filas [from, to).
func (t *Table) Slice(from, to int) *Table {
	out := NewTable()
	if len(t.Dates) > 0 {
		out.Dates = append([]time.Time(nil), t.Dates[from:to]...)
	}
	for _, name := range t.Order {
		out.AddColumn(name, append([]float64(nil), t.Columns[name][from:to]...))
	}
	return out
}

// DateStrings formatea las fechas como YYYY-MM-DD.
// Sin columna de fecha, devuelve el índice de fila como etiqueta.
func (t *Table) DateStrings() []string {
	if len(t.Dates) == 0 {
		out := make([]string, t.Len())
		for i := range out {
			out[i] = strconv.Itoa(i)
		}
		return out
	}
	out := make([]string, len(t.Dates))
	for i, d := range t.Dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}
