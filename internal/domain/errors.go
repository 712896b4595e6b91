package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores centinela. Usar errors.Is para clasificar un fallo sin depender del tipo concreto.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation error")
	ErrSchema       = errors.New("schema error")
	ErrData         = errors.New("data error")
	ErrPredictor    = errors.New("predictor error")
)

// InvalidInputError indica una violación de precondición en el motor de simulación
// (longitudes distintas, balance negativo, series vacías).
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return "invalid input: " + e.Reason }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ValidationError indica un parámetro de experimento mal formado.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}
func (e *ValidationError) Unwrap() error { return ErrValidation }

// SchemaError indica que la tabla de origen no tiene las columnas requeridas.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return "CSV is missing required columns: " + strings.Join(e.Missing, ", ")
}
func (e *SchemaError) Unwrap() error { return ErrSchema }

// DataError indica una fuente ilegible o vacía después de limpiar.
type DataError struct {
	Path string
	Err  error
}

func (e *DataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("data %q: unusable", e.Path)
	}
	return fmt.Sprintf("data %q: %v", e.Path, e.Err)
}

// Unwrap expone tanto ErrData como la causa original.
func (e *DataError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrData}
	}
	return []error{ErrData, e.Err}
}

// PredictorError envuelve un fallo de fit/predict del modelo, sin reintentos.
type PredictorError struct {
	Op  string // "fit" | "predict"
	Err error
}

func (e *PredictorError) Error() string { return fmt.Sprintf("predictor %s: %v", e.Op, e.Err) }

func (e *PredictorError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPredictor}
	}
	return []error{ErrPredictor, e.Err}
}
