package providers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/shared"
)

var (
	ErrShape = errors.New("matrix shape mismatch")
)

// Matrix is a dense row-major matrix.
type Matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data"`
}

func NewMatrix(rows, cols int, data []float64) (Matrix, error) {
	m := Matrix{Rows: rows, Cols: cols, Data: data}
	return m, m.Validate()
}

func Identity(n int) Matrix {
	m := Matrix{Rows: n, Cols: n, Data: make([]float64, n*n)}
	for i := range n {
		m.Data[i*n+i] = 1
	}
	return m
}

func (m Matrix) Validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrShape, m.Rows, m.Cols)
	}
	if len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("%w: %dx%d with %d values", ErrShape, m.Rows, m.Cols, len(m.Data))
	}
	return nil
}

func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

func (m Matrix) Clone() Matrix {
	m.Data = slices.Clone(m.Data)
	return m
}

func (m Matrix) String() string {
	var sb strings.Builder
	for i := range m.Rows {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteByte('[')
		for j := range m.Cols {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// Multiply computes a x b, checking ctx between rows.
func Multiply(ctx context.Context, a, b Matrix) (Matrix, error) {
	if err := a.Validate(); err != nil {
		return Matrix{}, err
	}
	if err := b.Validate(); err != nil {
		return Matrix{}, err
	}
	if a.Cols != b.Rows {
		return Matrix{}, fmt.Errorf("%w: %dx%d by %dx%d", ErrShape, a.Rows, a.Cols, b.Rows, b.Cols)
	}

	out := Matrix{Rows: a.Rows, Cols: b.Cols, Data: make([]float64, a.Rows*b.Cols)}
	for i := range a.Rows {
		if err := rop.ContextErr(ctx); err != nil {
			return Matrix{}, err
		}
		for k := range a.Cols {
			aik := a.At(i, k)
			for j := range b.Cols {
				out.Data[i*out.Cols+j] += aik * b.At(k, j)
			}
		}
	}

	return out, nil
}

// Inference multiplies requests by a shared model. Installed models are never
// mutated, so a request copies the model header under the lock and multiplies
// outside it.
type Inference struct {
	model *shared.State[Matrix]
}

func NewInference(model Matrix) (*Inference, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Inference{model: shared.New(model.Clone())}, nil
}

func (inf *Inference) SwapModel(model Matrix) error {
	if err := model.Validate(); err != nil {
		return err
	}
	model = model.Clone()
	inf.model.Do(func(m *Matrix) { *m = model })
	return nil
}

func (inf *Inference) Model() Matrix {
	return inf.model.Snapshot(Matrix.Clone)
}

func (inf *Inference) Infer(ctx context.Context, input Matrix) (Matrix, error) {
	model := shared.Access(inf.model, func(m *Matrix) Matrix { return *m })
	return Multiply(ctx, input, model)
}
