package detection

import "fmt"

// Matrix is a dense row-major float32 matrix holding one candidate
// detection per row.
type Matrix struct {
	rows, cols int
	data       []float32
}

// NewMatrix wraps data as a rows x cols matrix. The slice is not copied.
func NewMatrix(rows, cols int, data []float32) (Matrix, error) {
	if rows < 0 || cols < 0 {
		return Matrix{}, fmt.Errorf("%w: negative dimensions %dx%d", ErrInputShape, rows, cols)
	}
	if len(data) != rows*cols {
		return Matrix{}, fmt.Errorf("%w: %d values for %dx%d matrix", ErrInputShape, len(data), rows, cols)
	}
	return Matrix{rows: rows, cols: cols, data: data}, nil
}

// MatrixFromRows builds a matrix from equally sized rows.
func MatrixFromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInputShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return NewMatrix(len(rows), cols, data)
}

// Rows returns the number of candidate detections.
func (m Matrix) Rows() int { return m.rows }

// Cols returns the number of values per candidate.
func (m Matrix) Cols() int { return m.cols }

// Row returns row i as a slice sharing the matrix storage.
func (m Matrix) Row(i int) ([]float32, error) {
	if i < 0 || i >= m.rows {
		return nil, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, i, m.rows)
	}
	start := i * m.cols
	return m.data[start : start+m.cols : start+m.cols], nil
}

// At returns the value at row i, column j.
func (m Matrix) At(i, j int) (float32, error) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return 0, fmt.Errorf("%w: (%d,%d) of %dx%d", ErrOutOfRange, i, j, m.rows, m.cols)
	}
	return m.data[i*m.cols+j], nil
}

// Transpose returns a new matrix with rows and columns swapped. Networks
// that emit channel-major output (one row per field, one column per
// candidate) are transposed before decoding.
func (m Matrix) Transpose() Matrix {
	out := make([]float32, len(m.data))
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	return Matrix{rows: m.cols, cols: m.rows, data: out}
}

// Concat stacks matrices vertically. Empty matrices are skipped; all others
// must share a column count.
func Concat(ms ...Matrix) (Matrix, error) {
	cols, rows := -1, 0
	for _, m := range ms {
		if m.rows == 0 {
			continue
		}
		if cols >= 0 && m.cols != cols {
			return Matrix{}, fmt.Errorf("%w: cannot stack %d and %d columns", ErrInputShape, cols, m.cols)
		}
		cols = m.cols
		rows += m.rows
	}
	if cols < 0 {
		return Matrix{}, nil
	}

	data := make([]float32, 0, rows*cols)
	for _, m := range ms {
		if m.rows > 0 {
			data = append(data, m.data...)
		}
	}
	return Matrix{rows: rows, cols: cols, data: data}, nil
}
