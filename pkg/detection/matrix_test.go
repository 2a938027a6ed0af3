package detection

import (
	"errors"
	"strings"
	"testing"
)

func TestNewMatrix_SizeMismatch(t *testing.T) {
	if _, err := NewMatrix(2, 3, make([]float32, 5)); !errors.Is(err, ErrInputShape) {
		t.Errorf("expected ErrInputShape, got %v", err)
	}
	if _, err := NewMatrix(-1, 3, nil); !errors.Is(err, ErrInputShape) {
		t.Errorf("expected ErrInputShape for negative rows, got %v", err)
	}
}

func TestMatrix_Accessors(t *testing.T) {
	m, err := NewMatrix(2, 3, []float32{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("NewMatrix failed: %v", err)
	}

	row, err := m.Row(1)
	if err != nil {
		t.Fatalf("Row failed: %v", err)
	}
	if len(row) != 3 || row[0] != 4 || row[2] != 6 {
		t.Errorf("Row(1): got %v", row)
	}

	v, err := m.At(0, 2)
	if err != nil || v != 3 {
		t.Errorf("At(0,2): got %v, %v", v, err)
	}

	if _, err := m.Row(2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Row(2): expected ErrOutOfRange, got %v", err)
	}
	if _, err := m.At(0, 3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(0,3): expected ErrOutOfRange, got %v", err)
	}
	if _, err := m.At(-1, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("At(-1,0): expected ErrOutOfRange, got %v", err)
	}
}

func TestMatrix_RowCannotGrowIntoNextRow(t *testing.T) {
	m, _ := NewMatrix(2, 2, []float32{1, 2, 3, 4})
	row, _ := m.Row(0)
	row = append(row, 99)

	next, _ := m.Row(1)
	if next[0] != 3 {
		t.Errorf("append on a row overwrote the next row: %v", next)
	}
}

func TestMatrixFromRows_Ragged(t *testing.T) {
	_, err := MatrixFromRows([][]float32{{1, 2}, {3}})
	if !errors.Is(err, ErrInputShape) {
		t.Errorf("expected ErrInputShape, got %v", err)
	}
}

func TestMatrix_Transpose(t *testing.T) {
	m, _ := NewMatrix(2, 3, []float32{1, 2, 3, 4, 5, 6})
	tr := m.Transpose()

	if tr.Rows() != 3 || tr.Cols() != 2 {
		t.Fatalf("Transpose shape: got %dx%d", tr.Rows(), tr.Cols())
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			a, _ := m.At(i, j)
			b, _ := tr.At(j, i)
			if a != b {
				t.Errorf("(%d,%d): %v != %v", i, j, a, b)
			}
		}
	}
}

func TestConcat(t *testing.T) {
	a, _ := NewMatrix(1, 2, []float32{1, 2})
	b, _ := NewMatrix(2, 2, []float32{3, 4, 5, 6})

	out, err := Concat(a, Matrix{}, b)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if out.Rows() != 3 || out.Cols() != 2 {
		t.Fatalf("Concat shape: got %dx%d", out.Rows(), out.Cols())
	}
	last, _ := out.Row(2)
	if last[0] != 5 || last[1] != 6 {
		t.Errorf("last row: got %v", last)
	}

	c, _ := NewMatrix(1, 3, []float32{1, 2, 3})
	if _, err := Concat(a, c); !errors.Is(err, ErrInputShape) {
		t.Errorf("expected ErrInputShape for mismatched columns, got %v", err)
	}

	empty, err := Concat()
	if err != nil || empty.Rows() != 0 {
		t.Errorf("Concat(): got %dx%d, %v", empty.Rows(), empty.Cols(), err)
	}
}

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels(strings.NewReader("car\n\n  truck \nbus\n"))
	if err != nil {
		t.Fatalf("ParseLabels failed: %v", err)
	}
	if labels.Len() != 3 {
		t.Fatalf("expected 3 labels, got %d: %q", labels.Len(), labels)
	}
	if name, ok := labels.Lookup(1); !ok || name != "truck" {
		t.Errorf("Lookup(1): got %q, %v", name, ok)
	}
	if _, ok := labels.Lookup(3); ok {
		t.Error("Lookup(3) should be out of range")
	}
	if _, ok := labels.Lookup(-1); ok {
		t.Error("Lookup(-1) should be out of range")
	}
}

func TestLoadLabels_Missing(t *testing.T) {
	if _, err := LoadLabels("/nonexistent/coco.names"); err == nil {
		t.Error("expected error for missing label file")
	}
}
