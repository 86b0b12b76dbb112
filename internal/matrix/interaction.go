// Package matrix holds the sparse user x item interaction structure.
package matrix

import (
	"errors"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/temcen/cinematch/internal/dataset"
)

var ErrEmpty = errors.New("matrix: no ratings")

// Vector is a sparse view into one row or column. The slices alias the
// matrix storage and must not be modified.
type Vector struct {
	Indices []int
	Values  []float64
}

func (v Vector) Len() int { return len(v.Indices) }

// Interaction stores the same ratings in compressed row (users) and
// compressed column (items) form. It is immutable after Build.
type Interaction struct {
	userIDs []int
	itemIDs []int
	userIdx map[int]int
	itemIdx map[int]int

	rowPtr  []int
	rowCols []int
	rowVals []float64

	colPtr  []int
	colRows []int
	colVals []float64

	colNorms []float64
}

// Build indexes users and items by ascending identifier. When a (user, item)
// pair repeats, the last value in input order wins.
func Build(ratings []dataset.Rating) (*Interaction, error) {
	if len(ratings) == 0 {
		return nil, ErrEmpty
	}

	m := &Interaction{}
	m.userIDs, m.userIdx = indexIDs(ratings, func(r dataset.Rating) int { return r.UserID })
	m.itemIDs, m.itemIdx = indexIDs(ratings, func(r dataset.Rating) int { return r.ItemID })

	rows, cols := len(m.userIDs), len(m.itemIDs)

	// Counting sort by row, keeping input order within a row.
	counts := make([]int, rows+1)
	for _, r := range ratings {
		counts[m.userIdx[r.UserID]+1]++
	}
	for u := 0; u < rows; u++ {
		counts[u+1] += counts[u]
	}
	next := slices.Clone(counts[:rows])
	rawCols := make([]int, len(ratings))
	rawVals := make([]float64, len(ratings))
	for _, r := range ratings {
		u := m.userIdx[r.UserID]
		rawCols[next[u]] = m.itemIdx[r.ItemID]
		rawVals[next[u]] = r.Value
		next[u]++
	}

	// Deduplicate within each row. slot[c] is the position of column c in the
	// current row, valid while stamp[c] == u+1.
	stamp := make([]int, cols)
	slot := make([]int, cols)
	m.rowPtr = make([]int, rows+1)
	m.rowCols = make([]int, 0, len(ratings))
	m.rowVals = make([]float64, 0, len(ratings))
	for u := 0; u < rows; u++ {
		start := len(m.rowCols)
		for k := counts[u]; k < counts[u+1]; k++ {
			c := rawCols[k]
			if stamp[c] == u+1 {
				m.rowVals[slot[c]] = rawVals[k]
				continue
			}
			stamp[c] = u + 1
			slot[c] = len(m.rowCols)
			m.rowCols = append(m.rowCols, c)
			m.rowVals = append(m.rowVals, rawVals[k])
		}
		sortRow(m.rowCols[start:], m.rowVals[start:])
		m.rowPtr[u+1] = len(m.rowCols)
	}

	m.buildColumns()
	return m, nil
}

func (m *Interaction) buildColumns() {
	rows, cols := len(m.userIDs), len(m.itemIDs)
	nnz := len(m.rowCols)

	m.colPtr = make([]int, cols+1)
	for _, c := range m.rowCols {
		m.colPtr[c+1]++
	}
	for c := 0; c < cols; c++ {
		m.colPtr[c+1] += m.colPtr[c]
	}
	next := slices.Clone(m.colPtr[:cols])
	m.colRows = make([]int, nnz)
	m.colVals = make([]float64, nnz)
	for u := 0; u < rows; u++ {
		for k := m.rowPtr[u]; k < m.rowPtr[u+1]; k++ {
			c := m.rowCols[k]
			m.colRows[next[c]] = u
			m.colVals[next[c]] = m.rowVals[k]
			next[c]++
		}
	}

	m.colNorms = make([]float64, cols)
	for c := 0; c < cols; c++ {
		m.colNorms[c] = floats.Norm(m.colVals[m.colPtr[c]:m.colPtr[c+1]], 2)
	}
}

// Shape returns (users, items).
func (m *Interaction) Shape() (int, int) { return len(m.userIDs), len(m.itemIDs) }

// NNZ is the number of stored ratings after deduplication.
func (m *Interaction) NNZ() int { return len(m.rowVals) }

// Row returns the items rated by user index u, ascending by item index.
func (m *Interaction) Row(u int) Vector {
	lo, hi := m.rowPtr[u], m.rowPtr[u+1]
	return Vector{Indices: m.rowCols[lo:hi], Values: m.rowVals[lo:hi]}
}

// Column returns the users who rated item index i, ascending by user index.
func (m *Interaction) Column(i int) Vector {
	lo, hi := m.colPtr[i], m.colPtr[i+1]
	return Vector{Indices: m.colRows[lo:hi], Values: m.colVals[lo:hi]}
}

// ColumnNorm is the Euclidean norm of item column i.
func (m *Interaction) ColumnNorm(i int) float64 { return m.colNorms[i] }

func (m *Interaction) ItemIndex(id int) (int, bool) {
	i, ok := m.itemIdx[id]
	return i, ok
}

func (m *Interaction) ItemID(idx int) int { return m.itemIDs[idx] }

func (m *Interaction) UserIndex(id int) (int, bool) {
	u, ok := m.userIdx[id]
	return u, ok
}

func (m *Interaction) UserID(idx int) int { return m.userIDs[idx] }

// ItemIDs returns the item identifiers in index order.
func (m *Interaction) ItemIDs() []int { return slices.Clone(m.itemIDs) }

// MulDense returns A*B for a dense B with one row per item.
func (m *Interaction) MulDense(b mat.Matrix) *mat.Dense {
	rows, cols := m.Shape()
	br, bc := b.Dims()
	if br != cols {
		panic(mat.ErrShape)
	}
	bd := asDense(b)
	out := mat.NewDense(rows, bc, nil)
	for u := 0; u < rows; u++ {
		dst := out.RawRowView(u)
		for k := m.rowPtr[u]; k < m.rowPtr[u+1]; k++ {
			floats.AddScaled(dst, m.rowVals[k], bd.RawRowView(m.rowCols[k]))
		}
	}
	return out
}

// MulTransDense returns Aᵀ*B for a dense B with one row per user.
func (m *Interaction) MulTransDense(b mat.Matrix) *mat.Dense {
	rows, cols := m.Shape()
	br, bc := b.Dims()
	if br != rows {
		panic(mat.ErrShape)
	}
	bd := asDense(b)
	out := mat.NewDense(cols, bc, nil)
	for c := 0; c < cols; c++ {
		dst := out.RawRowView(c)
		for k := m.colPtr[c]; k < m.colPtr[c+1]; k++ {
			floats.AddScaled(dst, m.colVals[k], bd.RawRowView(m.colRows[k]))
		}
	}
	return out
}

func asDense(b mat.Matrix) *mat.Dense {
	if d, ok := b.(*mat.Dense); ok {
		return d
	}
	return mat.DenseCopyOf(b)
}

func indexIDs(ratings []dataset.Rating, key func(dataset.Rating) int) ([]int, map[int]int) {
	seen := make(map[int]struct{})
	var ids []int
	for _, r := range ratings {
		id := key(r)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	idx := make(map[int]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	return ids, idx
}

func sortRow(cols []int, vals []float64) {
	sort.Sort(rowEntries{cols: cols, vals: vals})
}

type rowEntries struct {
	cols []int
	vals []float64
}

func (r rowEntries) Len() int           { return len(r.cols) }
func (r rowEntries) Less(i, j int) bool { return r.cols[i] < r.cols[j] }
func (r rowEntries) Swap(i, j int) {
	r.cols[i], r.cols[j] = r.cols[j], r.cols[i]
	r.vals[i], r.vals[j] = r.vals[j], r.vals[i]
}
