package vm

// A Row is one displayed line of a table.
type Row []string

// A Table is a display snapshot of one of the hierarchy tables. Every cell is
// already rendered as text.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NumRows returns the number of rows in the table.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// Cell returns the cell at the given row and column, or an empty string if it
// does not exist.
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}

	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}

	return r[col]
}
