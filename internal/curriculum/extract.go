package curriculum

import (
	"math"
	"strconv"
	"strings"
)

type discipline struct {
	name     string
	hours    []string
	controls []string
}

func (d discipline) hasHours() bool {
	for _, h := range d.hours {
		if h != "" && h != "0" {
			return true
		}
	}
	return false
}

func (d discipline) controlType() ControlType {
	if d.controls[0] != "" {
		return ControlExam
	}
	if d.controls[1] != "" {
		return ControlPass
	}
	return ControlNone
}

func (d discipline) totalHours() int {
	total := 0
	for _, h := range d.hours {
		n := parseHours(h)
		if total > math.MaxInt-n {
			return math.MaxInt
		}
		total += n
	}
	return total
}

// parseHours reads a cell made only of ascii digits, anything else counts as
// zero.
func parseHours(cell string) int {
	if cell == "" {
		return 0
	}
	for _, c := range cell {
		if c < '0' || c > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0
	}
	return n
}

// Extract returns one record per qualifying row of the table, in row order.
// Records carry the term but not the user key.
func Extract(table Table, term int, layout Layout) []Record {
	window, ok := layout.Window(term)
	if !ok {
		return nil
	}

	var records []Record
	for _, row := range table.Rows() {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			continue
		}

		cells := window.slice(row)
		if len(cells) < window.Width || len(cells) < layout.HourCells+markerCells {
			continue
		}
		trimmed := make([]string, len(cells))
		for i, c := range cells {
			trimmed[i] = strings.TrimSpace(c)
		}

		d := discipline{
			name:     name,
			hours:    trimmed[:layout.HourCells],
			controls: trimmed[layout.HourCells : layout.HourCells+markerCells],
		}
		control := d.controlType()
		if !d.hasHours() || control == ControlNone {
			continue
		}

		records = append(records, Record{
			Name:    d.name,
			Hours:   d.totalHours(),
			Control: control,
			Term:    term,
		})
	}
	return records
}
