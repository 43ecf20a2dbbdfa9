package curriculum

import "fmt"

// Window is a contiguous range of cells in a curriculum row.
type Window struct {
	Offset int `json:"offset"`
	Width  int `json:"width"`
}

func (w Window) slice(cells []string) []string {
	if w.Offset >= len(cells) {
		return nil
	}
	end := w.Offset + w.Width
	if end > len(cells) {
		end = len(cells)
	}
	return cells[w.Offset:end]
}

// Layout describes where the per-term cells live in a row of the portal's
// curriculum table. Each row carries two half-year sub-tables: odd terms read
// FirstHalf, even terms read SecondHalf. Inside a window the first HourCells
// cells are hours and the next two are the exam and pass markers.
type Layout struct {
	FirstHalf  Window `json:"first_half"`
	SecondHalf Window `json:"second_half"`
	HourCells  int    `json:"hour_cells"`
}

const markerCells = 2

func DefaultLayout() Layout {
	return Layout{
		FirstHalf:  Window{Offset: 9, Width: 5},
		SecondHalf: Window{Offset: 14, Width: 5},
		HourCells:  3,
	}
}

// Window returns the cell window for a term, false when the term has none.
func (l Layout) Window(term int) (Window, bool) {
	switch term {
	case 1, 3:
		return l.FirstHalf, true
	case 2, 4:
		return l.SecondHalf, true
	}
	return Window{}, false
}

func (l Layout) Validate() error {
	if l.HourCells <= 0 {
		return fmt.Errorf("layout: hour_cells must be positive")
	}
	for name, w := range map[string]Window{"first_half": l.FirstHalf, "second_half": l.SecondHalf} {
		if w.Offset < 1 {
			return fmt.Errorf("layout: %s offset must leave room for the name cell", name)
		}
		if w.Width != l.HourCells+markerCells {
			return fmt.Errorf("layout: %s width must be %d", name, l.HourCells+markerCells)
		}
	}
	first, second := l.FirstHalf, l.SecondHalf
	if first.Offset < second.Offset+second.Width && second.Offset < first.Offset+first.Width {
		return fmt.Errorf("layout: first_half and second_half overlap")
	}
	return nil
}
