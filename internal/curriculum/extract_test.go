package curriculum

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// makeRow places the given cells inside the term's window of a full width
// row, the remaining cells are filled with filler text.
func makeRow(t testing.TB, name string, term int, cells ...string) []string {
	t.Helper()

	layout := DefaultLayout()
	row := make([]string, layout.SecondHalf.Offset+layout.SecondHalf.Width)
	row[0] = name
	for i := 1; i < len(row); i++ {
		row[i] = "x"
	}
	window, ok := layout.Window(term)
	require.True(t, ok)
	copy(row[window.Offset:], cells)
	return row
}

func TestExtractExamples(t *testing.T) {
	table := StaticTable{
		makeRow(t, "Математика", 1, "10", "5", "0", "+", ""),
		makeRow(t, "Физкультура", 1, "0", "", "", "", "+"),
		makeRow(t, "Философия", 1, "3", "0", "0", "", "+"),
	}

	records := Extract(table, 1, DefaultLayout())
	expected := []Record{
		{Name: "Математика", Hours: 15, Control: ControlExam, Term: 1},
		{Name: "Философия", Hours: 3, Control: ControlPass, Term: 1},
	}
	require.Empty(t, cmp.Diff(expected, records))
}

func TestExtractInvalidTerm(t *testing.T) {
	table := StaticTable{
		makeRow(t, "Математика", 1, "10", "5", "0", "+", ""),
		makeRow(t, "История", 2, "10", "5", "0", "+", ""),
	}
	for _, term := range []int{-1, 0, 5, 12} {
		require.Empty(t, Extract(table, term, DefaultLayout()), "term %d", term)
	}
}

func TestExtractShortRows(t *testing.T) {
	full := makeRow(t, "Математика", 2, "10", "5", "0", "+", "")

	table := StaticTable{
		// second half window cut to four cells
		full[:len(full)-1],
		// ends before the window starts
		full[:10],
		{},
		{"   ", "1", "2"},
	}
	require.Empty(t, Extract(table, 2, DefaultLayout()))
	require.Len(t, Extract(StaticTable{full}, 2, DefaultLayout()), 1)
}

func TestExtractZeroHours(t *testing.T) {
	table := StaticTable{
		makeRow(t, "A", 3, "0", "0", "0", "+", ""),
		makeRow(t, "B", 3, "", "", "", "+", "+"),
		makeRow(t, "C", 3, "0", "", "0", "", "+"),
	}
	require.Empty(t, Extract(table, 3, DefaultLayout()))
}

func TestExtractControlPrecedence(t *testing.T) {
	testCases := []struct {
		markers [2]string
		expect  ControlType
	}{
		{markers: [2]string{"+", ""}, expect: ControlExam},
		{markers: [2]string{"+", "+"}, expect: ControlExam},
		{markers: [2]string{"+", "anything"}, expect: ControlExam},
		{markers: [2]string{"", "+"}, expect: ControlPass},
		{markers: [2]string{" ", "+"}, expect: ControlPass},
	}

	for _, test := range testCases {
		table := StaticTable{
			makeRow(t, "Дисциплина", 4, "8", "", "", test.markers[0], test.markers[1]),
		}
		records := Extract(table, 4, DefaultLayout())
		require.Len(t, records, 1)
		require.Equal(t, test.expect, records[0].Control, "markers %q", test.markers)
	}

	noMarkers := StaticTable{makeRow(t, "Дисциплина", 4, "8", "", "", "", "")}
	require.Empty(t, Extract(noMarkers, 4, DefaultLayout()))
}

func TestExtractHoursParsing(t *testing.T) {
	table := StaticTable{
		makeRow(t, "A", 1, "12", "abc", "4", "+", ""),
		makeRow(t, "B", 1, "-3", "", "", "", "+"),
		makeRow(t, " C ", 1, " 7 ", "", "", "", "+"),
	}
	records := Extract(table, 1, DefaultLayout())
	expected := []Record{
		{Name: "A", Hours: 16, Control: ControlExam, Term: 1},
		{Name: "B", Hours: 0, Control: ControlPass, Term: 1},
		{Name: "C", Hours: 7, Control: ControlPass, Term: 1},
	}
	require.Empty(t, cmp.Diff(expected, records))
}

func TestExtractUsesTermWindow(t *testing.T) {
	row := makeRow(t, "Алгебра", 1, "10", "", "", "+", "")
	copy(row[DefaultLayout().SecondHalf.Offset:], []string{"4", "", "", "", "+"})
	table := StaticTable{row}

	for _, term := range []int{1, 3} {
		records := Extract(table, term, DefaultLayout())
		require.Len(t, records, 1)
		require.Equal(t, 10, records[0].Hours)
		require.Equal(t, ControlExam, records[0].Control)
		require.Equal(t, term, records[0].Term)
	}
	for _, term := range []int{2, 4} {
		records := Extract(table, term, DefaultLayout())
		require.Len(t, records, 1)
		require.Equal(t, 4, records[0].Hours)
		require.Equal(t, ControlPass, records[0].Control)
	}
}

func TestExtractCustomLayout(t *testing.T) {
	layout := Layout{
		FirstHalf:  Window{Offset: 1, Width: 5},
		SecondHalf: Window{Offset: 6, Width: 5},
		HourCells:  3,
	}
	require.NoError(t, layout.Validate())

	table := StaticTable{
		{"Экономика", "2", "2", "2", "", "+", "1", "1", "1", "+", ""},
	}
	require.Empty(t, cmp.Diff(
		[]Record{{Name: "Экономика", Hours: 6, Control: ControlPass, Term: 1}},
		Extract(table, 1, layout),
	))
	require.Empty(t, cmp.Diff(
		[]Record{{Name: "Экономика", Hours: 3, Control: ControlExam, Term: 2}},
		Extract(table, 2, layout),
	))
}
