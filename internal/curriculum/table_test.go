package curriculum

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const curriculumFragment = `<tbody class="ant-table-tbody">
  <tr class="ant-table-row">
    <td>  Математический
        анализ </td><td>1</td><td><span>2</span></td>
  </tr>
  <tr class="ant-table-placeholder"></tr>
  <tr><td>Физика&nbsp;<br>и химия</td><td></td><td><script>var x = 1;</script>+</td></tr>
</tbody>`

func TestParseHTMLTableFragment(t *testing.T) {
	table, err := ParseHTMLTable(strings.NewReader(curriculumFragment))
	require.NoError(t, err)

	expected := [][]string{
		{"Математический анализ", "1", "2"},
		{},
		{"Физика и химия", "", "+"},
	}
	require.Empty(t, cmp.Diff(expected, table.Rows()))
}

func TestParseHTMLTableDocument(t *testing.T) {
	doc := `<html><body>
<table><thead><tr><th>Дисциплина</th></tr></thead>
<tbody><tr><td>История</td></tr></tbody></table>
<table><tbody><tr><td>ignored</td></tr></tbody></table>
</body></html>`

	table, err := ParseHTMLTable(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"История"}}, table.Rows())
}

func TestParseHTMLTableMissingBody(t *testing.T) {
	_, err := ParseHTMLTable(strings.NewReader("<div>loading...</div>"))
	require.Error(t, err)
}

func TestExtractFromHTML(t *testing.T) {
	cells := []string{"<td>Программирование</td>"}
	for i := 1; i < 9; i++ {
		cells = append(cells, "<td>-</td>")
	}
	cells = append(cells, "<td>36</td>", "<td>18</td>", "<td>0</td>", "<td>+</td>", "<td></td>")
	markup := "<tbody><tr>" + strings.Join(cells, "") + "</tr></tbody>"

	table, err := ParseHTMLTable(strings.NewReader(markup))
	require.NoError(t, err)

	records := Extract(table, 1, DefaultLayout())
	require.Empty(t, cmp.Diff(
		[]Record{{Name: "Программирование", Hours: 54, Control: ControlExam, Term: 1}},
		records,
	))
}
