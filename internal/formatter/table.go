package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"cybernews/internal/models"
)

// MaxCellWidth caps a cell's display width in listings.
const MaxCellWidth = 60

// Table renders a pipe table padded by display width, so wide characters
// in titles keep columns aligned.
func Table(header []string, rows [][]string) string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, header)

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = runewidth.Truncate(strings.TrimSpace(c), MaxCellWidth, "...")
		}

		table = append(table, cells)
	}

	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	colWidths := make([]int, colCount)

	for _, row := range table {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	lines := make([]string, 0, len(table)+1)

	for i, row := range table {
		lines = append(lines, renderRow(row, colWidths))

		if i == 0 {
			sep := make([]string, colCount)
			for j, w := range colWidths {
				sep[j] = strings.Repeat("-", w)
			}

			lines = append(lines, renderRow(sep, colWidths))
		}
	}

	return strings.Join(lines, "\n")
}

func renderRow(row []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, w := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if pad := w - runewidth.StringWidth(content); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// AlertTable lists alert records.
func AlertTable(records []models.AlertRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.ID, string(r.Severity), r.SourceName, r.Title, r.LastError})
	}

	return Table([]string{"ID", "Severity", "Source", "Title", "Error"}, rows)
}

// DigestTable lists ranked digest items.
func DigestTable(d models.Digest) string {
	rows := make([][]string, 0, len(d.Items))

	for _, item := range d.Items {
		notified := ""
		if item.AlreadyNotified {
			notified = "yes"
		}

		rows = append(rows, []string{
			string(item.Article.Severity),
			formatScore(item.Article.SeverityScore),
			item.Article.SourceName,
			PublishedLabel(item.Article.NormalizedArticle),
			item.Article.Title,
			notified,
		})
	}

	return Table([]string{"Severity", "Score", "Source", "Published", "Title", "Notified"}, rows)
}
