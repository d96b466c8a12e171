package snapshot

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ParsePlantsHTML reads the station list from a saved encyclopedia page. The
// first table with class "wikitable" is used, or the first table if none
// carries the class. Cells are read in column order, the same as the TSV.
func ParsePlantsHTML(r io.Reader, lastUpdated time.Time) (*PlantsReport, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse plants html: %w", err)
	}

	table := doc.Find("table.wikitable").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, fmt.Errorf("plants html has no table")
	}

	var builder *PlantsBuilder
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if builder == nil {
			headers := row.Find("th")
			if headers.Length() == 0 {
				return
			}
			builder = NewPlantsBuilder(headers.Length())
			return
		}

		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			values = append(values, strings.Join(strings.Fields(td.Text()), " "))
		})
		builder.Add(values)
	})

	if builder == nil {
		return nil, fmt.Errorf("plants html table has no header row")
	}
	return builder.Report(lastUpdated), nil
}
