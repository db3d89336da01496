// Package output persists scraped article rows: an append-only CSV file, the
// per-ticker JSON file of processed URLs, and spreadsheet exports.
package output

// Column names, sorted. The CSV header uses this order.
var Columns = []string{"article", "class", "industry", "pubdate", "sector", "ticker", "url"}

// Row is one output record.
type Row struct {
	Ticker   string `json:"ticker"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	Article  string `json:"article"`
	URL      string `json:"url"`
	PubDate  string `json:"pubdate"`
	Class    string `json:"class"`
}

// Values returns the row's fields in Columns order.
func (r Row) Values() []string {
	return []string{r.Article, r.Class, r.Industry, r.PubDate, r.Sector, r.Ticker, r.URL}
}

// RowFromValues is the inverse of Values. Missing trailing fields are empty.
func RowFromValues(header, values []string) Row {
	var r Row
	for i, col := range header {
		if i >= len(values) {
			break
		}
		v := values[i]
		switch col {
		case "article":
			r.Article = v
		case "class":
			r.Class = v
		case "industry":
			r.Industry = v
		case "pubdate":
			r.PubDate = v
		case "sector":
			r.Sector = v
		case "ticker":
			r.Ticker = v
		case "url":
			r.URL = v
		}
	}
	return r
}
