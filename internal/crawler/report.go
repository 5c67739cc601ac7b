package crawler

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vianu/fraudcrawler/pkg/zyte"
)

// Query describes the search that produced a report.
type Query struct {
	SearchTerm string `json:"search_term"`
	NumResults int    `json:"num_results"`
	Location   string `json:"location"`
}

// Item is one recovered listing in a report, lifted from the opaque
// extraction record.
type Item struct {
	OfferRoot       string   `json:"offerRoot"`
	Status          string   `json:"status"`
	URL             string   `json:"url"`
	Price           string   `json:"price"`
	Title           string   `json:"title"`
	FullDescription string   `json:"fullDescription"`
	Images          []string `json:"images"`
}

// Report is the persisted output of one crawl run.
type Report struct {
	RunID         string `json:"run_id"`
	Query         Query  `json:"query"`
	RecoveredURLs []Item `json:"recovered_urls"`
}

// BuildReport assembles a report from filtered records, assigning a fresh
// run ID. Product fields the API did not extract default to "N/A".
func BuildReport(query Query, records []zyte.Record) *Report {
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		items = append(items, itemFromRecord(rec))
	}
	return &Report{
		RunID:         uuid.NewString(),
		Query:         query,
		RecoveredURLs: items,
	}
}

func itemFromRecord(rec zyte.Record) Item {
	item := Item{
		OfferRoot:       "EBAY",
		Status:          "Initial",
		URL:             rec.URL(),
		Price:           "N/A",
		Title:           "",
		FullDescription: "N/A",
	}

	product, ok := rec["product"].(map[string]any)
	if !ok {
		return item
	}
	if v, ok := product["price"].(string); ok && v != "" {
		item.Price = v
	}
	if v, ok := product["name"].(string); ok {
		item.Title = v
	}
	if v, ok := product["description"].(string); ok && v != "" {
		item.FullDescription = v
	}
	if imgs, ok := product["images"].([]any); ok {
		for _, img := range imgs {
			switch v := img.(type) {
			case string:
				item.Images = append(item.Images, v)
			case map[string]any:
				if u, ok := v["url"].(string); ok {
					item.Images = append(item.Images, u)
				}
			}
		}
	}
	return item
}

// WriteJSON persists the report to path as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return eris.Wrap(err, "crawler: marshal report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "crawler: write report")
	}
	zap.L().Info("report written",
		zap.String("path", path),
		zap.String("run_id", r.RunID),
		zap.Int("items", len(r.RecoveredURLs)),
	)
	return nil
}
