package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

const maxLineBytes = 4 << 20

type venueLine struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	City         string   `json:"city"`
	Category     string   `json:"category"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Categories   []string `json:"categories"`
	Features     []string `json:"features"`
	Summary      string   `json:"summary"`
}

// ReadVenues decodes one venue per line. Blank lines are ignored.
func ReadVenues(r io.Reader) ([]domvenue.Venue, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var out []domvenue.Venue
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var vl venueLine
		if err := json.Unmarshal(line, &vl); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		v := domvenue.Venue{
			ID:           vl.ID,
			Name:         vl.Name,
			URL:          vl.URL,
			City:         vl.City,
			Category:     vl.Category,
			ThumbnailURL: vl.ThumbnailURL,
			Categories:   vl.Categories,
			Features:     vl.Features,
			Summary:      vl.Summary,
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, v)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read venues: %w", err)
	}
	return out, nil
}
