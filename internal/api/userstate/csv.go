package userstate

import (
	"strconv"
	"strings"

	"github.com/sagip-ph/evaq-engine/internal/types"
)

const csvHeader = "Name,Type,Province,Municipality,City,Capacity,Latitude,Longitude"

// favoritesCSV renders the export format: string fields double-quoted
// (capacity included, empty when unknown), coordinates bare. The stdlib csv
// writer only quotes on demand, so the rows are assembled by hand.
func favoritesCSV(centers []types.Center) []byte {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for _, c := range centers {
		capacity := ""
		if c.Capacity != nil {
			capacity = strconv.FormatFloat(*c.Capacity, 'f', -1, 64)
		}
		fields := []string{c.Name, c.Category, c.Province, c.Municipality, c.City, capacity}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quote(f))
		}
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Position.Lat, 'f', -1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(c.Position.Lon, 'f', -1, 64))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
