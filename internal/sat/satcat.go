package sat

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/orbview/satgrid/internal/monitoring"
)

// CatalogEntry is the SATCAT metadata for one object.
type CatalogEntry struct {
	NoradID    uint64
	Name       string
	Type       ObjectType
	LaunchDate time.Time // zero when unknown
}

// LaunchYear returns the launch year, or 0 when the launch date is unknown.
func (e CatalogEntry) LaunchYear() int {
	if e.LaunchDate.IsZero() {
		return 0
	}
	return e.LaunchDate.Year()
}

// ParseSatcat reads the CelesTrak SATCAT CSV and returns entries keyed by
// NORAD catalog number. Rows with unparseable catalog numbers are logged
// and skipped.
func ParseSatcat(r io.Reader) (map[uint64]CatalogEntry, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read SATCAT header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[name] = i
	}
	for _, required := range []string{"NORAD_CAT_ID", "OBJECT_NAME", "OBJECT_TYPE", "LAUNCH_DATE"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("SATCAT header missing column %s", required)
		}
	}

	entries := make(map[uint64]CatalogEntry)
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read SATCAT row: %w", err)
		}

		id, err := strconv.ParseUint(rec[cols["NORAD_CAT_ID"]], 10, 64)
		if err != nil {
			skipped++
			continue
		}

		entry := CatalogEntry{
			NoradID: id,
			Name:    rec[cols["OBJECT_NAME"]],
			Type:    ParseObjectType(rec[cols["OBJECT_TYPE"]]),
		}
		if raw := rec[cols["LAUNCH_DATE"]]; raw != "" {
			if d, err := time.Parse("2006-01-02", raw); err == nil {
				entry.LaunchDate = d
			}
		}
		entries[id] = entry
	}
	if skipped > 0 {
		monitoring.Logf("sat: skipped %d SATCAT rows with bad catalog numbers", skipped)
	}
	return entries, nil
}
