package sat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/orbview/satgrid/internal/monitoring"
)

// Element is one parsed entry from a 3LE file: a name line followed by the
// two element lines.
type Element struct {
	Name    string
	Line1   string
	Line2   string
	NoradID uint64
	Epoch   time.Time
}

const tleLineLen = 69

// ParseTLE reads CelesTrak 3LE text and returns the well-formed entries.
// Malformed entries are logged and skipped rather than failing the whole
// file; the second return value counts them. An error is returned only
// when the reader itself fails.
func ParseTLE(r io.Reader) ([]Element, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)

	var (
		elems   []Element
		skipped int
		name    string
		line1   string
	)

	flushPartial := func(context string) {
		if name != "" || line1 != "" {
			monitoring.Debugf("sat: dropping partial TLE entry near %q", context)
			skipped++
		}
		name, line1 = "", ""
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "1 "):
			if line1 != "" {
				flushPartial(line)
			}
			line1 = line
		case strings.HasPrefix(line, "2 "):
			if line1 == "" {
				monitoring.Debugf("sat: line 2 without line 1 near %q", line)
				skipped++
				name = ""
				continue
			}
			elem, err := buildElement(name, line1, line)
			if err != nil {
				monitoring.Logf("sat: skipping malformed TLE for %q: %v", name, err)
				skipped++
			} else {
				elems = append(elems, elem)
			}
			name, line1 = "", ""
		default:
			if name != "" || line1 != "" {
				flushPartial(line)
			}
			name = strings.TrimSpace(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read TLE data: %w", err)
	}
	flushPartial("EOF")
	return elems, skipped, nil
}

func buildElement(name, line1, line2 string) (Element, error) {
	if len(line1) < tleLineLen {
		return Element{}, fmt.Errorf("line 1 too short: %d chars", len(line1))
	}
	if len(line2) < tleLineLen {
		return Element{}, fmt.Errorf("line 2 too short: %d chars", len(line2))
	}

	id, err := ParseCatalogNumber(line1[2:7])
	if err != nil {
		return Element{}, fmt.Errorf("failed to parse catalog number: %w", err)
	}
	id2, err := ParseCatalogNumber(line2[2:7])
	if err != nil {
		return Element{}, fmt.Errorf("failed to parse catalog number on line 2: %w", err)
	}
	if id != id2 {
		return Element{}, fmt.Errorf("catalog number mismatch: %d vs %d", id, id2)
	}

	epoch, err := parseEpoch(line1)
	if err != nil {
		return Element{}, fmt.Errorf("failed to parse epoch: %w", err)
	}

	if name == "" {
		name = fmt.Sprintf("NORAD %d", id)
	}
	return Element{
		Name:    name,
		Line1:   line1,
		Line2:   line2,
		NoradID: id,
		Epoch:   epoch,
	}, nil
}

// ParseCatalogNumber parses the 5-character catalog number field,
// including the alpha-5 scheme where the first character is a letter
// standing for 10..33 (I and O are unused).
func ParseCatalogNumber(field string) (uint64, error) {
	s := strings.TrimSpace(field)
	if s == "" {
		return 0, fmt.Errorf("empty catalog number")
	}

	first := s[0]
	if first >= 'A' && first <= 'Z' {
		if first == 'I' || first == 'O' {
			return 0, fmt.Errorf("invalid alpha-5 prefix %q", string(first))
		}
		val := uint64(first - 'A' + 10)
		if first > 'I' {
			val--
		}
		if first > 'O' {
			val--
		}
		rest, err := strconv.ParseUint(s[1:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid alpha-5 suffix %q: %v", s[1:], err)
		}
		return val*10000 + rest, nil
	}

	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid catalog number %q: %v", s, err)
	}
	return id, nil
}

// parseEpoch extracts the element epoch from columns 19-32 of line 1:
// a two-digit year and a fractional day of year.
func parseEpoch(line1 string) (time.Time, error) {
	yy, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %v", line1[18:20], err)
	}
	// Two-digit years 57-99 are 1957-1999 per convention.
	year := 2000 + yy
	if yy >= 57 {
		year = 1900 + yy
	}

	day, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %v", line1[20:32], err)
	}
	if day < 1 || day >= 367 {
		return time.Time{}, fmt.Errorf("epoch day %g out of range", day)
	}

	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return jan1.Add(time.Duration((day - 1) * 24 * float64(time.Hour))), nil
}

// LaunchYearFromDesignator extracts the launch year from the international
// designator in columns 10-11 of line 1. Returns 0 when the field is blank
// or unparseable.
func LaunchYearFromDesignator(line1 string) int {
	if len(line1) < 11 {
		return 0
	}
	yy, err := strconv.Atoi(strings.TrimSpace(line1[9:11]))
	if err != nil {
		return 0
	}
	if yy >= 57 {
		return 1900 + yy
	}
	return 2000 + yy
}
