package sat

import (
	"strings"
	"testing"
	"time"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"

	noaaLine1 = "1 43013U 17073A   24032.50000000 -.00002182  00000-0 -11606-4 0  2927"
	noaaLine2 = "2 43013  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func TestParseTLEThreeLineEntries(t *testing.T) {
	input := issName + "\n" + issLine1 + "\n" + issLine2 + "\n" +
		"NOAA 20 (JPSS-1)\n" + noaaLine1 + "\n" + noaaLine2 + "\n"

	elems, skipped, err := ParseTLE(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(elems) != 2 {
		t.Fatalf("got %d elements, want 2", len(elems))
	}

	iss := elems[0]
	if iss.Name != issName {
		t.Errorf("Name = %q, want %q", iss.Name, issName)
	}
	if iss.NoradID != 25544 {
		t.Errorf("NoradID = %d, want 25544", iss.NoradID)
	}
	if y, m := iss.Epoch.Year(), iss.Epoch.Month(); y != 2008 || m != time.September {
		t.Errorf("Epoch = %v, want September 2008", iss.Epoch)
	}
	if elems[1].NoradID != 43013 {
		t.Errorf("second NoradID = %d, want 43013", elems[1].NoradID)
	}
}

func TestParseTLEWithoutNames(t *testing.T) {
	input := issLine1 + "\n" + issLine2 + "\n"
	elems, _, err := ParseTLE(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("got %d elements, want 1", len(elems))
	}
	if elems[0].Name != "NORAD 25544" {
		t.Errorf("Name = %q, want synthesized NORAD 25544", elems[0].Name)
	}
}

func TestParseTLESkipsMalformedEntries(t *testing.T) {
	corrupt := issLine1[:20] + "xxx.yyyyyyyy" + issLine1[32:]
	input := strings.Join([]string{
		"BROKEN SAT",
		corrupt,
		issLine2,
		issName,
		issLine1,
		issLine2,
	}, "\n") + "\n"

	elems, skipped, err := ParseTLE(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(elems) != 1 || elems[0].Name != issName {
		t.Errorf("surviving elements = %+v, want just ISS", elems)
	}
}

func TestParseTLEOrphanLine2(t *testing.T) {
	elems, skipped, err := ParseTLE(strings.NewReader(issLine2 + "\n"))
	if err != nil {
		t.Fatalf("ParseTLE: %v", err)
	}
	if len(elems) != 0 || skipped != 1 {
		t.Errorf("got %d elements %d skipped, want 0 and 1", len(elems), skipped)
	}
}

func TestParseCatalogNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"25544", 25544, false},
		{" 5544", 5544, false},
		{"A8960", 108960, false}, // alpha-5: A means 10
		{"J2931", 182931, false}, // J means 18 (I unused)
		{"P0001", 230001, false}, // P means 23 (O unused)
		{"Z9999", 339999, false}, // Z means 33
		{"I0000", 0, true},
		{"O0000", 0, true},
		{"", 0, true},
		{"abcde", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCatalogNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCatalogNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseCatalogNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLaunchYearFromDesignator(t *testing.T) {
	if got := LaunchYearFromDesignator(issLine1); got != 1998 {
		t.Errorf("ISS launch year = %d, want 1998", got)
	}
	if got := LaunchYearFromDesignator(noaaLine1); got != 2017 {
		t.Errorf("NOAA-20 launch year = %d, want 2017", got)
	}
	if got := LaunchYearFromDesignator("1 25544U"); got != 0 {
		t.Errorf("short line launch year = %d, want 0", got)
	}
}
