package celestrak

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/orbview/satgrid/internal/fsutil"
	"github.com/orbview/satgrid/internal/httputil"
	"github.com/orbview/satgrid/internal/timeutil"
)

const (
	issTLE = "ISS (ZARYA)\n" +
		"1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927\n" +
		"2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537\n"

	satcatCSV = "OBJECT_NAME,OBJECT_ID,NORAD_CAT_ID,OBJECT_TYPE,OPS_STATUS_CODE,OWNER,LAUNCH_DATE,LAUNCH_SITE,DECAY_DATE,PERIOD,INCLINATION,APOGEE,PERIGEE,RCS,DATA_STATUS_CODE,ORBIT_CENTER,ORBIT_TYPE\n" +
		"ISS (ZARYA),1998-067A,25544,PAY,+,ISS,1998-11-20,TYMSC,,92.9,51.64,421,408,399.05,,EA,ORB\n"
)

func newTestClient(t *testing.T) (*Client, *httputil.MockHTTPClient, *timeutil.MockClock) {
	t.Helper()
	httpClient := httputil.NewMockHTTPClient()
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	client := NewClient(Options{
		HTTPClient: httpClient,
		FileSystem: fsutil.NewMemoryFileSystem(),
		Clock:      clock,
		CacheDir:   "cache",
		MaxAge:     time.Hour,
	})
	return client, httpClient, clock
}

func TestGroupElementsFetchesAndCaches(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	httpClient.AddResponse(http.StatusOK, issTLE)

	elems, err := client.GroupElements(context.Background(), "stations")
	if err != nil {
		t.Fatalf("GroupElements: %v", err)
	}
	if len(elems) != 1 || elems[0].NoradID != 25544 {
		t.Fatalf("got %+v, want ISS", elems)
	}
	if httpClient.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", httpClient.RequestCount())
	}
	wantURL := DefaultBaseURL + "/NORAD/elements/gp.php?GROUP=stations&FORMAT=tle"
	if got := httpClient.Requests[0].URL.String(); got != wantURL {
		t.Errorf("request URL = %q, want %q", got, wantURL)
	}

	// Second call within MaxAge is served from cache without a request.
	elems, err = client.GroupElements(context.Background(), "stations")
	if err != nil {
		t.Fatalf("cached GroupElements: %v", err)
	}
	if len(elems) != 1 {
		t.Fatalf("cached call got %d elements, want 1", len(elems))
	}
	if httpClient.RequestCount() != 1 {
		t.Errorf("RequestCount after cache hit = %d, want 1", httpClient.RequestCount())
	}
}

func TestGroupElementsRefetchesWhenStale(t *testing.T) {
	client, httpClient, clock := newTestClient(t)
	httpClient.AddResponse(http.StatusOK, issTLE)
	httpClient.AddResponse(http.StatusOK, issTLE)

	if _, err := client.GroupElements(context.Background(), "stations"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := client.GroupElements(context.Background(), "stations"); err != nil {
		t.Fatalf("stale refetch: %v", err)
	}
	if httpClient.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2 after staleness", httpClient.RequestCount())
	}
}

func TestGroupElementsServesStaleOnFetchFailure(t *testing.T) {
	client, httpClient, clock := newTestClient(t)
	httpClient.AddResponse(http.StatusOK, issTLE)
	if _, err := client.GroupElements(context.Background(), "stations"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	clock.Advance(2 * time.Hour)
	httpClient.AddError(errors.New("network down"))

	elems, err := client.GroupElements(context.Background(), "stations")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if len(elems) != 1 {
		t.Errorf("stale fallback returned %d elements, want 1", len(elems))
	}
}

func TestGroupElementsNoCacheNoNetwork(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	httpClient.AddError(errors.New("network down"))

	if _, err := client.GroupElements(context.Background(), "stations"); err == nil {
		t.Error("expected error with no cache and failing network")
	}
}

func TestGroupElementsRejectsBadStatus(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	httpClient.AddResponse(http.StatusInternalServerError, "oops")

	if _, err := client.GroupElements(context.Background(), "stations"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSatcat(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	httpClient.AddResponse(http.StatusOK, satcatCSV)

	entries, err := client.Satcat(context.Background())
	if err != nil {
		t.Fatalf("Satcat: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[25544].LaunchYear() != 1998 {
		t.Errorf("launch year = %d, want 1998", entries[25544].LaunchYear())
	}
}

func TestLoadCatalogToleratesPartialFailure(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	// First group succeeds, second fails, SATCAT succeeds.
	httpClient.AddResponse(http.StatusOK, issTLE)
	httpClient.AddError(errors.New("timeout"))
	httpClient.AddResponse(http.StatusOK, satcatCSV)

	catalog, err := client.LoadCatalog(context.Background(), []string{"stations", "weather"})
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if catalog.Len() != 1 {
		t.Errorf("catalog len = %d, want 1", catalog.Len())
	}
	obj, ok := catalog.Get(25544)
	if !ok {
		t.Fatal("ISS missing from catalog")
	}
	if obj.LaunchYear != 1998 {
		t.Errorf("SATCAT overlay missing: launch year = %d", obj.LaunchYear)
	}
}

func TestLoadCatalogAllGroupsFail(t *testing.T) {
	client, httpClient, _ := newTestClient(t)
	httpClient.AddError(errors.New("down"))
	httpClient.AddError(errors.New("down"))

	if _, err := client.LoadCatalog(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error when every group fails")
	}
}
