package db

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// adminRequest issues a request from loopback so the tsweb debug access
// check lets it through.
func adminRequest(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "127.0.0.1:54321"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestAttachAdminRoutes(t *testing.T) {
	tmp := t.TempDir()

	// Backup files land in the working directory.
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})

	db, err := NewDB(filepath.Join(tmp, "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RecordRun(Run{
		ID: "run-1", AreaSlug: "seattle", Mode: "geocentric", At: time.Now(),
	}))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	t.Run("db-stats", func(t *testing.T) {
		w := adminRequest(t, mux, "/debug/db-stats")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var stats DatabaseStats
		require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
		assert.Greater(t, stats.TotalSizeMB, 0.0)
		require.NotEmpty(t, stats.Tables)

		var runsTable *TableStats
		for i := range stats.Tables {
			if stats.Tables[i].Name == "runs" {
				runsTable = &stats.Tables[i]
			}
		}
		require.NotNil(t, runsTable, "runs table should appear in stats")
		assert.EqualValues(t, 1, runsTable.RowCount)
		assert.Greater(t, runsTable.SizeMB, 0.0)
	})

	t.Run("backup downloads a gzipped database", func(t *testing.T) {
		w := adminRequest(t, mux, "/debug/backup")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

		gz, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		payload, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(payload), "SQLite format 3"),
			"backup should be a raw sqlite file")

		// The temporary backup file is removed once sent.
		leftovers, err := filepath.Glob("satgrid-backup-*.db")
		require.NoError(t, err)
		assert.Empty(t, leftovers)
	})

	t.Run("tailsql mounted", func(t *testing.T) {
		w := adminRequest(t, mux, "/debug/tailsql/")
		assert.NotEqual(t, http.StatusNotFound, w.Code, "tailsql should be mounted under /debug/tailsql/")
	})
}

func TestGetDatabaseStats_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	stats, err := db.GetDatabaseStats()
	require.NoError(t, err)
	assert.Greater(t, stats.TotalSizeMB, 0.0, "even an empty database occupies pages")
	assert.NotEmpty(t, stats.Tables, "schema tables should be listed")
}
