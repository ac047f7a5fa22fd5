package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

func TestFilesystemAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFilesystem(dir)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		obs := &types.Observation{
			StationID: "s1",
			Timestamp: time.Date(2024, 6, 1, 12, i, 0, 0, time.UTC),
			OutTemp:   types.Float(20 + float64(i)),
		}
		require.NoError(t, fs.WriteObservation(ctx, obs))
	}

	f, err := os.Open(filepath.Join(dir, "observation.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var obs types.Observation
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &obs))
		assert.Equal(t, "s1", obs.StationID)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 3, lines)
}

func TestFilesystemSeparatesKinds(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFilesystem(dir)
	require.NoError(t, err)
	defer fs.Close()

	ctx := context.Background()
	require.NoError(t, fs.WriteArchive(ctx, &types.ArchiveRecord{
		StationID:   "s1",
		WindowStart: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Interval:    5 * time.Minute,
		Metrics:     map[string]types.Aggregate{},
	}))
	require.NoError(t, fs.WriteDaily(ctx, &types.DailySummary{
		StationID: "s1",
		Date:      "2024-06-01",
	}))

	for _, name := range []string{"archive.jsonl", "daily.jsonl"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
