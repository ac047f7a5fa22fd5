package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Sink = (*Scylla)(nil)

// Scylla persists into a ScyllaDB keyspace, partitioned by (station,
// bucket_date) so one day of one station is one partition. Expected schema:
//
//	observations     (station_id text, bucket_date date, timestamp timestamp,
//	                  metrics map<text, double>,
//	                  PRIMARY KEY ((station_id, bucket_date), timestamp))
//	archive_records  (station_id text, bucket_date date, window_start timestamp,
//	                  interval_seconds int, metrics text,
//	                  PRIMARY KEY ((station_id, bucket_date), window_start))
//	daily_summaries  (station_id text, summary_date date, records int,
//	                  metrics text,
//	                  PRIMARY KEY (station_id, summary_date))
//
// Aggregate maps are stored as JSON text; per-metric columns would need a
// schema change for every new sensor channel. Daily writes are plain
// inserts, which upsert by primary key.
type Scylla struct {
	session  *gocql.Session
	keyspace string
}

func NewScylla(nodes []string, keyspace string) (*Scylla, error) {
	cluster := gocql.NewCluster(nodes...)
	cluster.Keyspace = keyspace
	cluster.Timeout = 2 * time.Second
	cluster.DisableInitialHostLookup = true
	cluster.DisableShardAwarePort = true
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla connect: %w", err)
	}
	return &Scylla{session: session, keyspace: keyspace}, nil
}

func (s *Scylla) Name() string { return "scylla" }

func bucketDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scylla) WriteObservation(ctx context.Context, obs *types.Observation) error {
	query := fmt.Sprintf(`
INSERT INTO %s.observations (station_id, bucket_date, timestamp, metrics)
VALUES (?, ?, ?, ?)
`, s.keyspace)

	err := s.session.Query(query,
		obs.StationID,
		bucketDate(obs.Timestamp),
		obs.Timestamp.UTC(),
		obs.Metrics(),
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	return nil
}

func (s *Scylla) WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error {
	payload, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshal archive metrics: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s.archive_records (station_id, bucket_date, window_start, interval_seconds, metrics)
VALUES (?, ?, ?, ?, ?)
`, s.keyspace)

	err = s.session.Query(query,
		rec.StationID,
		bucketDate(rec.WindowStart),
		rec.WindowStart.UTC(),
		int(rec.Interval.Seconds()),
		string(payload),
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert archive record: %w", err)
	}
	return nil
}

func (s *Scylla) WriteDaily(ctx context.Context, sum *types.DailySummary) error {
	payload, err := json.Marshal(sum.Metrics)
	if err != nil {
		return fmt.Errorf("marshal daily metrics: %w", err)
	}

	date, err := time.Parse("2006-01-02", sum.Date)
	if err != nil {
		return fmt.Errorf("invalid summary date %q: %w", sum.Date, err)
	}

	query := fmt.Sprintf(`
INSERT INTO %s.daily_summaries (station_id, summary_date, records, metrics)
VALUES (?, ?, ?, ?)
`, s.keyspace)

	err = s.session.Query(query,
		sum.StationID,
		date,
		sum.Records,
		string(payload),
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert daily summary: %w", err)
	}
	return nil
}

// ReadObservations returns up to limit most recent observations for one
// station, walking bucket partitions backwards from today. Serves the
// history API when the cache cannot.
func (s *Scylla) ReadObservations(ctx context.Context, stationID string, limit int) ([]*types.Observation, error) {
	query := fmt.Sprintf(`
SELECT timestamp, metrics
FROM %s.observations
WHERE station_id = ? AND bucket_date = ?
ORDER BY timestamp DESC
LIMIT ?
`, s.keyspace)

	out := make([]*types.Observation, 0, limit)

	// Two buckets cover the worst case of a query just after midnight.
	for _, bucket := range []time.Time{bucketDate(time.Now()), bucketDate(time.Now().AddDate(0, 0, -1))} {
		if len(out) >= limit {
			break
		}
		iter := s.session.Query(query, stationID, bucket, limit-len(out)).WithContext(ctx).Iter()

		var ts time.Time
		var m map[string]float64
		for iter.Scan(&ts, &m) {
			obs := &types.Observation{StationID: stationID, Timestamp: ts.UTC()}
			for name, v := range m {
				obs.SetMetric(name, v)
			}
			out = append(out, obs)
			m = nil
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("query bucket %s: %w", bucket.Format("2006-01-02"), err)
		}
	}

	return out, nil
}

func (s *Scylla) Ping(ctx context.Context) error {
	return s.session.Query("SELECT now() FROM system.local").WithContext(ctx).Exec()
}

func (s *Scylla) Close() error {
	s.session.Close()
	return nil
}
