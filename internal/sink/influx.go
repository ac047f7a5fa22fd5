package sink

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Sink = (*Influx)(nil)

// Influx writes line protocol to an InfluxDB /write endpoint over a plain
// HTTP client. Observations land in the `weather` measurement as one field
// per metric; archive records and daily summaries get their own measurements
// with the statistic folded into the field name (outTemp_min, rain_sum).
type Influx struct {
	baseURL  string
	database string
	client   *http.Client
}

func NewInflux(baseURL, database string) *Influx {
	return &Influx{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		database: database,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (i *Influx) Name() string { return "influx" }

// escapeTag handles the three characters line protocol reserves in tag
// values.
func escapeTag(s string) string {
	r := strings.NewReplacer(",", `\,`, " ", `\ `, "=", `\=`)
	return r.Replace(s)
}

func fieldSet(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, m[name]))
	}
	return strings.Join(parts, ",")
}

func (i *Influx) write(ctx context.Context, line string) error {
	url := fmt.Sprintf("%s/write?db=%s&precision=s", i.baseURL, i.database)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(line))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("influx write: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (i *Influx) WriteObservation(ctx context.Context, obs *types.Observation) error {
	fields := obs.Metrics()
	if len(fields) == 0 {
		return nil
	}
	line := fmt.Sprintf("weather,station=%s %s %d",
		escapeTag(obs.StationID), fieldSet(fields), obs.Timestamp.UTC().Unix())
	return i.write(ctx, line)
}

// aggregateFields flattens a metric map into per-statistic fields.
func aggregateFields(metrics map[string]types.Aggregate) map[string]float64 {
	out := make(map[string]float64, len(metrics)*3)
	for name, agg := range metrics {
		if agg.Min != nil {
			out[name+"_min"] = *agg.Min
		}
		if agg.Max != nil {
			out[name+"_max"] = *agg.Max
		}
		if agg.Avg != nil {
			out[name+"_avg"] = *agg.Avg
		}
		if agg.Sum != nil {
			out[name+"_sum"] = *agg.Sum
		}
	}
	return out
}

func (i *Influx) WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error {
	fields := aggregateFields(rec.Metrics)
	if len(fields) == 0 {
		return nil
	}
	line := fmt.Sprintf("weather_archive,station=%s %s %d",
		escapeTag(rec.StationID), fieldSet(fields), rec.WindowStart.UTC().Unix())
	return i.write(ctx, line)
}

func (i *Influx) WriteDaily(ctx context.Context, sum *types.DailySummary) error {
	fields := aggregateFields(sum.Metrics)
	if len(fields) == 0 {
		return nil
	}
	date, err := time.Parse("2006-01-02", sum.Date)
	if err != nil {
		return fmt.Errorf("invalid summary date %q: %w", sum.Date, err)
	}
	// Same timestamp each recompute, so the point upserts in place.
	line := fmt.Sprintf("weather_daily,station=%s %s %d",
		escapeTag(sum.StationID), fieldSet(fields), date.Unix())
	return i.write(ctx, line)
}

func (i *Influx) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+"/ping", nil)
	if err != nil {
		return err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

func (i *Influx) Close() error {
	i.client.CloseIdleConnections()
	return nil
}
