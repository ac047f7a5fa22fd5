package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Sink = (*Filesystem)(nil)

// Filesystem appends each unit as one JSON line to a per-kind file under a
// directory. It is the zero-dependency sink for local runs and the durable
// fallback when every network backend is down.
type Filesystem struct {
	dir string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewFilesystem(dir string) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &Filesystem{
		dir:   dir,
		files: make(map[string]*os.File),
	}, nil
}

func (f *Filesystem) Name() string { return "filesystem" }

func (f *Filesystem) WriteObservation(ctx context.Context, obs *types.Observation) error {
	return f.append(KindObservation, obs)
}

func (f *Filesystem) WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error {
	return f.append(KindArchive, rec)
}

func (f *Filesystem) WriteDaily(ctx context.Context, sum *types.DailySummary) error {
	return f.append(KindDaily, sum)
}

// append serializes v onto the kind's JSONL file. The mutex covers the
// encoder so concurrent deliveries never interleave lines.
func (f *Filesystem) append(kind string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.open(kind)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("append %s: %w", kind, err)
	}
	return nil
}

func (f *Filesystem) open(kind string) (*os.File, error) {
	if file, ok := f.files[kind]; ok {
		return file, nil
	}
	path := filepath.Join(f.dir, kind+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	f.files[kind] = file
	return file, nil
}

func (f *Filesystem) Ping(ctx context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *Filesystem) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var first error
	for kind, file := range f.files {
		if err := file.Close(); err != nil && first == nil {
			first = err
		}
		delete(f.files, kind)
	}
	return first
}
