package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loqalabs/loqa-coach/internal/kvstore"
)

// journal is a bounded, chronologically ordered session log stored as one
// JSON array under a single key. Storage failures never reach callers: reads
// degrade to an empty log and failed writes are logged.
type journal struct {
	store    kvstore.Store
	key      string
	capacity int
	log      *slog.Logger
	clock    func() time.Time
	newID    func() string
	mu       sync.Mutex
}

func newJournal(store kvstore.Store, key string, capacity int, log *slog.Logger) *journal {
	if log == nil {
		log = slog.Default()
	}
	return &journal{
		store:    store,
		key:      key,
		capacity: capacity,
		log:      log.With(slog.String("component", "progress"), slog.String("key", key)),
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

func (j *journal) append(ctx context.Context, rec SessionRecord) SessionRecord {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec = normalize(rec)
	rec.ID = j.newID()
	rec.Timestamp = j.clock().UTC()

	records := append(j.load(ctx), rec)
	if len(records) > j.capacity {
		records = records[len(records)-j.capacity:]
	}

	payload, err := json.Marshal(records)
	if err != nil {
		j.log.Error("encode progress log", slogError(err))
		return rec
	}
	if err := j.store.Set(ctx, j.key, payload); err != nil {
		j.log.Error("persist progress log", slogError(err))
	}
	return rec
}

func (j *journal) all(ctx context.Context) []SessionRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load(ctx)
}

func (j *journal) clear(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.store.Delete(ctx, j.key); err != nil {
		j.log.Error("clear progress log", slogError(err))
	}
}

func (j *journal) load(ctx context.Context) []SessionRecord {
	raw, err := j.store.Get(ctx, j.key)
	if err != nil {
		j.log.Warn("read progress log", slogError(err))
		return []SessionRecord{}
	}
	if len(raw) == 0 {
		return []SessionRecord{}
	}
	var records []SessionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		j.log.Warn("discarding malformed progress log", slogError(err))
		return []SessionRecord{}
	}
	if records == nil {
		records = []SessionRecord{}
	}
	return records
}

func slogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
