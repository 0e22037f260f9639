package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/mcastellanos/fotoescolar-backend/internal/shares"
	"github.com/mcastellanos/fotoescolar-backend/pkg/logger"
)

const (
	defaultQueueSize     = 256
	defaultFlushInterval = 5 * time.Second
	drainTimeout         = 10 * time.Second
)

type rowSink interface {
	Insert(ctx context.Context, row AccessEventRow) error
	Flush(ctx context.Context) error
}

// RecorderOptions tunes the recorder queue.
type RecorderOptions struct {
	QueueSize     int
	FlushInterval time.Duration
}

// Recorder streams share-access events to BigQuery in the background.
// RecordAccess never blocks the gallery response: rows are queued, and when
// the queue is full they are dropped with a warning. Analytics loss is
// acceptable; a slow insert stalling visitors is not.
type Recorder struct {
	sink          rowSink
	logg          *logger.Logger
	queue         chan AccessEventRow
	flushInterval time.Duration
}

func NewRecorder(sink rowSink, logg *logger.Logger, opts RecorderOptions) (*Recorder, error) {
	if sink == nil {
		return nil, errors.New("row sink required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Recorder{
		sink:          sink,
		logg:          logg,
		queue:         make(chan AccessEventRow, queueSize),
		flushInterval: flushInterval,
	}, nil
}

// RecordAccess queues one validation outcome for streaming.
func (r *Recorder) RecordAccess(ctx context.Context, record shares.AccessRecord) {
	row := rowFromRecord(record)
	select {
	case r.queue <- row:
	default:
		r.logg.Warn(r.logg.WithShareID(ctx, row.ShareTokenID), "access event queue full, dropping row")
	}
}

// Run consumes the queue until the context is canceled, then drains whatever
// is left. Insert failures are logged and the row is abandoned.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case row := <-r.queue:
			r.insert(ctx, row)
		case <-ticker.C:
			if err := r.sink.Flush(ctx); err != nil {
				r.logg.Error(ctx, "flush access events", err)
			}
		}
	}
}

func (r *Recorder) insert(ctx context.Context, row AccessEventRow) {
	if err := r.sink.Insert(ctx, row); err != nil {
		r.logg.Error(r.logg.WithShareID(ctx, row.ShareTokenID), "insert access event", err)
	}
}

// drain runs on shutdown with its own deadline so buffered rows still land.
func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case row := <-r.queue:
			r.insert(ctx, row)
		default:
			if err := r.sink.Flush(ctx); err != nil {
				r.logg.Error(ctx, "flush access events on shutdown", err)
			}
			return
		}
	}
}
