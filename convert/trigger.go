package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/fwojciec/docxjson/bloom"
	"golang.org/x/sync/errgroup"
)

// Defaults for BlobTrigger.
const (
	DefaultInputContainer  = "input-docx"
	DefaultOutputContainer = "input-json"
	DefaultPollInterval    = 5 * time.Second
	DefaultConcurrency     = 4
	DefaultMaxAttempts     = 5
)

// seedPageSize is the number of history records read per query by Seed.
const seedPageSize = 1000

// BlobTrigger converts every new blob in the input container and writes the
// JSON result to the output container as "{name}.json".
//
// A blob is identified by its name and content hash. Blobs with a succeeded
// conversion in History and an existing output are skipped, as are blobs that
// already failed MaxAttempts times. Without History, the in-memory Filter alone decides
// whether a blob was converted, so a false positive can skip a new blob.
type BlobTrigger struct {
	Store     docxjson.BlobStore
	Converter docxjson.Converter
	History   docxjson.ConversionService
	Filter    *bloom.Filter

	InputContainer  string
	OutputContainer string
	Interval        time.Duration
	Concurrency     int
	MaxAttempts     int

	Logger *slog.Logger

	once sync.Once
}

// PollResult holds the outcome of one pass over the input container.
type PollResult struct {
	Converted int
	Skipped   int
	Failed    int
}

type outcome int

const (
	outcomeConverted outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Run seeds the filter from History, then polls until ctx is done.
func (t *BlobTrigger) Run(ctx context.Context) error {
	if err := t.Seed(ctx); err != nil {
		return err
	}

	interval := t.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := t.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			t.logger().Error("poll failed", "container", t.inputContainer(), "err", err)
		} else if result != nil && (result.Converted > 0 || result.Failed > 0) {
			t.logger().Info("poll",
				"converted", result.Converted,
				"skipped", result.Skipped,
				"failed", result.Failed,
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Seed adds every succeeded blob conversion in History to the filter.
// History is read in pages without the stored output.
func (t *BlobTrigger) Seed(ctx context.Context) error {
	if t.History == nil {
		return nil
	}

	origin := docxjson.OriginBlob
	status := docxjson.StatusSucceeded
	filter := t.filter()
	for offset := 0; ; offset += seedPageSize {
		convs, err := t.History.FindConversions(ctx, docxjson.ConversionFilter{
			Origin:     &origin,
			Status:     &status,
			OmitOutput: true,
			Offset:     offset,
			Limit:      seedPageSize,
		})
		if err != nil {
			return fmt.Errorf("loading conversion history: %w", err)
		}
		for _, c := range convs {
			filter.Add(blobKey(c.Source, c.SourceHash))
		}
		if len(convs) < seedPageSize {
			return nil
		}
	}
}

// Poll makes one pass over the input container. Per-blob failures are
// counted and logged; only listing failures and cancellation return errors.
func (t *BlobTrigger) Poll(ctx context.Context) (*PollResult, error) {
	blobs, err := t.Store.List(ctx, t.inputContainer())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", t.inputContainer(), err)
	}

	concurrency := t.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var converted, skipped, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, blob := range blobs {
		name := blob.Name
		g.Go(func() error {
			switch t.process(gctx, name) {
			case outcomeConverted:
				converted.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			default:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &PollResult{
		Converted: int(converted.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	return result, ctx.Err()
}

func (t *BlobTrigger) process(ctx context.Context, name string) outcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}

	data, err := t.Store.Read(ctx, t.inputContainer(), name)
	if err != nil {
		t.logger().Error("reading blob", "name", name, "err", err)
		return outcomeFailed
	}

	hash := HashSource(data)
	key := blobKey(name, hash)

	done, err := t.converted(ctx, name, hash, key)
	if err != nil {
		t.logger().Error("checking conversion history", "name", name, "err", err)
		return outcomeFailed
	}
	if done {
		return outcomeSkipped
	}

	poisoned, err := t.poisoned(ctx, name, hash)
	if err != nil {
		t.logger().Error("checking conversion history", "name", name, "err", err)
		return outcomeFailed
	}
	if poisoned {
		t.logger().Debug("skipping poison blob", "name", name, "hash", hash)
		return outcomeSkipped
	}

	t.logger().Info("converting blob", "name", name, "bytes", len(data))

	doc, err := t.Converter.Convert(ctx, &docxjson.Source{
		Name:   name,
		Origin: docxjson.OriginBlob,
		Data:   data,
	})
	if err != nil {
		// The converter has already logged the failure with its trace ID.
		return outcomeFailed
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.logger().Error("encoding output", "name", name, "err", err)
		return outcomeFailed
	}
	if err := t.Store.Write(ctx, t.outputContainer(), name+".json", out); err != nil {
		t.logger().Error("writing output", "name", name, "err", err)
		return outcomeFailed
	}

	t.filter().Add(key)
	return outcomeConverted
}

// converted reports whether the blob content was already converted and its
// output is still in the output container.
func (t *BlobTrigger) converted(ctx context.Context, name, hash, key string) (bool, error) {
	if !t.filter().Test(key) {
		return false, nil
	}

	if t.History != nil {
		status := docxjson.StatusSucceeded
		convs, err := t.History.FindConversions(ctx, docxjson.ConversionFilter{
			Source:     &name,
			SourceHash: &hash,
			Status:     &status,
			OmitOutput: true,
			Limit:      1,
		})
		if err != nil {
			return false, err
		}
		if len(convs) == 0 {
			return false, nil
		}
	}

	// A succeeded record does not guarantee the output write succeeded.
	if _, err := t.Store.Read(ctx, t.outputContainer(), name+".json"); err != nil {
		if docxjson.ErrorCode(err) == docxjson.ENOTFOUND {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// poisoned reports whether the blob content has failed MaxAttempts times.
func (t *BlobTrigger) poisoned(ctx context.Context, name, hash string) (bool, error) {
	if t.History == nil {
		return false, nil
	}

	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	status := docxjson.StatusFailed
	convs, err := t.History.FindConversions(ctx, docxjson.ConversionFilter{
		Source:     &name,
		SourceHash: &hash,
		Status:     &status,
		OmitOutput: true,
		Limit:      maxAttempts,
	})
	if err != nil {
		return false, err
	}
	return len(convs) >= maxAttempts, nil
}

func (t *BlobTrigger) filter() *bloom.Filter {
	t.once.Do(func() {
		if t.Filter == nil {
			t.Filter = bloom.NewFilter(100_000, 0.001)
		}
	})
	return t.Filter
}

func (t *BlobTrigger) inputContainer() string {
	if t.InputContainer == "" {
		return DefaultInputContainer
	}
	return t.InputContainer
}

func (t *BlobTrigger) outputContainer() string {
	if t.OutputContainer == "" {
		return DefaultOutputContainer
	}
	return t.OutputContainer
}

func (t *BlobTrigger) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t.Logger
}

func blobKey(name, hash string) string {
	return name + ":" + hash
}
