package posters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/reelview/backend/internal/logging"
)

// PosterStorage persists downloaded poster images and returns their public location.
type PosterStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// TitleImageUpdater rewrites a title's poster location after a successful mirror.
type TitleImageUpdater interface {
	UpdateImgURL(ctx context.Context, titleID int, imgURL string) error
}

// MirrorConfig controls the concurrency characteristics of the mirror.
type MirrorConfig struct {
	QueueSize int
	Workers   int
}

// Mirror asynchronously copies newly created titles' poster images into
// object storage. A failed mirror leaves the original URL untouched.
type Mirror struct {
	storage PosterStorage
	updater TitleImageUpdater
	client  *http.Client
	logger  *slog.Logger

	jobs   chan mirrorJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type mirrorJob struct {
	titleID int
	url     string
}

var errMirrorClosed = errors.New("poster mirror closed")

// NewMirror constructs a background worker pool that mirrors poster images.
func NewMirror(storage PosterStorage, updater TitleImageUpdater, cfg MirrorConfig, logger *slog.Logger) *Mirror {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Mirror{
		storage: storage,
		updater: updater,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		jobs:    make(chan mirrorJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	m.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go m.worker()
	}

	return m
}

// Enqueue schedules a poster mirror for the title.
func (m *Mirror) Enqueue(ctx context.Context, titleID int, url string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return errMirrorClosed
	default:
	}

	job := mirrorJob{titleID: titleID, url: url}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return errMirrorClosed
	case m.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (m *Mirror) Shutdown(ctx context.Context) error {
	m.once.Do(func() {
		m.cancel()
		close(m.jobs)
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()

	// The channel is closed by Shutdown, so queued jobs always drain.
	for job := range m.jobs {
		m.handleJob(job)
	}
}

func (m *Mirror) handleJob(job mirrorJob) {
	if m.storage == nil || m.updater == nil {
		m.logger.Error("poster mirror missing dependencies", "hasStorage", m.storage != nil, "hasUpdater", m.updater != nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctx = logging.WithLogger(ctx, m.logger)
	ctx, span := logging.StartSpan(ctx, "posters.mirror")
	defer span.End()

	location, err := m.download(ctx, job)
	if err != nil {
		m.logger.Error("poster mirror failed", "titleId", job.titleID, "url", job.url, "error", err)
		return
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()

	if err := m.updater.UpdateImgURL(updateCtx, job.titleID, location); err != nil {
		m.logger.Error("update mirrored poster location", "titleId", job.titleID, "error", err)
	}
}

func (m *Mirror) download(ctx context.Context, job mirrorJob) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.url, nil)
	if err != nil {
		return "", fmt.Errorf("build poster request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch poster: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("poster fetch returned %d", resp.StatusCode)
	}

	ext := path.Ext(job.url)
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("posters/%d%s", job.titleID, ext)

	location, err := m.storage.Save(ctx, key, resp.Body)
	if err != nil {
		return "", fmt.Errorf("store poster: %w", err)
	}

	return location, nil
}
