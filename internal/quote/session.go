// Package quote drives a single upload-to-order quoting flow: the local
// estimate is published immediately and silently upgraded once a slicer
// estimate for the current settings arrives.
package quote

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/api"
	"github.com/philipparndt/printquote/internal/store"
	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

const (
	defaultSlicerTimeout = 2 * time.Minute
	updateBuffer         = 16
)

var (
	// ErrNoModel is returned when an operation needs a loaded file
	ErrNoModel = errors.New("quote: no model loaded")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("quote: session closed")
)

// Slicer produces slicer estimates for a model file
type Slicer interface {
	GetSlicerEstimate(ctx context.Context, file []byte, filename string, settings api.SlicerSettings) (*pricing.SlicerEstimate, error)
}

// OrderSubmitter creates orders in the backend
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, payload api.OrderPayload) (api.OrderID, error)
}

// Update is published after every recomputation
type Update struct {
	Generation uint64
	Geometry   analysis.Geometry
	Result     pricing.Result
	Err        error
}

// Option customises a Session
type Option func(*Session)

// WithSlicer enables slicer estimates
func WithSlicer(slicer Slicer) Option {
	return func(s *Session) { s.slicer = slicer }
}

// WithCache records ordered quotes in cache
func WithCache(cache store.PricingCache) Option {
	return func(s *Session) { s.cache = cache }
}

// WithLogger sets the session logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the date source used for delivery estimates
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSlicerTimeout bounds each slicer request
func WithSlicerTimeout(d time.Duration) Option {
	return func(s *Session) { s.slicerTimeout = d }
}

type loadedFile struct {
	path     string
	data     []byte
	geometry analysis.Geometry
}

// Session holds the state of one quote. It is safe for concurrent use.
type Session struct {
	memo          *pricing.Memo
	slicer        Slicer
	cache         store.PricingCache
	logger        *zap.Logger
	now           func() time.Time
	slicerTimeout time.Duration

	mu         sync.Mutex
	generation uint64
	settings   pricing.Settings
	file       *loadedFile
	estimate   *pricing.SlicerEstimate
	result     pricing.Result
	resultErr  error
	cancel     context.CancelFunc
	closed     bool

	// inflight counts running slicer requests; idle is closed whenever it
	// drops to zero
	inflight int
	idle     chan struct{}
	updates  chan Update
}

// NewSession creates a session pricing with catalog, starting from settings
func NewSession(catalog pricing.Catalog, settings pricing.Settings, opts ...Option) *Session {
	s := &Session{
		memo:          pricing.NewMemo(catalog),
		logger:        zap.NewNop(),
		now:           time.Now,
		slicerTimeout: defaultSlicerTimeout,
		settings:      settings,
		resultErr:     ErrNoModel,
		updates:       make(chan Update, updateBuffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates delivers recomputed results. Slow readers lose the oldest updates.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Load analyses the file and publishes the calculated estimate before any
// slicer request is issued. The slicer request runs in the background.
func (s *Session) Load(ctx context.Context, path string, data []byte) (pricing.Result, error) {
	geometry := analysis.ParseGeometry(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pricing.Result{}, ErrClosed
	}

	s.file = &loadedFile{path: path, data: data, geometry: geometry}
	s.invalidateLocked()
	s.recomputeLocked()
	s.logger.Info("model loaded",
		zap.String("path", path),
		zap.Stringer("geometry", geometry),
		zap.Uint64("generation", s.generation))

	s.requestEstimateLocked(ctx)
	return s.result, s.resultErr
}

// SetSettings replaces the print settings. Changing a setting that affects
// slicing discards the slicer estimate and requests a new one.
func (s *Session) SetSettings(ctx context.Context, settings pricing.Settings) (pricing.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return pricing.Result{}, ErrClosed
	}

	resliced := settings.SlicingKey() != s.settings.SlicingKey()
	s.settings = settings
	if resliced {
		s.invalidateLocked()
	}
	s.recomputeLocked()
	if resliced {
		s.requestEstimateLocked(ctx)
	}
	return s.result, s.resultErr
}

// Settings returns the current print settings
func (s *Session) Settings() pricing.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Result returns the current priced result
func (s *Session) Result() (pricing.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.resultErr
}

// Geometry returns the analysed geometry of the loaded file
func (s *Session) Geometry() (analysis.Geometry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return analysis.Geometry{}, false
	}
	return s.file.geometry, true
}

// Generation returns the current slicing generation
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Wait blocks until no slicer request is in flight
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idleLocked()
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any slicer request and stops publishing updates
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	idle := s.idleLocked()
	s.mu.Unlock()
	<-idle
}

// idleLocked returns a channel that is closed once no request is in flight
func (s *Session) idleLocked() <-chan struct{} {
	if s.inflight == 0 {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.idle
}

func (s *Session) requestDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// invalidateLocked starts a new generation: pending slicer responses become
// stale and the current estimate is dropped
func (s *Session) invalidateLocked() {
	s.generation++
	s.estimate = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) recomputeLocked() {
	if s.file == nil {
		s.result, s.resultErr = pricing.Result{}, ErrNoModel
		return
	}
	s.result, s.resultErr = s.memo.Estimate(pricing.Input{
		Geometry: s.file.geometry,
		Settings: s.settings,
		Slicer:   s.estimate,
		Today:    s.now(),
	})
	s.publishLocked(Update{Generation: s.generation, Geometry: s.file.geometry, Result: s.result, Err: s.resultErr})
}

func (s *Session) publishLocked(u Update) {
	for {
		select {
		case s.updates <- u:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) requestEstimateLocked(ctx context.Context) {
	if s.slicer == nil || s.file == nil {
		return
	}
	slicerSettings, err := SlicerSettingsFor(s.memo.Catalog(), s.settings)
	if err != nil {
		s.logger.Debug("skipping slicer request", zap.Error(err))
		return
	}

	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.slicerTimeout)
	s.cancel = cancel
	gen := s.generation
	file := s.file

	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	go func() {
		defer s.requestDone()
		defer cancel()

		est, err := s.slicer.GetSlicerEstimate(reqCtx, file.data, filepath.Base(file.path), slicerSettings)
		s.applyEstimate(gen, est, err)
	}()
}

func (s *Session) applyEstimate(gen uint64, est *pricing.SlicerEstimate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.generation {
		s.logger.Debug("dropping stale slicer estimate", zap.Uint64("generation", gen), zap.Uint64("current", s.generation))
		return
	}
	if err != nil {
		s.logger.Warn("slicer estimate failed, keeping calculated estimate", zap.Error(err))
		return
	}
	if !est.Usable() {
		s.logger.Debug("slicer returned no usable estimate")
		return
	}

	s.estimate = est
	s.recomputeLocked()
	s.logger.Info("slicer estimate applied",
		zap.String("source", string(est.Source)),
		zap.Float64("filament_g", est.FilamentUsedG),
		zap.Float64("grand_total", s.result.GrandTotal))
}

// SlicerSettingsFor maps print settings onto the slicer request fields
func SlicerSettingsFor(catalog pricing.Catalog, settings pricing.Settings) (api.SlicerSettings, error) {
	quality, err := catalog.Quality(settings.Quality)
	if err != nil {
		return api.SlicerSettings{}, err
	}
	return api.SlicerSettings{
		LayerHeight:   quality.LayerHeight,
		InfillPercent: settings.InfillPercent,
		WallCount:     settings.Walls,
		Material:      strings.ToUpper(settings.Material),
		Supports:      settings.Supports,
		Brim:          settings.Brim,
	}, nil
}

// OrderRequest carries the order fields the session does not know
type OrderRequest struct {
	ClientID string
	Notes    string
}

// Order submits the current quote snapshot and records it in the pricing
// cache under the file path.
func (s *Session) Order(ctx context.Context, client OrderSubmitter, req OrderRequest) (api.OrderID, error) {
	s.mu.Lock()
	if s.file == nil {
		s.mu.Unlock()
		return "", ErrNoModel
	}
	if s.resultErr != nil {
		err := s.resultErr
		s.mu.Unlock()
		return "", err
	}
	file, settings, result := s.file, s.settings, s.result
	s.mu.Unlock()

	payload := api.OrderPayload{
		Reference: uuid.NewString(),
		ClientID:  req.ClientID,
		FileName:  filepath.Base(file.path),
		Geometry:  file.geometry.Summary(),
		Settings:  settings,
		Pricing:   result,
		Notes:     req.Notes,
	}
	id, err := client.SubmitOrder(ctx, payload)
	if err != nil {
		return "", err
	}
	s.logger.Info("order created",
		zap.String("order_id", string(id)),
		zap.String("reference", payload.Reference),
		zap.String("grand_total", pricing.Money(result.GrandTotal)))

	if s.cache != nil {
		entry := store.Entry{Path: file.path, Geometry: file.geometry, Settings: settings, Result: result, UpdatedAt: s.now()}
		if err := s.cache.Put(ctx, entry); err != nil {
			s.logger.Warn("failed to cache order pricing", zap.String("path", file.path), zap.Error(err))
		}
	}
	return id, nil
}
