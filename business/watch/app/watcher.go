package app

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	chain "github.com/fd1az/chain-oracles/business/blockchain/app"
	chainDomain "github.com/fd1az/chain-oracles/business/blockchain/domain"
	pricingDomain "github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/business/watch/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/asset"
	"github.com/fd1az/chain-oracles/internal/logger"
)

const meterName = "github.com/fd1az/chain-oracles/business/watch/app"

// Connection names reported to the Reporter.
const (
	ConnHeads = "heads"
	ConnNode  = "node"
)

// WatcherConfig holds configuration for the price watcher.
type WatcherConfig struct {
	Pairs []domain.Pair
	// RefreshTimeout bounds one refresh of all pairs.
	RefreshTimeout time.Duration
}

type watcherMetrics struct {
	refreshes metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
}

// Watcher refreshes the watched pairs on every new chain head.
type Watcher struct {
	heads    chain.HeadSubscriber
	prices   PriceSource
	reporter Reporter
	config   WatcherConfig
	logger   logger.LoggerInterface
	metrics  *watcherMetrics

	mu   sync.Mutex
	last map[pricingDomain.PriceQuery]decimal.Decimal

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a new Watcher.
func NewWatcher(
	heads chain.HeadSubscriber,
	prices PriceSource,
	reporter Reporter,
	config WatcherConfig,
	log logger.LoggerInterface,
) (*Watcher, error) {
	if len(config.Pairs) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("no pairs to watch"))
	}
	if config.RefreshTimeout <= 0 {
		config.RefreshTimeout = 10 * time.Second
	}

	w := &Watcher{
		heads:    heads,
		prices:   prices,
		reporter: reporter,
		config:   config,
		logger:   log,
		last:     make(map[pricingDomain.PriceQuery]decimal.Decimal, len(config.Pairs)),
	}
	if err := w.initMetrics(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Watcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &watcherMetrics{}

	w.metrics.refreshes, err = meter.Int64Counter(
		"watch_refreshes_total",
		metric.WithDescription("Price refreshes of the watched pairs"),
	)
	if err != nil {
		return err
	}

	w.metrics.failures, err = meter.Int64Counter(
		"watch_pair_failures_total",
		metric.WithDescription("Watched pairs that could not be priced"),
	)
	if err != nil {
		return err
	}

	w.metrics.duration, err = meter.Float64Histogram(
		"watch_refresh_duration_seconds",
		metric.WithDescription("Duration of one refresh of all pairs"),
		metric.WithUnit("s"),
	)
	return err
}

// Start subscribes to heads, prices every pair once and begins the refresh loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "starting price watcher", "pairs", len(w.config.Pairs))

	if err := w.reporter.Start(ctx); err != nil {
		return err
	}

	heads, err := w.heads.Subscribe(ctx)
	if err != nil {
		w.reporter.UpdateConnectionStatus(ConnHeads, false, 0)
		return err
	}
	w.reportHeadStatus()

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	w.Refresh(ctx, 0)
	go w.run(ctx, heads)

	return nil
}

func (w *Watcher) run(ctx context.Context, heads <-chan chainDomain.Head) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "watcher stopping", "reason", ctx.Err())
			return
		case head, ok := <-heads:
			if !ok {
				w.logger.Warn(ctx, "head stream closed")
				w.reporter.UpdateConnectionStatus(ConnHeads, false, 0)
				return
			}
			w.onNewHead(ctx, head)
		}
	}
}

func (w *Watcher) onNewHead(ctx context.Context, head chainDomain.Head) {
	w.logger.Debug(ctx, "processing head", "number", head.Number, "hash", head.Hash.Hex())
	w.reportHeadStatus()
	w.Refresh(ctx, head.Number)
}

// reportHeadStatus tells the reporter whether heads arrive over the
// subscription or by polling, when the subscriber can say.
func (w *Watcher) reportHeadStatus() {
	if s, ok := w.heads.(interface{ UsingHTTP() bool }); ok {
		w.reporter.UpdateConnectionStatus(ConnHeads, !s.UsingHTTP(), 0)
		return
	}
	w.reporter.UpdateConnectionStatus(ConnHeads, true, 0)
}

// Refresh prices every pair, reports the snapshot and returns it.
func (w *Watcher) Refresh(ctx context.Context, block uint64) domain.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, w.config.RefreshTimeout)
	defer cancel()

	start := time.Now()
	queries := make([]pricingDomain.PriceQuery, len(w.config.Pairs))
	for i, p := range w.config.Pairs {
		queries[i] = p.Query()
	}

	results := w.prices.GetPrices(ctx, queries)

	snap := domain.Snapshot{
		BlockNumber: block,
		Timestamp:   start,
		Rows:        make([]domain.Row, len(w.config.Pairs)),
	}

	w.mu.Lock()
	for i, p := range w.config.Pairs {
		snap.Rows[i] = w.row(p, queries[i], results[i].Quote, results[i].Err)
	}
	w.mu.Unlock()
	snap.Duration = time.Since(start)

	w.record(ctx, snap)
	w.reporter.Report(snap)
	return snap
}

// row builds one row. Caller holds mu.
func (w *Watcher) row(p domain.Pair, q pricingDomain.PriceQuery, quote pricingDomain.Quote, err error) domain.Row {
	if err != nil {
		return domain.Row{Pair: p, Err: err}
	}

	rate := decimal.NewFromFloat(quote.Price)
	row := domain.Row{
		Pair:   p,
		Price:  asset.NewPrice(p.Base, p.Quote, rate, quote.Source, quote.Timestamp),
		Cached: quote.Cached,
	}
	if prev, ok := w.last[q]; ok {
		row.ChangeBps = domain.ChangeBps(prev, rate)
	}
	w.last[q] = rate
	return row
}

func (w *Watcher) record(ctx context.Context, snap domain.Snapshot) {
	w.metrics.refreshes.Add(ctx, 1)
	w.metrics.duration.Record(ctx, snap.Duration.Seconds())
	for _, r := range snap.Rows {
		if r.Err != nil {
			w.metrics.failures.Add(ctx, 1,
				metric.WithAttributes(
					attribute.String("pair", r.Pair.String()),
					attribute.String("code", string(apperror.GetCode(r.Err))),
				))
		}
	}

	failed := snap.Failed()
	w.reporter.UpdateConnectionStatus(ConnNode, failed < len(snap.Rows), snap.Duration)
	if failed > 0 {
		w.logger.Warn(ctx, "some pairs could not be priced",
			"block", snap.BlockNumber, "failed", failed, "total", len(snap.Rows))
	}
}

// Stop ends the refresh loop, closes the head stream and stops the reporter.
func (w *Watcher) Stop() error {
	w.logger.Info(context.Background(), "stopping price watcher")
	if w.cancel != nil {
		w.cancel()
		<-w.done
	}
	if err := w.heads.Close(); err != nil {
		w.logger.Warn(context.Background(), "failed to close head stream", "error", err)
	}
	return w.reporter.Stop()
}
