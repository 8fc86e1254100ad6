package app

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/coocood/freecache"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/chain-oracles/business/pricing/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

// ServiceConfig tunes the PricingService.
type ServiceConfig struct {
	// CacheTTL is the width of a cache time bucket. Zero disables caching.
	CacheTTL time.Duration
	// CacheSizeMB is the freecache arena size.
	CacheSizeMB int
	// Tolerance bounds |price(A,B)*price(B,A) - 1| in CheckedPrice.
	Tolerance float64
	// Concurrency bounds parallel lookups in GetPrices.
	Concurrency int
}

// DefaultServiceConfig returns the configuration used when none is given.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CacheTTL:    15 * time.Second,
		CacheSizeMB: 8,
		Tolerance:   0.5,
		Concurrency: 4,
	}
}

// PriceResult is one answer of GetPrices.
type PriceResult struct {
	Quote domain.Quote
	Err   error
}

// PricingService asks its oracles in order and returns the first price found.
// A source that has no pool for the pair hands over to the next one; a
// transport failure stops the lookup.
type PricingService struct {
	sources []PriceOracle
	cfg     ServiceConfig
	cache   *freecache.Cache
	logger  logger.LoggerInterface
	now     func() time.Time
}

// NewPricingService creates a service over sources, in priority order.
func NewPricingService(sources []PriceOracle, cfg ServiceConfig, log logger.LoggerInterface) *PricingService {
	s := &PricingService{
		sources: sources,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
	}
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSizeMB
		if size <= 0 {
			size = 1
		}
		s.cache = freecache.NewCache(size * 1024 * 1024)
	}
	if s.cfg.Concurrency <= 0 {
		s.cfg.Concurrency = 1
	}
	return s
}

// Sources returns the source names in priority order.
func (s *PricingService) Sources() []string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return names
}

// ReferenceToken returns the reference token of the primary source.
func (s *PricingService) ReferenceToken() (common.Address, error) {
	if len(s.sources) == 0 {
		return common.Address{}, apperror.New(apperror.CodeNoPriceSource)
	}
	return s.sources[0].ReferenceToken(), nil
}

// GetPrice prices base in quote, defaulting quote to the reference token.
func (s *PricingService) GetPrice(ctx context.Context, base common.Address, quote ...common.Address) (domain.Quote, error) {
	ref, err := s.ReferenceToken()
	if err != nil {
		return domain.Quote{}, err
	}
	q := domain.NewPriceQuery(base, ref, quote...)

	if q.IsIdentity() {
		return domain.Quote{Query: q, Price: 1.0, Source: s.sources[0].Name(), Timestamp: s.now()}, nil
	}

	var lastErr error
	for _, src := range s.sources {
		got, err := s.fromSource(ctx, src, q)
		if err == nil {
			return got, nil
		}
		if !domain.IsCannotGetPrice(err) {
			return domain.Quote{}, err
		}
		s.logger.Debug(ctx, "source cannot price pair, trying next",
			"source", src.Name(), "pair", q.String())
		lastErr = err
	}
	return domain.Quote{}, lastErr
}

// CheckedPrice prices q and its inverse on the same source and fails with
// INCONSISTENT_PRICE when they do not round-trip within the tolerance.
func (s *PricingService) CheckedPrice(ctx context.Context, base, quote common.Address) (domain.Quote, domain.Consistency, error) {
	forward, err := s.GetPrice(ctx, base, quote)
	if err != nil {
		return domain.Quote{}, domain.Consistency{}, err
	}
	if forward.Query.IsIdentity() {
		return forward, domain.CheckConsistency(1, 1), nil
	}

	src := s.source(forward.Source)
	inverse, err := s.fromSource(ctx, src, forward.Query.Inverse())
	if err != nil {
		return domain.Quote{}, domain.Consistency{}, err
	}

	c := domain.CheckConsistency(forward.Price, inverse.Price)
	if !c.Within(s.cfg.Tolerance) {
		s.logger.Warn(ctx, "price does not round-trip",
			"source", src.Name(), "pair", forward.Query.String(),
			"forward", forward.Price, "inverse", inverse.Price, "deviation", c.Deviation.String())
		return forward, c, domain.NewInconsistentPrice(src.Name(), forward.Query, c, s.cfg.Tolerance)
	}
	return forward, c, nil
}

// GetPrices prices every query concurrently. Failures are reported per query.
func (s *PricingService) GetPrices(ctx context.Context, queries []domain.PriceQuery) []PriceResult {
	results := make([]PriceResult, len(queries))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, q := range queries {
		g.Go(func() error {
			got, err := s.GetPrice(ctx, q.Base, q.Quote)
			if err != nil {
				got.Query = q
			}
			results[i] = PriceResult{Quote: got, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *PricingService) source(name string) PriceOracle {
	for _, src := range s.sources {
		if src.Name() == name {
			return src
		}
	}
	return s.sources[0]
}

func (s *PricingService) fromSource(ctx context.Context, src PriceOracle, q domain.PriceQuery) (domain.Quote, error) {
	key := s.cacheKey(src.Name(), q)
	if price, ok := s.cached(key); ok {
		return domain.Quote{Query: q, Price: price, Source: src.Name(), Cached: true, Timestamp: s.now()}, nil
	}

	price, err := src.GetPrice(ctx, q.Base, q.Quote)
	if err != nil {
		return domain.Quote{}, err
	}

	s.store(ctx, key, price)
	return domain.Quote{Query: q, Price: price, Source: src.Name(), Timestamp: s.now()}, nil
}

// cacheKey buckets time so that an entry is never served past its bucket.
func (s *PricingService) cacheKey(source string, q domain.PriceQuery) []byte {
	if s.cache == nil {
		return nil
	}
	bucket := s.now().Unix() / int64(s.ttlSeconds())
	return []byte(fmt.Sprintf("%s|%s|%s|%d", source, q.Base.Hex(), q.Quote.Hex(), bucket))
}

func (s *PricingService) ttlSeconds() int {
	secs := int(math.Ceil(s.cfg.CacheTTL.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *PricingService) cached(key []byte) (float64, bool) {
	if key == nil {
		return 0, false
	}
	raw, err := s.cache.Get(key)
	if err != nil || len(raw) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(raw)), true
}

func (s *PricingService) store(ctx context.Context, key []byte, price float64) {
	if key == nil {
		return
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(price))
	if err := s.cache.Set(key, buf[:], s.ttlSeconds()); err != nil {
		s.logger.Warn(ctx, "price cache set failed", "error", err)
	}
}
