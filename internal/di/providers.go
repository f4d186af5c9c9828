package di

import (
	"context"
	"fmt"
	"time"

	"SectorPulse/internal/domain/models"
	"SectorPulse/internal/domain/repository"
	"SectorPulse/internal/handler/api"
	internalrepo "SectorPulse/internal/repository"
	"SectorPulse/internal/service/cascade"
	"SectorPulse/internal/service/fetchpool"
	"SectorPulse/internal/service/krx"
	"SectorPulse/internal/service/naver"
	"SectorPulse/internal/service/news"
	"SectorPulse/internal/service/ratelimit"
	"SectorPulse/internal/service/resolver"
	"SectorPulse/internal/service/yahoo"
	"SectorPulse/internal/services/indicators"
	"SectorPulse/internal/usecase"
	"SectorPulse/pkg/cache"
	pkgch "SectorPulse/pkg/clickhouse"
	"SectorPulse/pkg/config"
	xhttp "SectorPulse/pkg/http"
	pkgkafka "SectorPulse/pkg/kafka"
	applogger "SectorPulse/pkg/logger"
	"SectorPulse/pkg/metrics"
	"SectorPulse/pkg/server"
	"SectorPulse/pkg/util"
)

// Sources holds the upstream adapters; News is nil when disabled.
type Sources struct {
	Yahoo *yahoo.Client
	Naver *naver.Client
	KRX   *krx.Client
	News  *news.Client
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the application logger. With Kafka enabled, repeated
// warnings and errors are aggregated and shipped to the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer == nil {
		return l, func() {}, nil
	}
	collector := applogger.NewCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          cfg.Kafka.LogTopic,
		Publisher:      producer,
	})
	l.AttachCollector(collector)
	return l, func() {
		l.DetachCollector()
		collector.Close()
	}, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns the per-run fetch cache: in-process, or in-process in
// front of Redis.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if cfg.Cache.Backend != "layered" {
		mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return mem, func() { _ = mem.Close() }, nil
	}
	remote, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	layered := cache.NewLayeredCache(remote, cfg.Cache.MemoryMaxSize)
	return layered, func() { _ = layered.Close() }, nil
}

// ProvideRateLimiter spaces requests to sources that need it.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	lim := ratelimit.New()
	lim.SetMinDelay(resolver.SourceNaver, cfg.Sources.Naver.MinDelay)
	if d := cfg.Sources.Yahoo.MinDelay; d > 0 {
		lim.SetMinDelay(resolver.SourceYahoo, d)
	}
	if d := cfg.Sources.KRX.MinDelay; d > 0 {
		lim.SetMinDelay(resolver.SourceKRX, d)
	}
	return lim
}

func ProvidePool(cfg *config.Config, c cache.Service, l *applogger.Logger, m repository.Metrics) *fetchpool.Pool {
	return fetchpool.New(fetchpool.Config{
		Workers:       cfg.Pool.Workers,
		RatePerSecond: cfg.Pool.RatePerSecond,
		Burst:         cfg.Pool.Burst,
		CacheTTL:      cfg.Cache.TTL,
	}, c, l, m)
}

func ProvideCascade(l *applogger.Logger, m repository.Metrics) *cascade.Controller {
	return cascade.NewController(l, m)
}

func ProvideResolver(cfg *config.Config) (*resolver.Resolver, error) {
	res, err := resolver.Load(cfg.Run.Universe)
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}
	return res, nil
}

func httpClient(src config.HTTPSourceConfig) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(src.Timeout), xhttp.WithUserAgent(src.UserAgent))
}

// ProvideSources builds the HTTP source adapters.
func ProvideSources(cfg *config.Config, lim *ratelimit.Limiter) *Sources {
	s := &Sources{
		Yahoo: yahoo.New(cfg.Sources.Yahoo.BaseURL, httpClient(cfg.Sources.Yahoo.HTTPSourceConfig), cfg.Location(), lim),
		Naver: naver.New(cfg.Sources.Naver.BaseURL, httpClient(cfg.Sources.Naver.HTTPSourceConfig), lim),
		KRX:   krx.New(cfg.Sources.KRX.BaseURL, httpClient(cfg.Sources.KRX.HTTPSourceConfig), cfg.Sources.KRX.Markets, lim),
	}
	if cfg.Sources.News.Enabled {
		s.News = news.New(cfg.Sources.News.BaseURL, httpClient(cfg.Sources.News.HTTPSourceConfig))
	}
	return s
}

// ProvideWarehouse connects to ClickHouse and ensures the bar table exists,
// or returns nil when the warehouse is disabled.
func ProvideWarehouse(cfg *config.Config, l *applogger.Logger) (*internalrepo.Warehouse, func(), error) {
	if !cfg.Sources.Warehouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	wh := internalrepo.NewWarehouse(client, cfg.ClickHouse.Database+"."+cfg.Sources.Warehouse.Table, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wh.InitSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return wh, func() { _ = client.Close() }, nil
}

// ProvideSeriesFetcher orders the series sources as configured.
func ProvideSeriesFetcher(cfg *config.Config, pool *fetchpool.Pool, ctl *cascade.Controller, src *Sources, wh *internalrepo.Warehouse, l *applogger.Logger) *usecase.SeriesFetcher {
	var sources []repository.SeriesSource
	for _, name := range cfg.Cascade.Series {
		switch name {
		case resolver.SourceYahoo:
			sources = append(sources, src.Yahoo)
		case resolver.SourceKRX:
			sources = append(sources, src.KRX)
		case resolver.SourceWarehouse:
			if wh != nil {
				sources = append(sources, wh)
			}
		}
	}
	var store usecase.SeriesStore
	if wh != nil {
		store = wh
	}
	return usecase.NewSeriesFetcher(pool, ctl, sources, store, l)
}

// ProvideFlowFetcher orders the flow sources as configured.
func ProvideFlowFetcher(cfg *config.Config, pool *fetchpool.Pool, ctl *cascade.Controller, src *Sources) *usecase.FlowFetcher {
	var sources []repository.FlowSource
	for _, name := range cfg.Cascade.Flow {
		switch name {
		case resolver.SourceNaver:
			sources = append(sources, src.Naver)
		case resolver.SourceKRX:
			sources = append(sources, src.KRX)
		}
	}
	return usecase.NewFlowFetcher(pool, ctl, sources)
}

// ProvideSnapshotFetcher uses the KRX bulk snapshot, then per-entity reads
// from KRX and Naver.
func ProvideSnapshotFetcher(cfg *config.Config, pool *fetchpool.Pool, ctl *cascade.Controller, src *Sources) *usecase.SnapshotFetcher {
	return usecase.NewSnapshotFetcher(pool, ctl, src.KRX, []repository.FundamentalsSource{src.KRX, src.Naver}, cfg.Cascade.SnapshotTopN)
}

// ProvideReportPublisher publishes to Kafka when enabled.
func ProvideReportPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ReportPublisher {
	if producer == nil {
		return internalrepo.NopReportPublisher{}
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic)
}

func windows(cfg *config.Config) []models.ComparisonWindow {
	out := make([]models.ComparisonWindow, 0, len(cfg.Run.Windows))
	for _, w := range cfg.Run.Windows {
		out = append(out, models.ComparisonWindow{Name: w.Name, CurrentStart: w.CurrentStart, CurrentEnd: w.CurrentEnd, Baseline: w.Baseline})
	}
	return out
}

func asOf(cfg *config.Config) time.Time {
	if cfg.Run.AsOf == "" {
		return time.Time{}
	}
	return util.ParseTradingDateDefault(cfg.Run.AsOf, time.Time{})
}

func ProvideSectorReportService(
	cfg *config.Config,
	res *resolver.Resolver,
	series *usecase.SeriesFetcher,
	flows *usecase.FlowFetcher,
	snapshot *usecase.SnapshotFetcher,
	src *Sources,
	pool *fetchpool.Pool,
	publisher repository.ReportPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.SectorReportService {
	var newsSrc repository.NewsSource
	if src.News != nil {
		newsSrc = src.News
	}
	return usecase.NewSectorReportService(usecase.ReportConfig{
		LookbackDays:        cfg.Run.LookbackDays,
		ReferenceCandidates: cfg.Run.ReferenceCandidates,
		Windows:             windows(cfg),
		Location:            cfg.Location(),
		AsOf:                asOf(cfg),
		NewsMaxItems:        cfg.Sources.News.MaxItems,
		WithSnapshot:        true,
	}, res, series, flows, snapshot, newsSrc, pool, publisher, m, l)
}

func ProvideScreenerService(cfg *config.Config, snapshot *usecase.SnapshotFetcher, res *resolver.Resolver, publisher repository.ReportPublisher, m repository.Metrics, l *applogger.Logger) *usecase.ScreenerService {
	minRatio := cfg.Screener.MinRatio
	if minRatio <= 0 {
		minRatio = indicators.DefaultMinRatio
	}
	return usecase.NewScreenerService(usecase.ScreenerConfig{
		MinRatio: minRatio,
		Limit:    cfg.Screener.Limit,
		Location: cfg.Location(),
		AsOf:     asOf(cfg),
	}, snapshot, res, publisher, m, l)
}

// ProvideHandler builds the HTTP handler with dependency health checks.
func ProvideHandler(cfg *config.Config, report *usecase.SectorReportService, screener *usecase.ScreenerService, wh *internalrepo.Warehouse, l *applogger.Logger) *api.ReportEchoHandler {
	h := api.NewReportEchoHandler(l, report, screener, windows(cfg), cfg.Run.Timeout)
	if wh != nil {
		h.AddHealthCheck("warehouse", wh.Health)
	}
	return h
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, l *applogger.Logger, report *usecase.SectorReportService, screener *usecase.ScreenerService, h *api.ReportEchoHandler) *server.App {
	return server.New(cfg, l, report, screener, h)
}
