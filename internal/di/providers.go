package di

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	domrepo "StockDash/internal/domain/repository"
	"StockDash/internal/handler/api"
	"StockDash/internal/handler/web"
	"StockDash/internal/handler/ws"
	"StockDash/internal/repository"
	"StockDash/internal/service/ratelimit"
	"StockDash/internal/usecase"
	"StockDash/pkg/cache"
	pkgch "StockDash/pkg/clickhouse"
	"StockDash/pkg/config"
	xhttp "StockDash/pkg/http"
	"StockDash/pkg/http/middleware"
	pkgkafka "StockDash/pkg/kafka"
	applogger "StockDash/pkg/logger"
	"StockDash/pkg/metrics"
	"StockDash/pkg/postgres"
	"StockDash/pkg/server"
	"StockDash/pkg/sqlite"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

func tableNames(cfg *config.Config) repository.TableFiles {
	return repository.TableFiles{
		Predictions: cfg.Data.Tables.Predictions,
		PriceSeries: cfg.Data.Tables.PriceSeries,
		Technicals:  cfg.Data.Tables.Technicals,
		Earnings:    cfg.Data.Tables.Earnings,
	}
}

func fileNames(cfg *config.Config) repository.TableFiles {
	return repository.TableFiles{
		Predictions: cfg.Data.Files.Predictions,
		PriceSeries: cfg.Data.Files.PriceSeries,
		Technicals:  cfg.Data.Files.Technicals,
		Earnings:    cfg.Data.Files.Earnings,
	}
}

// ProvideTableSource opens the configured dataset backend.
func ProvideTableSource(cfg *config.Config, l *applogger.Logger) (domrepo.TableSource, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	switch cfg.Data.Source {
	case config.SourceCSV:
		return repository.NewCSVSource(cfg.Data.Dir, fileNames(cfg)), nil

	case config.SourceParquet:
		return repository.NewParquetSource(cfg.Data.Dir, fileNames(cfg)), nil

	case config.SourceSQLite:
		client, err := sqlite.Open(ctx, cfg.Data.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite source: %w", err)
		}
		return sqlSource("sqlite:"+client.Path(), client.DB(), client, cfg, l)

	case config.SourcePostgres:
		client, err := postgres.Open(ctx, cfg.Data.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres source: %w", err)
		}
		return sqlSource("postgres", client.DB(), client, cfg, l)

	case config.SourceClickHouse:
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(4, 2),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecution),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse source: %w", err)
		}
		return sqlSource("clickhouse:"+cfg.ClickHouse.Database, client.DB(), client, cfg, l)

	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

func sqlSource(name string, db *sql.DB, closer io.Closer, cfg *config.Config, l *applogger.Logger) (domrepo.TableSource, error) {
	src, err := repository.NewSQLSource(name, db, tableNames(cfg), closer.Close)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	src.SetLogger(l)
	return src, nil
}

// ProvideStore loads every table once. The source is closed afterwards; the
// store is never reloaded.
func ProvideStore(cfg *config.Config, src domrepo.TableSource, l *applogger.Logger, m *metrics.Recorder) (*repository.Store, error) {
	defer func() {
		if err := src.Close(); err != nil {
			l.Warn("table source close error", applogger.String("source", src.Name()), applogger.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	store, err := repository.Load(ctx, src, repository.StoreOptions{
		PredictionsInPercent: cfg.Data.PredictionsInPercent,
	}, l, m)
	if err != nil {
		m.RecordError("load")
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	return store, nil
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(cfg *config.Config, store *repository.Store, m *metrics.Recorder, l *applogger.Logger) *usecase.Dashboard {
	return usecase.NewDashboard(store, usecase.DashboardOptions{
		TopN:             cfg.Dashboard.TopN,
		TechnicalsCutoff: cfg.TechnicalsCutoff(),
	}, m, l)
}

func ProvideAPIHandler(l *applogger.Logger, dash *usecase.Dashboard) *api.DashboardEchoHandler {
	return api.NewDashboardEchoHandler(l, dash)
}

func ProvideWSHandler(l *applogger.Logger, dash *usecase.Dashboard, m *metrics.Recorder) *ws.DashboardHandler {
	return ws.NewDashboardHandler(l, dash, m)
}

func ProvidePageHandler(cfg *config.Config) (*web.PageHandler, error) {
	return web.NewPageHandler(web.PageConfig{
		Title:  cfg.Dashboard.Title,
		Footer: cfg.Dashboard.Footer,
		TopN:   cfg.Dashboard.TopN,
	})
}

// RateLimit is the configured limiter plus whatever the app has to manage for
// it. Limiter is nil when rate limiting is disabled.
type RateLimit struct {
	Limiter middleware.Limiter
	Pruner  server.Pruner
	Closer  io.Closer
}

// ProvideRateLimit builds an in-process token bucket or a fixed window shared
// by all replicas through Redis. An unreachable Redis falls back to a window
// counted in process memory.
func ProvideRateLimit(cfg *config.Config, l *applogger.Logger) (*RateLimit, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return &RateLimit{}, nil
	}

	switch rl.Backend {
	case "redis":
		limit := int64(rl.Capacity)
		if limit < 1 {
			limit = 1
		}
		var counter cache.Counter
		redisCache, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Redis.Host),
			cache.WithRedisPort(cfg.Redis.Port),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
			cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		)
		if err != nil {
			l.Warn("rate limit redis unavailable, counting in memory",
				applogger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)),
				applogger.Error(err),
			)
			// counters live one window, sweep them at the same pace
			counter = cache.NewMemoryCache(cache.WithMemoryCleanup(rl.Window))
		} else {
			counter = redisCache
		}
		return &RateLimit{Limiter: ratelimit.NewWindow(counter, limit, rl.Window), Closer: counter}, nil

	default:
		bucket := ratelimit.NewTokenBucket(rl.Capacity, rl.Refill)
		return &RateLimit{Limiter: bucket, Pruner: bucket}, nil
	}
}

// ProvideKafkaProducer creates the log publisher. It returns nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideHTTPServer registers every handler on one Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	rl *RateLimit,
	apiHandler *api.DashboardEchoHandler,
	wsHandler *ws.DashboardHandler,
	page *web.PageHandler,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Server.SlowThreshold))
	}
	if rl.Limiter != nil {
		opts = append(opts, xhttp.WithRateLimit(rl.Limiter))
	}
	return xhttp.NewServer([]xhttp.Handler{apiHandler, wsHandler, page}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	wsHandler *ws.DashboardHandler,
	rl *RateLimit,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, srv, wsHandler)
	if rl.Pruner != nil {
		app.SetPruner(rl.Pruner)
	}
	app.OnShutdown("rate limit cache", rl.Closer)

	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Kafka.FlushInterval,
			CountThreshold: cfg.Kafka.FlushCount,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
		app.OnShutdown("kafka producer", producer)
	}
	return app
}
