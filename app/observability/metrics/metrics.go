package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the engine's metric instruments.
type AppMetrics struct {
	FilterRunsTotal        metric.Int64Counter
	FilterDurationSeconds  metric.Float64Histogram
	DisplayListRunsTotal   metric.Int64Counter
	StoreWriteErrorsTotal  metric.Int64Counter
	GeolocateRequestsTotal metric.Int64Counter
	RoutePlansTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global instruments once, from the globally
// configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("evaq-engine")
		var err error
		m := &AppMetrics{}

		m.FilterRunsTotal, err = meter.Int64Counter(
			"filter_runs_total",
			metric.WithDescription("Total number of filter pipeline executions"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create filter_runs_total: %v", err)
		}

		m.FilterDurationSeconds, err = meter.Float64Histogram(
			"filter_duration_seconds",
			metric.WithDescription("Duration of filter pipeline executions in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create filter_duration_seconds: %v", err)
		}

		m.DisplayListRunsTotal, err = meter.Int64Counter(
			"display_list_runs_total",
			metric.WithDescription("Total number of display list compositions"),
			metric.WithUnit("{run}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create display_list_runs_total: %v", err)
		}

		m.StoreWriteErrorsTotal, err = meter.Int64Counter(
			"store_write_errors_total",
			metric.WithDescription("Total number of user state persistence failures"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create store_write_errors_total: %v", err)
		}

		m.GeolocateRequestsTotal, err = meter.Int64Counter(
			"geolocate_requests_total",
			metric.WithDescription("Total number of position acquisition attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create geolocate_requests_total: %v", err)
		}

		m.RoutePlansTotal, err = meter.Int64Counter(
			"route_plans_total",
			metric.WithDescription("Total number of routes planned"),
			metric.WithUnit("{route}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_plans_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
