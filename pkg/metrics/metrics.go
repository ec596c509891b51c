package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "farm_"

const (
	ResultSuccess = "success"
	ResultError   = "error"

	TransitionStart = "start"
	TransitionStop  = "stop"
)

var (
	registerOnce sync.Once

	readingsIngested *prometheus.CounterVec
	alertsEmitted    *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec

	simulatorCycles   *prometheus.CounterVec
	simulatorReadings *prometheus.CounterVec

	irrigationTransitions *prometheus.CounterVec
	irrigationActive      prometheus.Gauge
	sweepLatency          prometheus.Histogram
)

// Init registers the collectors with the default registry. Every recorder calls it, so an
// explicit call is only needed to have /metrics list them before the first event.
func Init() {
	registerOnce.Do(func() {
		readingsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Total ingested readings by sensor type",
			},
			[]string{"sensor_type"},
		)
		alertsEmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_emitted_total",
				Help: "Total stored alerts by severity",
			},
			[]string{"severity"},
		)
		alertsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Threshold alerts dropped as duplicates by kind",
			},
			[]string{"kind"},
		)
		simulatorCycles = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "simulator_cycles_total",
				Help: "Simulator cycles by result",
			},
			[]string{"result"},
		)
		simulatorReadings = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "simulator_readings_total",
				Help: "Simulated readings by result",
			},
			[]string{"result"},
		)
		irrigationTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "irrigation_transitions_total",
				Help: "Irrigation state transitions by direction",
			},
			[]string{"transition"},
		)
		irrigationActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "irrigation_pending_stops",
			Help: "Armed irrigation stop timers",
		})
		sweepLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "irrigation_sweep_duration_seconds",
			Help:    "Irrigation sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			readingsIngested,
			alertsEmitted,
			alertsSuppressed,
			simulatorCycles,
			simulatorReadings,
			irrigationTransitions,
			irrigationActive,
			sweepLatency,
		)
	})
}

func ReadingIngested(sensorType string) {
	Init()
	readingsIngested.WithLabelValues(sensorType).Inc()
}

func AlertEmitted(severity string) {
	Init()
	alertsEmitted.WithLabelValues(severity).Inc()
}

func AlertSuppressed(kind string) {
	Init()
	alertsSuppressed.WithLabelValues(kind).Inc()
}

func SimulatorCycle(result string) {
	Init()
	simulatorCycles.WithLabelValues(result).Inc()
}

func SimulatorReading(result string) {
	Init()
	simulatorReadings.WithLabelValues(result).Inc()
}

func IrrigationTransition(transition string) {
	Init()
	irrigationTransitions.WithLabelValues(transition).Inc()
}

func SetPendingStops(n int) {
	Init()
	irrigationActive.Set(float64(n))
}

func ObserveSweep(d time.Duration) {
	Init()
	sweepLatency.Observe(d.Seconds())
}
