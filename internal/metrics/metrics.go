package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Table metrics
	TablesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabletime_tables_active",
			Help: "Number of tables currently accruing time",
		},
	)

	TableActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletime_table_actions_total",
			Help: "Table actions processed",
		},
		[]string{"action", "result"},
	)

	ElapsedSecondsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletime_elapsed_seconds_total",
			Help: "Seconds of play accrued by the timer engine",
		},
		[]string{"table"},
	)

	FeesBilledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletime_fees_billed_total",
			Help: "Fees computed at stop, in the configured currency",
		},
		[]string{"table"},
	)

	// Workbook metrics
	WorkbookLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletime_workbook_loads_total",
			Help: "Startup loads by outcome (loaded, new_tab, recovered)",
		},
		[]string{"outcome"},
	)

	WorkbookSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabletime_workbook_saves_total",
			Help: "Workbook writes by result",
		},
		[]string{"result"},
	)

	WorkbookSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tabletime_workbook_save_duration_seconds",
			Help:    "Time spent rewriting the workbook",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Journal metrics
	JournalErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletime_journal_errors_total",
			Help: "Journal appends that failed",
		},
	)

	Rollovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tabletime_day_rollovers_total",
			Help: "Business day rollovers performed",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		TablesActive,
		TableActionsTotal,
		ElapsedSecondsTotal,
		FeesBilledTotal,
		WorkbookLoads,
		WorkbookSaves,
		WorkbookSaveDuration,
		JournalErrors,
		Rollovers,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler exposes the server's routes
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the metrics server
func (s *Server) Start() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
	}

	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
