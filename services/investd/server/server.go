package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stakebank/core"
	"stakebank/core/types"
	"stakebank/observability"
	telemetry "stakebank/observability/otel"
	"stakebank/services/investd/journal"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

type ctxKey int

const requestIDKey ctxKey = iota

// Config captures the dependencies required to construct the server.
type Config struct {
	Host      *core.Host
	Blocks    *BlockClock
	Journal   *journal.Journal
	Logger    *slog.Logger
	Metrics   *observability.ModuleMetricsRecorder
	Gatherer  prometheus.Gatherer
	RateLimit RateLimit
	Clock     clockwork.Clock
	// ChainAPI exposes the settlement chain stand-in endpoints (funding,
	// rewards, slashing).
	ChainAPI bool
}

// Server exposes the contract host over HTTP.
type Server struct {
	host     *core.Host
	blocks   *BlockClock
	journal  *journal.Journal
	logger   *slog.Logger
	metrics  *observability.ModuleMetricsRecorder
	gatherer prometheus.Gatherer
	limiter  *senderLimiter
	chainAPI bool

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Blocks == nil {
		cfg.Blocks = NewBlockClock(cfg.Clock, core.Block{})
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	srv := &Server{
		host:     cfg.Host,
		blocks:   cfg.Blocks,
		journal:  cfg.Journal,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		gatherer: cfg.Gatherer,
		limiter:  newSenderLimiter(cfg.RateLimit, cfg.Clock),
		chainAPI: cfg.ChainAPI,
	}
	srv.router = srv.buildRouter()
	return srv
}

// Handler exposes the configured HTTP router wrapped in tracing middleware.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "investd")
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(api chi.Router) {
		api.Post("/execute", s.Execute)
		api.Post("/query", s.Query)
		api.Get("/events", s.Events)
		if s.chainAPI {
			api.Route("/chain", func(chain chi.Router) {
				chain.Post("/fund", s.Fund)
				chain.Post("/rewards", s.Rewards)
				chain.Post("/slash", s.Slash)
				chain.Get("/accounts/{address}/balance/{denom}", s.Balance)
				chain.Get("/accounts/{address}/delegations", s.Delegations)
			})
		}
	})
	return r
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type executeRequest struct {
	Sender string          `json:"sender"`
	Funds  []core.WireCoin `json:"funds,omitempty"`
	Msg    core.ExecuteMsg `json:"msg"`
}

type executeResponse struct {
	Height uint64              `json:"height"`
	Time   uint64              `json:"time"`
	Result *core.ExecuteResult `json:"result"`
}

// Execute runs one contract invocation in a fresh block.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	method := "unknown"
	status := http.StatusOK
	defer func() { s.metrics.Observe("execute", method, status, time.Since(start)) }()

	var req executeRequest
	if err := decodeBody(w, r, &req); err != nil {
		status = s.fail(w, r, err)
		return
	}
	if m, err := req.Msg.Method(); err == nil {
		method = m
	}
	sender, err := core.ParseAddress(req.Sender)
	if err != nil {
		status = s.fail(w, r, err)
		return
	}
	if !s.limiter.Allow(req.Sender) {
		s.metrics.RecordThrottle("execute", "rate_limit")
		status = s.fail(w, r, errRateLimited)
		return
	}

	ctx, span := telemetry.Tracer("stakebank/investd").Start(r.Context(), "execute "+method)
	defer span.End()
	span.SetAttributes(attribute.String("stakebank.sender", req.Sender), attribute.String("stakebank.method", method))

	// The host lock covers block allocation so heights and times reach the
	// contract and the journal in order.
	block, result, err := s.host.ExecuteNext(func() core.Block {
		next := s.blocks.Next()
		s.journal.SetHeight(next.Height)
		return next
	}, types.MessageInfo{Sender: sender, Funds: core.ToCoins(req.Funds)}, &req.Msg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		status = s.fail(w, r.WithContext(ctx), err)
		return
	}
	if result.Failed() {
		span.SetAttributes(attribute.String("stakebank.dispatch_error", result.DispatchError))
		s.logger.Warn("effect dispatch failed",
			"request_id", requestID(ctx),
			"method", method,
			"height", block.Height,
			"reason", result.DispatchError)
	}
	writeJSON(w, status, executeResponse{Height: block.Height, Time: block.Time, Result: result})
}

// Query answers a read-only query against the current block.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	method := "unknown"
	status := http.StatusOK
	defer func() { s.metrics.Observe("query", method, status, time.Since(start)) }()

	var msg core.QueryMsg
	if err := decodeBody(w, r, &msg); err != nil {
		status = s.fail(w, r, err)
		return
	}
	if m, err := msg.Method(); err == nil {
		method = m
	}
	result, err := s.host.Query(s.blocks.Current(), &msg)
	if err != nil {
		status = s.fail(w, r, err)
		return
	}
	writeJSON(w, status, result)
}

type eventView struct {
	ID         uint64            `json:"id"`
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	Height     uint64            `json:"height"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Events lists journaled contract events.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.fail(w, r, errJournalOff)
		return
	}
	filter := journal.Filter{Type: r.URL.Query().Get("type")}
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: after: %v", errInvalidPayload, err))
			return
		}
		filter.AfterID = after
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: limit: %v", errInvalidPayload, err))
			return
		}
		filter.Limit = limit
	}
	records, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]eventView, 0, len(records))
	for _, record := range records {
		attrs, err := record.Decode()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out = append(out, eventView{
			ID:         record.ID,
			EventID:    record.EventID.String(),
			Type:       record.Type,
			Height:     record.Height,
			Attributes: attrs,
			CreatedAt:  record.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) int {
	status := statusFor(err)
	level := slog.LevelDebug
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"request_id", requestID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err)
	writeJSON(w, status, newErrorResponse(err))
	return status
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
