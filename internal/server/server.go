// Package server is the self-hosted verification backend. It exposes the
// wire contract the backend client speaks: the verify procedure, the
// organization directory, and the verified-message feed. Organizations
// that registered an Ed25519 public key get real cryptographic checks;
// the rest get signature-format validation flagged as such.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tusharbhayani/SigText/internal/identity"
	"github.com/tusharbhayani/SigText/internal/model"
)

// Options configures a Server.
type Options struct {
	Dir      Directory
	Cache    *Cache // nil disables caching and rate limiting
	APIKeys  []string
	Notifier *WebhookNotifier
	Tracing  bool
	Logger   *slog.Logger
}

// Server serves the verification API.
type Server struct {
	dir      Directory
	cache    *Cache
	verifier *Verifier
	apiKeys  []string
	notifier *WebhookNotifier
	metrics  *Metrics
	logger   *slog.Logger
	handler  http.Handler
}

// New assembles the server and its middleware chain.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	s := &Server{
		dir:      opts.Dir,
		cache:    opts.Cache,
		verifier: NewVerifier(opts.Dir, opts.Cache, logger),
		apiKeys:  opts.APIKeys,
		notifier: opts.Notifier,
		metrics:  metrics,
		logger:   logger,
	}
	if s.notifier != nil {
		s.notifier.metrics = metrics
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("GET /v1/organizations", s.handleListOrgs)
	mux.HandleFunc("POST /v1/organizations", s.handleRegisterOrg)
	mux.HandleFunc("GET /v1/organizations/by-wallet/{wallet}", s.handleOrgByWallet)
	mux.HandleFunc("GET /v1/organizations/by-phone", s.handleOrgByPhone)
	mux.HandleFunc("GET /v1/messages", s.handleMessages)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var h http.Handler = mux
	h = s.auth(h)
	if opts.Tracing {
		h = otelhttp.NewHandler(h, "sigtext.server")
	}
	h = logging(logger)(h)
	h = requestID(h)
	h = recovery(logger)(h)
	s.handler = h
	return s
}

// Handler returns the assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("verification server listening", "addr", addr)
	return srv.ListenAndServe()
}

// auth enforces Bearer API keys when any are configured. /health and
// /metrics stay open.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.apiKeys) == 0 || r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		for _, key := range s.apiKeys {
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid_api_key", "missing or invalid API key")
	})
}

type verifyRequest struct {
	Content   string `json:"content"`
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
}

type verifyResponse struct {
	IsValid          bool              `json:"is_valid"`
	OrganizationID   string            `json:"organization_id,omitempty"`
	OrganizationName string            `json:"organization_name,omitempty"`
	Details          map[string]string `json:"verification_details,omitempty"`
	Error            string            `json:"error,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if s.cache != nil && !s.cache.Allow(r.Context(), req.Sender) {
		s.metrics.RateLimited.Inc()
		writeError(w, http.StatusForbidden, "rate_limited", "too many verification requests for this sender")
		return
	}

	res, err := s.verifier.Verify(r.Context(), req.Content, req.Signature, req.Sender)
	if err != nil {
		s.logger.Error("verification failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "verification failed")
		return
	}
	s.metrics.Duration.Observe(time.Since(start).Seconds())

	outcome := "failed"
	if res.Valid {
		outcome = "verified"
	}
	s.metrics.Verifications.WithLabelValues(outcome, res.Check).Inc()
	if s.notifier != nil {
		s.notifier.Notify(WebhookEvent{
			Event:        outcome,
			MessageID:    res.MessageID,
			Organization: res.OrgName,
			Sender:       req.Sender,
			Check:        res.Check,
			Reason:       res.Reason,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		})
	}

	resp := verifyResponse{
		IsValid:          res.Valid,
		OrganizationID:   res.OrgID,
		OrganizationName: res.OrgName,
		Error:            res.Reason,
	}
	if res.Check != "" {
		resp.Details = map[string]string{
			"check":            res.Check,
			"signature_length": strconv.Itoa(len(req.Signature)),
		}
		if res.Duplicate {
			resp.Details["duplicate"] = "true"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" && status != string(model.OrgVerified) {
		writeError(w, http.StatusBadRequest, "bad_request", "only status=verified is supported")
		return
	}
	orgs, err := s.dir.VerifiedOrganizations(r.Context())
	if err != nil {
		s.internalError(w, "listing organizations", err)
		return
	}
	if orgs == nil {
		orgs = []model.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (s *Server) handleRegisterOrg(w http.ResponseWriter, r *http.Request) {
	var org model.Organization
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&org); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if org.Name == "" || org.WalletAddress == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "name and wallet_address are required")
		return
	}
	if org.PublicKey != "" {
		if _, err := identity.ParsePublicKey(org.PublicKey); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "public_key is not a valid Ed25519 key")
			return
		}
	}
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if err := s.dir.InsertOrganization(r.Context(), &org); err != nil {
		s.internalError(w, "registering organization", err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (s *Server) handleOrgByWallet(w http.ResponseWriter, r *http.Request) {
	org, err := s.dir.OrganizationByWallet(r.Context(), r.PathValue("wallet"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}
	if err != nil {
		s.internalError(w, "looking up organization", err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleOrgByPhone(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "phone query parameter is required")
		return
	}
	org, err := s.dir.OrganizationByPhone(r.Context(), phone)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}
	if err != nil {
		s.internalError(w, "looking up organization", err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	msgs, err := s.dir.RecentMessages(r.Context(), limit)
	if err != nil {
		s.internalError(w, "listing messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.VerifiedMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) internalError(w http.ResponseWriter, action string, err error) {
	s.logger.Error(action, "error", err)
	writeError(w, http.StatusInternalServerError, "internal", fmt.Sprintf("%s failed", action))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
