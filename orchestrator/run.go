// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"bhiv/core/orchestrator/knowledge"
	"bhiv/core/orchestrator/llm"
	"bhiv/core/shared/logger"
)

// Prometheus metrics
var (
	promTasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhiv_orchestrator_tasks_total",
			Help: "Total number of tasks processed by the orchestrator",
		},
		[]string{"status"},
	)
	promTaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bhiv_orchestrator_task_duration_milliseconds",
			Help:    "End-to-end task duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"input_type"},
	)
	promDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhiv_orchestrator_routing_decisions_total",
			Help: "Total routing decisions by decision reason",
		},
		[]string{"reason"},
	)
	promIntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bhiv_orchestrator_intents_total",
			Help: "Total classified intents by category and confidence level",
		},
		[]string{"intent", "level"},
	)
	promLLMFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bhiv_orchestrator_llm_fallbacks_total",
			Help: "Total classifications escalated to the LLM fallback",
		},
	)
	promLLMOverridesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bhiv_orchestrator_llm_overrides_total",
			Help: "Total classifications where the LLM fallback overrode the pattern result",
		},
	)
	promRewards = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bhiv_orchestrator_reward",
			Help:    "Reward values emitted per completed task",
			Buckets: []float64{0, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5},
		},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promTasksTotal)
	prometheus.MustRegister(promTaskDuration)
	prometheus.MustRegister(promDecisionsTotal)
	prometheus.MustRegister(promIntentsTotal)
	prometheus.MustRegister(promLLMFallbacksTotal)
	prometheus.MustRegister(promLLMOverridesTotal)
	prometheus.MustRegister(promRewards)
}

// HandleTaskRequest is the wire shape of POST /handle_task.
type HandleTaskRequest struct {
	Query     string   `json:"query"`
	TaskID    string   `json:"task_id,omitempty"`
	Agent     string   `json:"agent,omitempty"`
	InputType string   `json:"input_type,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// ServiceOptions carries the optional collaborators a caller can inject.
// Zero value means: no RL suggestion source, no extra task-log sinks, no
// extra handlers.
type ServiceOptions struct {
	Suggester SuggestionSource
	TaskLogs  []TaskLog
	Handlers  HandlerMap
}

// Service is the assembled orchestrator: the routing pipeline plus its HTTP
// surface. Construct with NewService, serve with ListenAndServe or mount
// Routes on an existing server.
type Service struct {
	cfg      Config
	router   *Router
	registry *AgentRegistry
	audit    *AuditLogger
	mongoLog *MongoTaskLog
	started  time.Time
	log      *logger.Logger
}

// NewService wires the full pipeline from configuration: scorer, LLM
// fallback classifier, confidence gate, agent registry, selection policy,
// handlers, reward estimator and task-log sinks.
func NewService(cfg Config, opts ServiceOptions) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svcLog := logger.New("orchestrator")

	registry := NewAgentRegistry()
	if cfg.RegistryPath != "" {
		if err := registry.LoadFromFile(cfg.RegistryPath); err != nil {
			return nil, fmt.Errorf("failed to load agent registry: %w", err)
		}
	}

	generator := buildGenerator(cfg)
	classifier := NewLLMIntentClassifier(generator, AllIntentCategories())

	gate, err := NewConfidenceGate(cfg.Thresholds, classifier)
	if err != nil {
		return nil, err
	}

	policy, err := NewAgentSelectionPolicy(registry, opts.Suggester, SelectionPolicyOptions{
		UseRL:           cfg.RL.UseRL,
		ExplorationRate: cfg.RL.ExplorationRate,
		DefaultAgent:    cfg.DefaultAgent,
	})
	if err != nil {
		return nil, err
	}

	handlers := buildHandlers(cfg, generator, opts.Handlers)

	sinks := []TaskLog{NewMemoryTaskLog()}
	svc := &Service{
		cfg:      cfg,
		registry: registry,
		started:  time.Now(),
		log:      svcLog,
	}

	if cfg.Mongo.URI != "" {
		mongoLog, err := NewMongoTaskLog(context.Background(), cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			svcLog.ErrorWithErr("", "mongo task log unavailable, continuing without it", err, nil)
		} else {
			sinks = append(sinks, mongoLog)
			svc.mongoLog = mongoLog
		}
	}
	if cfg.PostgresURL != "" {
		audit, err := NewAuditLogger(cfg.PostgresURL)
		if err != nil {
			svcLog.ErrorWithErr("", "audit logger unavailable, continuing without it", err, nil)
		} else {
			sinks = append(sinks, audit)
			svc.audit = audit
		}
	}
	sinks = append(sinks, opts.TaskLogs...)

	router, err := NewRouter(cfg, RouterDeps{
		Scorer:    NewPatternIntentScorer(DefaultIntentPatterns()),
		Gate:      gate,
		Policy:    policy,
		Registry:  registry,
		Handlers:  handlers,
		Suggester: opts.Suggester,
		Estimator: NewRewardEstimator(),
		TaskLog:   NewMultiTaskLog(sinks...),
	})
	if err != nil {
		return nil, err
	}
	svc.router = router

	return svc, nil
}

// buildGenerator picks the configured LLM backend: Groq when an API key is
// present, the local Ollama endpoint otherwise.
func buildGenerator(cfg Config) llm.Generator {
	llmTimeout := time.Duration(cfg.Timeouts.LLMSeconds) * time.Second
	if cfg.Groq.APIKey != "" {
		return llm.NewGroqClient(llm.GroqOptions{
			APIKey:     cfg.Groq.APIKey,
			BaseURL:    cfg.Groq.BaseURL,
			Model:      cfg.Groq.Model,
			Timeout:    time.Duration(cfg.Groq.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.Groq.MaxRetries,
			RetryDelay: time.Duration(cfg.Groq.RetryDelaySecs * float64(time.Second)),
		})
	}
	return llm.NewOllamaClient(cfg.Ollama.Endpoint, cfg.Ollama.Model, llmTimeout)
}

// buildHandlers wires the default handler set and lays caller-provided
// handlers on top.
func buildHandlers(cfg Config, generator llm.Generator, extra HandlerMap) HandlerMap {
	handlers := HandlerMap{}

	var retriever knowledge.Retriever
	if cfg.RAG.APIURL != "" {
		retriever = knowledge.NewHTTPRetriever(cfg.RAG.APIURL, time.Duration(cfg.RAG.TimeoutSeconds)*time.Second)
	}

	if retriever != nil {
		for _, id := range []string{"knowledge_agent", "qna_agent", "edumentor_agent", "vedas_agent"} {
			handlers[id] = NewRetrievalHandler(id, retriever, generator, cfg.RAG.TopK, 1024)
		}
	} else {
		for _, id := range []string{"knowledge_agent", "qna_agent", "edumentor_agent", "vedas_agent"} {
			handlers[id] = NewGeneratorHandler(id, "Answer the following question concisely.", generator, 1024, 0.7)
		}
	}

	handlers["summarizer_agent"] = NewGeneratorHandler("summarizer_agent",
		"Summarize the following content clearly and concisely.", generator, 1024, 0.5)
	handlers["planner_agent"] = NewGeneratorHandler("planner_agent",
		"Produce a step-by-step plan for the following request.", generator, 1024, 0.7)
	handlers["file_search_agent"] = NewGeneratorHandler("file_search_agent",
		"Identify the documents or files most relevant to the following request and explain why.", generator, 1024, 0.3)
	handlers["wellness_agent"] = NewGeneratorHandler("wellness_agent",
		"Respond with supportive, practical wellness guidance for the following request.", generator, 1024, 0.8)
	handlers["archive_agent"] = NewGeneratorHandler("archive_agent",
		"Answer the following question about the referenced document.", generator, 1024, 0.3)
	handlers["image_agent"] = NewGeneratorHandler("image_agent",
		"Describe how to interpret the referenced image for the following request.", generator, 1024, 0.5)
	handlers["audio_agent"] = NewGeneratorHandler("audio_agent",
		"Answer the following question about the referenced audio.", generator, 1024, 0.5)

	for id, h := range extra {
		handlers[id] = h
	}
	return handlers
}

// Router exposes the routing pipeline for embedding and tests.
func (s *Service) Router() *Router { return s.router }

// Registry exposes the agent registry.
func (s *Service) Registry() *AgentRegistry { return s.registry }

// Close releases the service's external connections.
func (s *Service) Close() {
	if s.audit != nil {
		s.audit.Close()
	}
	if s.mongoLog != nil {
		_ = s.mongoLog.Close(context.Background())
	}
}

// Routes builds the HTTP handler: task intake, registry management, health
// and Prometheus metrics, wrapped in CORS.
func (s *Service) Routes() http.Handler {
	r := mux.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/handle_task", s.handleTaskHandler).Methods("POST")

	r.HandleFunc("/agents", s.listAgentsHandler).Methods("GET")
	r.HandleFunc("/agents", s.registerAgentHandler).Methods("POST")

	return c.Handler(r)
}

// ListenAndServe blocks serving the HTTP surface on the configured port.
func (s *Service) ListenAndServe() error {
	s.log.Info("", "orchestrator listening", map[string]interface{}{"port": s.cfg.Port})
	return http.ListenAndServe(":"+s.cfg.Port, s.Routes())
}

// Run assembles a service from cfg and serves until the process exits. It
// is the blocking entry point used by cmd/orchestrator.
func Run(cfg Config, opts ServiceOptions) {
	svc, err := NewService(cfg, opts)
	if err != nil {
		log.Fatalf("failed to initialize orchestrator: %v", err)
	}
	defer svc.Close()
	log.Fatal(svc.ListenAndServe())
}

func (s *Service) handleTaskHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req HandleTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		sendErrorResponse(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.InputType == "" {
		req.InputType = "text"
	}

	result := s.router.RouteAndDispatch(r.Context(), req.Query, RouteOptions{
		TaskID:         req.TaskID,
		RequestedAgent: req.Agent,
		InputType:      req.InputType,
		Tags:           req.Tags,
	})

	latencyMs := float64(time.Since(startTime).Milliseconds())
	promTasksTotal.WithLabelValues(result.Status).Inc()
	promTaskDuration.WithLabelValues(req.InputType).Observe(latencyMs)
	if result.DecisionReason != "" {
		promDecisionsTotal.WithLabelValues(string(result.DecisionReason)).Inc()
	}
	if result.DetectedIntent != "" {
		promIntentsTotal.WithLabelValues(string(result.DetectedIntent), string(result.ConfidenceLevel)).Inc()
	}

	code := http.StatusOK
	if result.Status != "success" {
		code = http.StatusInternalServerError
		if result.Agent == "" {
			// Selection failed before any handler ran.
			code = http.StatusBadRequest
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.log.ErrorWithErr(result.TaskID, "error encoding response", err, nil)
	}
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":         "healthy",
		"service":        "bhiv-core-orchestrator",
		"version":        "1.0.0",
		"uptime_seconds": time.Since(s.started).Seconds(),
		"timestamp":      time.Now().UTC(),
		"components": map[string]interface{}{
			"agent_registry": !s.registry.IsEmpty(),
			"audit_logger":   s.audit != nil,
			"task_log_mongo": s.mongoLog != nil,
		},
		"registry": s.registry.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.log.ErrorWithErr("", "error encoding response", err, nil)
	}
}

func (s *Service) listAgentsHandler(w http.ResponseWriter, r *http.Request) {
	agents := s.registry.List()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"agents": agents,
		"count":  len(agents),
	}); err != nil {
		s.log.ErrorWithErr("", "error encoding response", err, nil)
	}
}

func (s *Service) registerAgentHandler(w http.ResponseWriter, r *http.Request) {
	var reg AgentRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		sendErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if reg.ID == "" {
		sendErrorResponse(w, "agent id is required", http.StatusBadRequest)
		return
	}

	if err := s.registry.Register(reg); err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("", "agent registered", map[string]interface{}{"agent": reg.ID})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "registered",
		"agent":  reg.ID,
	}); err != nil {
		s.log.ErrorWithErr("", "error encoding response", err, nil)
	}
}

func sendErrorResponse(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "error",
		"error":  message,
	})
}
