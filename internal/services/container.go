package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services/analyzer"
	"drishti-worker-go/internal/services/detection"
	"drishti-worker-go/internal/services/dispatch"
	"drishti-worker-go/internal/services/frameselect"
	"drishti-worker-go/internal/services/ingest"
	"drishti-worker-go/internal/services/media"
	"drishti-worker-go/internal/services/messaging"
	"drishti-worker-go/internal/services/notification"
	"drishti-worker-go/internal/services/storage"
	"drishti-worker-go/internal/services/summary"
	"drishti-worker-go/internal/services/videodecode"
	"drishti-worker-go/internal/services/websocket"
	"drishti-worker-go/internal/worker"
)

// Role names one agent process
type Role string

const (
	RoleBottleneck Role = "bottleneck"
	RoleAnomaly    Role = "anomaly"
	RoleSummary    Role = "summary"
	RoleDispatch   Role = "dispatch"
)

// AllRoles is every agent, in pipeline order
var AllRoles = []Role{RoleBottleneck, RoleAnomaly, RoleSummary, RoleDispatch}

func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown agent role %q", s)
}

// ServiceContainer holds all services
type ServiceContainer struct {
	Config   *config.Config
	Registry *config.Registry

	Fabric   messaging.Fabric
	Store    storage.Store
	Media    media.Store
	Hub      *websocket.Hub
	Notifier *notification.Notifier

	Ingest     *ingest.Service
	Bottleneck *detection.Agent
	Anomaly    *detection.Agent
	Summary    *summary.Agent
	Dispatch   *dispatch.Agent

	analyzers []*analyzer.GRPCClient

	mu        sync.Mutex
	pools     []*worker.Pool
	hubCancel context.CancelFunc
}

// NewServiceContainer creates a new service container
func NewServiceContainer(ctx context.Context, cfg *config.Config, reg *config.Registry) (*ServiceContainer, error) {
	sc := &ServiceContainer{Config: cfg, Registry: reg}

	var err error
	sc.Store, err = storage.Open(ctx, storage.Config{
		Backend:       cfg.StoreBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	sc.Media, err = media.New(ctx, cfg)
	if err != nil {
		sc.Store.Close()
		return nil, fmt.Errorf("open media store: %w", err)
	}

	sc.Fabric, err = messaging.New(ctx, cfg)
	if err != nil {
		sc.Store.Close()
		return nil, fmt.Errorf("connect message fabric: %w", err)
	}

	sc.Hub = websocket.NewHub(logging.NewServiceLogger(cfg, "websocket"))

	senders := []notification.Sender{notification.NewPushSender(sc.Fabric, cfg.PushSubject)}
	if cfg.SMTPHost != "" {
		senders = append(senders, notification.NewEmailSender(notification.EmailConfig{
			Host:              cfg.SMTPHost,
			Port:              cfg.SMTPPort,
			Username:          cfg.SMTPUsername,
			Password:          cfg.SMTPPassword,
			From:              cfg.EmailSender,
			DefaultRecipients: cfg.DefaultRecipients,
		}))
	}
	sc.Notifier = notification.NewNotifier(cfg.NotifyTimeout, logging.NewServiceLogger(cfg, "notification"), senders...)

	sc.Ingest = ingest.NewService(ingest.Config{
		BottleneckTopic: cfg.BottleneckTopic,
		AnomalyTopic:    cfg.AnomalyTopic,
	}, reg, sc.Media, videodecode.NewDecoder(cfg.TargetFPS), frameselect.New(cfg.MotionThreshold, videodecode.MotionScore), sc.Fabric, logging.NewServiceLogger(cfg, "ingest"))

	minSeverity := models.ParseSeverity(cfg.DispatchMinSeverity)

	bottleneckClient := analyzer.NewGRPCClient(cfg.BottleneckAnalyzerURL, string(models.SourceBottleneck))
	anomalyClient := analyzer.NewGRPCClient(cfg.AnomalyAnalyzerURL, string(models.SourceAnomaly))
	sc.analyzers = []*analyzer.GRPCClient{bottleneckClient, anomalyClient}

	sc.Bottleneck, err = detection.NewAgent(detection.Config{
		Source:              models.SourceBottleneck,
		Analyzer:            analyzer.WithTimeout(bottleneckClient, cfg.AnalyzerTimeout),
		Policy:              detection.NewDensityPolicy(cfg.DensityThreshold, cfg.HighDensityMultiplier),
		BufferCapacity:      cfg.BufferCapacity,
		SummaryTopic:        cfg.SummaryTopic,
		DispatchTopic:       cfg.DispatchTopic,
		DispatchMinSeverity: minSeverity,
	}, sc.Store, sc.Media, sc.Fabric, logging.NewServiceLogger(cfg, "bottleneck-agent"))
	if err != nil {
		sc.close()
		return nil, err
	}

	sc.Anomaly, err = detection.NewAgent(detection.Config{
		Source:              models.SourceAnomaly,
		Analyzer:            analyzer.WithTimeout(anomalyClient, cfg.AnalyzerTimeout),
		Policy:              detection.NewKeywordPolicy(cfg.ThreatKeywords),
		RescanBuffer:        true,
		BufferCapacity:      cfg.BufferCapacity,
		SummaryTopic:        cfg.SummaryTopic,
		DispatchTopic:       cfg.DispatchTopic,
		DispatchMinSeverity: minSeverity,
	}, sc.Store, sc.Media, sc.Fabric, logging.NewServiceLogger(cfg, "anomaly-agent"))
	if err != nil {
		sc.close()
		return nil, err
	}

	sc.Summary = summary.NewAgent(summary.TemplateSummarizer{}, sc.Store, sc.Hub, logging.NewServiceLogger(cfg, "summary-agent"))

	pool := dispatch.NewUnitPool(sc.Store)
	added, err := pool.Seed(ctx, reg.Units)
	if err != nil {
		sc.close()
		return nil, fmt.Errorf("seed field units: %w", err)
	}
	log.Info().Int("seeded", added).Int("registered", len(reg.Units)).Msg("Field unit pool ready")

	sc.Dispatch = dispatch.NewAgent(dispatch.Config{
		UnitsPerEvent:        cfg.UnitsPerEvent,
		DefaultETA:           cfg.DefaultETA,
		SupervisorRecipients: cfg.SupervisorRecipients,
	}, dispatch.NewActionMapper(reg.Actions), pool, sc.Store, sc.Notifier, sc.Hub, logging.NewServiceLogger(cfg, "dispatch-agent"))

	return sc, nil
}

// StartHub runs the live feed until Shutdown
func (sc *ServiceContainer) StartHub(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	sc.mu.Lock()
	sc.hubCancel = cancel
	sc.mu.Unlock()
	go sc.Hub.Run(ctx)
}

// StartAgents subscribes each role to its topic and starts its worker pool
func (sc *ServiceContainer) StartAgents(ctx context.Context, roles ...Role) error {
	for _, role := range roles {
		topic, workers, handler := sc.agentFor(role)
		durable := string(role) + "-agent"

		sub, err := sc.Fabric.Subscribe(ctx, topic, durable)
		if err != nil {
			return fmt.Errorf("subscribe %s to %s: %w", durable, topic, err)
		}

		p := worker.New(worker.Config{
			Name:    durable,
			Workers: workers,
			Timeout: sc.Config.MessageTimeout,
		}, sub, handler, logging.NewServiceLogger(sc.Config, durable))
		p.Start(ctx)

		sc.mu.Lock()
		sc.pools = append(sc.pools, p)
		sc.mu.Unlock()

		log.Info().
			Str("role", string(role)).
			Str("topic", topic).
			Int("workers", workers).
			Msg("✅ Agent started")
	}
	return nil
}

func (sc *ServiceContainer) agentFor(role Role) (string, int, worker.Handler) {
	cfg := sc.Config
	switch role {
	case RoleBottleneck:
		return cfg.BottleneckTopic, cfg.BottleneckWorkers, sc.Bottleneck.Handle
	case RoleAnomaly:
		return cfg.AnomalyTopic, cfg.AnomalyWorkers, sc.Anomaly.Handle
	case RoleSummary:
		return cfg.SummaryTopic, cfg.SummaryWorkers, sc.Summary.Handle
	default:
		return cfg.DispatchTopic, cfg.DispatchWorkers, sc.Dispatch.Handle
	}
}

// PoolStats reports every running worker pool
func (sc *ServiceContainer) PoolStats() []worker.Stats {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]worker.Stats, 0, len(sc.pools))
	for _, p := range sc.pools {
		out = append(out, p.Stats())
	}
	return out
}

// Shutdown stops the pools, drains the fabric and closes the store
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	pools := sc.pools
	sc.pools = nil
	hubCancel := sc.hubCancel
	sc.mu.Unlock()

	for _, p := range pools {
		p.Stop()
	}
	if hubCancel != nil {
		hubCancel()
	}

	var errs []error
	if err := sc.Fabric.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown fabric: %w", err))
	}
	for _, a := range sc.analyzers {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close analyzer: %w", err))
		}
	}
	if err := sc.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// close releases what NewServiceContainer opened before failing
func (sc *ServiceContainer) close() {
	for _, a := range sc.analyzers {
		a.Close()
	}
	if sc.Fabric != nil {
		sc.Fabric.Shutdown(context.Background())
	}
	if sc.Store != nil {
		sc.Store.Close()
	}
}
