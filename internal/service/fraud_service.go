// Package service orchestrates scoring, lifecycle, alerting and metrics for
// each API request
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/banking/fraud-monitor/internal/alerts"
	"github.com/banking/fraud-monitor/internal/cache"
	"github.com/banking/fraud-monitor/internal/dashboard"
	"github.com/banking/fraud-monitor/internal/domain"
	"github.com/banking/fraud-monitor/internal/events"
	"github.com/banking/fraud-monitor/internal/lifecycle"
	"github.com/banking/fraud-monitor/internal/pkg/logger"
	"github.com/banking/fraud-monitor/internal/pkg/metrics"
	"github.com/banking/fraud-monitor/internal/pkg/tracing"
	"github.com/banking/fraud-monitor/internal/repository"
	"github.com/banking/fraud-monitor/internal/scoring"
)

// MaxListLimit caps a single listing page
const MaxListLimit = 500

// ImportConfig bounds bulk imports
type ImportConfig struct {
	BatchSize   int
	MaxBatch    int
	Parallelism int
}

// Deps are the collaborators of the fraud service
type Deps struct {
	Scorer       *scoring.Scorer
	Policy       lifecycle.Policy
	Transactions repository.TransactionRepository
	Alerts       repository.AlertRepository
	Cache        cache.MetricsCache
	Publisher    events.Publisher
	Logger       *logger.Logger
	Metrics      *metrics.Collector
	Import       ImportConfig
}

// FraudService is the application layer behind the HTTP API
type FraudService struct {
	scorer    *scoring.Scorer
	policy    lifecycle.Policy
	txRepo    repository.TransactionRepository
	lifecycle *lifecycle.Manager
	alerts    *alerts.Manager
	cache     cache.MetricsCache
	publisher events.Publisher
	log       *logger.Logger
	metrics   *metrics.Collector
	importCfg ImportConfig
	tracer    trace.Tracer
	now       func() time.Time
}

// New wires a FraudService. Nil cache and publisher fall back to no-ops
func New(d Deps) *FraudService {
	if d.Cache == nil {
		d.Cache = cache.NoopMetricsCache{}
	}
	if d.Publisher == nil {
		d.Publisher = events.NoopPublisher{}
	}
	if d.Import.BatchSize <= 0 {
		d.Import.BatchSize = 100
	}
	if d.Import.MaxBatch <= 0 {
		d.Import.MaxBatch = 1000
	}
	if d.Import.Parallelism <= 0 {
		d.Import.Parallelism = 1
	}

	log := d.Logger.Named("service")
	return &FraudService{
		scorer:    d.Scorer,
		policy:    d.Policy,
		txRepo:    d.Transactions,
		lifecycle: lifecycle.NewManager(d.Transactions, d.Logger, d.Metrics),
		alerts:    alerts.NewManager(d.Alerts, d.Scorer, d.Logger, d.Metrics),
		cache:     d.Cache,
		publisher: d.Publisher,
		log:       log,
		metrics:   d.Metrics,
		importCfg: d.Import,
		tracer:    tracing.Tracer(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeResult is the outcome of scoring one transaction
type AnalyzeResult struct {
	Transaction *domain.Transaction
	Analysis    *domain.Analysis
	ShouldAlert bool
	Saved       bool
	Alert       *domain.Alert
}

// Analyze scores input for actor. When save is true the scored
// transaction is stored with its automatic status and an alert is raised
// when its severity warrants one
func (s *FraudService) Analyze(ctx context.Context, actor string, input domain.TransactionInput, save bool) (res *AnalyzeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "FraudService.Analyze", trace.WithAttributes(attribute.Bool("save", save)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if save {
		err = input.ValidateForStorage()
	} else {
		err = input.Validate()
	}
	if err != nil {
		return nil, err
	}

	tx := input.ToTransaction(actor)
	analysis, outcome := s.score(tx)
	res = &AnalyzeResult{
		Transaction: tx,
		Analysis:    analysis,
		ShouldAlert: outcome.ShouldAlert,
	}

	s.log.WithContext(ctx).TransactionScored(tx.TransactionID, analysis.FraudScore,
		string(analysis.Severity), string(analysis.Recommendation), len(analysis.Factors))

	if !save {
		return res, nil
	}

	if tx.TransactionID == "" {
		tx.TransactionID = s.newTransactionID()
	}
	alert, err := s.store(ctx, tx, analysis, outcome)
	if err != nil {
		return nil, err
	}
	res.Saved = true
	res.Alert = alert
	s.invalidateMetrics(ctx, actor)

	span.SetAttributes(
		attribute.String("transaction_id", tx.TransactionID),
		attribute.Float64("fraud_score", analysis.FraudScore),
	)
	return res, nil
}

func (s *FraudService) score(tx *domain.Transaction) (*domain.Analysis, lifecycle.Outcome) {
	analysis := s.scorer.Analyze(tx)
	outcome := s.policy.Apply(tx, analysis.Severity)

	tx.FraudScore = analysis.FraudScore
	tx.Severity = analysis.Severity
	tx.RiskFactors = analysis.Factors
	tx.Status = outcome.Status
	return analysis, outcome
}

// store persists a scored transaction, raises its alert and publishes the
// resulting events. A failed alert insert deletes the row again so the
// same transaction ID can be retried. Publish failures never fail the call
func (s *FraudService) store(ctx context.Context, tx *domain.Transaction, analysis *domain.Analysis, outcome lifecycle.Outcome) (*domain.Alert, error) {
	now := s.now()
	if tx.Timestamp.IsZero() {
		tx.Timestamp = now
	}
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := s.txRepo.Insert(ctx, tx); err != nil {
		s.storageFailed(ctx, "insert_transaction", err)
		return nil, err
	}

	var (
		alert   *domain.Alert
		created bool
	)
	if outcome.ShouldAlert {
		var err error
		alert, created, err = s.alerts.MaybeCreateAlert(ctx, tx, analysis.Severity, analysis.Factors)
		if err != nil {
			s.storageFailed(ctx, "insert_alert", err)
			// Import cancels sibling rows on the first error; the rollback must still run
			if derr := s.txRepo.Delete(context.WithoutCancel(ctx), tx.TransactionID); derr != nil {
				s.log.WithContext(ctx).StorageFailure("rollback_transaction", derr)
				s.metrics.StorageError("rollback_transaction")
			}
			return nil, err
		}
	}

	s.metrics.ObserveScore(string(tx.Severity), string(tx.Status), tx.FraudScore)
	s.publishScored(ctx, tx, analysis)
	if created {
		s.publishAlert(ctx, events.TypeAlertCreated, alert)
	}
	return alert, nil
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Imported int `json:"imported"`
	Alerts   int `json:"alerts_created"`
}

// Import scores and stores rows for actor. Every row is validated before
// anything is written; rows are then processed in batches, each batch
// scored in parallel
func (s *FraudService) Import(ctx context.Context, actor string, rows []domain.TransactionInput) (res *ImportResult, err error) {
	ctx, span := s.tracer.Start(ctx, "FraudService.Import", trace.WithAttributes(attribute.Int("rows", len(rows))))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	if len(rows) == 0 {
		return nil, domain.NewValidationError("transactions", "must not be empty")
	}
	if len(rows) > s.importCfg.MaxBatch {
		return nil, domain.NewValidationError("transactions",
			fmt.Sprintf("at most %d rows per import", s.importCfg.MaxBatch))
	}
	for i := range rows {
		if err := rows[i].ValidateForStorage(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	start := time.Now()
	var imported, alertCount atomic.Int64
	defer func() {
		if imported.Load() > 0 {
			s.invalidateMetrics(ctx, actor)
		}
	}()

	for offset := 0; offset < len(rows); offset += s.importCfg.BatchSize {
		end := offset + s.importCfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.importCfg.Parallelism)

		for i := offset; i < end; i++ {
			row := rows[i]
			g.Go(func() error {
				tx := row.ToTransaction(actor)
				if tx.TransactionID == "" {
					tx.TransactionID = s.newTransactionID()
				}
				analysis, outcome := s.score(tx)
				alert, err := s.store(gctx, tx, analysis, outcome)
				if err != nil {
					return fmt.Errorf("transaction %s: %w", tx.TransactionID, err)
				}
				imported.Add(1)
				if alert != nil {
					alertCount.Add(1)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return &ImportResult{Imported: int(imported.Load()), Alerts: int(alertCount.Load())}, err
		}
	}

	res = &ImportResult{Imported: int(imported.Load()), Alerts: int(alertCount.Load())}
	s.log.WithContext(ctx).ImportCompleted(actor, res.Imported, res.Alerts, time.Since(start).Milliseconds())
	return res, nil
}

// ListTransactions returns the actor's transactions, newest first
func (s *FraudService) ListTransactions(ctx context.Context, actor, status string, limit int) ([]*domain.Transaction, error) {
	filter := domain.TransactionFilter{OwnerID: actor, Limit: clampLimit(limit)}
	if status != "" {
		st, err := domain.ParseTransactionStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	txs, err := s.txRepo.List(ctx, filter)
	if err != nil {
		s.storageFailed(ctx, "list_transactions", err)
		return nil, err
	}
	return txs, nil
}

// GetTransaction returns one of the actor's transactions
func (s *FraudService) GetTransaction(ctx context.Context, actor, transactionID string) (*domain.Transaction, error) {
	tx, err := s.txRepo.Get(ctx, transactionID)
	if err != nil {
		s.storageFailed(ctx, "get_transaction", err)
		return nil, err
	}
	if !tx.IsOwnedBy(actor) {
		return nil, domain.Forbiddenf("transaction %s", transactionID)
	}
	return tx, nil
}

// TransitionTransaction applies an operator action to a transaction
func (s *FraudService) TransitionTransaction(ctx context.Context, actor, transactionID, action string) (tx *domain.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "FraudService.TransitionTransaction",
		trace.WithAttributes(attribute.String("transaction_id", transactionID), attribute.String("action", action)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	a, err := lifecycle.ParseAction(action)
	if err != nil {
		return nil, err
	}
	tx, err = s.lifecycle.Transition(ctx, actor, transactionID, a)
	if err != nil {
		s.storageFailed(ctx, "transition_transaction", err)
		return nil, err
	}
	s.invalidateMetrics(ctx, actor)
	return tx, nil
}

// Metrics returns the actor's dashboard metrics. baseline is the prior
// period fraud rate, when known
func (s *FraudService) Metrics(ctx context.Context, actor string, baseline *float64) (m *domain.DashboardMetrics, err error) {
	ctx, span := s.tracer.Start(ctx, "FraudService.Metrics")
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	log := s.log.WithContext(ctx)

	entry, cacheErr := s.cache.Get(ctx, actor, baseline)
	if cacheErr != nil {
		log.Warn("metrics cache read failed", logger.ErrorField(cacheErr))
	} else if entry.Metrics != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return entry.Metrics, nil
	}

	totals, err := s.txRepo.Totals(ctx, actor)
	if err != nil {
		s.storageFailed(ctx, "transaction_totals", err)
		return nil, err
	}

	var b *dashboard.Baseline
	if baseline != nil {
		b = &dashboard.Baseline{FraudRate: *baseline}
	}
	result := dashboard.FromTotals(totals, b)

	// Without a generation from Get the write could resurrect stale data
	if cacheErr == nil {
		if err := s.cache.Set(ctx, actor, baseline, entry.Generation, result); err != nil {
			log.Warn("metrics cache write failed", logger.ErrorField(err))
		}
	}
	return &result, nil
}

// ListAlerts returns the actor's alerts, optionally filtered by status
func (s *FraudService) ListAlerts(ctx context.Context, actor, status string, limit int) ([]*domain.Alert, error) {
	var st domain.AlertStatus
	if status != "" {
		parsed, err := domain.ParseAlertStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}

	list, err := s.alerts.List(ctx, actor, st, clampLimit(limit))
	if err != nil {
		s.storageFailed(ctx, "list_alerts", err)
		return nil, err
	}
	return list, nil
}

// UpdateAlertStatus moves one of the actor's alerts to status
func (s *FraudService) UpdateAlertStatus(ctx context.Context, actor, alertID, status string) (alert *domain.Alert, err error) {
	ctx, span := s.tracer.Start(ctx, "FraudService.UpdateAlertStatus",
		trace.WithAttributes(attribute.String("alert_id", alertID), attribute.String("status", status)))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	id, err := parseAlertID(alertID)
	if err != nil {
		return nil, err
	}
	st, err := domain.ParseAlertStatus(status)
	if err != nil {
		return nil, err
	}

	alert, err = s.alerts.UpdateStatus(ctx, actor, id, st)
	if err != nil {
		s.storageFailed(ctx, "update_alert", err)
		return nil, err
	}
	s.publishAlert(ctx, events.TypeAlertUpdated, alert)
	return alert, nil
}

// DismissAlert closes one of the actor's alerts as a false positive
func (s *FraudService) DismissAlert(ctx context.Context, actor, alertID string) (*domain.Alert, error) {
	return s.UpdateAlertStatus(ctx, actor, alertID, string(domain.AlertStatusDismissed))
}

func parseAlertID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("alert_id", "must be a UUID")
	}
	return id, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return repository.DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// newTransactionID renders TXN-<unix millis>-<9 hex chars>
func (s *FraudService) newTransactionID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("TXN-%d-%s", s.now().UnixMilli(), suffix)
}

func (s *FraudService) invalidateMetrics(ctx context.Context, actor string) {
	if err := s.cache.Invalidate(ctx, actor); err != nil {
		s.log.WithContext(ctx).Warn("metrics cache invalidation failed", logger.ErrorField(err))
	}
}

func (s *FraudService) storageFailed(ctx context.Context, op string, err error) {
	if !errors.Is(err, domain.ErrStorage) {
		return
	}
	s.log.WithContext(ctx).StorageFailure(op, err)
	s.metrics.StorageError(op)
}

func (s *FraudService) publishScored(ctx context.Context, tx *domain.Transaction, analysis *domain.Analysis) {
	err := s.publisher.PublishTransactionScored(ctx, events.TransactionScored{
		TransactionID:  tx.TransactionID,
		UserID:         tx.OwnerID,
		FraudScore:     analysis.FraudScore,
		RiskLevel:      analysis.RiskLevel,
		Severity:       analysis.Severity,
		Recommendation: analysis.Recommendation,
		Status:         tx.Status,
		Factors:        analysis.Factors,
	})
	if err != nil {
		s.log.WithContext(ctx).PublishFailure(events.TypeTransactionScored, tx.TransactionID, err)
		s.metrics.PublishFailure(events.TypeTransactionScored)
	}
}

func (s *FraudService) publishAlert(ctx context.Context, eventType string, alert *domain.Alert) {
	if err := s.publisher.PublishAlert(ctx, eventType, events.NewAlertEvent(alert)); err != nil {
		s.log.WithContext(ctx).PublishFailure(eventType, alert.TransactionID, err)
		s.metrics.PublishFailure(eventType)
	}
}
