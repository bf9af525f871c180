package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric"

	"github.com/hexveil/authgate"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type counterDef struct {
	id   authgate.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{authgate.MetricLoginSuccess, "authgate_login_success_total", "Successful credential checks."},
	{authgate.MetricLoginFailure, "authgate_login_failure_total", "Rejected credential checks."},
	{authgate.MetricTokenIssued, "authgate_token_issued_total", "Minted session tokens."},
	{authgate.MetricValidateSuccess, "authgate_validate_success_total", "Tokens passing the full verifier chain."},
	{authgate.MetricValidateMalformed, "authgate_validate_malformed_total", "Signature or structure rejections."},
	{authgate.MetricValidateExpired, "authgate_validate_expired_total", "Natural-expiry rejections."},
	{authgate.MetricValidateRevoked, "authgate_validate_revoked_total", "Revocation rejections."},
	{authgate.MetricValidateStoreError, "authgate_validate_store_error_total", "Fail-closed verifications with Redis unreachable."},
	{authgate.MetricLogout, "authgate_logout_total", "Single-session revocations."},
	{authgate.MetricLogoutAll, "authgate_logout_all_total", "Logout-everywhere marker writes."},
	{authgate.MetricRateAllowed, "authgate_rate_allowed_total", "Governed requests within budget."},
	{authgate.MetricRateLimited, "authgate_rate_limited_total", "Governed requests rejected over budget."},
	{authgate.MetricRateFailOpen, "authgate_rate_fail_open_total", "Governor decisions taken while Redis was unreachable."},
}

type metricsSource interface {
	MetricsSnapshot() authgate.MetricsSnapshot
	AuditDropped() uint64
}

type observedCounter struct {
	id         authgate.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter registers one observable counter per Engine metric plus the audit
// dropped-event counter. Close unregisters the collection callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers the engine's counters on the meter.
func NewExporter(meter metric.Meter, engine *authgate.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is the substitutable-source variant used by tests.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"authgate_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
