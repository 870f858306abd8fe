package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var (
	initMetricsOnce   sync.Once
	turnsCounter      metric.Int64Counter
	agreementsCounter metric.Int64Counter
	failuresCounter   metric.Int64Counter
	decideDuration    metric.Float64Histogram
	eventsCounter     metric.Int64Counter
	ongoingGauge      metric.Int64ObservableGauge
	ongoingCount      int64
	ongoingMu         sync.Mutex
)

// InitMetrics creates the meter instruments. Safe to call multiple
// times; only runs once. Call after InitMeterProvider.
func InitMetrics(ctx context.Context) error {
	var err error
	initMetricsOnce.Do(func() {
		m := Meter()
		turnsCounter, err = m.Int64Counter("negotia_turns_total", metric.WithDescription("Total negotiation turns appended"))
		if err != nil {
			return
		}
		agreementsCounter, err = m.Int64Counter("negotia_agreements_total", metric.WithDescription("Total sessions closed with an agreement"))
		if err != nil {
			return
		}
		failuresCounter, err = m.Int64Counter("negotia_session_failures_total", metric.WithDescription("Total sessions ended in failure (round cap or exclusivity)"))
		if err != nil {
			return
		}
		decideDuration, err = m.Float64Histogram("negotia_decide_duration_seconds", metric.WithDescription("Decision provider call duration in seconds"))
		if err != nil {
			return
		}
		eventsCounter, err = m.Int64Counter("negotia_events_total", metric.WithDescription("Total events published to the hub"))
		if err != nil {
			return
		}
		ongoingGauge, err = m.Int64ObservableGauge("negotia_sessions_ongoing", metric.WithDescription("Sessions currently ongoing"))
		if err != nil {
			return
		}
		_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
			ongoingMu.Lock()
			n := ongoingCount
			ongoingMu.Unlock()
			o.ObserveInt64(ongoingGauge, n)
			return nil
		}, ongoingGauge)
		if err != nil {
			return
		}
	})
	return err
}

// RecordTurn records one appended turn.
func RecordTurn(ctx context.Context, sessionID, role string) {
	if turnsCounter == nil {
		return
	}
	turnsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrSession.String(sessionID),
		AttrRole.String(role),
	))
}

// RecordAgreement records a session closing with an agreement,
// attributed to the pair that closed it.
func RecordAgreement(ctx context.Context, sessionID, sellerID, buyerID string) {
	if agreementsCounter == nil {
		return
	}
	agreementsCounter.Add(ctx, 1, metric.WithAttributes(
		AttrSession.String(sessionID),
		AttrSeller.String(sellerID),
		AttrBuyer.String(buyerID),
	))
}

// RecordFailure records a session ending in failure.
func RecordFailure(ctx context.Context, sessionID, reason string) {
	if failuresCounter == nil {
		return
	}
	failuresCounter.Add(ctx, 1, metric.WithAttributes(
		AttrSession.String(sessionID),
		AttrStatus.String(reason),
	))
}

// RecordDecide records one decision provider call and its duration.
func RecordDecide(ctx context.Context, role string, d time.Duration) {
	if decideDuration != nil {
		decideDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrRole.String(role)))
	}
}

// RecordEvent records one event published to the hub.
func RecordEvent(ctx context.Context) {
	if eventsCounter != nil {
		eventsCounter.Add(ctx, 1)
	}
}

// SetOngoingSessions updates the ongoing-sessions gauge.
func SetOngoingSessions(n int) {
	ongoingMu.Lock()
	ongoingCount = int64(n)
	ongoingMu.Unlock()
}
