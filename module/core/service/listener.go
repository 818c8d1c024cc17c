package service

import (
	"context"
	"log/slog"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/metrics"
	"github.com/nandanugg/proximity/module/core/internal/repository/notifier"
)

type scanRecorder interface {
	OnScanEventDetected(ctx context.Context, event *domain.ScanEvent) error
}

type actionRecorder interface {
	OnActionPresented(ctx context.Context, event *domain.BeaconEvent) error
}

// HistoryListener records every geofence transition as a scan event, using
// the fence id as the beacon id.
type HistoryListener struct {
	history scanRecorder
	clock   Clock
}

func NewHistoryListener(history scanRecorder, clock Clock) *HistoryListener {
	return &HistoryListener{history: history, clock: clock}
}

func (l *HistoryListener) OnGeofenceEvent(data domain.GeofenceData, entry bool) {
	event := &domain.ScanEvent{
		BeaconID:  data.Fence,
		EventMask: domain.TransitionMask(entry),
		EventTime: l.clock.Now(),
	}
	if err := l.history.OnScanEventDetected(context.Background(), event); err != nil {
		slog.Error("record geofence scan failed", "fence", data.Fence, "error", err)
	}
}

// ActionTrigger presents the actions configured for a fence and transition
// and records each successful presentation.
type ActionTrigger struct {
	rules     map[string][]domain.ActionRule
	presenter notifier.ActionPresenter
	history   actionRecorder
	clock     Clock
}

func NewActionTrigger(rules []domain.ActionRule, presenter notifier.ActionPresenter, history actionRecorder, clock Clock) *ActionTrigger {
	byFence := make(map[string][]domain.ActionRule)
	for _, rule := range rules {
		byFence[rule.Fence] = append(byFence[rule.Fence], rule)
	}
	return &ActionTrigger{
		rules:     byFence,
		presenter: presenter,
		history:   history,
		clock:     clock,
	}
}

func (t *ActionTrigger) OnGeofenceEvent(data domain.GeofenceData, entry bool) {
	ctx := context.Background()
	trigger := domain.TransitionMask(entry)

	for _, rule := range t.rules[data.Fence] {
		if !rule.Trigger.Matches(trigger) {
			continue
		}
		action := rule.Action
		event := &domain.BeaconEvent{
			Action:           &action,
			BeaconID:         data.Fence,
			Trigger:          trigger,
			PresentationTime: t.clock.Now(),
		}
		if err := t.presenter.Present(ctx, event); err != nil {
			metrics.ActionsPresentedTotal.WithLabelValues("failed").Inc()
			slog.Error("present action failed", "action", action.UUID, "fence", data.Fence, "error", err)
			continue
		}
		metrics.ActionsPresentedTotal.WithLabelValues("presented").Inc()

		if err := t.history.OnActionPresented(ctx, event); err != nil {
			slog.Error("record presented action failed", "action", action.UUID, "error", err)
		}
	}
}
