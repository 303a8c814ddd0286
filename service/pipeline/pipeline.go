// Package pipeline sequences the notification processing chain: extract the
// event, snapshot the rule list, match, then fan dispatch out per matched
// rule. The coordinator is stateless and re-entrant; concurrent events share
// nothing beyond their own read-only rule snapshots.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"msgbox/service/event"
	"msgbox/service/rule"
)

// RuleSource is the slice of the config store the pipeline consumes.
type RuleSource interface {
	List() ([]rule.ForwardRule, error)
}

// Dispatcher delivers one event for one rule. Implementations own their
// failure handling; a dispatch never reports back to the pipeline.
type Dispatcher interface {
	Dispatch(r rule.ForwardRule, ev event.Event)
}

type job struct {
	rule  rule.ForwardRule
	event event.Event
}

type Pipeline struct {
	rules   RuleSource
	httpOut Dispatcher
	mqttOut Dispatcher
	logger  *slog.Logger

	// MQTT dispatch blocks for a full connect/publish/disconnect round
	// trip, so it runs on worker goroutines instead of the event thread.
	queue   chan job
	workers int
	wg      sync.WaitGroup
}

func New(rules RuleSource, httpOut, mqttOut Dispatcher, workers, queueSize int, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		rules:   rules,
		httpOut: httpOut,
		mqttOut: mqttOut,
		logger:  logger,
		queue:   make(chan job, queueSize),
		workers: workers,
	}
}

// Start launches the MQTT workers. They drain the queue until ctx is
// canceled.
func (p *Pipeline) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until all workers have exited.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			p.mqttOut.Dispatch(j.rule, j.event)
		}
	}
}

// OnEvent runs the pipeline for one raw notification payload. Matching rules
// fire independently: HTTP dispatch is asynchronous by itself, MQTT dispatch
// is queued to the workers. No rule's failure affects another's.
func (p *Pipeline) OnEvent(payload event.Payload) {
	ev := event.Extract(payload)

	rules, err := p.rules.List()
	if err != nil {
		p.logger.Error("Failed to list rules, dropping event", "app", ev.SourcePackage, "error", err)
		return
	}
	if len(rules) == 0 {
		p.logger.Debug("No rules configured, skipping event", "app", ev.SourcePackage)
		return
	}

	matched := rule.Match(ev, rules)
	if len(matched) == 0 {
		p.logger.Debug("No matching rules", "app", ev.SourcePackage)
		return
	}

	for _, r := range matched {
		p.logger.Debug("Rule matched", "rule", r.Name, "type", r.Type, "app", ev.SourcePackage)

		switch r.Type {
		case rule.TypeHTTP:
			p.httpOut.Dispatch(r, ev)
		case rule.TypeMQTT:
			select {
			case p.queue <- job{rule: r, event: ev}:
			default:
				// Fire-and-forget: a saturated queue drops rather
				// than stalls notification delivery.
				p.logger.Warn("MQTT queue full, dropping dispatch", "rule", r.Name, "app", ev.SourcePackage)
			}
		default:
			p.logger.Warn("Unknown rule type", "rule", r.Name, "type", r.Type)
		}
	}
}
