// Package executor walks an ExecutionPlan's DAG, producing artifacts
// concurrently up to a configured bound, annotating each result with
// execution metadata, and cascading skips from failed dependencies.
package executor

import (
	"context"
	"strings"
	"sync"
	"time"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
	"goa.design/compliance-runtime/runtime/planner"
	"goa.design/compliance-runtime/runtime/store"
	"goa.design/compliance-runtime/runtime/telemetry"
)

// ExecutionResult is the terminal output of one Execute call: every
// artifact produced, every artifact skipped, and run-level timing.
type ExecutionResult struct {
	RunID                string
	StartTimestamp       time.Time
	Artifacts            map[string]message.Message
	Skipped              map[string]string // artifactID -> reason
	TotalDurationSeconds float64
}

// Executor runs ExecutionPlans against a component registry and artifact
// store.
type Executor struct {
	registry *component.Registry
	st       store.ArtifactStore
	logger   telemetry.Logger
	metrics  telemetry.Metrics
	tracer   telemetry.Tracer
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithLogger overrides the no-op default logger.
func WithLogger(l telemetry.Logger) Option { return func(e *Executor) { e.logger = l } }

// WithMetrics overrides the no-op default metrics sink.
func WithMetrics(m telemetry.Metrics) Option { return func(e *Executor) { e.metrics = m } }

// WithTracer overrides the no-op default tracer.
func WithTracer(t telemetry.Tracer) Option { return func(e *Executor) { e.tracer = t } }

// New constructs an Executor bound to registry and st.
func New(registry *component.Registry, st store.ArtifactStore, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		st:       st,
		logger:   telemetry.NewNoopLogger(),
		metrics:  telemetry.NewNoopMetrics(),
		tracer:   telemetry.NewNoopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// node tracks per-artifact scheduling state during one Execute call.
type node struct {
	remaining int // unresolved predecessors
	done      bool
	produced  bool // result write committed to result.Artifacts
}

// Execute runs plan to completion: every artifact is produced, skipped, or
// (on deadline expiry) left pending-and-marked-skipped. runID scopes
// artifact store writes. The returned error is always nil: artifact-level
// failures are recorded in the returned ExecutionResult, and a failed store
// write is logged rather than returned.
func (e *Executor) Execute(ctx context.Context, runID string, plan *planner.ExecutionPlan) (*ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "executor.Execute")
	defer span.End()

	start := time.Now()
	deadline := start.Add(time.Duration(plan.Runbook.Config.Timeout * float64(time.Second)))
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	result := &ExecutionResult{
		RunID:          runID,
		StartTimestamp: start,
		Artifacts:      make(map[string]message.Message),
		Skipped:        make(map[string]string),
	}

	nodes := make(map[string]*node, len(plan.Runbook.Artifacts))
	for id := range plan.Runbook.Artifacts {
		nodes[id] = &node{remaining: len(plan.DAG.Predecessors(id))}
	}

	var mu sync.Mutex
	sem := make(chan struct{}, plan.Runbook.Config.MaxConcurrency)
	closed := false // guarded by mu; true once Execute has stopped accepting results

	ready := make(chan string, len(nodes))
	for id, n := range nodes {
		if n.remaining == 0 {
			ready <- id
		}
	}

	remainingCount := len(nodes)
	doneCh := make(chan struct{})

	// markDone finalizes id. skipReason, when non-empty, means id never
	// ran (a predecessor failed or was itself skipped) and is recorded in
	// result.Skipped. propagate, when true, cascades a skip to every
	// dependent regardless of their remaining predecessor count: either id
	// itself was skipped, or it ran and failed.
	var markDone func(id string, skipReason string, propagate bool)
	markDone = func(id string, skipReason string, propagate bool) {
		mu.Lock()
		if nodes[id].done {
			mu.Unlock()
			return
		}
		nodes[id].done = true
		if skipReason != "" {
			result.Skipped[id] = skipReason
		}
		remainingCount--
		done := remainingCount == 0
		mu.Unlock()

		for _, dependent := range plan.DAG.Successors(id) {
			mu.Lock()
			dn := nodes[dependent]
			if dn.done {
				mu.Unlock()
				continue
			}
			dn.remaining--
			r := dn.remaining
			mu.Unlock()

			if propagate {
				markDone(dependent, "dependency "+id+" did not complete successfully", true)
				continue
			}
			if r == 0 {
				ready <- dependent
			}
		}

		if done {
			close(doneCh)
		}
	}

	// runOne produces one artifact and, unless Execute has already returned
	// (closed), commits its result and cascades scheduling. A worker still
	// in flight when the run deadline expires is never joined: it is left
	// to finish (or keep blocking) in the background, and whatever it
	// eventually produces is discarded rather than raced onto the
	// already-returned ExecutionResult.
	runOne := func(id string) {
		defer func() { <-sem }()

		msg, failed := e.produceOne(runCtx, runID, plan, id)

		mu.Lock()
		if closed || nodes[id].done {
			mu.Unlock()
			return
		}
		nodes[id].produced = true
		result.Artifacts[id] = msg
		mu.Unlock()

		markDone(id, "", failed)
	}

	go func() {
		for {
			select {
			case id, ok := <-ready:
				if !ok {
					return
				}
				sem <- struct{}{}
				go runOne(id)
			case <-runCtx.Done():
				return
			case <-doneCh:
				return
			}
		}
	}()

	select {
	case <-doneCh:
	case <-runCtx.Done():
		mu.Lock()
		closed = true
		for id, n := range nodes {
			if !n.done && !n.produced {
				result.Skipped[id] = "run deadline exceeded before this artifact started"
				n.done = true
			}
		}
		mu.Unlock()
	}

	result.TotalDurationSeconds = time.Now().Sub(start).Seconds()
	return result, nil
}

// originOf classifies id per the "child:<runbookName>:<localID>" namespace
// convention (§4.3 step 2). The namespace is purely an annotation: the
// executor assigns no other structural meaning to it.
func originOf(id string) message.ExecutionOrigin {
	const prefix = "child:"
	if !strings.HasPrefix(id, prefix) {
		return message.OriginParent
	}
	rest := id[len(prefix):]
	runbookName, _, ok := strings.Cut(rest, ":")
	if !ok || runbookName == "" {
		return message.OriginParent
	}
	return message.ChildOrigin(runbookName)
}

// produceOne invokes the connector or processor for one artifact and writes
// the resulting Message to the store. It reports the annotated Message
// alongside whether production failed, so the caller can decide whether to
// commit the result and cascade-skip dependents. produceOne itself never
// touches ExecutionResult: a deadline can make its caller discard what it
// returns, and that decision belongs entirely to the caller.
func (e *Executor) produceOne(ctx context.Context, runID string, plan *planner.ExecutionPlan, id string) (message.Message, bool) {
	def := plan.Runbook.Artifacts[id]
	schemas := plan.ArtifactSchemas[id]
	start := time.Now()

	msg, err := e.produce(ctx, runID, plan, id, schemas)

	duration := time.Now().Sub(start).Seconds()
	execCtx := message.ExecutionContext{
		Status:          message.StatusSuccess,
		DurationSeconds: duration,
	}
	execCtx.Origin = originOf(id)
	if alias, ok := plan.ReversedAliases[id]; ok {
		execCtx.Alias = alias
	}
	if err != nil {
		execCtx.Status = message.StatusError
		execCtx.Error = err.Error()
		logFn := e.logger.Error
		if def.Optional {
			logFn = e.logger.Warn
		}
		logFn(ctx, "artifact production failed", "artifact", id, "error", err)
		e.metrics.IncCounter("executor.artifact.failed", 1, "artifact", id)
	} else {
		e.metrics.IncCounter("executor.artifact.succeeded", 1, "artifact", id)
	}
	msg = msg.WithExecution(execCtx)

	if saveErr := e.st.Save(ctx, runID, id, msg); saveErr != nil {
		e.logger.Error(ctx, "artifact store write failed", "artifact", id, "error", saveErr)
	}

	return msg, err != nil
}

func (e *Executor) produce(ctx context.Context, runID string, plan *planner.ExecutionPlan, id string, schemas planner.ArtifactSchemas) (message.Message, error) {
	artifact := plan.Runbook.Artifacts[id]

	if artifact.IsLeaf() {
		factory, err := e.registry.ConnectorFactory(artifact.Source.Type)
		if err != nil {
			return message.Message{}, err
		}
		conn, err := factory.Create(component.Config(artifact.Source.Properties))
		if err != nil {
			return message.Message{}, rerrors.Wrap(rerrors.ConnectorConfigError, "create connector for "+id, err)
		}
		return conn.Extract(ctx, schemas.OutputSchema)
	}

	inputs := make([]message.Message, 0, len(artifact.Inputs))
	for _, dep := range artifact.Inputs {
		in, err := e.st.Get(ctx, runID, dep)
		if err != nil {
			return message.Message{}, rerrors.Wrap(rerrors.AnalyserProcessingError, "load predecessor "+dep+" for artifact "+id, err)
		}
		inputs = append(inputs, in)
	}

	if artifact.Process == nil {
		if len(inputs) != 1 {
			return message.Message{}, rerrors.New(rerrors.NotImplemented, "passthrough artifact "+id+" with more than one input is not implemented")
		}
		return inputs[0], nil
	}

	factory, err := e.registry.ProcessorFactory(artifact.Process.Type)
	if err != nil {
		return message.Message{}, err
	}
	proc, err := factory.Create(component.Config(artifact.Process.Properties))
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConnectorConfigError, "create processor for "+id, err)
	}
	msg, err := proc.Process(ctx, inputs, schemas.OutputSchema)
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.AnalyserProcessingError, "process artifact "+id, err)
	}
	return msg, nil
}
