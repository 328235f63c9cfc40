/*
Copyright 2025 The Kubeflow authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package job submits jobs to a job platform and waits for them to launch,
// run and produce the expected output.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/validation"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kubeflow/spark-interop/internal/metrics"
	"github.com/kubeflow/spark-interop/internal/wait"
)

// DefaultPollInterval is the interval between two checks of a job.
const DefaultPollInterval = 5 * time.Second

// Stages a job is awaited through.
const (
	StageLaunched   = "launched"
	StageRunning    = "running"
	StageCompletion = "completion"
)

// ErrNotFound is returned by a platform for jobs it does not know, or whose
// output is not available yet.
var ErrNotFound = errors.New("job not found")

// Phase is the lifecycle stage of a submitted job.
type Phase int

const (
	PhaseNotFound Phase = iota
	PhaseLaunched
	PhaseRunning
	PhaseFinished
	// PhaseFailed is terminal like PhaseFinished but the job did not succeed.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotFound:
		return "not_found"
	case PhaseLaunched:
		return "launched"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Launched returns whether the job has been picked up by the platform.
func (p Phase) Launched() bool {
	return p >= PhaseLaunched
}

// Running returns whether the job has started running.
func (p Phase) Running() bool {
	return p >= PhaseRunning
}

// Failed returns whether the job ended unsuccessfully.
func (p Phase) Failed() bool {
	return p == PhaseFailed
}

// Spec describes a job to submit.
type Spec struct {
	// AppName is the application the job is submitted under, e.g. "spark".
	AppName string
	// AppURL locates the main application file.
	AppURL  string
	AppArgs []string
	// SubmitArgs are spark-submit style arguments.
	SubmitArgs []string
}

// Handle identifies a submitted job. The zero Handle refers to no job.
type Handle struct {
	ID      string
	AppName string
}

func (h Handle) IsZero() bool {
	return h.ID == ""
}

func (h Handle) String() string {
	return h.AppName + "/" + h.ID
}

// Platform runs jobs.
type Platform interface {
	Submit(ctx context.Context, spec Spec) (Handle, error)
	GetJobPhase(ctx context.Context, h Handle) (Phase, error)
	GetJobOutput(ctx context.Context, h Handle) (string, error)
	Kill(ctx context.Context, h Handle) error
}

// OutputPredicate reports whether job output shows the job did its work.
type OutputPredicate func(output string) bool

// ContainsOutput matches output containing marker.
func ContainsOutput(marker string) OutputPredicate {
	return func(output string) bool {
		return strings.Contains(output, marker)
	}
}

// CompletionResult is the outcome of awaiting a job.
type CompletionResult struct {
	Output  string
	Phase   Phase
	Elapsed time.Duration
}

// TimeoutError reports that a job did not reach Stage in time.
type TimeoutError struct {
	Stage     string
	Handle    Handle
	LastPhase Phase
	Timeout   time.Duration
	Elapsed   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s not %s after %s (timeout %s, last phase %s)",
		e.Handle, e.Stage, e.Elapsed.Round(time.Millisecond), e.Timeout, e.LastPhase)
}

// FailedError reports that a job failed while it was awaited through Stage.
type FailedError struct {
	Stage     string
	Handle    Handle
	LastPhase Phase
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("job %s failed while waiting for %s (last phase %s)", e.Handle, e.Stage, e.LastPhase)
}

// IsFailed returns whether err is, or wraps, a *FailedError.
func IsFailed(err error) bool {
	var failedErr *FailedError
	return errors.As(err, &failedErr)
}

// NewID returns a fresh job identifier "{app}-{8 hex digits}" for appName.
func NewID(appName string) (string, error) {
	prefix := strings.Trim(strings.ToLower(appName), "/")
	prefix = strings.NewReplacer("/", "-", "_", "-", ".", "-").Replace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("invalid app name %q", appName)
	}
	id := prefix + "-" + uuid.New().String()[:8]
	if errs := validation.IsDNS1123Label(id); len(errs) > 0 {
		return "", fmt.Errorf("invalid app name %q: %s", appName, strings.Join(errs, ", "))
	}
	return id, nil
}

// RunTimeouts bounds each stage of Run.
type RunTimeouts struct {
	Launch     time.Duration
	Start      time.Duration
	Completion time.Duration
}

// Runner drives jobs through submission, launch, start and completion.
type Runner struct {
	platform     Platform
	poller       *wait.Poller
	pollInterval time.Duration
	metrics      *metrics.JobMetrics
	logger       logr.Logger
}

func NewRunner(platform Platform) *Runner {
	return &Runner{
		platform:     platform,
		poller:       wait.NewPoller(),
		pollInterval: DefaultPollInterval,
		logger:       ctrl.Log.WithName("job"),
	}
}

func (r *Runner) WithPollInterval(interval time.Duration) *Runner {
	r.pollInterval = interval
	return r
}

func (r *Runner) WithPoller(poller *wait.Poller) *Runner {
	r.poller = poller
	return r
}

func (r *Runner) WithMetrics(m *metrics.JobMetrics) *Runner {
	r.metrics = m
	return r
}

func (r *Runner) WithLogger(logger logr.Logger) *Runner {
	r.logger = logger
	return r
}

// SubmitAndAwait submits spec and waits, with independent timeouts, until the
// job is launched and then running. When a stage fails the returned Handle
// still refers to the submitted job so that the caller can kill it.
func (r *Runner) SubmitAndAwait(ctx context.Context, spec Spec, launchTimeout, startTimeout time.Duration) (Handle, error) {
	h, err := r.platform.Submit(ctx, spec)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to submit job for %s: %w", spec.AppName, err)
	}
	r.metrics.IncSubmitCount()
	r.logger.Info("Submitted job", "job", h.ID, "app", h.AppName)

	if err := r.awaitPhase(ctx, h, StageLaunched, Phase.Launched, launchTimeout); err != nil {
		return h, err
	}
	if err := r.awaitPhase(ctx, h, StageRunning, Phase.Running, startTimeout); err != nil {
		return h, err
	}
	return h, nil
}

// AwaitFinished waits until the job finishes successfully. A failed job
// returns a *FailedError as soon as the failure is observed.
func (r *Runner) AwaitFinished(ctx context.Context, h Handle, timeout time.Duration) error {
	return r.awaitPhase(ctx, h, StageCompletion, func(p Phase) bool { return p == PhaseFinished }, timeout)
}

func (r *Runner) awaitPhase(ctx context.Context, h Handle, stage string, reached func(Phase) bool, timeout time.Duration) error {
	logger := r.logger.WithValues("job", h.ID, "stage", stage)
	start := time.Now()
	last := PhaseNotFound
	err := r.poller.Poll(ctx, r.pollInterval, timeout, func(ctx context.Context) (bool, error) {
		phase, err := r.platform.GetJobPhase(ctx, h)
		if err != nil && !errors.Is(err, ErrNotFound) {
			logger.Error(err, "Failed to get job phase")
			return false, nil
		}
		last = phase
		logger.V(1).Info("Waiting for job", "phase", phase)
		if phase.Failed() {
			return false, &FailedError{Stage: stage, Handle: h, LastPhase: phase}
		}
		return reached(phase), nil
	})
	if err != nil {
		return r.stageError(err, h, stage, last)
	}
	r.metrics.ObserveStage(stage, time.Since(start))
	logger.Info("Job reached stage", "phase", last, "elapsed", time.Since(start).Round(time.Second))
	return nil
}

// AwaitCompletion polls the job output until predicate matches it. A job
// that fails before its output matches returns a *FailedError.
func (r *Runner) AwaitCompletion(ctx context.Context, h Handle, predicate OutputPredicate, timeout time.Duration) (CompletionResult, error) {
	logger := r.logger.WithValues("job", h.ID, "stage", StageCompletion)
	start := time.Now()
	var output string
	err := r.poller.Poll(ctx, r.pollInterval, timeout, func(ctx context.Context) (bool, error) {
		out, err := r.platform.GetJobOutput(ctx, h)
		switch {
		case err == nil:
			output = out
			if predicate(out) {
				return true, nil
			}
		case !errors.Is(err, ErrNotFound):
			logger.Error(err, "Failed to get job output")
		}
		if phase := r.lastPhase(ctx, h); phase.Failed() {
			return false, &FailedError{Stage: StageCompletion, Handle: h, LastPhase: phase}
		}
		return false, nil
	})
	if err != nil {
		return CompletionResult{Output: output}, r.stageError(err, h, StageCompletion, r.lastPhase(ctx, h))
	}

	elapsed := time.Since(start)
	r.metrics.ObserveStage(StageCompletion, elapsed)
	logger.Info("Job produced expected output", "elapsed", elapsed.Round(time.Second))
	return CompletionResult{Output: output, Phase: r.lastPhase(ctx, h), Elapsed: elapsed}, nil
}

func (r *Runner) lastPhase(ctx context.Context, h Handle) Phase {
	phase, err := r.platform.GetJobPhase(ctx, h)
	if err != nil {
		return PhaseNotFound
	}
	return phase
}

func (r *Runner) stageError(err error, h Handle, stage string, last Phase) error {
	if IsFailed(err) {
		r.metrics.IncFailedCount(stage)
		return err
	}
	var timeoutErr *wait.TimeoutError
	if !errors.As(err, &timeoutErr) {
		return err
	}
	r.metrics.IncPollTimeout("job", stage)
	return &TimeoutError{
		Stage:     stage,
		Handle:    h,
		LastPhase: last,
		Timeout:   timeoutErr.Timeout,
		Elapsed:   timeoutErr.Elapsed,
	}
}

// Kill kills the job on a best-effort basis; failures are logged.
func (r *Runner) Kill(ctx context.Context, h Handle) {
	if h.IsZero() {
		return
	}
	if err := r.platform.Kill(ctx, h); err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.V(1).Info("Job already gone", "job", h.ID)
			return
		}
		r.logger.Error(err, "Failed to kill job", "job", h.ID, "app", h.AppName)
		return
	}
	r.logger.Info("Killed job", "job", h.ID, "app", h.AppName)
}

// WithJob submits spec, waits for it to run and calls fn with its handle. The
// job is killed when WithJob returns, whatever the outcome.
func (r *Runner) WithJob(ctx context.Context, spec Spec, launchTimeout, startTimeout time.Duration, fn func(ctx context.Context, h Handle) error) error {
	h, err := r.SubmitAndAwait(ctx, spec, launchTimeout, startTimeout)
	defer r.Kill(context.WithoutCancel(ctx), h)
	if err != nil {
		return err
	}
	return fn(ctx, h)
}

// Run submits spec and waits until its output contains expectedOutput, or
// until it finishes when expectedOutput is empty. The job is always killed.
func (r *Runner) Run(ctx context.Context, spec Spec, expectedOutput string, timeouts RunTimeouts) (CompletionResult, error) {
	var result CompletionResult
	err := r.WithJob(ctx, spec, timeouts.Launch, timeouts.Start, func(ctx context.Context, h Handle) error {
		if expectedOutput == "" {
			start := time.Now()
			if err := r.AwaitFinished(ctx, h, timeouts.Completion); err != nil {
				return err
			}
			result = CompletionResult{Phase: PhaseFinished, Elapsed: time.Since(start)}
			return nil
		}
		var err error
		result, err = r.AwaitCompletion(ctx, h, ContainsOutput(expectedOutput), timeouts.Completion)
		return err
	})
	return result, err
}
