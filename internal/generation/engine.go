package generation

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"assettool/internal/adapter/repo"
	"assettool/internal/domain"
	"assettool/internal/providers/media"
	"assettool/internal/providers/prompt"

	"github.com/rs/zerolog"
)

const defaultCleanupDays = 30

var (
	// ErrEngineStopped is returned by Start after Shutdown.
	ErrEngineStopped = errors.New("generation engine stopped")

	errJobStopped = errors.New("job no longer active")
)

// Request describes one asset to generate.
type Request struct {
	ProjectID            string                `json:"projectId" validate:"required"`
	Type                 domain.AssetType      `json:"type" validate:"required,oneof=image video prompt"`
	Name                 string                `json:"name" validate:"required,min=1,max=100"`
	Description          string                `json:"description,omitempty" validate:"max=500"`
	GenerationPrompt     string                `json:"generationPrompt" validate:"required,min=1,max=2000"`
	GenerationParameters map[string]any        `json:"generationParameters,omitempty"`
	StyleOverride        *domain.StyleOverride `json:"styleOverride,omitempty"`
	AIConfig             *domain.AICredentials `json:"aiConfig,omitempty"`
}

type Result struct {
	Asset *domain.Asset         `json:"asset"`
	Job   *domain.GenerationJob `json:"job"`
}

// Enhancer turns a base prompt into the text that is generated and stored.
type Enhancer interface {
	Enhance(ctx context.Context, req prompt.EnhanceRequest) prompt.Enhancement
}

// FileWriter stores produced artifacts.
type FileWriter interface {
	WriteFile(ctx context.Context, key string, data []byte) error
}

type Deps struct {
	Projects domain.ProjectRepository
	Assets   domain.AssetRepository
	Jobs     domain.JobRepository
	Prompts  domain.PromptRepository
	Enhancer Enhancer
	Media    media.Generator
	Files    FileWriter
	Logger   zerolog.Logger
}

type Options struct {
	// JobTimeout bounds each background task; zero means no limit.
	JobTimeout time.Duration
	Now        func() time.Time
}

// Engine creates assets with their jobs and drives each job to a terminal
// state on its own goroutine.
type Engine struct {
	deps    Deps
	log     zerolog.Logger
	timeout time.Duration
	now     func() time.Time

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	running map[string]*task
}

func New(deps Deps, opts Options) *Engine {
	base, stop := context.WithCancel(context.Background())
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		deps:    deps,
		log:     deps.Logger,
		timeout: opts.JobTimeout,
		now:     now,
		base:    base,
		stop:    stop,
		running: make(map[string]*task),
	}
}

type task struct {
	jobID   string
	assetID string
	project domain.Project
	req     Request

	// mu serializes the task's record transitions with Cancel.
	mu     sync.Mutex
	cancel context.CancelFunc

	enhanced     string
	historySaved bool
}

// Start creates a pending asset and a queued job, then returns while the job
// runs in the background. Callers learn the outcome by polling.
func (e *Engine) Start(ctx context.Context, req Request) (*Result, error) {
	if err := domain.Validate("generation request", req); err != nil {
		return nil, err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrEngineStopped
	}

	project, err := e.deps.Projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s %w", req.ProjectID, domain.ErrNotFound)
	}

	asset := &domain.Asset{
		ProjectID:            project.ID,
		Type:                 req.Type,
		Name:                 req.Name,
		Description:          req.Description,
		GenerationPrompt:     req.GenerationPrompt,
		GenerationParameters: req.GenerationParameters,
		Status:               domain.AssetStatusPending,
	}
	if err := e.deps.Assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	job := &domain.GenerationJob{AssetID: asset.ID, Status: domain.JobStatusQueued}
	if err := e.deps.Jobs.Create(ctx, job); err != nil {
		if _, derr := e.deps.Assets.Delete(context.WithoutCancel(ctx), asset.ID); derr != nil {
			e.log.Warn().Err(derr).Str("asset_id", asset.ID).Msg("generation: orphan asset left behind")
		}
		return nil, fmt.Errorf("create job: %w", err)
	}

	t := &task{jobID: job.ID, assetID: asset.ID, project: *project, req: req}
	if !e.launch(t) {
		e.fail(context.WithoutCancel(ctx), t, ErrEngineStopped, e.log)
		return nil, ErrEngineStopped
	}
	e.log.Info().
		Str("job_id", job.ID).
		Str("asset_id", asset.ID).
		Str("asset_type", string(req.Type)).
		Msg("generation: job queued")
	return &Result{Asset: asset, Job: job}, nil
}

// launch starts t on its own goroutine. It reports false once Shutdown has
// begun.
func (e *Engine) launch(t *task) bool {
	var ctx context.Context
	if e.timeout > 0 {
		ctx, t.cancel = context.WithTimeout(e.base, e.timeout)
	} else {
		ctx, t.cancel = context.WithCancel(e.base)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		t.cancel()
		return false
	}
	e.running[t.jobID] = t
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer func() {
			t.cancel()
			e.mu.Lock()
			delete(e.running, t.jobID)
			e.mu.Unlock()
		}()
		e.run(ctx, t)
	}()
	return true
}

func (e *Engine) run(ctx context.Context, t *task) {
	log := e.log.With().Str("job_id", t.jobID).Str("asset_id", t.assetID).Logger()
	// Record writes must land even after ctx is cancelled.
	persist := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("generation: task panicked")
			e.fail(persist, t, fmt.Errorf("%w: panic: %v", domain.ErrGenerationFailed, r), log)
		}
	}()

	err := e.process(ctx, persist, t)
	switch {
	case err == nil:
		log.Info().Msg("generation: job completed")
	case errors.Is(err, errJobStopped):
		log.Info().Msg("generation: job stopped before completion")
	default:
		e.fail(persist, t, err, log)
	}
}

func isActive(j domain.GenerationJob) bool { return !j.Status.Terminal() }

func isProcessing(j domain.GenerationJob) bool { return j.Status == domain.JobStatusProcessing }

// transition applies a job patch while the job is still active and, when
// that succeeded, the matching asset patch. Both happen under t.mu.
func (e *Engine) transition(ctx context.Context, t *task, cond func(domain.GenerationJob) bool, jp domain.JobPatch, ap *domain.AssetPatch) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, err := e.deps.Jobs.UpdateIf(ctx, t.jobID, cond, jp)
	if err != nil {
		return err
	}
	if job == nil {
		return errJobStopped
	}
	if ap == nil {
		return nil
	}
	if _, err := e.deps.Assets.Update(ctx, t.assetID, *ap); err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

func (e *Engine) process(ctx, persist context.Context, t *task) error {
	generating := domain.AssetPatch{Status: domain.StatusPtr(domain.AssetStatusGenerating)}
	if err := e.transition(persist, t, isActive, domain.JobProgress(domain.JobStatusProcessing, 10), &generating); err != nil {
		return err
	}

	enh := e.deps.Enhancer.Enhance(ctx, prompt.EnhanceRequest{
		Prompt:        t.req.GenerationPrompt,
		Project:       &t.project,
		AssetType:     t.req.Type,
		StyleOverride: t.req.StyleOverride,
		Credentials:   t.req.AIConfig,
	})
	t.enhanced = enh.Prompt
	if err := e.saveHistory(persist, t, historyMetadata(enh)); err != nil {
		return fmt.Errorf("save prompt history: %w", err)
	}
	t.historySaved = true

	progress := 30
	if err := e.transition(persist, t, isProcessing, domain.JobPatch{Progress: &progress}, nil); err != nil {
		return err
	}

	artifact, err := e.deps.Media.Generate(ctx, media.GenerateRequest{
		JobID:      t.jobID,
		AssetID:    t.assetID,
		Type:       t.req.Type,
		Prompt:     enh.Prompt,
		Parameters: t.req.GenerationParameters,
	}, func(_ context.Context, p int) error {
		return e.transition(persist, t, isProcessing, domain.JobPatch{Progress: &p}, nil)
	})
	if err != nil {
		return err
	}

	done := domain.AssetPatch{
		Status:           domain.StatusPtr(domain.AssetStatusCompleted),
		GenerationPrompt: &enh.Prompt,
	}
	if artifact != nil {
		key := path.Join(repo.AssetFilesDir(t.project.ID), artifact.Name)
		if err := e.deps.Files.WriteFile(persist, key, artifact.Data); err != nil {
			return fmt.Errorf("store artifact: %w", err)
		}
		done.FilePath = &key
		done.Metadata = map[string]any{
			"contentType": artifact.ContentType,
			"size":        len(artifact.Data),
		}
	}
	return e.transition(persist, t, isProcessing, domain.JobProgress(domain.JobStatusCompleted, 100), &done)
}

func historyMetadata(enh prompt.Enhancement) domain.PromptHistoryMetadata {
	meta := domain.PromptHistoryMetadata{EnhancementType: domain.EnhancementManual}
	if enh.AIUsed {
		meta.EnhancementType = domain.EnhancementAI
		meta.AIProvider = enh.Provider
		meta.AIModel = enh.Model
	}
	if enh.FallbackReason != "" {
		meta.Feedback = "AI enhancement unavailable (" + enh.FallbackReason + "), style merge used"
	}
	return meta
}

func (e *Engine) saveHistory(ctx context.Context, t *task, meta domain.PromptHistoryMetadata) error {
	return e.deps.Prompts.SaveHistory(ctx, &domain.PromptHistory{
		ProjectID:      t.project.ID,
		AssetID:        t.assetID,
		OriginalPrompt: t.req.GenerationPrompt,
		EnhancedPrompt: t.enhanced,
		Metadata:       meta,
	})
}

// fail records err on the job and the asset unless the job already reached
// a terminal state, e.g. through Cancel.
func (e *Engine) fail(ctx context.Context, t *task, err error, log zerolog.Logger) {
	msg := failureMessage(err)
	failed := domain.AssetPatch{Status: domain.StatusPtr(domain.AssetStatusFailed)}
	terr := e.transition(ctx, t, isActive, domain.JobFailure(msg), &failed)
	if errors.Is(terr, errJobStopped) {
		log.Info().Str("error", msg).Msg("generation: job already finished, failure not recorded")
		return
	}
	log.Error().Err(err).Msg("generation: job failed")
	if terr != nil {
		log.Error().Err(terr).Msg("generation: failed to record job failure")
	}
	if t.historySaved {
		return
	}
	meta := domain.PromptHistoryMetadata{
		EnhancementType: domain.EnhancementManual,
		Feedback:        "Generation failed: " + msg,
	}
	if herr := e.saveHistory(ctx, t, meta); herr != nil {
		log.Warn().Err(herr).Msg("generation: failed to save prompt history")
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Generation timed out"
	case errors.Is(err, context.Canceled):
		return "Generation interrupted"
	default:
		return err.Error()
	}
}

// Cancel stops a queued or processing job. It reports false when the job
// does not exist or already finished. Records written by Cancel are never
// overwritten by the running task.
func (e *Engine) Cancel(ctx context.Context, jobID string) (bool, error) {
	e.mu.Lock()
	t := e.running[jobID]
	e.mu.Unlock()
	if t != nil {
		t.mu.Lock()
		defer t.mu.Unlock()
	}

	job, err := e.deps.Jobs.UpdateIf(ctx, jobID, isActive, domain.JobCancellation())
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	if t != nil {
		t.cancel()
	}
	if _, err := e.deps.Assets.Update(ctx, job.AssetID, domain.AssetPatch{Status: domain.StatusPtr(domain.AssetStatusFailed)}); err != nil {
		e.log.Warn().Err(err).Str("job_id", jobID).Msg("generation: failed to mark cancelled asset")
	}
	e.log.Info().Str("job_id", jobID).Msg("generation: job cancelled")
	return true, nil
}

// GetStatus returns the most recently created job of an asset, nil when
// the asset has none.
func (e *Engine) GetStatus(ctx context.Context, assetID string) (*domain.GenerationJob, error) {
	jobs, err := e.deps.Jobs.ListByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	latest := jobs[len(jobs)-1]
	return &latest, nil
}

func (e *Engine) GetJob(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	return e.deps.Jobs.GetByID(ctx, jobID)
}

// ActiveJobs lists queued and processing jobs.
func (e *Engine) ActiveJobs(ctx context.Context) ([]domain.GenerationJob, error) {
	return e.deps.Jobs.ListByStatus(ctx, domain.JobStatusQueued, domain.JobStatusProcessing)
}

// CleanupOldJobs removes finished jobs older than daysOld days (30 when
// daysOld is not positive).
func (e *Engine) CleanupOldJobs(ctx context.Context, daysOld int) (int, error) {
	if daysOld <= 0 {
		daysOld = defaultCleanupDays
	}
	cutoff := e.now().AddDate(0, 0, -daysOld)
	n, err := e.deps.Jobs.CleanupOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	e.log.Info().Int("removed", n).Int("days", daysOld).Msg("generation: cleaned up old jobs")
	return n, nil
}

// Shutdown stops accepting jobs and waits for running tasks. When ctx ends
// first the remaining tasks are interrupted and recorded as failed.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		e.stop()
		return nil
	case <-ctx.Done():
		e.stop()
		<-done
		return ctx.Err()
	}
}
