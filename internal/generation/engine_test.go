package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"assettool/internal/adapter/repo"
	"assettool/internal/domain"
	"assettool/internal/providers/media"
	"assettool/internal/providers/prompt"
	"assettool/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store    *storage.Store
	projects *repo.ProjectRepositoryFS
	assets   *repo.AssetRepositoryFS
	jobs     *repo.JobRepositoryFS
	prompts  *repo.PromptRepositoryFS
	engine   *Engine
}

func newHarness(t *testing.T, gen media.Generator, enhancer Enhancer, opts Options) *harness {
	t.Helper()
	sopts := storage.DefaultOptions()
	sopts.DataDir = t.TempDir()
	sopts.Clock = func() time.Time { return time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC) }
	s, err := storage.NewStore(sopts, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))

	h := &harness{
		store:    s,
		projects: repo.NewProjectRepository(s),
		assets:   repo.NewAssetRepository(s, nil),
		jobs:     repo.NewJobRepository(s),
		prompts:  repo.NewPromptRepository(s),
	}
	if enhancer == nil {
		enhancer = prompt.NewFacade(prompt.Options{Logger: zerolog.Nop()})
	}
	if gen == nil {
		gen = media.NewSimulator(0, zerolog.Nop())
	}
	h.engine = New(Deps{
		Projects: h.projects,
		Assets:   h.assets,
		Jobs:     h.jobs,
		Prompts:  h.prompts,
		Enhancer: enhancer,
		Media:    gen,
		Files:    s,
		Logger:   zerolog.Nop(),
	}, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.engine.Shutdown(ctx)
	})
	return h
}

func (h *harness) project(t *testing.T) *domain.Project {
	t.Helper()
	p := &domain.Project{
		Name:     "Fables",
		ArtStyle: domain.ArtStyle{Description: "watercolor", StyleKeywords: []string{"soft"}},
	}
	require.NoError(t, h.projects.Create(context.Background(), p))
	return p
}

func (h *harness) waitForStatus(t *testing.T, jobID string, want domain.JobStatus) *domain.GenerationJob {
	t.Helper()
	var job *domain.GenerationJob
	require.Eventually(t, func() bool {
		j, err := h.engine.GetJob(context.Background(), jobID)
		if err != nil || j == nil {
			return false
		}
		job = j
		return j.Status == want
	}, 5*time.Second, 5*time.Millisecond)
	return job
}

func request(projectID string, typ domain.AssetType) Request {
	return Request{
		ProjectID:        projectID,
		Type:             typ,
		Name:             "Cat",
		GenerationPrompt: "A cat",
	}
}

// gatedMedia reports one checkpoint and then blocks until released.
type gatedMedia struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedMedia() *gatedMedia {
	return &gatedMedia{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedMedia) Generate(ctx context.Context, req media.GenerateRequest, report media.ProgressFunc) (*media.Artifact, error) {
	if err := report(ctx, 50); err != nil {
		return nil, err
	}
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := report(ctx, 90); err != nil {
		return nil, err
	}
	return nil, nil
}

type mediaFunc func(ctx context.Context, req media.GenerateRequest, report media.ProgressFunc) (*media.Artifact, error)

func (f mediaFunc) Generate(ctx context.Context, req media.GenerateRequest, report media.ProgressFunc) (*media.Artifact, error) {
	return f(ctx, req, report)
}

type enhancerFunc func(ctx context.Context, req prompt.EnhanceRequest) prompt.Enhancement

func (f enhancerFunc) Enhance(ctx context.Context, req prompt.EnhanceRequest) prompt.Enhancement {
	return f(ctx, req)
}

func TestPromptGenerationEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypePrompt))
	require.NoError(t, err)
	require.Equal(t, domain.AssetStatusPending, res.Asset.Status)
	require.Equal(t, domain.JobStatusQueued, res.Job.Status)
	require.Equal(t, 0, res.Job.Progress)
	require.Equal(t, res.Asset.ID, res.Job.AssetID)

	job := h.waitForStatus(t, res.Job.ID, domain.JobStatusCompleted)
	require.Equal(t, 100, job.Progress)
	require.NotEmpty(t, job.CompletedAt)

	asset, err := h.assets.GetByID(ctx, res.Asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AssetStatusCompleted, asset.Status)
	require.Equal(t, "A cat Style: watercolor Keywords: soft", asset.GenerationPrompt)
	require.Equal(t, "projects/"+p.ID+"/assets/files/"+asset.ID+".txt", asset.FilePath)

	data, err := h.store.ReadFile(ctx, asset.FilePath)
	require.NoError(t, err)
	require.Equal(t, "A cat Style: watercolor Keywords: soft\n", string(data))

	history, err := h.prompts.ListHistory(ctx, p.ID, asset.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 1, history[0].Version)
	require.Equal(t, "A cat", history[0].OriginalPrompt)
	require.Equal(t, asset.GenerationPrompt, history[0].EnhancedPrompt)
	require.Equal(t, domain.EnhancementManual, history[0].Metadata.EnhancementType)

	status, err := h.engine.GetStatus(ctx, asset.ID)
	require.NoError(t, err)
	require.Equal(t, res.Job.ID, status.ID)
}

func TestProgressFollowsCheckpoints(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var seen []int
	var h *harness
	recorder := mediaFunc(func(ctx context.Context, req media.GenerateRequest, report media.ProgressFunc) (*media.Artifact, error) {
		return media.NewSimulator(0, zerolog.Nop()).Generate(ctx, req, func(ctx context.Context, p int) error {
			if err := report(ctx, p); err != nil {
				return err
			}
			j, err := h.jobs.GetByID(ctx, req.JobID)
			if err != nil {
				return err
			}
			mu.Lock()
			seen = append(seen, j.Progress)
			mu.Unlock()
			return nil
		})
	})
	h = newHarness(t, recorder, nil, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeVideo))
	require.NoError(t, err)
	h.waitForStatus(t, res.Job.ID, domain.JobStatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{20, 40, 60, 80, 90}, seen)
}

func TestStartMissingProjectHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})

	_, err := h.engine.Start(ctx, request("d6f8c0de-0000-4000-8000-000000000000", domain.AssetTypeImage))
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Contains(t, err.Error(), "not found")

	jobs, err := h.jobs.List(ctx)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestStartValidatesRequest(t *testing.T) {
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)
	req := request(p.ID, "audio")
	req.GenerationPrompt = ""

	_, err := h.engine.Start(context.Background(), req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)

	assets, err := h.assets.ListByProject(context.Background(), p.ID)
	require.NoError(t, err)
	require.Empty(t, assets)
}

func TestCancelProcessingJob(t *testing.T) {
	ctx := context.Background()
	gate := newGatedMedia()
	h := newHarness(t, gate, nil, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeImage))
	require.NoError(t, err)
	<-gate.started

	active, err := h.engine.ActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	ok, err := h.engine.Cancel(ctx, res.Job.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, h.engine.Shutdown(ctx))

	job, err := h.engine.GetJob(ctx, res.Job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusFailed, job.Status)
	require.Equal(t, domain.CancelledMessage, job.ErrorMessage)
	require.Equal(t, 50, job.Progress)
	require.NotEmpty(t, job.CompletedAt)

	asset, err := h.assets.GetByID(ctx, res.Asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AssetStatusFailed, asset.Status)
	require.Equal(t, "A cat", asset.GenerationPrompt)

	ok, err = h.engine.Cancel(ctx, res.Job.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCancelQueuedJobNeverRuns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)
	asset := &domain.Asset{ProjectID: p.ID, Type: domain.AssetTypeImage, Name: "queued", GenerationPrompt: "x"}
	require.NoError(t, h.assets.Create(ctx, asset))
	job := &domain.GenerationJob{AssetID: asset.ID}
	require.NoError(t, h.jobs.Create(ctx, job))

	ok, err := h.engine.Cancel(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)

	stored, err := h.engine.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusFailed, stored.Status)
	require.Equal(t, 0, stored.Progress)

	a, err := h.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.AssetStatusFailed, a.Status)
}

func TestCancelFinishedOrUnknownJob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypePrompt))
	require.NoError(t, err)
	h.waitForStatus(t, res.Job.ID, domain.JobStatusCompleted)

	ok, err := h.engine.Cancel(ctx, res.Job.ID)
	require.NoError(t, err)
	require.False(t, ok)

	job, err := h.engine.GetJob(ctx, res.Job.ID)
	require.NoError(t, err)
	require.Equal(t, domain.JobStatusCompleted, job.Status)

	ok, err = h.engine.Cancel(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGenerationFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	broken := mediaFunc(func(ctx context.Context, req media.GenerateRequest, report media.ProgressFunc) (*media.Artifact, error) {
		if err := report(ctx, 50); err != nil {
			return nil, err
		}
		return nil, errors.New("renderer exploded")
	})
	h := newHarness(t, broken, nil, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeImage))
	require.NoError(t, err)
	job := h.waitForStatus(t, res.Job.ID, domain.JobStatusFailed)
	require.Equal(t, "renderer exploded", job.ErrorMessage)
	require.Equal(t, 0, job.Progress)

	require.Eventually(t, func() bool {
		a, err := h.assets.GetByID(ctx, res.Asset.ID)
		return err == nil && a.Status == domain.AssetStatusFailed
	}, 5*time.Second, 5*time.Millisecond)

	history, err := h.prompts.ListHistory(ctx, p.ID, res.Asset.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestFailureBeforeHistoryStillWritesAudit(t *testing.T) {
	ctx := context.Background()
	exploding := enhancerFunc(func(context.Context, prompt.EnhanceRequest) prompt.Enhancement {
		panic("enhancer crashed")
	})
	h := newHarness(t, nil, exploding, Options{})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeImage))
	require.NoError(t, err)
	job := h.waitForStatus(t, res.Job.ID, domain.JobStatusFailed)
	require.Contains(t, job.ErrorMessage, "enhancer crashed")

	require.NoError(t, h.engine.Shutdown(ctx))
	history, err := h.prompts.ListHistory(ctx, p.ID, res.Asset.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Contains(t, history[0].Metadata.Feedback, "Generation failed")
	require.Empty(t, history[0].EnhancedPrompt)
}

func TestJobTimeout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, newGatedMedia(), nil, Options{JobTimeout: 30 * time.Millisecond})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeVideo))
	require.NoError(t, err)
	job := h.waitForStatus(t, res.Job.ID, domain.JobStatusFailed)
	require.Equal(t, "Generation timed out", job.ErrorMessage)
}

func TestGetStatusReturnsLatestJob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)
	asset := &domain.Asset{ProjectID: p.ID, Type: domain.AssetTypeImage, Name: "retry", GenerationPrompt: "x"}
	require.NoError(t, h.assets.Create(ctx, asset))

	none, err := h.engine.GetStatus(ctx, asset.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	first := &domain.GenerationJob{AssetID: asset.ID}
	second := &domain.GenerationJob{AssetID: asset.ID}
	require.NoError(t, h.jobs.Create(ctx, first))
	require.NoError(t, h.jobs.Create(ctx, second))

	latest, err := h.engine.GetStatus(ctx, asset.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)
}

func TestCleanupOldJobs(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{Now: func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }})
	p := h.project(t)

	res, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypePrompt))
	require.NoError(t, err)
	h.waitForStatus(t, res.Job.ID, domain.JobStatusCompleted)

	asset := &domain.Asset{ProjectID: p.ID, Type: domain.AssetTypeImage, Name: "waiting", GenerationPrompt: "x"}
	require.NoError(t, h.assets.Create(ctx, asset))
	require.NoError(t, h.jobs.Create(ctx, &domain.GenerationJob{AssetID: asset.ID}))

	removed, err := h.engine.CleanupOldJobs(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	jobs, err := h.jobs.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, domain.JobStatusQueued, jobs[0].Status)
}

func TestStartAfterShutdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil, Options{})
	p := h.project(t)
	require.NoError(t, h.engine.Shutdown(ctx))

	_, err := h.engine.Start(ctx, request(p.ID, domain.AssetTypeImage))
	require.ErrorIs(t, err, ErrEngineStopped)
}
