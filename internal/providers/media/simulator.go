package media

import (
	"context"
	"fmt"
	"time"

	"assettool/internal/domain"

	"github.com/rs/zerolog"
)

type GenerateRequest struct {
	JobID      string
	AssetID    string
	Type       domain.AssetType
	Prompt     string
	Parameters map[string]any
}

// Artifact is a produced file to be stored next to the asset.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ProgressFunc records a checkpoint. A non-nil error stops generation.
type ProgressFunc func(ctx context.Context, progress int) error

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest, report ProgressFunc) (*Artifact, error)
}

// Schedule is the checkpoint plan for one asset type.
type Schedule struct {
	Steps    []int
	Interval time.Duration
}

func ScheduleFor(t domain.AssetType) Schedule {
	switch t {
	case domain.AssetTypeVideo:
		return Schedule{Steps: []int{20, 40, 60, 80, 90}, Interval: 2 * time.Second}
	case domain.AssetTypePrompt:
		return Schedule{Steps: []int{30, 60, 90}, Interval: 500 * time.Millisecond}
	default:
		return Schedule{Steps: []int{50, 70, 90}, Interval: time.Second}
	}
}

// Simulator stands in for a real image or video backend. It waits out each
// checkpoint of the type's schedule; prompt assets yield a text artifact.
type Simulator struct {
	scale float64
	log   zerolog.Logger
}

// NewSimulator returns a simulator whose intervals are multiplied by scale.
// A zero scale skips the waits entirely; a negative one means 1.
func NewSimulator(scale float64, log zerolog.Logger) *Simulator {
	if scale < 0 {
		scale = 1
	}
	return &Simulator{scale: scale, log: log}
}

func (s *Simulator) interval(sched Schedule) time.Duration {
	return time.Duration(float64(sched.Interval) * s.scale)
}

func (s *Simulator) Generate(ctx context.Context, req GenerateRequest, report ProgressFunc) (*Artifact, error) {
	sched := ScheduleFor(req.Type)
	wait := s.interval(sched)
	for _, step := range sched.Steps {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if err := report(ctx, step); err != nil {
			return nil, err
		}
	}
	s.log.Debug().
		Str("job_id", req.JobID).
		Str("asset_type", string(req.Type)).
		Int("steps", len(sched.Steps)).
		Msg("simulated generation finished")

	if req.Type != domain.AssetTypePrompt {
		return nil, nil
	}
	return &Artifact{
		Name:        fmt.Sprintf("%s.txt", req.AssetID),
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(req.Prompt + "\n"),
	}, nil
}

var _ Generator = (*Simulator)(nil)
