package project

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bag is the attribute map accumulated for one stage. Upstream producers
// write loosely typed values; the pipeline only checks for presence of the
// keys named in the completion predicates.
type Bag map[string]any

// has reports whether the key is present with a non-empty value.
func (b Bag) has(key string) bool {
	value, ok := b[key]
	if !ok {
		return false
	}
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	default:
		return true
	}
}

// PathValue returns the string stored under key, or "" when absent or not
// a string.
func (b Bag) PathValue(key string) string {
	if value, ok := b[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// Project is the root entity: one video production advancing through the
// pipeline. The whole struct is persisted as a single JSON document.
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CurrentStage Stage         `json:"current_stage"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	StageData    map[Stage]Bag `json:"stage_data"`
}

// New creates a project at the initial stage with empty bags for every
// non-terminal stage.
func New(name string) *Project {
	now := time.Now().UTC()
	data := make(map[Stage]Bag, len(stageOrder)-1)
	for _, stage := range NonTerminalStages() {
		data[stage] = Bag{}
	}
	return &Project{
		ID:           uuid.NewString()[:8],
		Name:         name,
		CurrentStage: StageTopic,
		CreatedAt:    now,
		UpdatedAt:    now,
		StageData:    data,
	}
}

// Bag returns the attribute bag for a stage, creating it when the loaded
// document predates the stage.
func (p *Project) Bag(stage Stage) Bag {
	if p.StageData == nil {
		p.StageData = make(map[Stage]Bag)
	}
	bag, ok := p.StageData[stage]
	if !ok {
		bag = Bag{}
		p.StageData[stage] = bag
	}
	return bag
}

// StageComplete evaluates the completion predicate for a stage against its
// attribute bag. Terminal and unknown stages are never "complete" in the
// prerequisite sense.
func (p *Project) StageComplete(stage Stage) bool {
	bag := p.StageData[stage]
	switch stage {
	case StageTopic:
		return bag.has("selected")
	case StageScript:
		return bag.has("content")
	case StageNarration:
		return bag.has("path")
	case StageAssets:
		return bag.has("avatar") || bag.has("background")
	case StageRender:
		return bag.has("output_path")
	default:
		return false
	}
}

// MissingPrerequisites returns the stages in the transitive prerequisite
// chain of target whose completion predicates do not hold.
func (p *Project) MissingPrerequisites(target Stage) []Stage {
	var missing []Stage
	for _, stage := range requiredChain(target) {
		if !p.StageComplete(stage) {
			missing = append(missing, stage)
		}
	}
	return missing
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	cp := *p
	cp.StageData = make(map[Stage]Bag, len(p.StageData))
	for stage, bag := range p.StageData {
		dup := make(Bag, len(bag))
		for k, v := range bag {
			dup[k] = v
		}
		cp.StageData[stage] = dup
	}
	return &cp
}

// StageStatus tags each stage in a progress report.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusActive    StageStatus = "active"
	StatusCompleted StageStatus = "completed"
)

// StageReport describes one stage in a progress projection.
type StageReport struct {
	Stage       Stage       `json:"stage"`
	Description string      `json:"description"`
	Number      int         `json:"number"`
	Status      StageStatus `json:"status"`
}

// Report is the read-only progress projection for a project.
type Report struct {
	ProjectID    string        `json:"project_id"`
	Name         string        `json:"name"`
	Percent      float64       `json:"percent"`
	CurrentStage Stage         `json:"current_stage"`
	Stages       []StageReport `json:"stages"`
}

// RenderStatus is the lifecycle of a render job's progress record.
type RenderStatus string

const (
	RenderStatusRendering RenderStatus = "rendering"
	RenderStatusCompleted RenderStatus = "completed"
	RenderStatusFailed    RenderStatus = "failed"
	RenderStatusCancelled RenderStatus = "cancelled"
)

// RenderProgress is the side-channel record a render job checkpoints.
// Written only by the composition engine path, read by any poller.
type RenderProgress struct {
	ProjectID  string       `json:"project_id"`
	Status     RenderStatus `json:"status"`
	Percent    float64      `json:"progress_percent"`
	Stage      string       `json:"stage"`
	ETASeconds float64      `json:"eta_seconds"`
	Message    string       `json:"message"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
