package project

import "strings"

// Stage identifies one step of the production pipeline.
type Stage string

const (
	StageTopic     Stage = "topic"
	StageScript    Stage = "script"
	StageNarration Stage = "narration"
	StageAssets    Stage = "assets"
	StageRender    Stage = "render"
	StageComplete  Stage = "complete"
)

// stageOrder is the fixed, total order projects move through. StageComplete
// is terminal.
var stageOrder = []Stage{
	StageTopic,
	StageScript,
	StageNarration,
	StageAssets,
	StageRender,
	StageComplete,
}

// stagePrerequisites maps each stage to the stages that must be complete
// before entry. The graph is a DAG, not a chain: narration and assets both
// hang off script and may finish in either order, but render needs both.
var stagePrerequisites = map[Stage][]Stage{
	StageTopic:     nil,
	StageScript:    {StageTopic},
	StageNarration: {StageScript},
	StageAssets:    {StageScript},
	StageRender:    {StageNarration, StageAssets},
	StageComplete:  {StageRender},
}

var stageDescriptions = map[Stage]string{
	StageTopic:     "Select a topic for the video",
	StageScript:    "Generate and refine the script",
	StageNarration: "Produce the narration audio",
	StageAssets:    "Configure avatar, background, and logo",
	StageRender:    "Render the finished video",
	StageComplete:  "Review and export",
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(stageOrder))
	for _, stage := range stageOrder {
		set[stage] = struct{}{}
	}
	return set
}()

// Stages returns the ordered list of known stages.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// NonTerminalStages returns every stage that carries a data bag.
func NonTerminalStages() []Stage {
	return Stages()[:len(stageOrder)-1]
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// Terminal reports whether the stage has no outgoing transition.
func (s Stage) Terminal() bool {
	return s == StageComplete
}

// Description returns the user-facing summary of the stage.
func (s Stage) Description() string {
	return stageDescriptions[s]
}

// Prerequisites returns the direct prerequisites of a stage.
func Prerequisites(s Stage) []Stage {
	direct := stagePrerequisites[s]
	cp := make([]Stage, len(direct))
	copy(cp, direct)
	return cp
}

func stageIndex(s Stage) int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// requiredChain returns every stage that must be complete before entering
// target, walking the prerequisite graph transitively. The result follows
// stage order so error messages read naturally.
func requiredChain(target Stage) []Stage {
	seen := make(map[Stage]struct{})
	var walk func(Stage)
	walk = func(s Stage) {
		for _, req := range stagePrerequisites[s] {
			if _, ok := seen[req]; ok {
				continue
			}
			seen[req] = struct{}{}
			walk(req)
		}
	}
	walk(target)

	chain := make([]Stage, 0, len(seen))
	for _, stage := range stageOrder {
		if _, ok := seen[stage]; ok {
			chain = append(chain, stage)
		}
	}
	return chain
}
