package project_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"

	"reelsmith/internal/logging"
	"reelsmith/internal/project"
	"reelsmith/internal/testsupport"
)

func newMachine(t *testing.T) (*project.Machine, *project.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return project.NewMachine(store, logging.NewNop()), store
}

func TestAdvanceHappyPath(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Walkthrough")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	steps := []struct {
		stage project.Stage
		patch map[string]any
		next  project.Stage
	}{
		{project.StageTopic, map[string]any{"selected": "mechanical keyboards"}, project.StageScript},
		{project.StageScript, map[string]any{"content": "full script text"}, project.StageNarration},
		{project.StageNarration, map[string]any{"path": "/tmp/voice.mp3"}, project.StageAssets},
		{project.StageAssets, map[string]any{"avatar": "/tmp/avatar.png"}, project.StageRender},
		{project.StageRender, map[string]any{"output_path": "/tmp/final.mp4"}, project.StageComplete},
	}
	for _, step := range steps {
		if _, err := machine.UpdateStage(ctx, p.ID, step.stage, step.patch); err != nil {
			t.Fatalf("update %s: %v", step.stage, err)
		}
		next, err := machine.Advance(ctx, p.ID)
		if err != nil {
			t.Fatalf("advance from %s: %v", step.stage, err)
		}
		if next != step.next {
			t.Fatalf("advance from %s = %s, want %s", step.stage, next, step.next)
		}
	}

	if _, err := machine.Advance(ctx, p.ID); !errors.Is(err, project.ErrAtTerminalStage) {
		t.Fatalf("advance at complete: %v, want ErrAtTerminalStage", err)
	}
}

func TestAdvanceRejectedLeavesStateUntouched(t *testing.T) {
	machine, store := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Stuck")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get before: %v", err)
	}

	_, err = machine.Advance(ctx, p.ID)
	var prereqErr *project.PrerequisiteError
	if !errors.As(err, &prereqErr) {
		t.Fatalf("advance with empty topic: %v, want PrerequisiteError", err)
	}
	if !errors.Is(err, project.ErrPrerequisiteNotMet) {
		t.Fatal("PrerequisiteError does not unwrap to ErrPrerequisiteNotMet")
	}
	if prereqErr.Target != project.StageScript {
		t.Fatalf("target = %s, want %s", prereqErr.Target, project.StageScript)
	}
	if !reflect.DeepEqual(prereqErr.Missing, []project.Stage{project.StageTopic}) {
		t.Fatalf("missing = %v, want [topic]", prereqErr.Missing)
	}

	after, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get after: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected advance mutated state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestRetreatAndBoundaries(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Back and Forth")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := machine.Retreat(ctx, p.ID); !errors.Is(err, project.ErrAtInitialStage) {
		t.Fatalf("retreat at topic: %v, want ErrAtInitialStage", err)
	}

	if _, err := machine.UpdateStage(ctx, p.ID, project.StageTopic, map[string]any{"selected": "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := machine.Advance(ctx, p.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	stage, err := machine.Retreat(ctx, p.ID)
	if err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if stage != project.StageTopic {
		t.Fatalf("retreat = %s, want topic", stage)
	}

	// Data written at script survives the retreat.
	loaded, err := machine.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Bag(project.StageTopic).PathValue("selected") != "x" {
		t.Fatal("topic data lost after retreat")
	}
}

func TestUpdateStageMergesPatch(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Merge")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := machine.UpdateStage(ctx, p.ID, project.StageScript, map[string]any{
		"content": "draft one",
		"tone":    "casual",
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	updated, err := machine.UpdateStage(ctx, p.ID, project.StageScript, map[string]any{
		"content": "draft two",
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	bag := updated.Bag(project.StageScript)
	if bag.PathValue("content") != "draft two" {
		t.Fatalf("content = %q, want last write", bag.PathValue("content"))
	}
	if bag.PathValue("tone") != "casual" {
		t.Fatal("untouched key did not survive the merge")
	}
}

func TestUpdateStageRejectsUnknownAndTerminal(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Guard")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := machine.UpdateStage(ctx, p.ID, "publish", map[string]any{"x": 1}); !errors.Is(err, project.ErrUnknownStage) {
		t.Fatalf("unknown stage: %v, want ErrUnknownStage", err)
	}
	if _, err := machine.UpdateStage(ctx, p.ID, project.StageComplete, map[string]any{"x": 1}); !errors.Is(err, project.ErrUnknownStage) {
		t.Fatalf("terminal stage: %v, want ErrUnknownStage", err)
	}
}

func TestOperationsOnMissingProject(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	if _, err := machine.Advance(ctx, "nope1234"); !errors.Is(err, project.ErrNoActiveProject) {
		t.Fatalf("advance: %v, want ErrNoActiveProject", err)
	}
	if _, err := machine.Progress(ctx, "nope1234"); !errors.Is(err, project.ErrNoActiveProject) {
		t.Fatalf("progress: %v, want ErrNoActiveProject", err)
	}
}

func TestResetPreservesIdentity(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Fresh Start")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := machine.UpdateStage(ctx, p.ID, project.StageTopic, map[string]any{"selected": "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := machine.Advance(ctx, p.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	fresh, err := machine.Reset(ctx, p.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if fresh.ID != p.ID || fresh.Name != p.Name {
		t.Fatalf("reset changed identity: %+v", fresh)
	}
	if !fresh.CreatedAt.Equal(p.CreatedAt) {
		t.Fatal("reset changed creation time")
	}
	if fresh.CurrentStage != project.StageTopic {
		t.Fatalf("reset stage = %s, want topic", fresh.CurrentStage)
	}
	if len(fresh.Bag(project.StageTopic)) != 0 {
		t.Fatalf("reset left topic data: %v", fresh.Bag(project.StageTopic))
	}
}

func TestProgressProjection(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Report")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	report, err := machine.Progress(ctx, p.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if report.Percent != 0 {
		t.Fatalf("initial percent = %.0f, want 0", report.Percent)
	}
	if len(report.Stages) != 5 {
		t.Fatalf("stage reports = %d, want 5", len(report.Stages))
	}
	if report.Stages[0].Status != project.StatusActive {
		t.Fatalf("topic status = %s, want active", report.Stages[0].Status)
	}

	// Progress is monotone as the project advances.
	last := report.Percent
	patches := []struct {
		stage project.Stage
		patch map[string]any
	}{
		{project.StageTopic, map[string]any{"selected": "x"}},
		{project.StageScript, map[string]any{"content": "y"}},
		{project.StageNarration, map[string]any{"path": "/tmp/v.mp3"}},
		{project.StageAssets, map[string]any{"avatar": "/tmp/a.png"}},
		{project.StageRender, map[string]any{"output_path": "/tmp/o.mp4"}},
	}
	for _, step := range patches {
		if _, err := machine.UpdateStage(ctx, p.ID, step.stage, step.patch); err != nil {
			t.Fatalf("update %s: %v", step.stage, err)
		}
		if _, err := machine.Advance(ctx, p.ID); err != nil {
			t.Fatalf("advance past %s: %v", step.stage, err)
		}
		report, err := machine.Progress(ctx, p.ID)
		if err != nil {
			t.Fatalf("progress: %v", err)
		}
		if report.Percent < last {
			t.Fatalf("percent regressed from %.0f to %.0f", last, report.Percent)
		}
		last = report.Percent
	}
	if last != 100 {
		t.Fatalf("final percent = %.0f, want 100", last)
	}
}

// TestAdvanceRandomizedStageData checks, over random combinations of
// satisfied completion predicates and starting stages, that advance succeeds
// exactly when every stage in the target's transitive prerequisite chain is
// complete, and that the stored stage never moves on rejection.
func TestAdvanceRandomizedStageData(t *testing.T) {
	machine, store := newMachine(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	satisfy := map[project.Stage]map[string]any{
		project.StageTopic:     {"selected": "a topic"},
		project.StageScript:    {"content": "a script"},
		project.StageNarration: {"path": "/media/voice.mp3"},
		project.StageAssets:    {"avatar": "/media/avatar.png"},
		project.StageRender:    {"output_path": "/media/out.mp4"},
	}
	// Transitive prerequisite chains, spelled out independently of the
	// implementation under test.
	chains := map[project.Stage][]project.Stage{
		project.StageScript:    {project.StageTopic},
		project.StageNarration: {project.StageTopic, project.StageScript},
		project.StageAssets:    {project.StageTopic, project.StageScript},
		project.StageRender:    {project.StageTopic, project.StageScript, project.StageNarration, project.StageAssets},
		project.StageComplete:  {project.StageTopic, project.StageScript, project.StageNarration, project.StageAssets, project.StageRender},
	}

	order := project.Stages()
	nonTerminal := project.NonTerminalStages()
	for trial := 0; trial < 250; trial++ {
		p := project.New(fmt.Sprintf("trial %d", trial))
		current := nonTerminal[rng.Intn(len(nonTerminal))]
		p.CurrentStage = current

		complete := make(map[project.Stage]bool, len(nonTerminal))
		for _, stage := range nonTerminal {
			if rng.Intn(2) == 0 {
				for key, value := range satisfy[stage] {
					p.Bag(stage)[key] = value
				}
				complete[stage] = true
			}
		}
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("trial %d: put: %v", trial, err)
		}

		var next project.Stage
		for i, stage := range order {
			if stage == current {
				next = order[i+1]
				break
			}
		}
		wantSuccess := true
		for _, required := range chains[next] {
			if !complete[required] {
				wantSuccess = false
				break
			}
		}

		got, err := machine.Advance(ctx, p.ID)
		if (err == nil) != wantSuccess {
			t.Fatalf("trial %d: current=%s complete=%v advance err=%v, want success=%v",
				trial, current, complete, err, wantSuccess)
		}
		if err != nil && !errors.Is(err, project.ErrPrerequisiteNotMet) {
			t.Fatalf("trial %d: rejection error = %v, want ErrPrerequisiteNotMet", trial, err)
		}
		if err == nil && got != next {
			t.Fatalf("trial %d: advanced to %s, want %s", trial, got, next)
		}

		loaded, loadErr := machine.Get(ctx, p.ID)
		if loadErr != nil {
			t.Fatalf("trial %d: get: %v", trial, loadErr)
		}
		if wantSuccess && loaded.CurrentStage != next {
			t.Fatalf("trial %d: stored stage = %s, want %s", trial, loaded.CurrentStage, next)
		}
		if !wantSuccess && loaded.CurrentStage != current {
			t.Fatalf("trial %d: rejected advance moved stage to %s", trial, loaded.CurrentStage)
		}
	}
}

func TestConcurrentAdvanceMovesExactlyOneStage(t *testing.T) {
	machine, _ := newMachine(t)
	ctx := context.Background()

	p, err := machine.Create(ctx, "Race")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := machine.UpdateStage(ctx, p.ID, project.StageTopic, map[string]any{"selected": "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// Script is incomplete, so whichever advance lands first wins and the
	// rest are rejected on prerequisites.
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = machine.Advance(ctx, p.ID)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d advances succeeded, want exactly 1", succeeded)
	}
	loaded, err := machine.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.CurrentStage != project.StageScript {
		t.Fatalf("stage = %s, want script", loaded.CurrentStage)
	}
}
