package project_test

import (
	"context"
	"testing"
	"time"

	"reelsmith/internal/project"
	"reelsmith/internal/testsupport"
)

func TestStorePutGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	p := project.New("Persisted")
	p.Bag(project.StageTopic)["selected"] = "home office tours"
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected project, got nil")
	}
	if loaded.Name != "Persisted" || loaded.CurrentStage != project.StageTopic {
		t.Fatalf("loaded = %+v", loaded)
	}
	if loaded.Bag(project.StageTopic).PathValue("selected") != "home office tours" {
		t.Fatalf("topic bag lost: %v", loaded.Bag(project.StageTopic))
	}
}

func TestStoreGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	p, err := store.Get(context.Background(), "nope1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil for missing project, got %+v", p)
	}
}

func TestStoreListOrdersByCreation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := project.New("first")
	second := project.New("second")
	second.CreatedAt = second.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	if err := store.Put(ctx, second); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if err := store.Put(ctx, first); err != nil {
		t.Fatalf("put first: %v", err)
	}

	projects, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("list length = %d, want 2", len(projects))
	}
	if projects[0].Name != "first" || projects[1].Name != "second" {
		t.Fatalf("order = %s, %s", projects[0].Name, projects[1].Name)
	}
}

func TestStoreDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	p := project.New("doomed")
	if err := store.Put(ctx, p); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.SaveRenderProgress(ctx, project.RenderProgress{
		ProjectID: p.ID,
		Status:    project.RenderStatusRendering,
	}); err != nil {
		t.Fatalf("save progress: %v", err)
	}

	deleted, err := store.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report a removed row")
	}
	if progress, err := store.RenderProgressFor(ctx, p.ID); err != nil || progress != nil {
		t.Fatalf("render progress after delete = %+v, err %v", progress, err)
	}

	deleted, err = store.Delete(ctx, p.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("second delete reported a removed row")
	}
}

func TestRenderProgressUpsert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.SaveRenderProgress(ctx, project.RenderProgress{
		ProjectID: "abc12345",
		Status:    project.RenderStatusRendering,
		Percent:   10,
		Stage:     "compositing",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveRenderProgress(ctx, project.RenderProgress{
		ProjectID: "abc12345",
		Status:    project.RenderStatusCompleted,
		Percent:   100,
		Stage:     "done",
		Message:   "/out/abc12345.mp4",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	progress, err := store.RenderProgressFor(ctx, "abc12345")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if progress == nil {
		t.Fatal("expected progress record")
	}
	if progress.Status != project.RenderStatusCompleted || progress.Percent != 100 {
		t.Fatalf("progress = %+v", progress)
	}
	if progress.Message != "/out/abc12345.mp4" {
		t.Fatalf("message = %q", progress.Message)
	}
	if progress.UpdatedAt.IsZero() {
		t.Fatal("updated_at not set")
	}
}
