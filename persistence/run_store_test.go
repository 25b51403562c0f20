package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lexcodex/orchestrate/framework"
)

func newTestRunStore(t *testing.T) *SQLiteRunStore {
	t.Helper()
	store, err := NewSQLiteRunStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestSQLiteRunStoreRoundTrip saves a planned run and reads it back with its
// nested step results intact.
func TestSQLiteRunStoreRoundTrip(t *testing.T) {
	store := newTestRunStore(t)
	ctx := context.Background()

	result := &framework.RunResult{
		ID:          "run-1",
		Task:        "Calculate 2+2 and tell me the time",
		FinalAnswer: "Part 1: 4\nPart 2: noon",
		Iterations:  3,
		Success:     true,
		Approach:    framework.ApproachPlanning,
		Plan:        []string{"Calculate 2+2", "Tell me the time"},
		StepResults: []*framework.RunResult{{Task: "Calculate 2+2", FinalAnswer: "4", Success: true}},
		ValidatedAnswers: []framework.ValidatedAnswer{
			{StepNumber: 1, Subtask: "Calculate 2+2", ProcessedAnswer: "4", QualityScore: 8},
		},
	}
	if _, err := store.Save(ctx, "composite", result); err != nil {
		t.Fatalf("save: %v", err)
	}

	record, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Agent != "composite" || record.Approach != "planning" || !record.Success {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Result == nil || len(record.Result.Plan) != 2 {
		t.Fatalf("expected plan to round trip, got %+v", record.Result)
	}
	if got := record.Result.StepResults[0].FinalAnswer; got != "4" {
		t.Fatalf("expected step answer 4, got %q", got)
	}
	if got := record.Result.ValidatedAnswers[0].QualityScore; got != 8 {
		t.Fatalf("expected score 8, got %d", got)
	}
}

func TestSQLiteRunStoreListsNewestFirst(t *testing.T) {
	store := newTestRunStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, task := range []string{"first", "second", "third"} {
		offset := time.Duration(i) * time.Minute
		store.now = func() time.Time { return base.Add(offset) }
		if _, err := store.Save(ctx, "react", &framework.RunResult{Task: task, FinalAnswer: task}); err != nil {
			t.Fatalf("save %s: %v", task, err)
		}
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Task != "third" || records[1].Task != "second" {
		t.Fatalf("unexpected order: %s, %s", records[0].Task, records[1].Task)
	}
	if records[0].ID == "" {
		t.Fatalf("expected generated id")
	}
	if records[0].Result != nil {
		t.Fatalf("list should not load full results")
	}
}

func TestSQLiteRunStoreUpsertAndMissing(t *testing.T) {
	store := newTestRunStore(t)
	ctx := context.Background()

	result := &framework.RunResult{ID: "same", Task: "t", FinalAnswer: "draft"}
	if _, err := store.Save(ctx, "react", result); err != nil {
		t.Fatalf("save: %v", err)
	}
	result.FinalAnswer = "final"
	if _, err := store.Save(ctx, "react", result); err != nil {
		t.Fatalf("resave: %v", err)
	}
	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Answer != "final" {
		t.Fatalf("expected single updated record, got %+v", records)
	}

	_, err = store.Get(ctx, "nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.Save(ctx, "react", nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}
