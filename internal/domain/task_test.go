package domain

import (
	"testing"
	"time"
)

func TestNewTask_Defaults(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	task := NewTask("build index", "construct the search index", now)

	if task.ID == "" {
		t.Error("expected generated ID")
	}
	if task.Status != StatusPending {
		t.Errorf("new tasks start pending, got %s", task.Status)
	}
	if !task.CreatedAt.Equal(now) || !task.UpdatedAt.Equal(now) {
		t.Error("timestamps should use the supplied clock")
	}
	if task.ExecutionOrder != nil {
		t.Error("new tasks are unordered until recalculation")
	}
}

func TestTask_CloneIsDeep(t *testing.T) {
	now := time.Now()
	orig := NewTask("a", "a", now)
	orig.Dependencies = []string{"x"}
	order := 3
	orig.ExecutionOrder = &order
	orig.ConversationHistory = []ConversationEntry{{Role: "user", Content: "hi", Timestamp: now}}

	c := orig.Clone()
	c.Dependencies[0] = "mutated"
	*c.ExecutionOrder = 9
	c.ConversationHistory[0].Content = "mutated"

	if orig.Dependencies[0] != "x" {
		t.Error("clone shares dependency slice")
	}
	if *orig.ExecutionOrder != 3 {
		t.Error("clone shares execution order pointer")
	}
	if orig.ConversationHistory[0].Content != "hi" {
		t.Error("clone shares conversation history")
	}
}

func TestTask_OrderKey(t *testing.T) {
	task := NewTask("a", "a", time.Now())
	if _, ok := task.OrderKey(); ok {
		t.Error("unordered task must report ok=false")
	}
	order := 5
	task.ExecutionOrder = &order
	if got, ok := task.OrderKey(); !ok || got != 5 {
		t.Errorf("OrderKey() = (%d, %v), want (5, true)", got, ok)
	}
}

func TestIsIDQuery(t *testing.T) {
	task := NewTask("a", "a", time.Now())
	if !IsIDQuery(task.ID) {
		t.Error("generated IDs must be recognized as ID queries")
	}
	if IsIDQuery("fix the cache layer") {
		t.Error("free text must not be recognized as an ID query")
	}
}
