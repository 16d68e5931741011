package ai

import (
	"context"
	"testing"
)

func TestInMemoryBudget_NoBudgetSet(t *testing.T) {
	b := NewInMemoryBudget()

	ok, err := b.Check(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (no budget means unlimited)")
	}
}

func TestInMemoryBudget_WithinBudget(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("user1", 1000)

	if err := b.Record(context.Background(), "user1", 500); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false, want true (500 of 1000 used)")
	}
}

func TestInMemoryBudget_Exhausted(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("user1", 1000)

	if err := b.Record(context.Background(), "user1", 1000); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	ok, err := b.Check(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if ok {
		t.Error("Check() = true, want false (budget exhausted)")
	}
}

func TestInMemoryBudget_NegativeTokens(t *testing.T) {
	b := NewInMemoryBudget()

	if err := b.Record(context.Background(), "user1", -1); err == nil {
		t.Error("Record() should reject negative tokens")
	}
}

func TestInMemoryBudget_Usage(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("user1", 2000)
	_ = b.Record(context.Background(), "user1", 300)
	_ = b.Record(context.Background(), "user1", 200)

	used, budget, err := b.Usage(context.Background(), "user1")
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if used != 500 {
		t.Errorf("used = %d, want 500", used)
	}
	if budget != 2000 {
		t.Errorf("budget = %d, want 2000", budget)
	}
}

func TestInMemoryBudget_IsolatesUsers(t *testing.T) {
	b := NewInMemoryBudget()
	b.SetBudget("user1", 100)
	_ = b.Record(context.Background(), "user1", 100)

	ok, err := b.Check(context.Background(), "user2")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !ok {
		t.Error("Check() = false for user2, want true (budgets are per user)")
	}
}
