package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/store"
)

func TestMemoryStore_ActiveCurriculum(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	if _, err := s.ActiveCurriculum(ctx, "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("ActiveCurriculum() error = %v, want ErrNotFound", err)
	}

	first := &course.Curriculum{ID: "c1", UserID: "u1", Skill: "Python", CreatedAt: time.Now().Add(-time.Hour)}
	second := &course.Curriculum{ID: "c2", UserID: "u1", Skill: "Go", CreatedAt: time.Now()}
	if err := s.CreateCurriculum(ctx, first); err != nil {
		t.Fatalf("CreateCurriculum() error = %v", err)
	}
	if err := s.CreateCurriculum(ctx, second); err != nil {
		t.Fatalf("CreateCurriculum() error = %v", err)
	}

	got, err := s.ActiveCurriculum(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveCurriculum() error = %v", err)
	}
	if got.ID != "c2" {
		t.Errorf("ActiveCurriculum() = %s, want c2 (most recently created)", got.ID)
	}
}

func TestMemoryStore_InsertEvent_Deduplicates(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	ev := course.ProgressEvent{
		ID:           "e1",
		UserID:       "u1",
		CurriculumID: "c1",
		Type:         course.EventLessonCompleted,
		LessonID:     "l1",
	}

	inserted, err := s.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if !inserted {
		t.Error("first InsertEvent() = false, want true")
	}

	ev.ID = "e2"
	inserted, err = s.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}
	if inserted {
		t.Error("duplicate InsertEvent() = true, want false")
	}

	count, err := s.CountEvents(ctx, "u1", "c1", course.EventLessonCompleted)
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountEvents() = %d, want 1", count)
	}
}

func TestMemoryStore_InsertEvent_DistinctEntities(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	for _, lessonID := range []string{"l1", "l2", "l3"} {
		inserted, err := s.InsertEvent(ctx, course.ProgressEvent{
			UserID:       "u1",
			CurriculumID: "c1",
			Type:         course.EventLessonCompleted,
			LessonID:     lessonID,
		})
		if err != nil {
			t.Fatalf("InsertEvent(%s) error = %v", lessonID, err)
		}
		if !inserted {
			t.Errorf("InsertEvent(%s) = false, want true", lessonID)
		}
	}

	count, _ := s.CountEvents(ctx, "u1", "c1", course.EventLessonCompleted)
	if count != 3 {
		t.Errorf("CountEvents() = %d, want 3", count)
	}
}

func TestMemoryStore_UpsertQuizScore_Monotonic(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	ev := func(score int) course.ProgressEvent {
		return course.ProgressEvent{
			UserID:       "u1",
			CurriculumID: "c1",
			Type:         course.EventQuizCompleted,
			QuizID:       "q1",
			Score:        score,
		}
	}

	written, err := s.UpsertQuizScore(ctx, ev(80))
	if err != nil {
		t.Fatalf("UpsertQuizScore() error = %v", err)
	}
	if !written {
		t.Error("first UpsertQuizScore() = false, want true")
	}

	// A lower score must not overwrite the stored one.
	written, err = s.UpsertQuizScore(ctx, ev(60))
	if err != nil {
		t.Fatalf("UpsertQuizScore() error = %v", err)
	}
	if written {
		t.Error("lower-score UpsertQuizScore() = true, want false")
	}

	events, _ := s.EventsByType(ctx, "u1", "c1", course.EventQuizCompleted)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Score != 80 {
		t.Errorf("stored score = %d, want 80", events[0].Score)
	}

	// A strictly higher score overwrites.
	written, err = s.UpsertQuizScore(ctx, ev(90))
	if err != nil {
		t.Fatalf("UpsertQuizScore() error = %v", err)
	}
	if !written {
		t.Error("higher-score UpsertQuizScore() = false, want true")
	}
	events, _ = s.EventsByType(ctx, "u1", "c1", course.EventQuizCompleted)
	if events[0].Score != 90 {
		t.Errorf("stored score = %d, want 90", events[0].Score)
	}

	// Equal score is not an improvement.
	written, err = s.UpsertQuizScore(ctx, ev(90))
	if err != nil {
		t.Fatalf("UpsertQuizScore() error = %v", err)
	}
	if written {
		t.Error("equal-score UpsertQuizScore() = true, want false")
	}
}

func TestMemoryStore_WeekCompleted_KeyedByWeek(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	week := func(n int) course.ProgressEvent {
		return course.ProgressEvent{
			UserID:       "u1",
			CurriculumID: "c1",
			Type:         course.EventWeekCompleted,
			Score:        n,
		}
	}

	if ok, _ := s.InsertEvent(ctx, week(1)); !ok {
		t.Error("week 1 InsertEvent() = false, want true")
	}
	if ok, _ := s.InsertEvent(ctx, week(1)); ok {
		t.Error("duplicate week 1 InsertEvent() = true, want false")
	}
	if ok, _ := s.InsertEvent(ctx, week(2)); !ok {
		t.Error("week 2 InsertEvent() = false, want true")
	}

	count, _ := s.CountEvents(ctx, "u1", "c1", course.EventWeekCompleted)
	if count != 2 {
		t.Errorf("CountEvents(week_completed) = %d, want 2", count)
	}
}

func TestMemoryStore_Lessons(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	l := &course.Lesson{ID: "l1", SubtopicID: "st1", CurriculumID: "c1", Title: "Variables"}
	if err := s.CreateLesson(ctx, l); err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}

	got, err := s.LessonBySubtopic(ctx, "c1", "st1")
	if err != nil {
		t.Fatalf("LessonBySubtopic() error = %v", err)
	}
	if got.ID != "l1" {
		t.Errorf("LessonBySubtopic() = %s, want l1", got.ID)
	}

	if _, err := s.LessonBySubtopic(ctx, "c2", "st1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LessonBySubtopic(other curriculum) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CertificateLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	if err := s.UpsertEligibility(ctx, "u1", "c1", true, true, 85, true); err != nil {
		t.Fatalf("UpsertEligibility() error = %v", err)
	}

	if err := s.SetPayment(ctx, "u1", "c1", "0xabc", "0xtx1"); err != nil {
		t.Fatalf("SetPayment() error = %v", err)
	}

	// Eligibility recomputation must not clear payment state.
	if err := s.UpsertEligibility(ctx, "u1", "c1", true, true, 90, true); err != nil {
		t.Fatalf("UpsertEligibility() error = %v", err)
	}

	p, err := s.CertificateProgress(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("CertificateProgress() error = %v", err)
	}
	if !p.CertificatePaid {
		t.Error("CertificatePaid cleared by eligibility recomputation")
	}
	if p.CertificatePaymentTxHash != "0xtx1" {
		t.Errorf("CertificatePaymentTxHash = %q, want 0xtx1", p.CertificatePaymentTxHash)
	}
	if p.MinScore != 90 {
		t.Errorf("MinScore = %d, want 90", p.MinScore)
	}

	if err := s.SetMint(ctx, "u1", "c1", "0xabc", "42", "0xtx2"); err != nil {
		t.Fatalf("SetMint() error = %v", err)
	}
	p, _ = s.CertificateProgress(ctx, "u1", "c1")
	if !p.CertificateIssued || p.CertificateTokenID != "42" {
		t.Errorf("after SetMint: issued = %v, tokenID = %q", p.CertificateIssued, p.CertificateTokenID)
	}
}

func TestMemoryStore_SetPayment_NoRow(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	if err := s.SetPayment(ctx, "u1", "c1", "0xabc", "0xtx"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetPayment() without progress row error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_FindPayment_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	err := s.CreatePayment(ctx, course.CertificatePayment{
		ID:           "p1",
		UserAddress:  "0xAbCdEf",
		CurriculumID: "c1",
		TxHash:       "0xtx1",
		Paid:         true,
	})
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	got, err := s.FindPayment(ctx, "0xABCDEF", "c1")
	if err != nil {
		t.Fatalf("FindPayment() error = %v", err)
	}
	if got.ID != "p1" {
		t.Errorf("FindPayment() = %s, want p1", got.ID)
	}

	if _, err := s.FindPaymentByTxHash(ctx, "0xtx1"); err != nil {
		t.Errorf("FindPaymentByTxHash() error = %v", err)
	}
	if _, err := s.FindPaymentByTxHash(ctx, "0xmissing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("FindPaymentByTxHash(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_AttemptsByUser(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	for i, userID := range []string{"u1", "u1", "u2"} {
		a := &course.QuizAttempt{ID: string(rune('a' + i)), UserID: userID, QuizID: "q1", Score: 50 + i}
		if err := s.CreateAttempt(ctx, a); err != nil {
			t.Fatalf("CreateAttempt() error = %v", err)
		}
	}

	attempts, err := s.AttemptsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("AttemptsByUser() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Errorf("len(attempts) = %d, want 2", len(attempts))
	}
}
