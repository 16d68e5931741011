package curriculum_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skillpath-labs/skillpath/internal/ai"
	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/curriculum"
	"github.com/skillpath-labs/skillpath/internal/generator"
	"github.com/skillpath-labs/skillpath/internal/store"
)

func newService(mock *ai.MockProvider, st store.Store) *curriculum.Service {
	gen := generator.New(mock, generator.WithBaseDelay(time.Millisecond))
	return curriculum.NewService(gen, st, nil)
}

func TestCreate_FallbackContentPersisted(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{
		TargetSkill:  "Python",
		CurrentLevel: "beginner",
		TimePerWeek:  10,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if cur.Skill != "Python" || cur.TotalSubtopics != 1 {
		t.Errorf("curriculum = skill %q, totalSubtopics %d; want Python, 1", cur.Skill, cur.TotalSubtopics)
	}
	if len(cur.WeeklyRoadmap) != 12 {
		t.Errorf("roadmap weeks = %d, want 12", len(cur.WeeklyRoadmap))
	}

	active, err := st.ActiveCurriculum(ctx, "u1")
	if err != nil {
		t.Fatalf("ActiveCurriculum() error = %v", err)
	}
	if active.ID != cur.ID {
		t.Errorf("active curriculum = %s, want %s", active.ID, cur.ID)
	}

	projects, err := st.ProjectsByModule(ctx, cur.ID, "module-1")
	if err != nil {
		t.Fatalf("ProjectsByModule() error = %v", err)
	}
	if len(projects) != 1 {
		t.Errorf("projects = %d, want 1 fallback project", len(projects))
	}

	resources, err := st.ResourcesByTopic(ctx, cur.ID, "topic-1")
	if err != nil {
		t.Fatalf("ResourcesByTopic() error = %v", err)
	}
	if len(resources) != 1 {
		t.Errorf("resources = %d, want 1 fallback resource", len(resources))
	}
}

func TestCreate_RequiresSkill(t *testing.T) {
	svc := newService(&ai.MockProvider{}, store.NewMemoryStore())

	if _, err := svc.Create(context.Background(), "u1", course.Profile{}); err == nil {
		t.Error("Create() with empty skill should fail")
	}
	if _, err := svc.Create(context.Background(), "", course.Profile{TargetSkill: "Go"}); err == nil {
		t.Error("Create() with empty user id should fail")
	}
}

func TestGetOrCreateLesson_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := svc.GetOrCreateLesson(ctx, "u1", cur.ID, "subtopic-1")
	if err != nil {
		t.Fatalf("GetOrCreateLesson() error = %v", err)
	}
	second, err := svc.GetOrCreateLesson(ctx, "u1", cur.ID, "subtopic-1")
	if err != nil {
		t.Fatalf("second GetOrCreateLesson() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("lesson regenerated: %s vs %s", first.ID, second.ID)
	}

	// Exactly one view event regardless of how many times the lesson is opened.
	views, err := st.CountEvents(ctx, "u1", cur.ID, course.EventLessonViewed)
	if err != nil {
		t.Fatalf("CountEvents() error = %v", err)
	}
	if views != 1 {
		t.Errorf("lesson_viewed events = %d, want 1", views)
	}

	// The lesson got a quiz alongside it.
	quiz, err := st.QuizByLesson(ctx, first.ID)
	if err != nil {
		t.Fatalf("QuizByLesson() error = %v", err)
	}
	if len(quiz.Questions) == 0 {
		t.Error("lesson persisted without quiz questions")
	}
}

func TestGetOrCreateLesson_UnknownSubtopic(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.GetOrCreateLesson(ctx, "u1", cur.ID, "no-such-subtopic"); err == nil {
		t.Error("GetOrCreateLesson() with unknown subtopic should fail")
	}

	// No event was recorded for the rejected request.
	views, _ := st.CountEvents(ctx, "u1", cur.ID, course.EventLessonViewed)
	if views != 0 {
		t.Errorf("lesson_viewed events = %d, want 0 after validation failure", views)
	}
}

func TestWeeklyPlan_CompletionCounts(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	plan, err := svc.WeeklyPlan(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("WeeklyPlan() error = %v", err)
	}
	if len(plan.TopicDetails) != 1 {
		t.Fatalf("topic details = %d, want 1", len(plan.TopicDetails))
	}
	td := plan.TopicDetails[0]
	if td.IsCompleted || td.CompletedSubtopics != 0 || td.TotalSubtopics != 1 {
		t.Errorf("fresh topic detail = %+v, want 0/1 incomplete", td)
	}

	// Complete the only subtopic's lesson and re-read.
	lesson, err := svc.GetOrCreateLesson(ctx, "u1", cur.ID, "subtopic-1")
	if err != nil {
		t.Fatalf("GetOrCreateLesson() error = %v", err)
	}
	if _, err := st.InsertEvent(ctx, course.ProgressEvent{
		ID: "e1", UserID: "u1", CurriculumID: cur.ID,
		Type: course.EventLessonCompleted, LessonID: lesson.ID, Score: 80,
	}); err != nil {
		t.Fatalf("InsertEvent() error = %v", err)
	}

	plan, err = svc.WeeklyPlan(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("WeeklyPlan() error = %v", err)
	}
	td = plan.TopicDetails[0]
	if !td.IsCompleted || td.CompletedSubtopics != 1 {
		t.Errorf("topic detail after completion = %+v, want 1/1 completed", td)
	}
}

func TestWeeklyPlan_UnknownWeek(t *testing.T) {
	ctx := context.Background()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, store.NewMemoryStore())

	if _, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.WeeklyPlan(ctx, "u1", 99); !errors.Is(err, curriculum.ErrWeekNotFound) {
		t.Errorf("WeeklyPlan(99) error = %v, want ErrWeekNotFound", err)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dash, err := svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.OverallProgress != 0 || dash.CurrentWeek != 1 || dash.TotalWeeks != 12 {
		t.Errorf("fresh dashboard = %+v", dash)
	}

	// Complete weeks 1-3 out of 12.
	for week := 1; week <= 3; week++ {
		if _, err := st.InsertEvent(ctx, course.ProgressEvent{
			ID: fmt.Sprintf("ev-%d", week), UserID: "u1", CurriculumID: cur.ID,
			Type: course.EventWeekCompleted, Score: week,
		}); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}
	if err := svc.UpdateMastery(ctx, "u1", "topic-1", 85); err != nil {
		t.Fatalf("UpdateMastery() error = %v", err)
	}

	dash, err = svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.OverallProgress != 25 {
		t.Errorf("OverallProgress = %d, want 25 (3 of 12 weeks)", dash.OverallProgress)
	}
	if dash.CurrentWeek != 4 {
		t.Errorf("CurrentWeek = %d, want 4", dash.CurrentWeek)
	}
	if len(dash.CompletedWeeks) != 3 || dash.CompletedWeeks[2] != 3 {
		t.Errorf("CompletedWeeks = %v, want [1 2 3]", dash.CompletedWeeks)
	}
	if dash.MasteryScores["topic-1"] != 85 {
		t.Errorf("MasteryScores = %v, want topic-1: 85", dash.MasteryScores)
	}
}

func TestDashboard_CurrentWeekCapped(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := newService(&ai.MockProvider{Err: errors.New("backend down")}, st)

	cur, err := svc.Create(ctx, "u1", course.Profile{TargetSkill: "Go", CurrentLevel: "beginner", TimePerWeek: 5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for week := 1; week <= 12; week++ {
		if _, err := st.InsertEvent(ctx, course.ProgressEvent{
			ID: fmt.Sprintf("ev-%d", week), UserID: "u1", CurriculumID: cur.ID,
			Type: course.EventWeekCompleted, Score: week,
		}); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}

	dash, err := svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.CurrentWeek != 12 {
		t.Errorf("CurrentWeek = %d, want capped at 12", dash.CurrentWeek)
	}
	if dash.OverallProgress != 100 {
		t.Errorf("OverallProgress = %d, want 100", dash.OverallProgress)
	}
}
