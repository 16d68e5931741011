package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// RecordResourceCompleted marks a resource as completed. The write is
// idempotent; repeat calls do not add ledger entries.
func (s *Service) RecordResourceCompleted(ctx context.Context, userID, resourceID string) error {
	resource, err := s.store.GetResource(ctx, resourceID)
	if err != nil {
		return err
	}

	ev := course.ProgressEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurriculumID: resource.CurriculumID,
		Type:         course.EventResourceCompleted,
		ResourceID:   resourceID,
		CompletedAt:  time.Now(),
	}
	inserted, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return err
	}
	if inserted {
		s.notify(userID, ev)
	}
	return nil
}

// RecordProjectCompleted marks a project as completed. Idempotent.
func (s *Service) RecordProjectCompleted(ctx context.Context, userID, projectID string) error {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	ev := course.ProgressEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurriculumID: project.CurriculumID,
		Type:         course.EventProjectCompleted,
		ProjectID:    projectID,
		CompletedAt:  time.Now(),
	}
	inserted, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return err
	}
	if inserted {
		s.notify(userID, ev)
	}
	return nil
}

// MarkWeekCompleted verifies every subtopic of the week's topics has a
// completed lesson, then records the week in the ledger (keyed by week
// number, so re-marking is a no-op) and recomputes certificate eligibility.
func (s *Service) MarkWeekCompleted(ctx context.Context, userID string, week int) error {
	cur, err := s.store.ActiveCurriculum(ctx, userID)
	if err != nil {
		return err
	}

	plan, ok := cur.WeekPlan(week)
	if !ok {
		return fmt.Errorf("week %d not found in roadmap", week)
	}

	var subtopics []course.Subtopic
	for _, topicID := range plan.Topics {
		topic, ok := cur.FindTopic(topicID)
		if !ok {
			continue
		}
		subtopics = append(subtopics, topic.Subtopics...)
	}

	completed := 0
	for _, sub := range subtopics {
		done, err := s.lessonCompleted(ctx, userID, cur.ID, sub.ID)
		if err != nil {
			return err
		}
		if done {
			completed++
		}
	}

	if completed != len(subtopics) {
		return fmt.Errorf("only %d out of %d lessons completed for this week", completed, len(subtopics))
	}

	ev := course.ProgressEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurriculumID: cur.ID,
		Type:         course.EventWeekCompleted,
		Score:        week, // the week number rides in Score
		CompletedAt:  time.Now(),
	}
	inserted, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return err
	}
	if inserted {
		s.logger.Info("week completed", "user_id", userID, "curriculum_id", cur.ID, "week", week)
		s.notify(userID, ev)
	}

	_, err = s.RecomputeEligibility(ctx, userID, cur.ID)
	return err
}

func (s *Service) lessonCompleted(ctx context.Context, userID, curriculumID, subtopicID string) (bool, error) {
	lesson, err := s.store.LessonBySubtopic(ctx, curriculumID, subtopicID)
	if err != nil {
		// A lesson the learner never opened cannot be completed.
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.store.HasEvent(ctx, userID, curriculumID, course.EventLessonCompleted, lesson.ID)
}

// Portfolio is an aggregate of demonstrable work for the learner.
type Portfolio struct {
	CompletedProjects  int `json:"completedProjects"`
	CompletedResources int `json:"completedResources"`
	AverageQuizScore   int `json:"averageQuizScore"`
}

// Portfolio summarizes completed projects, resources and quiz performance
// across the active curriculum.
func (s *Service) Portfolio(ctx context.Context, userID, curriculumID string) (*Portfolio, error) {
	projects, err := s.store.CountEvents(ctx, userID, curriculumID, course.EventProjectCompleted)
	if err != nil {
		return nil, err
	}
	resources, err := s.store.CountEvents(ctx, userID, curriculumID, course.EventResourceCompleted)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.EventsByType(ctx, userID, curriculumID, course.EventQuizCompleted)
	if err != nil {
		return nil, err
	}

	avg := 0
	if len(quizzes) > 0 {
		sum := 0
		for _, q := range quizzes {
			sum += q.Score
		}
		avg = (sum + len(quizzes)/2) / len(quizzes)
	}

	return &Portfolio{
		CompletedProjects:  projects,
		CompletedResources: resources,
		AverageQuizScore:   avg,
	}, nil
}
