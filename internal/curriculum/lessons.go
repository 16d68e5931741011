package curriculum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/generator"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// GetOrCreateLesson resolves the lesson for a subtopic. An existing lesson is
// returned unchanged, lessons are never regenerated. On first visit the
// lesson is generated and persisted together with its quiz; a lesson is
// never left without a quiz, even when quiz generation fails outright.
// Either way a lesson_viewed event is recorded once per (user, curriculum,
// lesson).
func (s *Service) GetOrCreateLesson(ctx context.Context, userID, curriculumID, subtopicID string) (*course.Lesson, error) {
	cur, err := s.store.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, err
	}

	subtopic, ok := cur.FindSubtopic(subtopicID)
	if !ok {
		return nil, fmt.Errorf("subtopic %q not in curriculum %q", subtopicID, curriculumID)
	}

	lesson, err := s.store.LessonBySubtopic(ctx, curriculumID, subtopicID)
	switch {
	case err == nil:
		// Already generated.
	case errors.Is(err, store.ErrNotFound):
		lesson, err = s.createLesson(ctx, userID, cur, subtopic)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.recordLessonViewed(ctx, userID, curriculumID, lesson.ID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *Service) createLesson(ctx context.Context, userID string, cur *course.Curriculum, subtopic course.Subtopic) (*course.Lesson, error) {
	level := s.learnerLevel(ctx, userID)

	content, err := s.gen.GenerateLesson(ctx, userID, subtopic, cur.Skill, level)
	if err != nil {
		return nil, err
	}

	lesson := &course.Lesson{
		ID:           uuid.NewString(),
		SubtopicID:   subtopic.ID,
		CurriculumID: cur.ID,
		Title:        content.Title,
		Objective:    content.Objective,
		Content:      content.Content,
		Examples:     content.Examples,
		PracticeTask: content.PracticeTask,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateLesson(ctx, lesson); err != nil {
		return nil, fmt.Errorf("persist lesson: %w", err)
	}

	questions, err := s.gen.GenerateQuiz(ctx, userID, content.Title, content.Content)
	if err != nil {
		// Last resort: the lesson must still get a quiz.
		s.logger.Warn("quiz generation failed, persisting single-question fallback",
			"lesson_id", lesson.ID, "error", err)
		questions = []course.Question{generator.FallbackQuestion(content.Title)}
	}

	quiz := &course.Quiz{
		ID:           uuid.NewString(),
		LessonID:     lesson.ID,
		CurriculumID: cur.ID,
		Questions:    questions,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("persist quiz: %w", err)
	}

	s.logger.Info("lesson created",
		"lesson_id", lesson.ID,
		"subtopic_id", subtopic.ID,
		"curriculum_id", cur.ID,
		"questions", len(questions),
	)
	return lesson, nil
}

// learnerLevel reads the learner's declared level; a missing profile falls
// back to beginner rather than blocking lesson generation.
func (s *Service) learnerLevel(ctx context.Context, userID string) string {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u.Profile.CurrentLevel == "" {
		return course.DifficultyBeginner
	}
	return u.Profile.CurrentLevel
}

func (s *Service) recordLessonViewed(ctx context.Context, userID, curriculumID, lessonID string) error {
	_, err := s.store.InsertEvent(ctx, course.ProgressEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurriculumID: curriculumID,
		Type:         course.EventLessonViewed,
		LessonID:     lessonID,
		CompletedAt:  time.Now(),
	})
	return err
}
