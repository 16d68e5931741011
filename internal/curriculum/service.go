// Package curriculum orchestrates curriculum creation and reads: it drives
// the generator, persists the resulting tree, and answers weekly-plan and
// dashboard queries.
package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/generator"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// ErrWeekNotFound is returned when the requested week is outside the roadmap.
var ErrWeekNotFound = errors.New("week not found in roadmap")

const defaultPreferredStyle = "mixed"

// Service drives curriculum creation and curriculum-scoped reads.
type Service struct {
	gen    *generator.Generator
	store  store.Store
	logger *slog.Logger
}

// NewService creates a curriculum service.
func NewService(gen *generator.Generator, st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gen: gen, store: st, logger: logger}
}

// Create generates and persists a new curriculum for the learner, then fans
// out project generation per module and resource generation per topic.
// Generation failures degrade to fallback content; persistence failures are
// fatal and may leave a partially populated curriculum (the curriculum
// itself is always written first).
func (s *Service) Create(ctx context.Context, userID string, profile course.Profile) (*course.Curriculum, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if profile.TargetSkill == "" {
		return nil, fmt.Errorf("target skill is required")
	}

	content, err := s.gen.GenerateCurriculum(ctx, userID, profile.TargetSkill, profile.CurrentLevel, profile.TimePerWeek)
	if err != nil {
		return nil, err
	}

	cur := &course.Curriculum{
		ID:            uuid.NewString(),
		UserID:        userID,
		Skill:         profile.TargetSkill,
		Modules:       content.Modules,
		WeeklyRoadmap: content.WeeklyRoadmap,
		CreatedAt:     time.Now(),
	}
	cur.TotalSubtopics = cur.CountSubtopics()

	if err := s.store.CreateCurriculum(ctx, cur); err != nil {
		return nil, fmt.Errorf("persist curriculum: %w", err)
	}
	s.logger.Info("curriculum created",
		"curriculum_id", cur.ID,
		"user_id", userID,
		"skill", cur.Skill,
		"total_subtopics", cur.TotalSubtopics,
		"total_weeks", len(cur.WeeklyRoadmap),
	)

	style := profile.PreferredStyle
	if style == "" {
		style = defaultPreferredStyle
	}

	for _, module := range cur.Modules {
		projects, err := s.gen.GenerateProjects(ctx, userID, module.Title, profile.TargetSkill, profile.CurrentLevel)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			project := &course.Project{
				ID:                 uuid.NewString(),
				ModuleID:           module.ID,
				CurriculumID:       cur.ID,
				Title:              p.Title,
				Description:        p.Description,
				Requirements:       p.Requirements,
				TechStack:          p.TechStack,
				SkillsDemonstrated: p.SkillsDemonstrated,
				Difficulty:         p.Difficulty,
			}
			if err := s.store.CreateProject(ctx, project); err != nil {
				return nil, fmt.Errorf("persist project: %w", err)
			}
		}

		for _, topic := range module.Topics {
			resources, err := s.gen.GenerateResources(ctx, userID, topic.Title, profile.TargetSkill, profile.CurrentLevel, style)
			if err != nil {
				return nil, err
			}
			for _, r := range resources {
				resource := &course.Resource{
					ID:             uuid.NewString(),
					TopicID:        topic.ID,
					CurriculumID:   cur.ID,
					Type:           r.Type,
					Title:          r.Title,
					AuthorOrSource: r.AuthorOrSource,
					URL:            r.URL,
					Level:          r.Level,
					EstimatedTime:  r.EstimatedTime,
					Reason:         r.Reason,
					Description:    r.Description,
				}
				if err := s.store.CreateResource(ctx, resource); err != nil {
					return nil, fmt.Errorf("persist resource: %w", err)
				}
			}
		}
	}

	return cur, nil
}

// Current returns the learner's active curriculum.
func (s *Service) Current(ctx context.Context, userID string) (*course.Curriculum, error) {
	return s.store.ActiveCurriculum(ctx, userID)
}

// TopicDetail is a topic enriched with per-subtopic completion state for the
// weekly plan view.
type TopicDetail struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Difficulty         string            `json:"difficulty"`
	Subtopics          []course.Subtopic `json:"subtopics"`
	IsCompleted        bool              `json:"isCompleted"`
	CompletedSubtopics int               `json:"completedSubtopics"`
	TotalSubtopics     int               `json:"totalSubtopics"`
}

// WeekDetail is one roadmap week with completion-annotated topics.
type WeekDetail struct {
	Week           int           `json:"week"`
	Topics         []string      `json:"topics"`
	EstimatedHours float64       `json:"estimatedHours"`
	Goals          []string      `json:"goals"`
	TopicDetails   []TopicDetail `json:"topicDetails"`
}

// WeeklyPlan returns the plan for one week, annotated with how many of each
// topic's subtopics the learner has completed. A subtopic counts as complete
// once its lesson has a lesson_completed event; a subtopic whose lesson was
// never created counts as incomplete.
func (s *Service) WeeklyPlan(ctx context.Context, userID string, week int) (*WeekDetail, error) {
	cur, err := s.store.ActiveCurriculum(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, ok := cur.WeekPlan(week)
	if !ok {
		return nil, ErrWeekNotFound
	}

	detail := &WeekDetail{
		Week:           plan.Week,
		Topics:         plan.Topics,
		EstimatedHours: plan.EstimatedHours,
		Goals:          plan.Goals,
	}

	for _, topicID := range plan.Topics {
		topic, ok := cur.FindTopic(topicID)
		if !ok {
			continue
		}

		completed := 0
		for _, sub := range topic.Subtopics {
			done, err := s.subtopicCompleted(ctx, userID, cur.ID, sub.ID)
			if err != nil {
				return nil, err
			}
			if done {
				completed++
			}
		}

		detail.TopicDetails = append(detail.TopicDetails, TopicDetail{
			ID:                 topic.ID,
			Title:              topic.Title,
			Description:        topic.Description,
			Difficulty:         topic.Difficulty,
			Subtopics:          topic.Subtopics,
			IsCompleted:        completed == len(topic.Subtopics) && len(topic.Subtopics) > 0,
			CompletedSubtopics: completed,
			TotalSubtopics:     len(topic.Subtopics),
		})
	}

	return detail, nil
}

func (s *Service) subtopicCompleted(ctx context.Context, userID, curriculumID, subtopicID string) (bool, error) {
	lesson, err := s.store.LessonBySubtopic(ctx, curriculumID, subtopicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.store.HasEvent(ctx, userID, curriculumID, course.EventLessonCompleted, lesson.ID)
}

// UpdateMastery records a per-topic mastery estimate. Last write wins.
func (s *Service) UpdateMastery(ctx context.Context, userID, topicID string, score int) error {
	if topicID == "" {
		return fmt.Errorf("topic id is required")
	}
	return s.store.UpsertMastery(ctx, course.MasteryScore{
		UserID:    userID,
		TopicID:   topicID,
		Score:     score,
		UpdatedAt: time.Now(),
	})
}

// CompletedWeeks returns the week numbers the learner has completed, sorted
// ascending.
func (s *Service) CompletedWeeks(ctx context.Context, userID string) ([]int, error) {
	cur, err := s.store.ActiveCurriculum(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.completedWeeks(ctx, userID, cur.ID)
}

func (s *Service) completedWeeks(ctx context.Context, userID, curriculumID string) ([]int, error) {
	events, err := s.store.EventsByType(ctx, userID, curriculumID, course.EventWeekCompleted)
	if err != nil {
		return nil, err
	}

	weeks := make([]int, 0, len(events))
	for _, ev := range events {
		weeks = append(weeks, ev.Score)
	}
	sort.Ints(weeks)
	return weeks, nil
}
