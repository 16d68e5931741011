package curriculum

import (
	"context"
	"math"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// Dashboard is the learner's progress summary for the active curriculum.
type Dashboard struct {
	OverallProgress  int                 `json:"overallProgress"`
	CurrentWeek      int                 `json:"currentWeek"`
	CompletedLessons int                 `json:"completedLessons"`
	CompletedQuizzes int                 `json:"completedQuizzes"`
	CompletedWeeks   []int               `json:"completedWeeks"`
	TotalWeeks       int                 `json:"totalWeeks"`
	MasteryScores    map[string]int      `json:"masteryScores"`
	WeeklyRoadmap    []course.WeeklyPlan `json:"weeklyRoadmap"`
}

// Dashboard computes the progress summary. Overall progress is the share of
// completed weeks; the current week is the one after the last completed
// week, capped at the roadmap length.
func (s *Service) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	cur, err := s.store.ActiveCurriculum(ctx, userID)
	if err != nil {
		return nil, err
	}

	completedLessons, err := s.store.CountEvents(ctx, userID, cur.ID, course.EventLessonCompleted)
	if err != nil {
		return nil, err
	}
	completedQuizzes, err := s.store.CountEvents(ctx, userID, cur.ID, course.EventQuizCompleted)
	if err != nil {
		return nil, err
	}
	completedWeeks, err := s.completedWeeks(ctx, userID, cur.ID)
	if err != nil {
		return nil, err
	}

	totalWeeks := len(cur.WeeklyRoadmap)

	overall := 0
	if totalWeeks > 0 {
		overall = int(math.Round(float64(len(completedWeeks)) / float64(totalWeeks) * 100))
	}

	currentWeek := 1
	if len(completedWeeks) > 0 {
		currentWeek = completedWeeks[len(completedWeeks)-1] + 1
	}
	if currentWeek > totalWeeks {
		currentWeek = totalWeeks
	}

	masteryScores, err := s.store.MasteryByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	mastery := make(map[string]int, len(masteryScores))
	for _, m := range masteryScores {
		mastery[m.TopicID] = m.Score
	}

	return &Dashboard{
		OverallProgress:  overall,
		CurrentWeek:      currentWeek,
		CompletedLessons: completedLessons,
		CompletedQuizzes: completedQuizzes,
		CompletedWeeks:   completedWeeks,
		TotalWeeks:       totalWeeks,
		MasteryScores:    mastery,
		WeeklyRoadmap:    cur.WeeklyRoadmap,
	}, nil
}
