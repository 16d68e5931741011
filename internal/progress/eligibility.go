package progress

import (
	"context"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// passingScore is the minimum quiz score that completes a lesson and the
// floor every attempt must clear for certificate eligibility.
const passingScore = 50

// RecomputeEligibility re-derives the certificate eligibility snapshot from
// the ledger and attempt history, and persists it without touching payment
// or mint state. Called after every quiz submission and week completion.
//
// Eligibility requires all three: every subtopic's lesson completed, at
// least one quiz attempt on record, and the learner's best score on every
// quiz they ever attempted (any curriculum, not just this one) at or above
// the passing score. Retakes supersede earlier attempts, matching the
// keep-the-best rule the ledger applies to quiz_completed events.
func (s *Service) RecomputeEligibility(ctx context.Context, userID, curriculumID string) (*course.CertificateProgress, error) {
	cur, err := s.store.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, err
	}

	totalSubtopics := cur.TotalSubtopics
	if totalSubtopics == 0 {
		totalSubtopics = cur.CountSubtopics()
	}

	completedLessons, err := s.store.CountEvents(ctx, userID, curriculumID, course.EventLessonCompleted)
	if err != nil {
		return nil, err
	}
	completed := completedLessons >= totalSubtopics

	attempts, err := s.store.AttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	bestByQuiz := make(map[string]int)
	for _, a := range attempts {
		if best, ok := bestByQuiz[a.QuizID]; !ok || a.Score > best {
			bestByQuiz[a.QuizID] = a.Score
		}
	}

	allPassed := true
	minScore := 100
	if len(bestByQuiz) == 0 {
		allPassed = false
		minScore = 0
	} else {
		for _, best := range bestByQuiz {
			if best < passingScore {
				allPassed = false
			}
			if best < minScore {
				minScore = best
			}
		}
	}

	eligible := completed && allPassed && minScore >= passingScore

	if err := s.store.UpsertEligibility(ctx, userID, curriculumID, completed, allPassed, minScore, eligible); err != nil {
		return nil, err
	}

	return s.store.CertificateProgress(ctx, userID, curriculumID)
}
