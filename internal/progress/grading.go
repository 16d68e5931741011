package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// SanitizedQuestion is a quiz question with the answer key stripped.
type SanitizedQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// SanitizedQuiz is what learners see before submitting.
type SanitizedQuiz struct {
	ID        string              `json:"id"`
	LessonID  string              `json:"lessonId"`
	Questions []SanitizedQuestion `json:"questions"`
}

// QuestionResult is the graded outcome of one question.
type QuestionResult struct {
	QuestionID    string `json:"questionId"`
	UserAnswer    int    `json:"userAnswer"`
	CorrectAnswer int    `json:"correctAnswer"`
	IsCorrect     bool   `json:"isCorrect"`
	Explanation   string `json:"explanation"`
}

// SubmitResult is the response to a quiz submission.
type SubmitResult struct {
	Score   int              `json:"score"`
	Results []QuestionResult `json:"results"`
	Message string           `json:"message"`
}

// QuizForLesson returns the lesson's quiz with correct answers and
// explanations removed. Answer keys never leave the server before grading.
func (s *Service) QuizForLesson(ctx context.Context, lessonID string) (*SanitizedQuiz, error) {
	quiz, err := s.store.QuizByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	out := &SanitizedQuiz{ID: quiz.ID, LessonID: quiz.LessonID}
	for _, q := range quiz.Questions {
		out.Questions = append(out.Questions, SanitizedQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
		})
	}
	return out, nil
}

// SubmitQuiz grades a submission, saves the attempt, updates the ledger and
// recomputes certificate eligibility. Every attempt is retained; the ledger
// keeps only the best score per quiz, and a score of 50 or higher cascades a
// lesson_completed event (the only path by which lessons complete).
func (s *Service) SubmitQuiz(ctx context.Context, userID, quizID string, answers []int) (*SubmitResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	correct := 0
	results := make([]QuestionResult, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		answer := -1
		if i < len(answers) {
			answer = answers[i]
		}
		isCorrect := answer == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		results = append(results, QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     isCorrect,
			Explanation:   q.Explanation,
		})
	}

	score := int(math.Round(float64(correct) / float64(len(quiz.Questions)) * 100))

	attempt := &course.QuizAttempt{
		ID:          uuid.NewString(),
		UserID:      userID,
		QuizID:      quizID,
		Answers:     answers,
		Score:       score,
		CompletedAt: time.Now(),
	}
	if err := s.store.CreateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	quizEvent := course.ProgressEvent{
		ID:           uuid.NewString(),
		UserID:       userID,
		CurriculumID: quiz.CurriculumID,
		Type:         course.EventQuizCompleted,
		QuizID:       quizID,
		Score:        score,
		CompletedAt:  time.Now(),
	}
	written, err := s.store.UpsertQuizScore(ctx, quizEvent)
	if err != nil {
		return nil, err
	}
	if written {
		s.notify(userID, quizEvent)
	}

	if score >= passingScore {
		lessonEvent := course.ProgressEvent{
			ID:           uuid.NewString(),
			UserID:       userID,
			CurriculumID: quiz.CurriculumID,
			Type:         course.EventLessonCompleted,
			LessonID:     quiz.LessonID,
			Score:        score,
			CompletedAt:  time.Now(),
		}
		inserted, err := s.store.InsertEvent(ctx, lessonEvent)
		if err != nil {
			return nil, err
		}
		if inserted {
			s.notify(userID, lessonEvent)
		}
	}

	if _, err := s.RecomputeEligibility(ctx, userID, quiz.CurriculumID); err != nil {
		return nil, err
	}

	s.logger.Info("quiz submitted",
		"user_id", userID,
		"quiz_id", quizID,
		"score", score,
		"correct", correct,
		"questions", len(quiz.Questions),
	)

	message := "Keep practicing!"
	if score >= 70 {
		message = "Great job!"
	}
	return &SubmitResult{Score: score, Results: results, Message: message}, nil
}
