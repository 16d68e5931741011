// Package store defines the persistence interfaces for the learning engine
// and provides in-memory and PostgreSQL-backed implementations.
package store

import (
	"context"
	"errors"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// CurriculumStore persists curriculum trees. Curricula are immutable after
// creation; the active curriculum for a user is tracked by an explicit
// pointer updated at creation, with latest-created as the fallback.
type CurriculumStore interface {
	CreateCurriculum(ctx context.Context, c *course.Curriculum) error
	GetCurriculum(ctx context.Context, id string) (*course.Curriculum, error)
	ActiveCurriculum(ctx context.Context, userID string) (*course.Curriculum, error)
}

// UserStore persists learner accounts.
type UserStore interface {
	PutUser(ctx context.Context, u *course.User) error
	GetUser(ctx context.Context, id string) (*course.User, error)
}

// LessonStore persists lessons and their quizzes.
type LessonStore interface {
	CreateLesson(ctx context.Context, l *course.Lesson) error
	GetLesson(ctx context.Context, id string) (*course.Lesson, error)
	LessonBySubtopic(ctx context.Context, curriculumID, subtopicID string) (*course.Lesson, error)

	CreateQuiz(ctx context.Context, q *course.Quiz) error
	GetQuiz(ctx context.Context, id string) (*course.Quiz, error)
	QuizByLesson(ctx context.Context, lessonID string) (*course.Quiz, error)
}

// ResourceStore persists recommended resources.
type ResourceStore interface {
	CreateResource(ctx context.Context, r *course.Resource) error
	GetResource(ctx context.Context, id string) (*course.Resource, error)
	ResourcesByTopic(ctx context.Context, curriculumID, topicID string) ([]course.Resource, error)
}

// ProjectStore persists project suggestions.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *course.Project) error
	GetProject(ctx context.Context, id string) (*course.Project, error)
	ProjectsByModule(ctx context.Context, curriculumID, moduleID string) ([]course.Project, error)
}

// AttemptStore persists the full quiz attempt history.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a *course.QuizAttempt) error
	AttemptsByUser(ctx context.Context, userID string) ([]course.QuizAttempt, error)
}

// ProgressStore is the de-duplicated progress event ledger. Both conditional
// writes are atomic single operations so concurrent writers cannot lose an
// update.
type ProgressStore interface {
	// InsertEvent inserts the event if no event exists for the composite
	// key (userId, curriculumId, type, entityId). Returns true if the
	// event was inserted.
	InsertEvent(ctx context.Context, ev course.ProgressEvent) (bool, error)

	// UpsertQuizScore inserts a quiz_completed event, or overwrites the
	// stored score and timestamp only if the new score is strictly
	// higher. Returns true if a row was written.
	UpsertQuizScore(ctx context.Context, ev course.ProgressEvent) (bool, error)

	HasEvent(ctx context.Context, userID, curriculumID string, typ course.EventType, entityID string) (bool, error)
	CountEvents(ctx context.Context, userID, curriculumID string, typ course.EventType) (int, error)
	EventsByType(ctx context.Context, userID, curriculumID string, typ course.EventType) ([]course.ProgressEvent, error)
	EventsByUser(ctx context.Context, userID, curriculumID string) ([]course.ProgressEvent, error)
}

// CertificateStore persists aggregate completion state per (user, curriculum).
type CertificateStore interface {
	CertificateProgress(ctx context.Context, userID, curriculumID string) (*course.CertificateProgress, error)

	// UpsertEligibility writes the four computed eligibility fields,
	// preserving any payment and mint state already recorded.
	UpsertEligibility(ctx context.Context, userID, curriculumID string, completed, allPassed bool, minScore int, eligible bool) error

	SetPayment(ctx context.Context, userID, curriculumID, wallet, txHash string) error
	SetMint(ctx context.Context, userID, curriculumID, wallet, tokenID, mintTxHash string) error
}

// MasteryStore persists auxiliary per-topic mastery estimates.
type MasteryStore interface {
	UpsertMastery(ctx context.Context, m course.MasteryScore) error
	MasteryByUser(ctx context.Context, userID string) ([]course.MasteryScore, error)
}

// PaymentStore persists the verifier's durable payment records.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p course.CertificatePayment) error
	FindPayment(ctx context.Context, userAddress, curriculumID string) (*course.CertificatePayment, error)
	FindPaymentByTxHash(ctx context.Context, txHash string) (*course.CertificatePayment, error)
}

// Store is the full persistence surface.
type Store interface {
	CurriculumStore
	UserStore
	LessonStore
	ResourceStore
	ProjectStore
	AttemptStore
	ProgressStore
	CertificateStore
	MasteryStore
	PaymentStore
}
