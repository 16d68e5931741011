// Package course holds the curriculum domain model shared by the stores and
// services.
package course

import (
	"fmt"
	"strconv"
	"time"
)

// Difficulty levels used across topics, resources and projects.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Subtopic is the smallest curriculum unit; it has one lesson and one quiz
// once visited.
type Subtopic struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	EstimatedHours float64 `json:"estimatedHours"`
}

// Topic groups subtopics under a difficulty level.
type Topic struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Subtopics   []Subtopic `json:"subtopics"`
}

// Module is a multi-week block of topics.
type Module struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	EstimatedWeeks int     `json:"estimatedWeeks"`
	Topics         []Topic `json:"topics"`
}

// WeeklyPlan assigns topics and goals to one week of the roadmap.
type WeeklyPlan struct {
	Week           int      `json:"week"`
	Topics         []string `json:"topics"`
	EstimatedHours float64  `json:"estimatedHours"`
	Goals          []string `json:"goals"`
}

// Curriculum is the persisted tree for one generation request. It is
// immutable after creation; the subtopic count is precomputed at creation
// time so eligibility checks never re-walk the tree.
type Curriculum struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	Skill          string       `json:"skill"`
	Modules        []Module     `json:"modules"`
	WeeklyRoadmap  []WeeklyPlan `json:"weeklyRoadmap"`
	TotalSubtopics int          `json:"totalSubtopics"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// CountSubtopics walks the tree and counts every subtopic.
func (c *Curriculum) CountSubtopics() int {
	total := 0
	for _, m := range c.Modules {
		for _, t := range m.Topics {
			total += len(t.Subtopics)
		}
	}
	return total
}

// TotalWeeks is the declared curriculum length.
func (c *Curriculum) TotalWeeks() int {
	total := 0
	for _, m := range c.Modules {
		total += m.EstimatedWeeks
	}
	return total
}

// FindTopic returns the topic with the given id, or false.
func (c *Curriculum) FindTopic(topicID string) (Topic, bool) {
	for _, m := range c.Modules {
		for _, t := range m.Topics {
			if t.ID == topicID {
				return t, true
			}
		}
	}
	return Topic{}, false
}

// FindSubtopic returns the subtopic with the given id, or false.
func (c *Curriculum) FindSubtopic(subtopicID string) (Subtopic, bool) {
	for _, m := range c.Modules {
		for _, t := range m.Topics {
			for _, s := range t.Subtopics {
				if s.ID == subtopicID {
					return s, true
				}
			}
		}
	}
	return Subtopic{}, false
}

// WeekPlan returns the plan for the given week number, or false.
func (c *Curriculum) WeekPlan(week int) (WeeklyPlan, bool) {
	for _, w := range c.WeeklyRoadmap {
		if w.Week == week {
			return w, true
		}
	}
	return WeeklyPlan{}, false
}

// ValidateRoadmap checks the structural contract between modules and the
// weekly roadmap: the roadmap length equals the sum of module estimatedWeeks
// and the week numbers are exactly the contiguous range 1..N.
func ValidateRoadmap(modules []Module, roadmap []WeeklyPlan) error {
	if len(modules) == 0 {
		return fmt.Errorf("curriculum has no modules")
	}

	totalWeeks := 0
	for _, m := range modules {
		if m.EstimatedWeeks < 1 {
			return fmt.Errorf("module %q has estimatedWeeks %d, want >= 1", m.ID, m.EstimatedWeeks)
		}
		totalWeeks += m.EstimatedWeeks
	}

	if len(roadmap) != totalWeeks {
		return fmt.Errorf("roadmap has %d weeks, modules declare %d", len(roadmap), totalWeeks)
	}

	seen := make(map[int]bool, len(roadmap))
	for _, w := range roadmap {
		if w.Week < 1 || w.Week > totalWeeks {
			return fmt.Errorf("week %d out of range 1..%d", w.Week, totalWeeks)
		}
		if seen[w.Week] {
			return fmt.Errorf("duplicate week %d in roadmap", w.Week)
		}
		seen[w.Week] = true
	}

	return nil
}

// Lesson is generated content for one subtopic. At most one lesson exists
// per (subtopic, curriculum); lessons are never regenerated.
type Lesson struct {
	ID           string    `json:"id"`
	SubtopicID   string    `json:"subtopicId"`
	CurriculumID string    `json:"curriculumId"`
	Title        string    `json:"title"`
	Objective    string    `json:"objective"`
	Content      string    `json:"content"`
	Examples     []string  `json:"examples"`
	PracticeTask string    `json:"practiceTask"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is one multiple-choice quiz question.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// Quiz is the single quiz attached to a lesson.
type Quiz struct {
	ID           string     `json:"id"`
	LessonID     string     `json:"lessonId"`
	CurriculumID string     `json:"curriculumId"`
	Questions    []Question `json:"questions"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// QuizAttempt is one submission. Every attempt is retained, not just the best.
type QuizAttempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Answers     []int     `json:"answers"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// Resource is a recommended learning resource for a topic.
type Resource struct {
	ID             string    `json:"id"`
	TopicID        string    `json:"topicId"`
	CurriculumID   string    `json:"curriculumId"`
	Type           string    `json:"type"` // book, course, article, video
	Title          string    `json:"title"`
	AuthorOrSource string    `json:"authorOrSource,omitempty"`
	URL            string    `json:"url,omitempty"`
	Level          string    `json:"level"`
	EstimatedTime  string    `json:"estimatedTime,omitempty"`
	Reason         string    `json:"reason"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Project is a portfolio project suggestion for a module.
type Project struct {
	ID                 string    `json:"id"`
	ModuleID           string    `json:"moduleId"`
	CurriculumID       string    `json:"curriculumId"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Requirements       []string  `json:"requirements"`
	TechStack          []string  `json:"techStack"`
	SkillsDemonstrated []string  `json:"skillsDemonstrated"`
	Difficulty         string    `json:"difficulty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// EventType enumerates the progress ledger event kinds.
type EventType string

const (
	EventLessonViewed      EventType = "lesson_viewed"
	EventLessonCompleted   EventType = "lesson_completed"
	EventQuizCompleted     EventType = "quiz_completed"
	EventResourceCompleted EventType = "resource_completed"
	EventProjectCompleted  EventType = "project_completed"
	EventWeekCompleted     EventType = "week_completed"
)

// ProgressEvent is one de-duplicated ledger entry. For week_completed the
// Score field carries the week number.
type ProgressEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CurriculumID string    `json:"curriculumId"`
	Type         EventType `json:"type"`
	LessonID     string    `json:"lessonId,omitempty"`
	ResourceID   string    `json:"resourceId,omitempty"`
	ProjectID    string    `json:"projectId,omitempty"`
	QuizID       string    `json:"quizId,omitempty"`
	Score        int       `json:"score,omitempty"`
	CompletedAt  time.Time `json:"completedAt"`
}

// EntityID returns the id that, together with (userId, curriculumId, type),
// uniquely keys this event in the ledger.
func (e ProgressEvent) EntityID() string {
	switch e.Type {
	case EventLessonViewed, EventLessonCompleted:
		return e.LessonID
	case EventQuizCompleted:
		return e.QuizID
	case EventResourceCompleted:
		return e.ResourceID
	case EventProjectCompleted:
		return e.ProjectID
	case EventWeekCompleted:
		return strconv.Itoa(e.Score)
	default:
		return ""
	}
}

// CertificateProgress is the aggregate completion/eligibility state, unique
// per (user, curriculum). Written only by eligibility recomputation and the
// certificate lifecycle.
type CertificateProgress struct {
	UserID                   string    `json:"userId"`
	CurriculumID             string    `json:"curriculumId"`
	Completed                bool      `json:"completed"`
	AllModulesPassed         bool      `json:"allModulesPassed"`
	MinScore                 int       `json:"minScore"`
	EligibleForCertificate   bool      `json:"eligibleForCertificate"`
	CertificatePaid          bool      `json:"certificatePaid"`
	CertificatePaymentTxHash string    `json:"certificatePaymentTxHash,omitempty"`
	CertificateTokenID       string    `json:"certificateTokenId,omitempty"`
	CertificateMintTxHash    string    `json:"certificateMintTxHash,omitempty"`
	WalletAddress            string    `json:"walletAddress,omitempty"`
	CertificateIssued        bool      `json:"certificateIssued"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// MasteryScore is an auxiliary per-topic skill estimate. Last write wins;
// eligibility never consults it.
type MasteryScore struct {
	UserID    string    `json:"userId"`
	TopicID   string    `json:"topicId"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CertificatePayment is a durable payment record kept by the on-chain
// payment verifier, independent of CertificateProgress.CertificatePaid.
type CertificatePayment struct {
	ID           string    `json:"id"`
	UserAddress  string    `json:"userAddress"`
	CurriculumID string    `json:"curriculumId"`
	TxHash       string    `json:"txHash"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile captures the learner's generation preferences.
type Profile struct {
	TargetSkill    string `json:"targetSkill"`
	CurrentLevel   string `json:"currentLevel"`
	TimePerWeek    int    `json:"timePerWeek"`
	PreferredStyle string `json:"preferredStyle,omitempty"`
}

// User is a learner account. Authentication is handled upstream; the engine
// only needs identity and profile for generation context and certificates.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"createdAt"`
}
