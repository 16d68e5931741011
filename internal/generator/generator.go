// Package generator produces curriculum content through the AI gateway with
// retry, schema validation and deterministic fallbacks. Generation never
// fails a user-facing operation: when the backend is unreachable, returns
// garbage, or the learner is over budget, the caller gets template content
// instead of an error.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/skillpath-labs/skillpath/internal/ai"
	"github.com/skillpath-labs/skillpath/internal/course"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultMaxTokens   = 2000
	defaultTemperature = 0.7
)

// Completer is the slice of the AI gateway the generator needs. *ai.Router
// satisfies it.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// LessonContent is a generated lesson payload before persistence assigns ids.
type LessonContent struct {
	Title        string   `json:"title"`
	Objective    string   `json:"objective"`
	Content      string   `json:"content"`
	Examples     []string `json:"examples"`
	PracticeTask string   `json:"practiceTask"`
}

// ResourceContent is a generated resource suggestion.
type ResourceContent struct {
	Type           string `json:"type"`
	Title          string `json:"title"`
	AuthorOrSource string `json:"authorOrSource"`
	Level          string `json:"level"`
	EstimatedTime  string `json:"estimatedTime"`
	Reason         string `json:"reason"`
	Description    string `json:"description"`
	URL            string `json:"url"`
}

// ProjectContent is a generated project suggestion.
type ProjectContent struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Requirements       []string `json:"requirements"`
	TechStack          []string `json:"techStack"`
	SkillsDemonstrated []string `json:"skillsDemonstrated"`
	Difficulty         string   `json:"difficulty"`
}

// CurriculumContent is the generated skeleton: the module tree plus the
// weekly roadmap.
type CurriculumContent struct {
	Modules       []course.Module     `json:"modules"`
	WeeklyRoadmap []course.WeeklyPlan `json:"weeklyRoadmap"`
}

// Generator drives content generation.
type Generator struct {
	completer   Completer
	budget      ai.BudgetChecker
	model       string
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxAttempts sets the retry limit per generation call.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n >= 1 {
			g.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the base retry delay; attempt n waits n times this.
func WithBaseDelay(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.baseDelay = d
		}
	}
}

// WithBudget sets the per-learner token budget checker.
func WithBudget(b ai.BudgetChecker) Option {
	return func(g *Generator) { g.budget = b }
}

// WithModel overrides the model requested from the gateway.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New creates a Generator backed by the given completer.
func New(completer Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:   completer,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// overBudget reports whether the learner has exhausted their token budget.
// Budget check failures count as over budget; spending is the action that
// needs positive confirmation.
func (g *Generator) overBudget(ctx context.Context, userID string) bool {
	if g.budget == nil {
		return false
	}
	ok, err := g.budget.Check(ctx, userID)
	if err != nil {
		g.logger.Warn("budget check failed", "user_id", userID, "error", err)
		return true
	}
	return !ok
}

// generate runs one retried generation: each attempt is a backend call plus
// parse plus schema validation, and a failure at any of those stages counts
// as one attempt. Attempt n waits n times the base delay before retrying.
func generate[T any](ctx context.Context, g *Generator, userID string, task ai.TaskType, prompt string, schema *gojsonschema.Schema, validate func(*T) error) (*T, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * g.baseDelay):
			}
		}

		out, err := attemptOnce[T](ctx, g, userID, task, prompt, schema, validate)
		if err == nil {
			return out, nil
		}
		lastErr = err
		g.logger.Warn("generation attempt failed",
			"task", task.String(),
			"attempt", attempt,
			"max_attempts", g.maxAttempts,
			"error", err,
		)
	}
	return nil, fmt.Errorf("generate %s: failed after %d attempts: %w", task, g.maxAttempts, lastErr)
}

func attemptOnce[T any](ctx context.Context, g *Generator, userID string, task ai.TaskType, prompt string, schema *gojsonschema.Schema, validate func(*T) error) (*T, error) {
	resp, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		Model:       g.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
		Task:        task,
	})
	if err != nil {
		return nil, err
	}

	if g.budget != nil {
		if err := g.budget.Record(ctx, userID, resp.TotalTokens()); err != nil {
			g.logger.Warn("recording token usage failed", "user_id", userID, "error", err)
		}
	}

	raw, err := extractJSON(resp.Content)
	if err != nil {
		return nil, err
	}

	if schema != nil {
		result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("validate response: %w", err)
		}
		if !result.Valid() {
			return nil, fmt.Errorf("response shape invalid: %s", firstSchemaError(result))
		}
	}

	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if validate != nil {
		if err := validate(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func firstSchemaError(result *gojsonschema.Result) string {
	for _, e := range result.Errors() {
		return e.String()
	}
	return "unknown"
}

// GenerateCurriculum produces the module tree and weekly roadmap for a
// skill. Falls back to a 12-week single-module template after retries are
// exhausted or when the learner is over budget.
func (g *Generator) GenerateCurriculum(ctx context.Context, userID, skill, level string, timePerWeek int) (*CurriculumContent, error) {
	if g.overBudget(ctx, userID) {
		g.logger.Info("token budget exhausted, using fallback curriculum", "user_id", userID)
		return fallbackCurriculum(skill, level), nil
	}

	out, err := generate[CurriculumContent](ctx, g, userID, ai.TaskCurriculum,
		curriculumPrompt(skill, level, timePerWeek), curriculumSchema,
		func(c *CurriculumContent) error {
			return course.ValidateRoadmap(c.Modules, c.WeeklyRoadmap)
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("curriculum generation failed, using fallback", "skill", skill, "error", err)
		return fallbackCurriculum(skill, level), nil
	}
	return out, nil
}

// GenerateLesson produces lesson content for one subtopic.
func (g *Generator) GenerateLesson(ctx context.Context, userID string, subtopic course.Subtopic, skill, level string) (*LessonContent, error) {
	if g.overBudget(ctx, userID) {
		return fallbackLesson(subtopic.Title), nil
	}

	out, err := generate[LessonContent](ctx, g, userID, ai.TaskLesson,
		lessonPrompt(subtopic, skill, level), lessonSchema, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("lesson generation failed, using fallback", "subtopic", subtopic.Title, "error", err)
		return fallbackLesson(subtopic.Title), nil
	}
	return out, nil
}

// GenerateQuiz produces multiple-choice questions for a lesson.
func (g *Generator) GenerateQuiz(ctx context.Context, userID, lessonTitle, content string) ([]course.Question, error) {
	if g.overBudget(ctx, userID) {
		return fallbackQuiz(lessonTitle), nil
	}

	out, err := generate[[]course.Question](ctx, g, userID, ai.TaskQuiz,
		quizPrompt(lessonTitle, content), quizSchema,
		func(qs *[]course.Question) error {
			for _, q := range *qs {
				if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
					return fmt.Errorf("question %q: correctAnswer %d out of range", q.ID, q.CorrectAnswer)
				}
			}
			return nil
		})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("quiz generation failed, using fallback", "lesson", lessonTitle, "error", err)
		return fallbackQuiz(lessonTitle), nil
	}
	return *out, nil
}

// GenerateResources produces learning resource suggestions for a topic. The
// learner's preferred style narrows the resource-type mix.
func (g *Generator) GenerateResources(ctx context.Context, userID, topicTitle, skill, level, preferredStyle string) ([]ResourceContent, error) {
	if g.overBudget(ctx, userID) {
		return fallbackResources(topicTitle), nil
	}

	out, err := generate[[]ResourceContent](ctx, g, userID, ai.TaskResources,
		resourcesPrompt(topicTitle, skill, level, preferredStyle), resourcesSchema, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("resource generation failed, using fallback", "topic", topicTitle, "error", err)
		return fallbackResources(topicTitle), nil
	}
	return *out, nil
}

// GenerateProjects produces portfolio project ideas for a module.
func (g *Generator) GenerateProjects(ctx context.Context, userID, moduleTitle, skill, level string) ([]ProjectContent, error) {
	if g.overBudget(ctx, userID) {
		return fallbackProjects(moduleTitle), nil
	}

	out, err := generate[[]ProjectContent](ctx, g, userID, ai.TaskProjects,
		projectsPrompt(moduleTitle, skill, level), projectsSchema, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Warn("project generation failed, using fallback", "module", moduleTitle, "error", err)
		return fallbackProjects(moduleTitle), nil
	}
	return *out, nil
}

// FallbackQuestion is the single last-resort question persisted when even
// quiz generation with fallback cannot run; a lesson is never left without a
// quiz.
func FallbackQuestion(lessonTitle string) course.Question {
	return course.Question{
		ID:            "q1",
		Text:          fmt.Sprintf("What is the main concept covered in %s?", lessonTitle),
		Options:       []string{"Concept A", "Concept B", "Concept C", "Concept D"},
		CorrectAnswer: 0,
		Explanation:   "This covers the main concept of the lesson.",
	}
}
