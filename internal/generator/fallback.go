package generator

import (
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/skillpath-labs/skillpath/internal/course"
)

//go:embed fallbacks.yaml
var fallbacksRaw []byte

type fallbackTemplates struct {
	Curriculum struct {
		Weeks               int     `yaml:"weeks"`
		HoursPerWeek        int     `yaml:"hoursPerWeek"`
		ModuleTitle         string  `yaml:"moduleTitle"`
		ModuleDescription   string  `yaml:"moduleDescription"`
		TopicTitle          string  `yaml:"topicTitle"`
		TopicDescription    string  `yaml:"topicDescription"`
		SubtopicTitle       string  `yaml:"subtopicTitle"`
		SubtopicDescription string  `yaml:"subtopicDescription"`
		SubtopicHours       float64 `yaml:"subtopicHours"`
		WeekGoal            string  `yaml:"weekGoal"`
	} `yaml:"curriculum"`
	Lesson struct {
		Objective    string   `yaml:"objective"`
		Content      string   `yaml:"content"`
		Examples     []string `yaml:"examples"`
		PracticeTask string   `yaml:"practiceTask"`
	} `yaml:"lesson"`
	Quiz []struct {
		Text          string   `yaml:"text"`
		Options       []string `yaml:"options"`
		CorrectAnswer int      `yaml:"correctAnswer"`
		Explanation   string   `yaml:"explanation"`
	} `yaml:"quiz"`
	Resource struct {
		Type        string `yaml:"type"`
		Title       string `yaml:"title"`
		Level       string `yaml:"level"`
		Reason      string `yaml:"reason"`
		Description string `yaml:"description"`
		URL         string `yaml:"url"`
	} `yaml:"resource"`
	Project struct {
		Title              string   `yaml:"title"`
		Description        string   `yaml:"description"`
		Requirements       []string `yaml:"requirements"`
		TechStack          []string `yaml:"techStack"`
		SkillsDemonstrated []string `yaml:"skillsDemonstrated"`
		Difficulty         string   `yaml:"difficulty"`
	} `yaml:"project"`
}

var fallbacks = loadFallbacks()

func loadFallbacks() fallbackTemplates {
	var t fallbackTemplates
	if err := yaml.Unmarshal(fallbacksRaw, &t); err != nil {
		panic(fmt.Sprintf("parse fallback templates: %v", err))
	}
	return t
}

func fill(template string, pairs ...string) string {
	return strings.NewReplacer(pairs...).Replace(template)
}

func fillAll(templates []string, pairs ...string) []string {
	r := strings.NewReplacer(pairs...)
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = r.Replace(t)
	}
	return out
}

// fallbackCurriculum is a single-module, 12-week template curriculum.
func fallbackCurriculum(skill, level string) *CurriculumContent {
	t := fallbacks.Curriculum
	skillPair := []string{"{skill}", skill}

	roadmap := make([]course.WeeklyPlan, 0, t.Weeks)
	for week := 1; week <= t.Weeks; week++ {
		roadmap = append(roadmap, course.WeeklyPlan{
			Week:           week,
			Topics:         []string{"topic-1"},
			EstimatedHours: float64(t.HoursPerWeek),
			Goals:          []string{fill(t.WeekGoal, "{week}", strconv.Itoa(week), "{skill}", skill)},
		})
	}

	return &CurriculumContent{
		Modules: []course.Module{{
			ID:             "module-1",
			Title:          fill(t.ModuleTitle, skillPair...),
			Description:    fill(t.ModuleDescription, skillPair...),
			EstimatedWeeks: t.Weeks,
			Topics: []course.Topic{{
				ID:          "topic-1",
				Title:       t.TopicTitle,
				Description: fill(t.TopicDescription, skillPair...),
				Difficulty:  level,
				Subtopics: []course.Subtopic{{
					ID:             "subtopic-1",
					Title:          t.SubtopicTitle,
					Description:    fill(t.SubtopicDescription, skillPair...),
					EstimatedHours: t.SubtopicHours,
				}},
			}},
		}},
		WeeklyRoadmap: roadmap,
	}
}

func fallbackLesson(title string) *LessonContent {
	t := fallbacks.Lesson
	pair := []string{"{title}", title}
	return &LessonContent{
		Title:        title,
		Objective:    fill(t.Objective, pair...),
		Content:      fill(t.Content, pair...),
		Examples:     fillAll(t.Examples, pair...),
		PracticeTask: fill(t.PracticeTask, pair...),
	}
}

func fallbackQuiz(lessonTitle string) []course.Question {
	pair := []string{"{title}", lessonTitle}
	out := make([]course.Question, 0, len(fallbacks.Quiz))
	for i, q := range fallbacks.Quiz {
		out = append(out, course.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Text:          fill(q.Text, pair...),
			Options:       fillAll(q.Options, pair...),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   fill(q.Explanation, pair...),
		})
	}
	return out
}

func fallbackResources(topic string) []ResourceContent {
	t := fallbacks.Resource
	pair := []string{"{topic}", topic}
	return []ResourceContent{{
		Type:        t.Type,
		Title:       fill(t.Title, pair...),
		Level:       t.Level,
		Reason:      t.Reason,
		Description: fill(t.Description, pair...),
		URL:         t.URL,
	}}
}

func fallbackProjects(module string) []ProjectContent {
	t := fallbacks.Project
	pair := []string{"{module}", module}
	return []ProjectContent{{
		Title:              fill(t.Title, pair...),
		Description:        fill(t.Description, pair...),
		Requirements:       t.Requirements,
		TechStack:          t.TechStack,
		SkillsDemonstrated: t.SkillsDemonstrated,
		Difficulty:         t.Difficulty,
	}}
}
