package generator

import (
	"fmt"

	"github.com/skillpath-labs/skillpath/internal/course"
)

func curriculumPrompt(skill, level string, timePerWeek int) string {
	return fmt.Sprintf(`Create a comprehensive curriculum for learning "%s" at %s level with %d hours per week.

Return a JSON object with:
1. "modules": Array of modules, each with:
   - id: unique string
   - title: module name
   - description: brief description
   - estimatedWeeks: number of weeks calculated considering %d hours per week
   - topics: array of topics, each with:
     - id: unique string
     - title: topic name
     - description: brief description
     - difficulty: "beginner"|"intermediate"|"advanced"
     - subtopics: array with id, title, description, estimatedHours

2. "weeklyRoadmap": Array of weekly plans with:
   - week: number (1 to last week)
   - topics: array of topic IDs to cover
   - estimatedHours: total hours for the week
   - goals: array of learning goals

CRITICAL: Sum all module estimatedWeeks and create weeklyRoadmap with exactly that total number of weeks (week 1 to week N). Distribute topics progressively across these weeks.`,
		skill, level, timePerWeek, timePerWeek)
}

func lessonPrompt(subtopic course.Subtopic, skill, level string) string {
	return fmt.Sprintf(`Create a lesson for "%s" in %s for %s level.

Subtopic context: %s

Return JSON with:
- title: lesson title
- objective: what student will learn
- content: detailed explanation (300-500 words)
- examples: array of 2-3 practical example strings
- practiceTask: hands-on task for the student

Make it engaging and practical.`,
		subtopic.Title, skill, level, subtopic.Description)
}

func quizPrompt(lessonTitle, content string) string {
	return fmt.Sprintf(`Create 5 multiple choice questions for a lesson titled "%s".

Return JSON array of questions, each with:
- id: unique string
- text: question text
- options: array of 4 answer choices
- correctAnswer: index (0-3) of correct answer
- explanation: why the answer is correct

Base questions on this content: %s...`,
		lessonTitle, truncate(content, 500))
}

// resourceTypeMix maps the learner's preferred style to the resource-type
// mix requested from the backend. Unknown styles get the full mix.
func resourceTypeMix(preferredStyle string) string {
	switch preferredStyle {
	case "text":
		return "books, courses, and articles only"
	case "video", "videos":
		return "videos and courses only"
	case "books":
		return "books and courses only"
	case "articles":
		return "articles and courses only"
	case "courses":
		return "courses only"
	default:
		return "mix of books, courses, articles, and videos"
	}
}

func resourcesPrompt(topicTitle, skill, level, preferredStyle string) string {
	return fmt.Sprintf(`Suggest 8-10 learning resources for "%s" in %s for %s level.

Return JSON array with %s. Each resource:
- type: "book"|"course"|"article"|"video"
- title: resource title
- authorOrSource: author or platform name
- level: "beginner"|"intermediate"|"advanced"
- estimatedTime: time to complete
- reason: why recommended (1 sentence)
- description: brief description
- url: valid URL or "#" if no valid URL available

IMPORTANT: Only provide real, valid URLs. If you don't have a valid URL, use "#" instead. Do not use placeholder URLs like example.com.
Include both free and paid options.`,
		topicTitle, skill, level, resourceTypeMix(preferredStyle))
}

func projectsPrompt(moduleTitle, skill, level string) string {
	return fmt.Sprintf(`Create 2-3 project ideas for "%s" in %s for %s level.

Return JSON array of projects, each with:
- title: project name
- description: what to build (2-3 sentences)
- requirements: array of key features
- techStack: array of technologies to use
- skillsDemonstrated: array of skills this project shows
- difficulty: "beginner"|"intermediate"|"advanced"

Make projects practical and portfolio-worthy.`,
		moduleTitle, skill, level)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
