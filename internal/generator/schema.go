package generator

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// The backend returns free-form text that is supposed to be JSON of a known
// shape; nothing upstream enforces that. These schemas reject near-misses
// (missing fields, wrong types) before unmarshalling so a malformed reply
// counts as a failed attempt instead of producing half-empty content.

var (
	curriculumSchema = mustCompile(`{
		"type": "object",
		"required": ["modules", "weeklyRoadmap"],
		"properties": {
			"modules": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["id", "title", "estimatedWeeks", "topics"],
					"properties": {
						"id": {"type": "string"},
						"title": {"type": "string"},
						"description": {"type": "string"},
						"estimatedWeeks": {"type": "integer", "minimum": 1},
						"topics": {
							"type": "array",
							"items": {
								"type": "object",
								"required": ["id", "title", "subtopics"],
								"properties": {
									"id": {"type": "string"},
									"title": {"type": "string"},
									"difficulty": {"type": "string"},
									"subtopics": {
										"type": "array",
										"items": {
											"type": "object",
											"required": ["id", "title"],
											"properties": {
												"id": {"type": "string"},
												"title": {"type": "string"},
												"estimatedHours": {"type": "number"}
											}
										}
									}
								}
							}
						}
					}
				}
			},
			"weeklyRoadmap": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["week", "topics"],
					"properties": {
						"week": {"type": "integer", "minimum": 1},
						"topics": {"type": "array", "items": {"type": "string"}},
						"estimatedHours": {"type": "number"},
						"goals": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`)

	lessonSchema = mustCompile(`{
		"type": "object",
		"required": ["title", "objective", "content"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"objective": {"type": "string"},
			"content": {"type": "string", "minLength": 1},
			"examples": {"type": "array", "items": {"type": "string"}},
			"practiceTask": {"type": "string"}
		}
	}`)

	quizSchema = mustCompile(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["id", "text", "options", "correctAnswer"],
			"properties": {
				"id": {"type": "string"},
				"text": {"type": "string", "minLength": 1},
				"options": {"type": "array", "minItems": 2, "items": {"type": "string"}},
				"correctAnswer": {"type": "integer", "minimum": 0},
				"explanation": {"type": "string"}
			}
		}
	}`)

	resourcesSchema = mustCompile(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["type", "title"],
			"properties": {
				"type": {"type": "string", "enum": ["book", "course", "article", "video"]},
				"title": {"type": "string", "minLength": 1},
				"authorOrSource": {"type": "string"},
				"level": {"type": "string"},
				"estimatedTime": {"type": "string"},
				"reason": {"type": "string"},
				"description": {"type": "string"},
				"url": {"type": "string"}
			}
		}
	}`)

	projectsSchema = mustCompile(`{
		"type": "array",
		"minItems": 1,
		"items": {
			"type": "object",
			"required": ["title", "description"],
			"properties": {
				"title": {"type": "string", "minLength": 1},
				"description": {"type": "string"},
				"requirements": {"type": "array", "items": {"type": "string"}},
				"techStack": {"type": "array", "items": {"type": "string"}},
				"skillsDemonstrated": {"type": "array", "items": {"type": "string"}},
				"difficulty": {"type": "string"}
			}
		}
	}`)
)

func mustCompile(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return schema
}

// extractJSON pulls the JSON document out of a model reply. Models often wrap
// JSON in markdown fences or add prose around it; everything outside the
// outermost object or array is discarded.
func extractJSON(content string) ([]byte, error) {
	s := strings.TrimSpace(content)

	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end != -1 {
			s = strings.TrimSpace(rest[:end])
		}
	}

	objStart := strings.IndexAny(s, "{[")
	if objStart == -1 {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var closer byte
	if s[objStart] == '{' {
		closer = '}'
	} else {
		closer = ']'
	}
	objEnd := strings.LastIndexByte(s, closer)
	if objEnd <= objStart {
		return nil, fmt.Errorf("unterminated JSON in response")
	}

	return []byte(s[objStart : objEnd+1]), nil
}
