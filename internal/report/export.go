// Package report renders downloadable progress reports.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/store"
)

const (
	sheetSummary  = "Summary"
	sheetAttempts = "Quiz Attempts"
	sheetEvents   = "Progress Events"
)

// Exporter builds xlsx progress reports from the store.
type Exporter struct {
	store store.Store
}

// NewExporter creates a report exporter.
func NewExporter(st store.Store) *Exporter {
	return &Exporter{store: st}
}

// ProgressReport renders the learner's progress for a curriculum as an xlsx
// workbook and returns the serialized file.
func (e *Exporter) ProgressReport(ctx context.Context, userID, curriculumID string) ([]byte, error) {
	cur, err := e.store.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, err
	}
	attempts, err := e.store.AttemptsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	events, err := e.store.EventsByUser(ctx, userID, curriculumID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeSummary(f, cur, userID, attempts, events); err != nil {
		return nil, err
	}
	if err := e.writeAttempts(f, attempts); err != nil {
		return nil, err
	}
	if err := e.writeEvents(f, events); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize report: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) writeSummary(f *excelize.File, cur *course.Curriculum, userID string, attempts []course.QuizAttempt, events []course.ProgressEvent) error {
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}

	completedLessons := 0
	completedQuizzes := 0
	completedWeeks := 0
	for _, ev := range events {
		switch ev.Type {
		case course.EventLessonCompleted:
			completedLessons++
		case course.EventQuizCompleted:
			completedQuizzes++
		case course.EventWeekCompleted:
			completedWeeks++
		}
	}

	totalSubtopics := cur.TotalSubtopics
	if totalSubtopics == 0 {
		totalSubtopics = cur.CountSubtopics()
	}

	rows := [][]any{
		{"Learner", userID},
		{"Skill", cur.Skill},
		{"Curriculum", cur.ID},
		{"Generated", cur.CreatedAt.Format(time.RFC3339)},
		{"Total weeks", cur.TotalWeeks()},
		{"Completed weeks", completedWeeks},
		{"Lessons completed", fmt.Sprintf("%d of %d", completedLessons, totalSubtopics)},
		{"Quizzes completed", completedQuizzes},
		{"Quiz attempts", len(attempts)},
		{"Exported", time.Now().Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeAttempts(f *excelize.File, attempts []course.QuizAttempt) error {
	if _, err := f.NewSheet(sheetAttempts); err != nil {
		return err
	}

	header := []any{"Quiz", "Score", "Completed At"}
	if err := f.SetSheetRow(sheetAttempts, "A1", &header); err != nil {
		return err
	}
	for i, a := range attempts {
		row := []any{a.QuizID, a.Score, a.CompletedAt.Format(time.RFC3339)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetAttempts, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeEvents(f *excelize.File, events []course.ProgressEvent) error {
	if _, err := f.NewSheet(sheetEvents); err != nil {
		return err
	}

	header := []any{"Type", "Entity", "Score", "Completed At"}
	if err := f.SetSheetRow(sheetEvents, "A1", &header); err != nil {
		return err
	}
	for i, ev := range events {
		row := []any{string(ev.Type), ev.EntityID(), ev.Score, ev.CompletedAt.Format(time.RFC3339)}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetEvents, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
