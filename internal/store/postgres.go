package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// PostgresStore is the PostgreSQL-backed Store implementation. Curriculum
// trees, quiz questions and answer vectors are stored as jsonb; the progress
// ledger's conditional writes are single statements so they stay atomic under
// concurrency.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateCurriculum(ctx context.Context, c *course.Curriculum) error {
	modules, err := json.Marshal(c.Modules)
	if err != nil {
		return fmt.Errorf("marshal modules: %w", err)
	}
	roadmap, err := json.Marshal(c.WeeklyRoadmap)
	if err != nil {
		return fmt.Errorf("marshal roadmap: %w", err)
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO curricula (id, user_id, skill, modules, weekly_roadmap, total_subtopics, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.Skill, modules, roadmap, c.TotalSubtopics, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert curriculum: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO active_curricula (user_id, curriculum_id, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (user_id) DO UPDATE
		 SET curriculum_id = EXCLUDED.curriculum_id, updated_at = NOW()`,
		c.UserID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("set active curriculum: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCurriculum(ctx context.Context, id string) (*course.Curriculum, error) {
	return s.scanCurriculum(ctx,
		`SELECT id, user_id, skill, modules, weekly_roadmap, total_subtopics, created_at
		 FROM curricula
		 WHERE id = $1`,
		id,
	)
}

func (s *PostgresStore) ActiveCurriculum(ctx context.Context, userID string) (*course.Curriculum, error) {
	c, err := s.scanCurriculum(ctx,
		`SELECT c.id, c.user_id, c.skill, c.modules, c.weekly_roadmap, c.total_subtopics, c.created_at
		 FROM curricula c
		 JOIN active_curricula a ON a.curriculum_id = c.id
		 WHERE a.user_id = $1`,
		userID,
	)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// No pointer row; fall back to the most recently created curriculum.
	return s.scanCurriculum(ctx,
		`SELECT id, user_id, skill, modules, weekly_roadmap, total_subtopics, created_at
		 FROM curricula
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	)
}

func (s *PostgresStore) scanCurriculum(ctx context.Context, query string, args ...any) (*course.Curriculum, error) {
	c := &course.Curriculum{}
	var modules, roadmap []byte

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.UserID, &c.Skill, &modules, &roadmap, &c.TotalSubtopics, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get curriculum: %w", err)
	}

	if err := json.Unmarshal(modules, &c.Modules); err != nil {
		return nil, fmt.Errorf("unmarshal modules: %w", err)
	}
	if err := json.Unmarshal(roadmap, &c.WeeklyRoadmap); err != nil {
		return nil, fmt.Errorf("unmarshal roadmap: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) PutUser(ctx context.Context, u *course.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, profile, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET email = EXCLUDED.email, name = EXCLUDED.name, profile = EXCLUDED.profile`,
		u.ID, u.Email, u.Name, profile, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*course.User, error) {
	u := &course.User{}
	var profile []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, profile, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Email, &u.Name, &profile, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := json.Unmarshal(profile, &u.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) CreateLesson(ctx context.Context, l *course.Lesson) error {
	examples, err := json.Marshal(l.Examples)
	if err != nil {
		return fmt.Errorf("marshal examples: %w", err)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO lessons (id, subtopic_id, curriculum_id, title, objective, content, examples, practice_task, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.SubtopicID, l.CurriculumID, l.Title, l.Objective, l.Content, examples, l.PracticeTask, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLesson(ctx context.Context, id string) (*course.Lesson, error) {
	return s.scanLesson(ctx,
		`SELECT id, subtopic_id, curriculum_id, title, objective, content, examples, practice_task, created_at
		 FROM lessons WHERE id = $1`,
		id,
	)
}

func (s *PostgresStore) LessonBySubtopic(ctx context.Context, curriculumID, subtopicID string) (*course.Lesson, error) {
	return s.scanLesson(ctx,
		`SELECT id, subtopic_id, curriculum_id, title, objective, content, examples, practice_task, created_at
		 FROM lessons WHERE curriculum_id = $1 AND subtopic_id = $2`,
		curriculumID, subtopicID,
	)
}

func (s *PostgresStore) scanLesson(ctx context.Context, query string, args ...any) (*course.Lesson, error) {
	l := &course.Lesson{}
	var examples []byte

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&l.ID, &l.SubtopicID, &l.CurriculumID, &l.Title, &l.Objective, &l.Content, &examples, &l.PracticeTask, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get lesson: %w", err)
	}

	if err := json.Unmarshal(examples, &l.Examples); err != nil {
		return nil, fmt.Errorf("unmarshal examples: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) CreateQuiz(ctx context.Context, q *course.Quiz) error {
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, lesson_id, curriculum_id, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.LessonID, q.CurriculumID, questions, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetQuiz(ctx context.Context, id string) (*course.Quiz, error) {
	return s.scanQuiz(ctx,
		`SELECT id, lesson_id, curriculum_id, questions, created_at FROM quizzes WHERE id = $1`,
		id,
	)
}

func (s *PostgresStore) QuizByLesson(ctx context.Context, lessonID string) (*course.Quiz, error) {
	return s.scanQuiz(ctx,
		`SELECT id, lesson_id, curriculum_id, questions, created_at FROM quizzes WHERE lesson_id = $1`,
		lessonID,
	)
}

func (s *PostgresStore) scanQuiz(ctx context.Context, query string, args ...any) (*course.Quiz, error) {
	q := &course.Quiz{}
	var questions []byte

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&q.ID, &q.LessonID, &q.CurriculumID, &questions, &q.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get quiz: %w", err)
	}

	if err := json.Unmarshal(questions, &q.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) CreateResource(ctx context.Context, r *course.Resource) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO resources (id, topic_id, curriculum_id, type, title, author_or_source, url, level, estimated_time, reason, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.TopicID, r.CurriculumID, r.Type, r.Title, r.AuthorOrSource, r.URL, r.Level, r.EstimatedTime, r.Reason, r.Description, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetResource(ctx context.Context, id string) (*course.Resource, error) {
	r := &course.Resource{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, topic_id, curriculum_id, type, title, author_or_source, url, level, estimated_time, reason, description, created_at
		 FROM resources WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.TopicID, &r.CurriculumID, &r.Type, &r.Title, &r.AuthorOrSource, &r.URL, &r.Level, &r.EstimatedTime, &r.Reason, &r.Description, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ResourcesByTopic(ctx context.Context, curriculumID, topicID string) ([]course.Resource, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, topic_id, curriculum_id, type, title, author_or_source, url, level, estimated_time, reason, description, created_at
		 FROM resources
		 WHERE curriculum_id = $1 AND topic_id = $2
		 ORDER BY created_at ASC`,
		curriculumID, topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	var out []course.Resource
	for rows.Next() {
		var r course.Resource
		if err := rows.Scan(&r.ID, &r.TopicID, &r.CurriculumID, &r.Type, &r.Title, &r.AuthorOrSource, &r.URL, &r.Level, &r.EstimatedTime, &r.Reason, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateProject(ctx context.Context, p *course.Project) error {
	requirements, err := json.Marshal(p.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}
	techStack, err := json.Marshal(p.TechStack)
	if err != nil {
		return fmt.Errorf("marshal tech stack: %w", err)
	}
	skills, err := json.Marshal(p.SkillsDemonstrated)
	if err != nil {
		return fmt.Errorf("marshal skills: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO projects (id, module_id, curriculum_id, title, description, requirements, tech_stack, skills_demonstrated, difficulty, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.ModuleID, p.CurriculumID, p.Title, p.Description, requirements, techStack, skills, p.Difficulty, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*course.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, module_id, curriculum_id, title, description, requirements, tech_stack, skills_demonstrated, difficulty, created_at
		 FROM projects WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	defer rows.Close()

	projects, err := scanProjects(rows)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, ErrNotFound
	}
	return &projects[0], nil
}

func (s *PostgresStore) ProjectsByModule(ctx context.Context, curriculumID, moduleID string) ([]course.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, module_id, curriculum_id, title, description, requirements, tech_stack, skills_demonstrated, difficulty, created_at
		 FROM projects
		 WHERE curriculum_id = $1 AND module_id = $2
		 ORDER BY created_at ASC`,
		curriculumID, moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

func scanProjects(rows pgx.Rows) ([]course.Project, error) {
	var out []course.Project
	for rows.Next() {
		var p course.Project
		var requirements, techStack, skills []byte
		if err := rows.Scan(&p.ID, &p.ModuleID, &p.CurriculumID, &p.Title, &p.Description, &requirements, &techStack, &skills, &p.Difficulty, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal(requirements, &p.Requirements); err != nil {
			return nil, fmt.Errorf("unmarshal requirements: %w", err)
		}
		if err := json.Unmarshal(techStack, &p.TechStack); err != nil {
			return nil, fmt.Errorf("unmarshal tech stack: %w", err)
		}
		if err := json.Unmarshal(skills, &p.SkillsDemonstrated); err != nil {
			return nil, fmt.Errorf("unmarshal skills: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, a *course.QuizAttempt) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_attempts (id, user_id, quiz_id, answers, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.QuizID, answers, a.Score, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttemptsByUser(ctx context.Context, userID string) ([]course.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, quiz_id, answers, score, completed_at
		 FROM quiz_attempts
		 WHERE user_id = $1
		 ORDER BY completed_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []course.QuizAttempt
	for rows.Next() {
		var a course.QuizAttempt
		var answers []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &answers, &a.Score, &a.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev course.ProgressEvent) (bool, error) {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now()
	}

	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO progress_events (id, user_id, curriculum_id, type, entity_id, lesson_id, resource_id, project_id, quiz_id, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, curriculum_id, type, entity_id) DO NOTHING`,
		ev.ID, ev.UserID, ev.CurriculumID, ev.Type, ev.EntityID(),
		nullIfEmpty(ev.LessonID), nullIfEmpty(ev.ResourceID), nullIfEmpty(ev.ProjectID), nullIfEmpty(ev.QuizID),
		ev.Score, ev.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) UpsertQuizScore(ctx context.Context, ev course.ProgressEvent) (bool, error) {
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now()
	}

	// The WHERE clause makes the overwrite strictly-higher-only; an equal or
	// lower score affects zero rows.
	cmd, err := s.pool.Exec(ctx,
		`INSERT INTO progress_events (id, user_id, curriculum_id, type, entity_id, lesson_id, resource_id, project_id, quiz_id, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (user_id, curriculum_id, type, entity_id) DO UPDATE
		 SET score = EXCLUDED.score, completed_at = EXCLUDED.completed_at
		 WHERE progress_events.score < EXCLUDED.score`,
		ev.ID, ev.UserID, ev.CurriculumID, ev.Type, ev.EntityID(),
		nullIfEmpty(ev.LessonID), nullIfEmpty(ev.ResourceID), nullIfEmpty(ev.ProjectID), nullIfEmpty(ev.QuizID),
		ev.Score, ev.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("upsert quiz score: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *PostgresStore) HasEvent(ctx context.Context, userID, curriculumID string, typ course.EventType, entityID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM progress_events
		   WHERE user_id = $1 AND curriculum_id = $2 AND type = $3 AND entity_id = $4
		 )`,
		userID, curriculumID, typ, entityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CountEvents(ctx context.Context, userID, curriculumID string, typ course.EventType) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM progress_events
		 WHERE user_id = $1 AND curriculum_id = $2 AND type = $3`,
		userID, curriculumID, typ,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) EventsByType(ctx context.Context, userID, curriculumID string, typ course.EventType) ([]course.ProgressEvent, error) {
	return s.queryEvents(ctx,
		`SELECT id, user_id, curriculum_id, type, lesson_id, resource_id, project_id, quiz_id, score, completed_at
		 FROM progress_events
		 WHERE user_id = $1 AND curriculum_id = $2 AND type = $3
		 ORDER BY completed_at ASC`,
		userID, curriculumID, typ,
	)
}

func (s *PostgresStore) EventsByUser(ctx context.Context, userID, curriculumID string) ([]course.ProgressEvent, error) {
	return s.queryEvents(ctx,
		`SELECT id, user_id, curriculum_id, type, lesson_id, resource_id, project_id, quiz_id, score, completed_at
		 FROM progress_events
		 WHERE user_id = $1 AND curriculum_id = $2
		 ORDER BY completed_at ASC`,
		userID, curriculumID,
	)
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]course.ProgressEvent, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []course.ProgressEvent
	for rows.Next() {
		var ev course.ProgressEvent
		var lessonID, resourceID, projectID, quizID *string
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.CurriculumID, &ev.Type, &lessonID, &resourceID, &projectID, &quizID, &ev.Score, &ev.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if lessonID != nil {
			ev.LessonID = *lessonID
		}
		if resourceID != nil {
			ev.ResourceID = *resourceID
		}
		if projectID != nil {
			ev.ProjectID = *projectID
		}
		if quizID != nil {
			ev.QuizID = *quizID
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CertificateProgress(ctx context.Context, userID, curriculumID string) (*course.CertificateProgress, error) {
	p := &course.CertificateProgress{}
	var paymentTx, tokenID, mintTx, wallet *string

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, curriculum_id, completed, all_modules_passed, min_score, eligible_for_certificate,
		        certificate_paid, certificate_payment_tx_hash, certificate_token_id, certificate_mint_tx_hash,
		        wallet_address, certificate_issued, updated_at
		 FROM certificate_progress
		 WHERE user_id = $1 AND curriculum_id = $2`,
		userID, curriculumID,
	).Scan(
		&p.UserID, &p.CurriculumID, &p.Completed, &p.AllModulesPassed, &p.MinScore, &p.EligibleForCertificate,
		&p.CertificatePaid, &paymentTx, &tokenID, &mintTx, &wallet, &p.CertificateIssued, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate progress: %w", err)
	}

	if paymentTx != nil {
		p.CertificatePaymentTxHash = *paymentTx
	}
	if tokenID != nil {
		p.CertificateTokenID = *tokenID
	}
	if mintTx != nil {
		p.CertificateMintTxHash = *mintTx
	}
	if wallet != nil {
		p.WalletAddress = *wallet
	}
	return p, nil
}

func (s *PostgresStore) UpsertEligibility(ctx context.Context, userID, curriculumID string, completed, allPassed bool, minScore int, eligible bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificate_progress (user_id, curriculum_id, completed, all_modules_passed, min_score, eligible_for_certificate, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (user_id, curriculum_id) DO UPDATE
		 SET completed = EXCLUDED.completed,
		     all_modules_passed = EXCLUDED.all_modules_passed,
		     min_score = EXCLUDED.min_score,
		     eligible_for_certificate = EXCLUDED.eligible_for_certificate,
		     updated_at = NOW()`,
		userID, curriculumID, completed, allPassed, minScore, eligible,
	)
	if err != nil {
		return fmt.Errorf("upsert eligibility: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetPayment(ctx context.Context, userID, curriculumID, wallet, txHash string) error {
	cmd, err := s.pool.Exec(ctx,
		`UPDATE certificate_progress
		 SET certificate_paid = TRUE,
		     certificate_payment_tx_hash = $3,
		     wallet_address = $4,
		     updated_at = NOW()
		 WHERE user_id = $1 AND curriculum_id = $2`,
		userID, curriculumID, txHash, wallet,
	)
	if err != nil {
		return fmt.Errorf("set payment: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetMint(ctx context.Context, userID, curriculumID, wallet, tokenID, mintTxHash string) error {
	cmd, err := s.pool.Exec(ctx,
		`UPDATE certificate_progress
		 SET certificate_token_id = $3,
		     certificate_mint_tx_hash = $4,
		     certificate_issued = TRUE,
		     wallet_address = $5,
		     updated_at = NOW()
		 WHERE user_id = $1 AND curriculum_id = $2`,
		userID, curriculumID, tokenID, mintTxHash, wallet,
	)
	if err != nil {
		return fmt.Errorf("set mint: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpsertMastery(ctx context.Context, m course.MasteryScore) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO mastery_scores (user_id, topic_id, score, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, topic_id) DO UPDATE
		 SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`,
		m.UserID, m.TopicID, m.Score, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mastery: %w", err)
	}
	return nil
}

func (s *PostgresStore) MasteryByUser(ctx context.Context, userID string) ([]course.MasteryScore, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, topic_id, score, updated_at
		 FROM mastery_scores
		 WHERE user_id = $1
		 ORDER BY topic_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []course.MasteryScore
	for rows.Next() {
		var m course.MasteryScore
		if err := rows.Scan(&m.UserID, &m.TopicID, &m.Score, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mastery: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p course.CertificatePayment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO certificate_payments (id, user_address, curriculum_id, tx_hash, paid, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserAddress, p.CurriculumID, p.TxHash, p.Paid, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPayment(ctx context.Context, userAddress, curriculumID string) (*course.CertificatePayment, error) {
	return s.scanPayment(ctx,
		`SELECT id, user_address, curriculum_id, tx_hash, paid, created_at
		 FROM certificate_payments
		 WHERE LOWER(user_address) = LOWER($1) AND curriculum_id = $2 AND paid
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userAddress, curriculumID,
	)
}

func (s *PostgresStore) FindPaymentByTxHash(ctx context.Context, txHash string) (*course.CertificatePayment, error) {
	return s.scanPayment(ctx,
		`SELECT id, user_address, curriculum_id, tx_hash, paid, created_at
		 FROM certificate_payments
		 WHERE tx_hash = $1
		 LIMIT 1`,
		txHash,
	)
}

func (s *PostgresStore) scanPayment(ctx context.Context, query string, args ...any) (*course.CertificatePayment, error) {
	p := &course.CertificatePayment{}
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&p.ID, &p.UserAddress, &p.CurriculumID, &p.TxHash, &p.Paid, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
