package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skillpath-labs/skillpath/internal/course"
)

// MemoryStore is an in-memory implementation of Store for development and
// tests. All conditional writes are serialized under one mutex, so the
// ledger invariants hold without a database.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[string]course.User
	curricula map[string]course.Curriculum
	active    map[string]string // userID -> curriculumID
	lessons   map[string]course.Lesson
	quizzes   map[string]course.Quiz
	attempts  []course.QuizAttempt
	resources map[string]course.Resource
	projects  map[string]course.Project
	events    map[string]course.ProgressEvent // composite key -> event
	certs     map[string]course.CertificateProgress
	mastery   map[string]course.MasteryScore
	payments  map[string]course.CertificatePayment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]course.User),
		curricula: make(map[string]course.Curriculum),
		active:    make(map[string]string),
		lessons:   make(map[string]course.Lesson),
		quizzes:   make(map[string]course.Quiz),
		resources: make(map[string]course.Resource),
		projects:  make(map[string]course.Project),
		events:    make(map[string]course.ProgressEvent),
		certs:     make(map[string]course.CertificateProgress),
		mastery:   make(map[string]course.MasteryScore),
		payments:  make(map[string]course.CertificatePayment),
	}
}

func eventKey(userID, curriculumID string, typ course.EventType, entityID string) string {
	return strings.Join([]string{userID, curriculumID, string(typ), entityID}, "|")
}

func pairKey(a, b string) string {
	return a + "|" + b
}

func (s *MemoryStore) CreateCurriculum(_ context.Context, c *course.Curriculum) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.curricula[c.ID] = *c
	s.active[c.UserID] = c.ID
	return nil
}

func (s *MemoryStore) GetCurriculum(_ context.Context, id string) (*course.Curriculum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.curricula[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ActiveCurriculum(_ context.Context, userID string) (*course.Curriculum, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.active[userID]; ok {
		if c, ok := s.curricula[id]; ok {
			return &c, nil
		}
	}

	// Fallback: latest created.
	var latest *course.Curriculum
	for id := range s.curricula {
		c := s.curricula[id]
		if c.UserID != userID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (s *MemoryStore) PutUser(_ context.Context, u *course.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*course.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) CreateLesson(_ context.Context, l *course.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	s.lessons[l.ID] = *l
	return nil
}

func (s *MemoryStore) GetLesson(_ context.Context, id string) (*course.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lessons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) LessonBySubtopic(_ context.Context, curriculumID, subtopicID string) (*course.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := range s.lessons {
		l := s.lessons[id]
		if l.CurriculumID == curriculumID && l.SubtopicID == subtopicID {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateQuiz(_ context.Context, q *course.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}
	s.quizzes[q.ID] = *q
	return nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, id string) (*course.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (s *MemoryStore) QuizByLesson(_ context.Context, lessonID string) (*course.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := range s.quizzes {
		q := s.quizzes[id]
		if q.LessonID == lessonID {
			return &q, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateResource(_ context.Context, r *course.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	s.resources[r.ID] = *r
	return nil
}

func (s *MemoryStore) GetResource(_ context.Context, id string) (*course.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) ResourcesByTopic(_ context.Context, curriculumID, topicID string) ([]course.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.Resource
	for id := range s.resources {
		r := s.resources[id]
		if r.CurriculumID == curriculumID && r.TopicID == topicID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateProject(_ context.Context, p *course.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.projects[p.ID] = *p
	return nil
}

func (s *MemoryStore) GetProject(_ context.Context, id string) (*course.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ProjectsByModule(_ context.Context, curriculumID, moduleID string) ([]course.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.Project
	for id := range s.projects {
		p := s.projects[id]
		if p.CurriculumID == curriculumID && p.ModuleID == moduleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAttempt(_ context.Context, a *course.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CompletedAt.IsZero() {
		a.CompletedAt = time.Now()
	}
	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *MemoryStore) AttemptsByUser(_ context.Context, userID string) ([]course.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.QuizAttempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertEvent(_ context.Context, ev course.ProgressEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(ev.UserID, ev.CurriculumID, ev.Type, ev.EntityID())
	if _, exists := s.events[key]; exists {
		return false, nil
	}
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now()
	}
	s.events[key] = ev
	return true, nil
}

func (s *MemoryStore) UpsertQuizScore(_ context.Context, ev course.ProgressEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(ev.UserID, ev.CurriculumID, ev.Type, ev.EntityID())
	if ev.CompletedAt.IsZero() {
		ev.CompletedAt = time.Now()
	}

	existing, exists := s.events[key]
	if !exists {
		s.events[key] = ev
		return true, nil
	}
	if ev.Score > existing.Score {
		existing.Score = ev.Score
		existing.CompletedAt = ev.CompletedAt
		s.events[key] = existing
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) HasEvent(_ context.Context, userID, curriculumID string, typ course.EventType, entityID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.events[eventKey(userID, curriculumID, typ, entityID)]
	return ok, nil
}

func (s *MemoryStore) CountEvents(_ context.Context, userID, curriculumID string, typ course.EventType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, ev := range s.events {
		if ev.UserID == userID && ev.CurriculumID == curriculumID && ev.Type == typ {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) EventsByType(_ context.Context, userID, curriculumID string, typ course.EventType) ([]course.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.ProgressEvent
	for _, ev := range s.events {
		if ev.UserID == userID && ev.CurriculumID == curriculumID && ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) EventsByUser(_ context.Context, userID, curriculumID string) ([]course.ProgressEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.ProgressEvent
	for _, ev := range s.events {
		if ev.UserID == userID && ev.CurriculumID == curriculumID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) CertificateProgress(_ context.Context, userID, curriculumID string) (*course.CertificateProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.certs[pairKey(userID, curriculumID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) UpsertEligibility(_ context.Context, userID, curriculumID string, completed, allPassed bool, minScore int, eligible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(userID, curriculumID)
	p := s.certs[key]
	p.UserID = userID
	p.CurriculumID = curriculumID
	p.Completed = completed
	p.AllModulesPassed = allPassed
	p.MinScore = minScore
	p.EligibleForCertificate = eligible
	p.UpdatedAt = time.Now()
	s.certs[key] = p
	return nil
}

func (s *MemoryStore) SetPayment(_ context.Context, userID, curriculumID, wallet, txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(userID, curriculumID)
	p, ok := s.certs[key]
	if !ok {
		return ErrNotFound
	}
	p.CertificatePaid = true
	p.CertificatePaymentTxHash = txHash
	p.WalletAddress = wallet
	p.UpdatedAt = time.Now()
	s.certs[key] = p
	return nil
}

func (s *MemoryStore) SetMint(_ context.Context, userID, curriculumID, wallet, tokenID, mintTxHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(userID, curriculumID)
	p, ok := s.certs[key]
	if !ok {
		return ErrNotFound
	}
	p.CertificateTokenID = tokenID
	p.CertificateMintTxHash = mintTxHash
	p.CertificateIssued = true
	p.WalletAddress = wallet
	p.UpdatedAt = time.Now()
	s.certs[key] = p
	return nil
}

func (s *MemoryStore) UpsertMastery(_ context.Context, m course.MasteryScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	s.mastery[pairKey(m.UserID, m.TopicID)] = m
	return nil
}

func (s *MemoryStore) MasteryByUser(_ context.Context, userID string) ([]course.MasteryScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []course.MasteryScore
	for _, m := range s.mastery {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreatePayment(_ context.Context, p course.CertificatePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.payments[p.ID] = p
	return nil
}

func (s *MemoryStore) FindPayment(_ context.Context, userAddress, curriculumID string) (*course.CertificatePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := range s.payments {
		p := s.payments[id]
		if strings.EqualFold(p.UserAddress, userAddress) && p.CurriculumID == curriculumID && p.Paid {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindPaymentByTxHash(_ context.Context, txHash string) (*course.CertificatePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id := range s.payments {
		p := s.payments[id]
		if p.TxHash == txHash {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}
