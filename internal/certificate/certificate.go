// Package certificate drives the certificate lifecycle: eligibility checks,
// payment recording, metadata rendering and mint recording. Every state
// transition is guarded so learners cannot pay before qualifying or mint
// before paying.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skillpath-labs/skillpath/internal/progress"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// RequiredMinScore is the lowest best-score any quiz may carry for the
// learner to qualify.
const RequiredMinScore = 50

const (
	reasonNoProgress  = "No progress found"
	reasonNotComplete = "Complete all modules and pass all tests with at least 50%"
)

// Eligibility is the learner-facing qualification snapshot.
type Eligibility struct {
	Eligible          bool   `json:"eligible"`
	Reason            string `json:"reason,omitempty"`
	Completed         bool   `json:"completed"`
	AllModulesPassed  bool   `json:"allModulesPassed"`
	MinScore          int    `json:"minScore"`
	RequiredMinScore  int    `json:"requiredMinScore"`
	HasPaid           bool   `json:"hasPaid"`
	CertificateIssued bool   `json:"certificateIssued"`
	TokenID           string `json:"tokenId,omitempty"`
}

// Attribute is one metadata trait on the minted certificate.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Metadata is the token metadata served for a paid, eligible certificate.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Attributes  []Attribute `json:"attributes"`
}

// Service implements the certificate lifecycle on top of the progress
// ledger's eligibility snapshot.
type Service struct {
	progress *progress.Service
	store    store.Store
	logger   *slog.Logger
	titler   cases.Caser
}

// NewService creates a certificate service.
func NewService(prog *progress.Service, st store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		progress: prog,
		store:    st,
		logger:   logger,
		titler:   cases.Title(language.English),
	}
}

// Eligibility recomputes and returns the learner's qualification for the
// given curriculum. The snapshot is re-derived from the ledger on every call
// so a stale persisted row can never block a qualified learner.
func (s *Service) Eligibility(ctx context.Context, userID, curriculumID string) (*Eligibility, error) {
	snap, err := s.progress.RecomputeEligibility(ctx, userID, curriculumID)
	if errors.Is(err, store.ErrNotFound) {
		return &Eligibility{Reason: reasonNoProgress, RequiredMinScore: RequiredMinScore}, nil
	}
	if err != nil {
		return nil, err
	}

	out := &Eligibility{
		Eligible:          snap.EligibleForCertificate,
		Completed:         snap.Completed,
		AllModulesPassed:  snap.AllModulesPassed,
		MinScore:          snap.MinScore,
		RequiredMinScore:  RequiredMinScore,
		HasPaid:           snap.CertificatePaid,
		CertificateIssued: snap.CertificateIssued,
		TokenID:           snap.CertificateTokenID,
	}
	if !out.Eligible {
		started, err := s.hasProgress(ctx, userID, curriculumID)
		if err != nil {
			return nil, err
		}
		if started {
			out.Reason = reasonNotComplete
		} else {
			out.Reason = reasonNoProgress
		}
	}
	return out, nil
}

// hasProgress reports whether the learner has any ledger events or quiz
// attempts at all.
func (s *Service) hasProgress(ctx context.Context, userID, curriculumID string) (bool, error) {
	events, err := s.store.EventsByUser(ctx, userID, curriculumID)
	if err != nil {
		return false, err
	}
	if len(events) > 0 {
		return true, nil
	}
	attempts, err := s.store.AttemptsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(attempts) > 0, nil
}

// RecordPayment marks the certificate as paid for. Returns false without
// writing when the learner is not yet eligible.
func (s *Service) RecordPayment(ctx context.Context, userID, curriculumID, wallet, txHash string) (bool, error) {
	snap, err := s.progress.RecomputeEligibility(ctx, userID, curriculumID)
	if err != nil {
		return false, err
	}
	if !snap.EligibleForCertificate {
		return false, nil
	}

	if err := s.store.SetPayment(ctx, userID, curriculumID, wallet, txHash); err != nil {
		return false, err
	}
	s.logger.Info("certificate payment recorded",
		"user_id", userID,
		"curriculum_id", curriculumID,
		"tx_hash", txHash,
	)
	return true, nil
}

// Metadata renders the certificate token metadata. Returns nil unless the
// learner is eligible and has paid. The completion date reflects the time of
// the call, not of the qualifying submission.
func (s *Service) Metadata(ctx context.Context, userID, curriculumID string) (*Metadata, error) {
	snap, err := s.store.CertificateProgress(ctx, userID, curriculumID)
	if err != nil {
		return nil, err
	}
	if !snap.EligibleForCertificate || !snap.CertificatePaid {
		return nil, nil
	}

	cur, err := s.store.GetCurriculum(ctx, curriculumID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	skill := s.titler.String(cur.Skill)
	totalModules := len(cur.Modules)

	return &Metadata{
		Name:        fmt.Sprintf("SkillPath: %s Certificate", skill),
		Description: fmt.Sprintf("Certificate issued to %s for completing %s on SkillPath.", user.Email, skill),
		Attributes: []Attribute{
			{TraitType: "Completion Date", Value: time.Now().UTC().Format(time.RFC3339)},
			{TraitType: "Minimum Score", Value: snap.MinScore},
			{TraitType: "Total Modules", Value: totalModules},
			{TraitType: "Passed Modules", Value: totalModules},
		},
	}, nil
}

// RecordMint records the minted token against a paid certificate. Returns
// false without writing when the learner is not eligible or has not paid.
func (s *Service) RecordMint(ctx context.Context, userID, curriculumID, wallet, tokenID, mintTxHash string) (bool, error) {
	snap, err := s.store.CertificateProgress(ctx, userID, curriculumID)
	if err != nil {
		return false, err
	}
	if !snap.EligibleForCertificate || !snap.CertificatePaid {
		return false, nil
	}

	if err := s.store.SetMint(ctx, userID, curriculumID, wallet, tokenID, mintTxHash); err != nil {
		return false, err
	}
	s.logger.Info("certificate minted",
		"user_id", userID,
		"curriculum_id", curriculumID,
		"token_id", tokenID,
	)
	return true, nil
}
