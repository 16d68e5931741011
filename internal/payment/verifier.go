// Package payment confirms on-chain certificate payments against a
// configured merchant address and price, and keeps a durable payment record
// independent of the certificate lifecycle's paid flag.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// DefaultPriceWei is the certificate price when none is configured: 0.05 in
// the chain's native token.
const DefaultPriceWei = "50000000000000000"

// ConfirmResult reports the outcome of an on-chain payment check.
type ConfirmResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// EligibilityResult reports whether a wallet has a confirmed payment on
// record for a curriculum.
type EligibilityResult struct {
	Eligible        bool             `json:"eligible"`
	HasPaid         bool             `json:"hasPaid"`
	Reason          string           `json:"reason,omitempty"`
	CertificateInfo *CertificateInfo `json:"certificateInfo,omitempty"`
}

// CertificateInfo describes a confirmed payment ready for minting.
type CertificateInfo struct {
	CurriculumID  string    `json:"curriculumId"`
	UserAddress   string    `json:"userAddress"`
	PaymentTxHash string    `json:"paymentTxHash"`
	PaidAt        time.Time `json:"paidAt"`
	CanMint       bool      `json:"canMint"`
}

// PriceInfo is the advertised certificate price.
type PriceInfo struct {
	PriceWei        string `json:"priceWei"`
	PriceEth        string `json:"priceEth"`
	MerchantAddress string `json:"merchantAddress"`
}

// Verifier validates payment transactions on chain and records confirmed
// payments durably.
type Verifier struct {
	chain    ChainClient
	store    store.PaymentStore
	merchant string
	priceWei *big.Int
	logger   *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithPriceWei overrides the certificate price.
func WithPriceWei(price *big.Int) VerifierOption {
	return func(v *Verifier) {
		v.priceWei = price
	}
}

// WithVerifierLogger sets the structured logger.
func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = l
	}
}

// NewVerifier creates a payment verifier for the given merchant address.
func NewVerifier(chain ChainClient, st store.PaymentStore, merchant string, opts ...VerifierOption) *Verifier {
	price, _ := new(big.Int).SetString(DefaultPriceWei, 10)
	v := &Verifier{
		chain:    chain,
		store:    st,
		merchant: merchant,
		priceWei: price,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Confirm validates that txHash is a successful transfer of exactly the
// certificate price to the merchant address, and records the payment if no
// record exists yet for the hash or the (payer, curriculum) pair. Chain
// lookups that fail are reported as an unverifiable payment, not an error;
// store failures are errors.
func (v *Verifier) Confirm(ctx context.Context, txHash, curriculumID, userAddress string) (*ConfirmResult, error) {
	if v.merchant == "" {
		return &ConfirmResult{Reason: "Merchant address not configured"}, nil
	}

	tx, err := v.chain.TransactionByHash(ctx, txHash)
	if err != nil {
		v.logger.Warn("payment verification failed", "tx_hash", txHash, "error", err)
		return &ConfirmResult{Reason: "Failed to verify transaction"}, nil
	}
	receipt, err := v.chain.TransactionReceipt(ctx, txHash)
	if err != nil {
		v.logger.Warn("payment verification failed", "tx_hash", txHash, "error", err)
		return &ConfirmResult{Reason: "Failed to verify transaction"}, nil
	}

	if receipt.Status != 1 {
		return &ConfirmResult{Reason: "Transaction failed"}, nil
	}
	if !strings.EqualFold(tx.To, v.merchant) {
		return &ConfirmResult{Reason: "Invalid recipient address"}, nil
	}
	if tx.Value == nil || tx.Value.Cmp(v.priceWei) < 0 {
		return &ConfirmResult{Reason: "Insufficient payment amount"}, nil
	}
	if tx.Value.Cmp(v.priceWei) != 0 {
		return &ConfirmResult{Reason: "Payment amount does not match required price"}, nil
	}

	payer := userAddress
	if payer == "" {
		payer = tx.From
	}

	if err := v.recordPayment(ctx, payer, curriculumID, txHash); err != nil {
		return nil, err
	}
	return &ConfirmResult{Success: true}, nil
}

// recordPayment stores the payment unless a record already exists for the
// hash or for the (payer, curriculum) pair.
func (v *Verifier) recordPayment(ctx context.Context, payer, curriculumID, txHash string) error {
	if _, err := v.store.FindPaymentByTxHash(ctx, txHash); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err := v.store.FindPayment(ctx, payer, curriculumID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	p := course.CertificatePayment{
		ID:           uuid.NewString(),
		UserAddress:  payer,
		CurriculumID: curriculumID,
		TxHash:       txHash,
		Paid:         true,
		CreatedAt:    time.Now(),
	}
	if err := v.store.CreatePayment(ctx, p); err != nil {
		return err
	}
	v.logger.Info("payment confirmed",
		"user_address", payer,
		"curriculum_id", curriculumID,
		"tx_hash", txHash,
	)
	return nil
}

// CheckEligibility reports whether the wallet has a confirmed payment for
// the curriculum. This consults only the verifier's own payment records.
func (v *Verifier) CheckEligibility(ctx context.Context, userAddress, curriculumID string) (*EligibilityResult, error) {
	p, err := v.store.FindPayment(ctx, userAddress, curriculumID)
	if errors.Is(err, store.ErrNotFound) {
		return &EligibilityResult{Reason: "Payment not found or not confirmed"}, nil
	}
	if err != nil {
		return nil, err
	}

	return &EligibilityResult{
		Eligible: true,
		HasPaid:  true,
		CertificateInfo: &CertificateInfo{
			CurriculumID:  curriculumID,
			UserAddress:   userAddress,
			PaymentTxHash: p.TxHash,
			PaidAt:        p.CreatedAt,
			CanMint:       true,
		},
	}, nil
}

// Price returns the advertised certificate price.
func (v *Verifier) Price() PriceInfo {
	eth := new(big.Float).Quo(new(big.Float).SetInt(v.priceWei), big.NewFloat(1e18))
	return PriceInfo{
		PriceWei:        v.priceWei.String(),
		PriceEth:        eth.Text('f', -1),
		MerchantAddress: v.merchant,
	}
}
