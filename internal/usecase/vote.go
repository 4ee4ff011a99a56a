package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
)

type VoteUsecase struct {
	commits CommitStore
	ledger  Ledger
	now     func() time.Time
}

func NewVoteUsecase(commits CommitStore, ledger Ledger) *VoteUsecase {
	return &VoteUsecase{
		commits: commits,
		ledger:  ledger,
		now:     time.Now,
	}
}

// CommitVoteInput carries a vote commitment. Salt is optional: when
// absent one is generated and returned in the receipt.
type CommitVoteInput struct {
	ContentID       int64
	Vote            crowdvote.VoteChoice
	Confidence      uint8
	TokenType       crowdvote.TokenType
	TransactionHash string
	Voter           string
	Salt            string
}

// RevealVoteInput carries the plaintext tuple matching an earlier
// commitment.
type RevealVoteInput struct {
	ContentID  int64
	Vote       crowdvote.VoteChoice
	Confidence uint8
	Salt       string
	Voter      string
}

// Commit derives the commitment and stores the plaintext record for
// the retention window. A re-commit for the same key overwrites the
// prior record; the prior salt becomes unrecoverable.
func (uc *VoteUsecase) Commit(ctx context.Context, input CommitVoteInput) (crowdvote.CommitReceipt, error) {
	ctx, span := tracer.Start(ctx, "Vote.Usecase.Commit")
	defer span.End()

	voter, err := crowdvote.NormalizeAddress(input.Voter)
	if err != nil {
		return crowdvote.CommitReceipt{}, domain.ValidationError{Reason: err.Error()}
	}

	salt := input.Salt
	if salt == "" {
		salt, err = crowdvote.NewSalt()
		if err != nil {
			span.RecordError(err)
			return crowdvote.CommitReceipt{}, errors.Wrap(err, "salt generation failed")
		}
	}

	commitment, err := crowdvote.Derive(input.Vote, input.Confidence, salt, voter, input.TokenType)
	if err != nil {
		return crowdvote.CommitReceipt{}, domain.ValidationError{Reason: err.Error()}
	}

	record := domain.CommitRecord{
		Vote:            input.Vote,
		Confidence:      input.Confidence,
		Salt:            salt,
		TokenType:       input.TokenType,
		Commitment:      commitment,
		TransactionHash: input.TransactionHash,
	}

	if err := uc.commits.Put(ctx, input.ContentID, voter, record, domain.CommitRetention); err != nil {
		span.RecordError(err)
		return crowdvote.CommitReceipt{}, errors.Wrap(err, "commit storage failed")
	}

	return crowdvote.CommitReceipt{
		Commitment:      commitment,
		Salt:            salt,
		TransactionHash: input.TransactionHash,
	}, nil
}

// Reveal forwards the plaintext tuple to the ledger, then retires the
// stored record. The ledger submission happens strictly before the
// deletion, so a failed submission leaves the record intact for retry.
// A reveal with no resolvable record fails NotFound, distinct from a
// commitment mismatch.
func (uc *VoteUsecase) Reveal(ctx context.Context, input RevealVoteInput) (crowdvote.RevealReceipt, error) {
	ctx, span := tracer.Start(ctx, "Vote.Usecase.Reveal")
	defer span.End()

	voter, err := crowdvote.NormalizeAddress(input.Voter)
	if err != nil {
		return crowdvote.RevealReceipt{}, domain.ValidationError{Reason: err.Error()}
	}

	record, err := uc.commits.Peek(ctx, input.ContentID, voter)
	if err != nil {
		// Already revealed, expired, or never committed.
		return crowdvote.RevealReceipt{}, err
	}

	derived, err := crowdvote.Derive(input.Vote, input.Confidence, input.Salt, voter, record.TokenType)
	if err != nil {
		return crowdvote.RevealReceipt{}, domain.ValidationError{Reason: err.Error()}
	}
	if derived != record.Commitment {
		// The ledger would reject this anyway; failing here keeps a
		// bad reveal from consuming a transaction. The record stays
		// for a corrected retry.
		return crowdvote.RevealReceipt{}, domain.ValidationError{
			Reason: "revealed vote does not match the stored commitment",
		}
	}

	receipt, err := uc.ledger.RevealVote(ctx, input.ContentID, input.Vote, input.Confidence, input.Salt, voter)
	if err != nil {
		span.RecordError(err)
		return crowdvote.RevealReceipt{}, errors.Wrap(err, "ledger reveal failed")
	}

	// One-shot consumption. If the delete fails the entry still ages
	// out with the retention window; the reveal has already settled.
	if err := uc.commits.Delete(ctx, input.ContentID, voter); err != nil {
		span.RecordError(errors.Wrap(err, "commit record cleanup failed"))
	}

	return receipt, nil
}

// SavedCommit is the non-destructive read used by status checks.
func (uc *VoteUsecase) SavedCommit(ctx context.Context, contentID int64, voter string) (domain.CommitRecord, error) {
	ctx, span := tracer.Start(ctx, "Vote.Usecase.SavedCommit")
	defer span.End()

	addr, err := crowdvote.NormalizeAddress(voter)
	if err != nil {
		return domain.CommitRecord{}, domain.ValidationError{Reason: err.Error()}
	}

	return uc.commits.Peek(ctx, contentID, addr)
}
