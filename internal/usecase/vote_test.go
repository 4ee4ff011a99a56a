package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/crowdvote/crowdvote"
	"github.com/crowdvote/crowdvote/internal/domain"
)

const voterAddr = "0xAbCdEf0123456789aBcDeF0123456789abCDef01"

func newVoteFixture(t *testing.T) (*VoteUsecase, *fakeCommitStore, *mockLedger, *fakeClock) {
	t.Helper()
	clock := &fakeClock{at: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newFakeCommitStore(clock)
	ledger := &mockLedger{}
	uc := NewVoteUsecase(store, ledger)
	uc.now = clock.Now
	return uc, store, ledger, clock
}

func TestCommitGeneratesSalt(t *testing.T) {
	uc, _, _, _ := newVoteFixture(t)

	receipt, err := uc.Commit(context.Background(), CommitVoteInput{
		ContentID:  1,
		Vote:       crowdvote.VoteUp,
		Confidence: 80,
		Voter:      voterAddr,
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if receipt.Salt == "" {
		t.Fatalf("expected a generated salt in the receipt")
	}

	want, _ := crowdvote.Derive(crowdvote.VoteUp, 80, receipt.Salt, voterAddr, crowdvote.TokenNative)
	if receipt.Commitment != want {
		t.Fatalf("receipt commitment %s does not re-derive to %s", receipt.Commitment, want)
	}
}

func TestCommitRejectsBadInput(t *testing.T) {
	uc, _, _, _ := newVoteFixture(t)

	_, err := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 1, Vote: crowdvote.VoteUp, Confidence: 0, Voter: voterAddr,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for confidence 0, got %v", err)
	}

	_, err = uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 1, Vote: crowdvote.VoteUp, Confidence: 50, Voter: "nonsense",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for malformed address, got %v", err)
	}
}

func TestCommitAddressCaseNormalization(t *testing.T) {
	uc, _, _, _ := newVoteFixture(t)

	receipt, err := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 1, Vote: crowdvote.VoteUp, Confidence: 60,
		Voter: strings.ToUpper(voterAddr[2:]),
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// Queried with a differently-cased address, the same record resolves.
	saved, err := uc.SavedCommit(context.Background(), 1, strings.ToLower(voterAddr))
	if err != nil {
		t.Fatalf("saved commit lookup failed: %v", err)
	}
	if saved.Salt != receipt.Salt {
		t.Fatalf("case variation split the voter's record")
	}
}

func TestRevealOneShot(t *testing.T) {
	uc, _, ledger, _ := newVoteFixture(t)

	receipt, err := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 7, Vote: crowdvote.VoteUp, Confidence: 80, Voter: voterAddr,
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	reveal := RevealVoteInput{
		ContentID: 7, Vote: crowdvote.VoteUp, Confidence: 80,
		Salt: receipt.Salt, Voter: voterAddr,
	}

	if _, err := uc.Reveal(context.Background(), reveal); err != nil {
		t.Fatalf("first reveal failed: %v", err)
	}
	if len(ledger.reveals) != 1 {
		t.Fatalf("ledger not invoked exactly once: %d", len(ledger.reveals))
	}

	// Replay must find nothing, and fail NotFound rather than as a
	// match/mismatch verdict.
	_, err = uc.Reveal(context.Background(), reveal)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound on replayed reveal, got %v", err)
	}
	if len(ledger.reveals) != 1 {
		t.Fatalf("replayed reveal must not reach the ledger")
	}
}

func TestRevealMismatchKeepsRecord(t *testing.T) {
	uc, _, ledger, _ := newVoteFixture(t)

	receipt, _ := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 7, Vote: crowdvote.VoteUp, Confidence: 80, Voter: voterAddr,
	})

	_, err := uc.Reveal(context.Background(), RevealVoteInput{
		ContentID: 7, Vote: crowdvote.VoteDown, Confidence: 80,
		Salt: receipt.Salt, Voter: voterAddr,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error on mismatched tuple, got %v", err)
	}
	if len(ledger.reveals) != 0 {
		t.Fatalf("mismatched reveal must not reach the ledger")
	}

	// The record survives for a corrected retry.
	if _, err := uc.SavedCommit(context.Background(), 7, voterAddr); err != nil {
		t.Fatalf("record must survive a mismatch: %v", err)
	}
}

func TestRevealLedgerFailureKeepsRecord(t *testing.T) {
	uc, _, ledger, _ := newVoteFixture(t)

	receipt, _ := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 7, Vote: crowdvote.VoteUp, Confidence: 80, Voter: voterAddr,
	})

	reveal := RevealVoteInput{
		ContentID: 7, Vote: crowdvote.VoteUp, Confidence: 80,
		Salt: receipt.Salt, Voter: voterAddr,
	}

	ledger.revealErr = fmt.Errorf("rpc timeout")
	if _, err := uc.Reveal(context.Background(), reveal); err == nil {
		t.Fatalf("expected ledger failure to surface")
	}

	// Submission failed, so the record stays and a retry succeeds.
	ledger.revealErr = nil
	if _, err := uc.Reveal(context.Background(), reveal); err != nil {
		t.Fatalf("retry after ledger failure must succeed: %v", err)
	}
}

func TestRecommitOverwrites(t *testing.T) {
	uc, _, _, _ := newVoteFixture(t)

	first, _ := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 3, Vote: crowdvote.VoteUp, Confidence: 10, Voter: voterAddr,
	})
	second, _ := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 3, Vote: crowdvote.VoteDown, Confidence: 90, Voter: voterAddr,
	})

	saved, err := uc.SavedCommit(context.Background(), 3, voterAddr)
	if err != nil {
		t.Fatalf("saved commit lookup failed: %v", err)
	}
	if saved.Salt == first.Salt || saved.Salt != second.Salt {
		t.Fatalf("re-commit must replace the prior record")
	}
}

func TestCommitRecordExpiry(t *testing.T) {
	uc, _, _, clock := newVoteFixture(t)

	receipt, _ := uc.Commit(context.Background(), CommitVoteInput{
		ContentID: 5, Vote: crowdvote.VoteUp, Confidence: 50, Voter: voterAddr,
	})

	clock.Advance(domain.CommitRetention + time.Second)

	_, err := uc.SavedCommit(context.Background(), 5, voterAddr)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired record must read as NotFound, got %v", err)
	}

	_, err = uc.Reveal(context.Background(), RevealVoteInput{
		ContentID: 5, Vote: crowdvote.VoteUp, Confidence: 50,
		Salt: receipt.Salt, Voter: voterAddr,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reveal after expiry must fail NotFound, got %v", err)
	}
}
