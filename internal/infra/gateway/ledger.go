package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/crowdvote/crowdvote"
)

// votingABI is the surface of the voting contract this service talks
// to. Content identity comes from the ContentSubmitted event; the
// contract verifies revealed tuples against the recorded commitment.
const votingABI = `[
  {"type":"function","name":"submitContent","stateMutability":"nonpayable","inputs":[{"name":"metadataHash","type":"string"},{"name":"votingDuration","type":"uint256"}],"outputs":[{"name":"contentId","type":"uint256"}]},
  {"type":"function","name":"revealVote","stateMutability":"nonpayable","inputs":[{"name":"contentId","type":"uint256"},{"name":"vote","type":"uint8"},{"name":"confidence","type":"uint8"},{"name":"salt","type":"string"},{"name":"voter","type":"address"}],"outputs":[]},
  {"type":"function","name":"getResults","stateMutability":"view","inputs":[{"name":"contentId","type":"uint256"}],"outputs":[{"name":"upvotes","type":"uint256"},{"name":"downvotes","type":"uint256"},{"name":"totalVoters","type":"uint256"},{"name":"finalized","type":"bool"}]},
  {"type":"event","name":"ContentSubmitted","anonymous":false,"inputs":[{"name":"contentId","type":"uint256","indexed":true},{"name":"metadataHash","type":"string","indexed":false}]}
]`

const resultsCacheTTL = 10 * time.Minute

// LedgerGateway submits content and reveals to the voting contract.
// Transactions are signed with the operator key; the voter address
// travels in the call data, bound by the commitment.
type LedgerGateway struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	parsed   abi.ABI
	signer   *bind.TransactOpts
	results  *cache.Cache
}

func NewLedgerGateway(rpcURL string, contractAddr string, privateKeyHex string, chainID int64) (*LedgerGateway, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "ledger rpc dial failed")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid operator key")
	}

	signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(chainID))
	if err != nil {
		return nil, errors.Wrap(err, "transactor setup failed")
	}

	parsed, err := abi.JSON(strings.NewReader(votingABI))
	if err != nil {
		return nil, errors.Wrap(err, "contract abi parse failed")
	}

	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("malformed contract address: %q", contractAddr)
	}

	contract := bind.NewBoundContract(
		common.HexToAddress(contractAddr), parsed, client, client, client)

	return &LedgerGateway{
		client:   client,
		contract: contract,
		parsed:   parsed,
		signer:   signer,
		results:  cache.New(resultsCacheTTL, 15*time.Minute),
	}, nil
}

// SubmitContent registers the content on-chain and returns the
// contract-assigned content id plus the transaction hash.
func (g *LedgerGateway) SubmitContent(ctx context.Context, metadataHash string, duration time.Duration) (int64, string, error) {
	opts := *g.signer
	opts.Context = ctx

	tx, err := g.contract.Transact(&opts, "submitContent",
		metadataHash, new(big.Int).SetInt64(int64(duration/time.Second)))
	if err != nil {
		return 0, "", errors.Wrap(err, "submitContent transaction failed")
	}

	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return 0, "", errors.Wrap(err, "submitContent confirmation failed")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return 0, "", fmt.Errorf("submitContent reverted in tx %s", tx.Hash().Hex())
	}

	event := g.parsed.Events["ContentSubmitted"]
	for _, entry := range receipt.Logs {
		if len(entry.Topics) < 2 || entry.Topics[0] != event.ID {
			continue
		}
		contentID := new(big.Int).SetBytes(entry.Topics[1].Bytes())
		return contentID.Int64(), tx.Hash().Hex(), nil
	}

	return 0, "", fmt.Errorf("no ContentSubmitted event in tx %s", tx.Hash().Hex())
}

func (g *LedgerGateway) RevealVote(ctx context.Context, contentID int64, vote crowdvote.VoteChoice, confidence uint8, salt string, voter string) (crowdvote.RevealReceipt, error) {
	opts := *g.signer
	opts.Context = ctx

	tx, err := g.contract.Transact(&opts, "revealVote",
		big.NewInt(contentID), uint8(vote), confidence, salt, common.HexToAddress(voter))
	if err != nil {
		return crowdvote.RevealReceipt{}, errors.Wrap(err, "revealVote transaction failed")
	}

	receipt, err := bind.WaitMined(ctx, g.client, tx)
	if err != nil {
		return crowdvote.RevealReceipt{}, errors.Wrap(err, "revealVote confirmation failed")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return crowdvote.RevealReceipt{}, fmt.Errorf("revealVote reverted in tx %s", tx.Hash().Hex())
	}

	return crowdvote.RevealReceipt{
		ContentID:       contentID,
		TransactionHash: tx.Hash().Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
	}, nil
}

// GetResults reads the aggregate tally. Finalized tallies are
// immutable, so they are cached locally.
func (g *LedgerGateway) GetResults(ctx context.Context, contentID int64) (crowdvote.AggregateResult, error) {
	cacheKey := fmt.Sprintf("results:%d", contentID)
	if cached, found := g.results.Get(cacheKey); found {
		return cached.(crowdvote.AggregateResult), nil
	}

	var out []any
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getResults", big.NewInt(contentID))
	if err != nil {
		return crowdvote.AggregateResult{}, errors.Wrap(err, "getResults call failed")
	}
	if len(out) != 4 {
		return crowdvote.AggregateResult{}, fmt.Errorf("getResults returned %d values", len(out))
	}

	result := crowdvote.AggregateResult{
		Upvotes:     out[0].(*big.Int).Uint64(),
		Downvotes:   out[1].(*big.Int).Uint64(),
		TotalVoters: out[2].(*big.Int).Uint64(),
		IsFinalized: out[3].(bool),
	}

	if result.IsFinalized {
		g.results.Set(cacheKey, result, cache.DefaultExpiration)
	}

	return result, nil
}
