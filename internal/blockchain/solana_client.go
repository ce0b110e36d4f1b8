package blockchain

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
)

// SolanaClient wraps the custodial hot wallet used to settle withdrawals.
// All transfers are SPL token transfers from the hot wallet's associated
// token account.
type SolanaClient struct {
	rpcClient     *rpc.Client
	network       string
	tokenMint     solana.PublicKey
	tokenDecimals uint8
	hotWallet     *solana.Wallet
	confirmPoll   time.Duration
}

// NewSolanaClient creates a client for the given network. rpcEndpoint
// overrides the public endpoint when set.
func NewSolanaClient(network, rpcEndpoint, tokenMintAddress string, tokenDecimals int, privateKey string) (*SolanaClient, error) {
	if rpcEndpoint == "" {
		switch network {
		case "mainnet-beta":
			rpcEndpoint = "https://api.mainnet-beta.solana.com"
		case "testnet":
			rpcEndpoint = "https://api.testnet.solana.com"
		default:
			rpcEndpoint = "https://api.devnet.solana.com"
		}
	}

	client := &SolanaClient{
		rpcClient:     rpc.New(rpcEndpoint),
		network:       network,
		tokenDecimals: uint8(tokenDecimals),
		confirmPoll:   2 * time.Second,
	}

	if tokenMintAddress != "" {
		mint, err := solana.PublicKeyFromBase58(tokenMintAddress)
		if err != nil {
			return nil, fmt.Errorf("invalid token mint address: %w", err)
		}
		client.tokenMint = mint
	}

	if privateKey != "" {
		wallet, err := solana.WalletFromPrivateKeyBase58(privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load hot wallet: %w", err)
		}
		client.hotWallet = wallet
		log.Printf("Hot wallet loaded: %s", wallet.PublicKey())
	}

	return client, nil
}

// HotWalletAddress returns the custodial wallet's public key.
func (s *SolanaClient) HotWalletAddress() string {
	if s.hotWallet == nil {
		return ""
	}
	return s.hotWallet.PublicKey().String()
}

// ValidateAddress checks that an address is a well-formed 32-byte
// base58-encoded Solana public key.
func (s *SolanaClient) ValidateAddress(address string) bool {
	raw, err := base58.Decode(address)
	if err != nil || len(raw) != 32 {
		return false
	}
	_, err = solana.PublicKeyFromBase58(address)
	return err == nil
}

// SOLBalance returns the hot wallet's lamport balance, which funds
// transaction fees.
func (s *SolanaClient) SOLBalance(ctx context.Context) (uint64, error) {
	if s.hotWallet == nil {
		return 0, fmt.Errorf("hot wallet not configured")
	}

	balance, err := s.rpcClient.GetBalance(ctx, s.hotWallet.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	return balance.Value, nil
}

// TokenBalance sums the hot wallet's token accounts for the configured
// mint. Amounts on-chain are u64 but the sum is returned as a big.Int to
// match the processor's exact arithmetic.
func (s *SolanaClient) TokenBalance(ctx context.Context) (*big.Int, error) {
	if s.hotWallet == nil {
		return nil, fmt.Errorf("hot wallet not configured")
	}
	if s.tokenMint.IsZero() {
		return nil, fmt.Errorf("token mint not configured")
	}

	resp, err := s.rpcClient.GetTokenAccountsByOwner(
		ctx,
		s.hotWallet.PublicKey(),
		&rpc.GetTokenAccountsConfig{
			Mint: &s.tokenMint,
		},
		&rpc.GetTokenAccountsOpts{
			Encoding: solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts: %w", err)
	}

	total := new(big.Int)
	for _, account := range resp.Value {
		var tokenAccount token.Account
		decoder := bin.NewBinDecoder(account.Account.Data.GetBinary())
		if err := tokenAccount.UnmarshalWithDecoder(decoder); err != nil {
			log.Printf("Warning: failed to decode token account data: %v", err)
			continue
		}
		total.Add(total, new(big.Int).SetUint64(tokenAccount.Amount))
	}

	return total, nil
}

// TransferToken performs one transfer attempt from the hot wallet to the
// recipient's associated token account. A fresh blockhash is fetched per
// attempt so retries never reuse stale fee data.
func (s *SolanaClient) TransferToken(ctx context.Context, recipient string, amount uint64) (string, error) {
	if s.hotWallet == nil {
		return "", fmt.Errorf("hot wallet not configured")
	}
	if s.tokenMint.IsZero() {
		return "", fmt.Errorf("token mint not configured")
	}

	recipientPub, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	owner := s.hotWallet.PublicKey()

	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, s.tokenMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive source token account: %w", err)
	}

	destATA, _, err := solana.FindAssociatedTokenAddress(recipientPub, s.tokenMint)
	if err != nil {
		return "", fmt.Errorf("failed to derive destination token account: %w", err)
	}

	blockhash, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	transfer := token.NewTransferCheckedInstruction(
		amount,
		s.tokenDecimals,
		sourceATA,
		s.tokenMint,
		destATA,
		owner,
		nil,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transfer},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(owner),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &s.hotWallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpcClient.SendTransactionWithOpts(
		ctx,
		tx,
		rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return sig.String(), nil
}

// WaitForConfirmation polls signature status until the transaction is
// confirmed or finalized, or the context expires.
func (s *SolanaClient) WaitForConfirmation(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}

	ticker := time.NewTicker(s.confirmPoll)
	defer ticker.Stop()

	for {
		status, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(status.Value) > 0 && status.Value[0] != nil {
			st := status.Value[0]
			if st.Err != nil {
				return fmt.Errorf("transaction %s failed on-chain: %v", signature, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if err != nil {
			log.Printf("Warning: signature status check for %s failed: %v", signature, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation wait for %s: %w", signature, ctx.Err())
		case <-ticker.C:
		}
	}
}
