package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// USDCMintMainnet is the USDC mint on Solana mainnet.  Devnet and testnet
// use other mints.
const USDCMintMainnet = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

// SolanaClient is a read-only client for Solana RPC.  It never signs.
type SolanaClient struct {
	rpc        *rpc.Client
	usdcMint   solana.PublicKey
	commitment rpc.CommitmentType
}

// NewSolanaClient returns a client for rpcURL that reports USDC held in
// usdcMint.  An empty usdcMint means the mainnet mint.
func NewSolanaClient(rpcURL, usdcMint string) (*SolanaClient, error) {
	if usdcMint == "" {
		usdcMint = USDCMintMainnet
	}
	mint, err := solana.PublicKeyFromBase58(usdcMint)
	if err != nil {
		return nil, fmt.Errorf("invalid USDC mint address: %w", err)
	}
	return &SolanaClient{
		rpc:        rpc.New(rpcURL),
		usdcMint:   mint,
		commitment: rpc.CommitmentConfirmed,
	}, nil
}

// SolanaBalance is the native and USDC balance of one address, both in
// smallest units.
type SolanaBalance struct {
	Lamports  uint64
	USDCMicro uint64
}

// GetBalance reads both balances of address.  A missing USDC token account
// is a zero balance.
func (c *SolanaClient) GetBalance(ctx context.Context, address string) (*SolanaBalance, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid Solana address: %w", err)
	}

	native, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get SOL balance: %w", err)
	}
	usdc, err := c.tokenBalance(ctx, owner, c.usdcMint)
	if err != nil {
		return nil, fmt.Errorf("failed to get USDC balance: %w", err)
	}
	return &SolanaBalance{Lamports: native.Value, USDCMicro: usdc}, nil
}

// tokenBalance reads the owner's associated token account for mint.
func (c *SolanaClient) tokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to find associated token account address: %w", err)
	}

	res, err := c.rpc.GetTokenAccountBalance(ctx, ata, c.commitment)
	switch {
	case isAccountNotFound(err):
		return 0, nil
	case err != nil:
		return 0, err
	case res.Value == nil:
		return 0, nil
	}
	return strconv.ParseUint(res.Value.Amount, 10, 64)
}

// isAccountNotFound reports the RPC error for a token account that was
// never created.
func isAccountNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return strings.Contains(rpcErr.Message, "could not find account")
}
