// Package solana derives Solana keys and reads balances of cached
// addresses.  Nothing here needs key material to be decrypted except
// DeriveKey and ParsePrivateKey.
package solana

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/seashail/seashail/internal/client"
	"github.com/seashail/seashail/internal/common"
	"github.com/seashail/seashail/internal/model"
	"github.com/seashail/seashail/internal/policy"
)

// BalanceReader is the read-only RPC surface GetBalance needs.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (*client.SolanaBalance, error)
}

// GetBalance gets the SOL and USDC balance of address and, when a price is
// available, its USD value.
func GetBalance(ctx context.Context, rpc BalanceReader, pricer common.Pricer,
	address string) (*model.BalanceResponse, error) {

	bal, err := rpc.GetBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	resp := &model.BalanceResponse{
		Address:   address,
		SOL:       common.FormatUnits(bal.Lamports, common.SOLDecimals),
		USDC:      common.FormatUnits(bal.USDCMicro, common.USDCDecimals),
		Timestamp: time.Now().UTC(),
	}
	resp.QRCode, err = generateQRCode(address)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	// Floats only feed the display value.
	sol := common.UnitsToFloat(bal.Lamports, common.SOLDecimals)
	if usd, known := common.NativeToUSD(ctx, pricer, policy.ChainSolana, sol); known {
		total := usd + common.UnitsToFloat(bal.USDCMicro, common.USDCDecimals)
		resp.USDValue = &total
	}
	return resp, nil
}

// generateQRCode generates QR code of address in base64
func generateQRCode(address string) (string, error) {
	qr, err := qrcode.New(address, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	// Get PNG image
	png, err := qr.PNG(256)
	if err != nil {
		return "", fmt.Errorf("failed to generate PNG: %w", err)
	}

	return base64.StdEncoding.EncodeToString(png), nil
}
