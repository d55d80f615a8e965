package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters of the single-key .cwt wallet files written by the
// earlier local wallet.  Only decryption is supported.
var legacyScryptN = 1 << 18

const (
	legacyScryptR = 8
	legacyScryptP = 1
)

// LegacyFile is the on-disk shape of a .cwt wallet file.
type LegacyFile struct {
	Network    string `json:"network"`
	Address    string `json:"address"`
	QR         string `json:"QR"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

type legacyWalletData struct {
	PrivateKey []byte `json:"privateKey"`
	CreatedAt  string `json:"createdAt"`
}

// OpenLegacyFile reads and decrypts a .cwt file and returns its header and
// the 64-byte Solana keypair it protects.  A wrong password fails with
// ErrAuthFailed.
// password must be []byte for security (caller should zero it after use)
func OpenLegacyFile(path string, password []byte) (*LegacyFile, []byte, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(fileData) == 0 {
		return nil, nil, errors.New("file is empty")
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	var file LegacyFile
	if err := json.Unmarshal(fileData, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal cwt file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(file.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aead, err := legacyAEAD(password, salt)
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, nil, fmt.Errorf("bad nonce length %d", len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, ErrAuthFailed
	}
	defer clear(plaintext)

	var data legacyWalletData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal wallet data: %w", err)
	}
	if len(data.PrivateKey) != 64 {
		clear(data.PrivateKey)
		return nil, nil, fmt.Errorf("invalid private key length: want 64, got %d", len(data.PrivateKey))
	}
	return &file, data.PrivateKey, nil
}

func legacyAEAD(password, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(password, salt, legacyScryptN, legacyScryptR, legacyScryptP, KeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
