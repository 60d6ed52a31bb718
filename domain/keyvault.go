package domain

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/pbkdf2"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
	"github.com/corzoapp/transfer_service/repository"
)

// NOTE:
// - KDF metadata is encoded into SaltMeta as: "pbkdf2$<iterations>$<hexsalt>"
//   so the KDF can be retuned later without a schema migration.
// - AES-GCM for authenticated encryption, PBKDF2 (sha256) key derivation.
// - Plain key bytes exist only inside Create and SignDigest and are
//   zeroed before those return.

const (
	kdfLabel      = "pbkdf2"
	kdfIterations = 310_000
)

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// deriveKey derives a 32-byte AES key from passphrase+salt using
// PBKDF2-SHA256. The caller must clear the returned copy after use.
func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, 32, sha256.New)
}

// encrypt uses AES-256-GCM and returns nonce|ciphertext
func encrypt(data []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ciphertext := gcm.Seal(nil, nonce, data, nil)
	return append(nonce, ciphertext...), nil
}

// decrypt expects input nonce|ciphertext
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		// hide the raw crypto error from callers
		return nil, errors.New("failed to decrypt key material")
	}
	return plain, nil
}

func encodeSaltMeta(salt []byte, iterations int) string {
	return fmt.Sprintf("%s$%d$%s", kdfLabel, iterations, hex.EncodeToString(salt))
}

func decodeSaltMeta(meta string) ([]byte, int, error) {
	parts := strings.Split(meta, "$")
	if len(parts) != 3 {
		return nil, 0, errors.New("invalid salt metadata format")
	}
	if parts[0] != kdfLabel {
		return nil, 0, errors.New("unsupported kdf")
	}
	iter, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, 0, errors.New("invalid kdf iterations")
	}
	salt, err := hex.DecodeString(parts[2])
	if err != nil {
		return nil, 0, errors.New("invalid salt hex")
	}
	return salt, iter, nil
}

// KeyVault is the opaque signing capability: callers can create wallets
// and obtain signatures over digests, never the key itself. The in-process
// AES vault is the current implementation; a KMS/HSM-backed one can take
// its place without touching callers.
type KeyVault struct {
	wallets    *repository.WalletRepo
	passphrase string
}

func NewKeyVault(wallets *repository.WalletRepo, passphrase string) *KeyVault {
	return &KeyVault{wallets: wallets, passphrase: passphrase}
}

// Create generates a fresh secp256k1 keypair for the user, derives the
// address, encrypts the private key, and persists the wallet. A second
// create for the same user fails with a conflict.
func (v *KeyVault) Create(ctx context.Context, userID string) (*entity.Wallet, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "generate keypair", err)
	}
	address := crypto.PubkeyToAddress(priv.PublicKey).Hex()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "generate salt", err)
	}

	key := deriveKey(v.passphrase, salt, kdfIterations)
	defer clearBytes(key)

	privBytes := crypto.FromECDSA(priv)
	encKey, err := encrypt(privBytes, key)
	clearBytes(privBytes)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "encrypt key", err)
	}

	wallet := &entity.Wallet{
		ID:           primitive.NewObjectID().Hex(),
		UserID:       userID,
		Address:      address,
		KeyEncrypted: encKey,
		SaltMeta:     encodeSaltMeta(salt, kdfIterations),
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := v.wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// Get returns the user's wallet without any key material attached to the
// result's serialized forms.
func (v *KeyVault) Get(ctx context.Context, userID string) (*entity.Wallet, error) {
	return v.wallets.GetByUserID(ctx, userID)
}

// SignDigest signs a 32-byte digest with the user's key. The decrypted
// key lives only within this call.
func (v *KeyVault) SignDigest(ctx context.Context, userID string, digest []byte) ([]byte, error) {
	wallet, err := v.wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	salt, iterations, err := decodeSaltMeta(wallet.SaltMeta)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "decode salt metadata", err)
	}
	key := deriveKey(v.passphrase, salt, iterations)
	defer clearBytes(key)

	privBytes, err := decrypt(wallet.KeyEncrypted, key)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "decrypt key", err)
	}
	defer clearBytes(privBytes)

	priv, err := crypto.ToECDSA(privBytes)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "decode key", err)
	}

	sig, err := crypto.Sign(digest, priv)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "sign digest", err)
	}
	return sig, nil
}
