package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"
)

// EncryptionSuffix is the filename extension the encrypt stage appends.
const EncryptionSuffix = "enc"

// Encrypted artifact layout: a 5-byte magic, a key-mode byte, a 16-byte
// salt, then a sequence of chunks. Each chunk is a fresh 12-byte nonce,
// a big-endian uint32 ciphertext length, and the AES-256-GCM ciphertext
// of at most encryptChunkSize plaintext bytes. Chunking keeps the stage
// streaming; GCM alone would need the whole payload in memory.
const (
	encryptMagic     = "DBBK1"
	encryptChunkSize = 64 * 1024
	encryptSaltSize  = 16

	keyModeRaw        = byte(0)
	keyModePassphrase = byte(1)

	pbkdf2Iterations = 100000
)

// KeySource selects where the encryption key material comes from
type KeySource string

const (
	// KeySourceEnv reads a hex-encoded 256-bit key from an environment variable
	KeySourceEnv KeySource = "env"
	// KeySourceFile reads a raw or hex-encoded 256-bit key from a file
	KeySourceFile KeySource = "file"
	// KeySourcePrompt derives the key from an interactively entered passphrase
	KeySourcePrompt KeySource = "prompt"
)

// EncryptionConfig defines encryption settings
type EncryptionConfig struct {
	Enabled   bool      `yaml:"enabled" mapstructure:"enabled"`
	KeySource KeySource `yaml:"key_source" mapstructure:"key_source"`
	KeyEnvVar string    `yaml:"key_env_var" mapstructure:"key_env_var"`
	KeyPath   string    `yaml:"key_path" mapstructure:"key_path"`

	// KeyRetriever overrides key lookup for tests or external key management.
	KeyRetriever func() ([]byte, error) `yaml:"-" mapstructure:"-"`
	// PassphraseReader overrides the interactive prompt.
	PassphraseReader func() ([]byte, error) `yaml:"-" mapstructure:"-"`
}

// Validate validates the EncryptionConfig
func (ec *EncryptionConfig) Validate() error {
	if !ec.Enabled {
		return nil
	}
	if ec.KeyRetriever != nil || ec.PassphraseReader != nil {
		return nil
	}

	var errs ValidationErrors
	switch ec.KeySource {
	case KeySourceEnv:
		if ec.KeyEnvVar == "" {
			errs.Add("key_env_var", "environment variable name is required for key source 'env'", nil)
		}
	case KeySourceFile:
		if ec.KeyPath == "" {
			errs.Add("key_path", "key file path is required for key source 'file'", nil)
		}
	case KeySourcePrompt:
	default:
		errs.Add("key_source", fmt.Sprintf("unsupported key source: %s", ec.KeySource), ec.KeySource)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Encryptor performs streaming encryption and decryption of backup
// artifacts using chunked AES-256-GCM.
type Encryptor struct {
	config EncryptionConfig
}

// NewEncryptor creates an encryptor for the given configuration.
func NewEncryptor(config EncryptionConfig) *Encryptor {
	return &Encryptor{config: config}
}

// resolveKey returns the AEAD key and the key mode recorded in the
// artifact header. Missing key material is reported as a transform
// failure wrapping ErrMissingKey so callers can distinguish it from I/O
// trouble.
func (e *Encryptor) resolveKey(salt []byte) ([]byte, byte, error) {
	if e.config.KeyRetriever != nil {
		key, err := e.config.KeyRetriever()
		if err != nil {
			return nil, 0, NewTransformError("encryption key retrieval failed",
				errors.Join(ErrMissingKey, err))
		}
		if len(key) != 32 {
			return nil, 0, NewTransformError("encryption key must be 32 bytes for AES-256", ErrMissingKey)
		}
		return key, keyModeRaw, nil
	}

	switch e.config.KeySource {
	case KeySourceEnv:
		hexKey := os.Getenv(e.config.KeyEnvVar)
		if hexKey == "" {
			return nil, 0, NewTransformError(
				fmt.Sprintf("environment variable %s not set", e.config.KeyEnvVar), ErrMissingKey)
		}
		key, err := hex.DecodeString(strings.TrimSpace(hexKey))
		if err != nil || len(key) != 32 {
			return nil, 0, NewTransformError(
				fmt.Sprintf("environment variable %s must hold a hex-encoded 256-bit key", e.config.KeyEnvVar),
				errors.Join(ErrMissingKey, err))
		}
		return key, keyModeRaw, nil

	case KeySourceFile:
		data, err := os.ReadFile(e.config.KeyPath)
		if err != nil {
			return nil, 0, NewTransformError(
				fmt.Sprintf("failed to read key file %s", e.config.KeyPath),
				errors.Join(ErrMissingKey, err))
		}
		if len(data) == 32 {
			return data, keyModeRaw, nil
		}
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(key) != 32 {
			return nil, 0, NewTransformError(
				fmt.Sprintf("key file %s must contain a raw or hex-encoded 256-bit key", e.config.KeyPath),
				errors.Join(ErrMissingKey, err))
		}
		return key, keyModeRaw, nil

	case KeySourcePrompt:
		passphrase, err := e.readPassphrase()
		if err != nil {
			return nil, 0, NewTransformError("failed to read encryption passphrase",
				errors.Join(ErrMissingKey, err))
		}
		if len(passphrase) == 0 {
			return nil, 0, NewTransformError("empty encryption passphrase", ErrMissingKey)
		}
		key := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, 32, sha256.New)
		return key, keyModePassphrase, nil

	default:
		return nil, 0, NewTransformError(
			fmt.Sprintf("unsupported key source: %s", e.config.KeySource), ErrMissingKey)
	}
}

func (e *Encryptor) readPassphrase() ([]byte, error) {
	if e.config.PassphraseReader != nil {
		return e.config.PassphraseReader()
	}
	fmt.Fprint(os.Stderr, "Encryption passphrase: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	return passphrase, err
}

// Encrypt streams r into w in the chunked AES-256-GCM artifact format.
func (e *Encryptor) Encrypt(r io.Reader, w io.Writer) error {
	salt := make([]byte, encryptSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return NewTransformError("failed to generate encryption salt", err)
	}

	key, keyMode, err := e.resolveKey(salt)
	if err != nil {
		return err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	header := make([]byte, 0, len(encryptMagic)+1+encryptSaltSize)
	header = append(header, encryptMagic...)
	header = append(header, keyMode)
	header = append(header, salt...)
	if _, err := w.Write(header); err != nil {
		return NewTransformError("failed to write encryption header", err)
	}

	plain := make([]byte, encryptChunkSize)
	nonce := make([]byte, gcm.NonceSize())
	lenBuf := make([]byte, 4)
	for {
		n, readErr := io.ReadFull(r, plain)
		if n > 0 {
			if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
				return NewTransformError("failed to generate chunk nonce", err)
			}
			ciphertext := gcm.Seal(nil, nonce, plain[:n], nil)
			binary.BigEndian.PutUint32(lenBuf, uint32(len(ciphertext)))
			if _, err := w.Write(nonce); err != nil {
				return NewTransformError("failed to write encrypted chunk", err)
			}
			if _, err := w.Write(lenBuf); err != nil {
				return NewTransformError("failed to write encrypted chunk", err)
			}
			if _, err := w.Write(ciphertext); err != nil {
				return NewTransformError("failed to write encrypted chunk", err)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			return nil
		}
		if readErr != nil {
			return NewTransformError("failed to read artifact for encryption", readErr)
		}
	}
}

// Decrypt reverses Encrypt. It is the read-side contract for restore
// tooling and round-trip tests; the backup run itself never decrypts.
func (e *Encryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(encryptMagic)+1+encryptSaltSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return NewTransformError("failed to read encryption header", err)
	}
	if string(header[:len(encryptMagic)]) != encryptMagic {
		return NewTransformError("not an encrypted backup artifact", nil)
	}
	keyMode := header[len(encryptMagic)]
	salt := header[len(encryptMagic)+1:]

	var key []byte
	switch keyMode {
	case keyModeRaw, keyModePassphrase:
		resolved, _, err := e.resolveKey(salt)
		if err != nil {
			return err
		}
		key = resolved
	default:
		return NewTransformError(fmt.Sprintf("unsupported key mode %d in encrypted artifact", keyMode), nil)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	lenBuf := make([]byte, 4)
	for {
		if _, err := io.ReadFull(r, nonce); err != nil {
			if err == io.EOF {
				return nil
			}
			return NewTransformError("truncated encrypted artifact", err)
		}
		if _, err := io.ReadFull(r, lenBuf); err != nil {
			return NewTransformError("truncated encrypted artifact", err)
		}
		chunkLen := binary.BigEndian.Uint32(lenBuf)
		if chunkLen > encryptChunkSize+uint32(gcm.Overhead()) {
			return NewTransformError("corrupt chunk length in encrypted artifact", nil)
		}
		ciphertext := make([]byte, chunkLen)
		if _, err := io.ReadFull(r, ciphertext); err != nil {
			return NewTransformError("truncated encrypted artifact", err)
		}
		plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return NewTransformError("failed to decrypt artifact chunk", err)
		}
		if _, err := w.Write(plaintext); err != nil {
			return NewTransformError("failed to write decrypted data", err)
		}
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewTransformError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewTransformError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// GenerateKey generates a new random 256-bit encryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, NewTransformError("failed to generate encryption key", err)
	}
	return key, nil
}

// encryptStage adapts the Encryptor to the transform pipeline.
type encryptStage struct {
	encryptor *Encryptor
}

func (s *encryptStage) Name() string {
	return "encrypt/AES-256-GCM"
}

func (s *encryptStage) Apply(in *Artifact) (*Artifact, error) {
	defer in.Close()

	if err := in.Rewind(); err != nil {
		return nil, err
	}

	out, err := NewArtifact(in.Filename + "." + EncryptionSuffix)
	if err != nil {
		return nil, err
	}

	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		return nil, err
	}

	return out, nil
}
