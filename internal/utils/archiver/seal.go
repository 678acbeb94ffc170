package archiver

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Sealed archive layout: magic | salt | nonce | AES-256-GCM ciphertext
const (
	sealMagic      = "DCPDENC1"
	saltSize       = 16
	keySize        = 32
	kdfIterations  = 600000
	SealedFileExt  = ".enc"
	minSealedBytes = len(sealMagic) + saltSize
)

var (
	// ErrNoPassword is returned when sealing or opening without a password
	ErrNoPassword = errors.New("export password is empty")
	// ErrDecrypt is returned for a wrong password or a tampered archive
	ErrDecrypt = errors.New("failed to decrypt archive")
)

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under a key derived from password and writes it to w
func Seal(w io.Writer, plaintext []byte, password string) error {
	if password == "" {
		return ErrNoPassword
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "failed to generate salt")
	}
	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return errors.Wrap(err, "failed to create cipher")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "failed to generate nonce")
	}

	var buf bytes.Buffer
	buf.WriteString(sealMagic)
	buf.Write(salt)
	buf.Write(nonce)
	buf.Write(gcm.Seal(nil, nonce, plaintext, []byte(sealMagic)))

	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "failed to write sealed archive")
}

// Open reverses Seal
func Open(r io.Reader, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrNoPassword
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sealed archive")
	}
	if len(data) < minSealedBytes || string(data[:len(sealMagic)]) != sealMagic {
		return nil, ErrInvalidArchive
	}
	data = data[len(sealMagic):]
	salt, data := data[:saltSize], data[saltSize:]

	gcm, err := newGCM(deriveKey(password, salt))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	if len(data) < gcm.NonceSize() {
		return nil, ErrInvalidArchive
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(sealMagic))
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
