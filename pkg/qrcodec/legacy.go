package qrcodec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

const legacyName = "legacy"

var saltedPrefix = []byte("Salted__")

// legacyEnvelope is the plaintext inside a legacy token.
type legacyEnvelope struct {
	Data string `json:"data"`
	Sig  string `json:"sig"`
}

type legacyStrategy struct {
	secret []byte
}

func (legacyStrategy) Name() string { return legacyName }

func (s legacyStrategy) Decode(token string) (Payload, error) {
	blob, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	plaintext, err := decryptSalted(blob, s.secret)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var env legacyEnvelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return Payload{}, fmt.Errorf("%w: envelope: %v", ErrMalformed, err)
	}

	if !hmac.Equal([]byte(legacySignature(s.secret, env.Data)), []byte(env.Sig)) {
		return Payload{}, ErrSignatureMismatch
	}

	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader([]byte(env.Data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Payload{}, fmt.Errorf("%w: data: %v", ErrMalformed, err)
	}

	payload, err := ValidatePayload(raw)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.ExpiresAt == 0 {
		payload.ExpiresAt = expiryFor(payload.Timestamp)
	}
	return payload, nil
}

func encodeLegacy(secret []byte, p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("qrcodec: marshal payload: %w", err)
	}

	plaintext, err := json.Marshal(legacyEnvelope{
		Data: string(data),
		Sig:  legacySignature(secret, string(data)),
	})
	if err != nil {
		return "", fmt.Errorf("qrcodec: marshal envelope: %w", err)
	}

	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("qrcodec: salt: %w", err)
	}

	blob, err := encryptSalted(plaintext, secret, salt)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

func legacySignature(secret []byte, data string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// encryptSalted produces "Salted__" || salt || AES-256-CBC(PKCS#7) with the
// key and IV derived from passphrase and salt.
func encryptSalted(plaintext, passphrase, salt []byte) ([]byte, error) {
	key, iv := bytesToKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("qrcodec: cipher: %w", err)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(saltedPrefix)+len(salt)+len(padded))
	n := copy(out, saltedPrefix)
	n += copy(out[n:], salt)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[n:], padded)
	return out, nil
}

func decryptSalted(blob, passphrase []byte) ([]byte, error) {
	header := len(saltedPrefix) + 8
	if len(blob) <= header || !bytes.HasPrefix(blob, saltedPrefix) {
		return nil, errors.New("missing salt header")
	}
	salt, body := blob[len(saltedPrefix):header], blob[header:]
	if len(body)%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a whole number of blocks")
	}

	key, iv := bytesToKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return pkcs7Unpad(plain, aes.BlockSize)
}

// bytesToKey is OpenSSL's EVP_BytesToKey with MD5 and one round, yielding a
// 32 byte key followed by a 16 byte IV.
func bytesToKey(passphrase, salt []byte) (key, iv []byte) {
	const keyLen, ivLen = 32, aes.BlockSize

	var derived, prev []byte
	for len(derived) < keyLen+ivLen {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:keyLen], derived[keyLen : keyLen+ivLen]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
