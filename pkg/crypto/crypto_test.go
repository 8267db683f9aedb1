package crypto

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("festival-admin")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !VerifyPassword(hash, "festival-admin") {
		t.Fatal("expected password verification to succeed")
	}
	if VerifyPassword(hash, "incorrect") {
		t.Fatal("expected password verification to fail")
	}
}

func TestHashPasswordRejectsShortPasswords(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	if len(token) != 43 {
		t.Fatalf("expected 43 characters, got %d", len(token))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Fatalf("expected URL-safe token, got %q", token)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	key := DeriveKey("kaizen-mfa-key")
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	encoded, err := Encrypt([]byte("JBSWY3DPEHPK3PXP"), key)
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}
	if strings.Contains(encoded, "JBSWY3DPEHPK3PXP") {
		t.Fatal("expected ciphertext not to contain the plaintext")
	}

	decrypted, err := Decrypt(encoded, key)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}
	if string(decrypted) != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("expected round trip, got %q", decrypted)
	}

	if _, err := Decrypt(encoded, DeriveKey("other-key")); err == nil {
		t.Fatal("expected decrypt with a different key to fail")
	}
	if _, err := Decrypt("c2hvcnQ=", key); err == nil {
		t.Fatal("expected short ciphertext to fail")
	}
}
