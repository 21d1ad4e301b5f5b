// SPDX-License-Identifier: GPL-3.0-only

package crypto

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	t.Setenv("HASHING_PEPPER", "test-pepper-for-hashing-operations")
	crypto := NewCrypto()
	password := "testpassword123"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == "" {
		t.Error("Hash should not be empty")
	}

	hash2, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("Second HashPassword failed: %v", err)
	}

	if hash == hash2 {
		t.Error("Two hashes of same password should be different (due to salt)")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Setenv("HASHING_PEPPER", "test-pepper-for-hashing-operations")
	crypto := NewCrypto()
	password := "testpassword123"
	wrongPassword := "wrongpassword"

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	err = crypto.VerifyPassword(password, hash)
	if err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}

	err = crypto.VerifyPassword(wrongPassword, hash)
	if err == nil {
		t.Error("VerifyPassword should fail for wrong password")
	}

	err = crypto.VerifyPassword(password, "invalid-hash")
	if err == nil {
		t.Error("VerifyPassword should fail for invalid hash")
	}
}

func TestDigestSecret(t *testing.T) {
	t.Setenv("HASHING_PEPPER", "test-pepper-for-hashing-operations")
	crypto := NewCrypto()
	secret := "sk_6b86b273ff34fce19d6b804eff5a3f57"

	digest := crypto.DigestSecret(secret)
	if digest == "" {
		t.Fatal("Digest should not be empty")
	}
	if len(digest) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(digest))
	}

	if crypto.DigestSecret(secret) != digest {
		t.Error("Same secret should produce same digest")
	}

	if crypto.DigestSecret("sk_different") == digest {
		t.Error("Different secret should produce different digest")
	}

	other := &Crypto{HashingPepper: "another-pepper"}
	if other.DigestSecret(secret) == digest {
		t.Error("Different pepper should produce different digest")
	}
}

func TestVerifySecret(t *testing.T) {
	t.Setenv("HASHING_PEPPER", "test-pepper-for-hashing-operations")
	crypto := NewCrypto()
	secret := "ocs_secret_value"

	digest := crypto.DigestSecret(secret)

	if !crypto.VerifySecret(secret, digest) {
		t.Error("VerifySecret should succeed for correct secret")
	}

	if crypto.VerifySecret("ocs_wrong_value", digest) {
		t.Error("VerifySecret should fail for wrong secret")
	}

	if crypto.VerifySecret(secret, "not-a-digest") {
		t.Error("VerifySecret should fail for wrong digest")
	}
}

func TestGenerateRandomString(t *testing.T) {
	value, err := GenerateRandomString("sk_", 32, "hex")
	if err != nil {
		t.Fatalf("GenerateRandomString failed: %v", err)
	}

	if !strings.HasPrefix(value, "sk_") {
		t.Errorf("Expected sk_ prefix, got %q", value)
	}
	if len(value) != len("sk_")+64 {
		t.Errorf("Expected 64 hex characters after prefix, got %d", len(value)-len("sk_"))
	}

	value2, err := GenerateRandomString("sk_", 32, "hex")
	if err != nil {
		t.Fatalf("Second GenerateRandomString failed: %v", err)
	}
	if value == value2 {
		t.Error("Two generated values should be different")
	}

	b64, err := GenerateRandomString("st_", 16, "base64")
	if err != nil {
		t.Fatalf("GenerateRandomString base64 failed: %v", err)
	}
	if !strings.HasPrefix(b64, "st_") {
		t.Errorf("Expected st_ prefix, got %q", b64)
	}

	_, err = GenerateRandomString("x_", 16, "unsupported")
	if err == nil {
		t.Error("GenerateRandomString should fail for unsupported encoding")
	}
}
