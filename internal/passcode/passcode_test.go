package passcode

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	stored, err := Hash("123456789")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(stored, "pbkdf2-sha256$") {
		t.Fatalf("unexpected hash format: %s", stored)
	}
	if !Verify("123456789", stored) {
		t.Fatal("expected matching passcode to verify")
	}
	if Verify("987654321", stored) {
		t.Fatal("expected mismatched passcode to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	first, err := Hash("123456789")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	second, err := Hash("123456789")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyLegacyPlainValue(t *testing.T) {
	if !Verify("legacy123", "legacy123") {
		t.Fatal("expected legacy plain passcode to verify")
	}
	if Verify("wrong", "legacy123") {
		t.Fatal("expected legacy mismatch to fail")
	}
}

func TestVerifyEmptyValues(t *testing.T) {
	stored, err := Hash("123456789")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if Verify("", stored) {
		t.Fatal("empty supplied value must not verify")
	}
	if Verify("123456789", "") {
		t.Fatal("empty stored value must not verify")
	}
}
