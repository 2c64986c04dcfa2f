package security

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateState(t *testing.T) {
	a := GenerateState()
	b := GenerateState()

	if a == "" || b == "" {
		t.Fatal("GenerateState() returned empty state")
	}
	if a == b {
		t.Error("GenerateState() returned identical states")
	}
	if _, err := base64.RawURLEncoding.DecodeString(a); err != nil {
		t.Errorf("state is not base64url: %v", err)
	}
}

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge := GeneratePKCE()

	if len(verifier) < 43 || len(verifier) > 128 {
		t.Errorf("verifier length %d outside RFC 7636 bounds", len(verifier))
	}

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	if challenge != want {
		t.Errorf("challenge = %q, want %q", challenge, want)
	}
}

func TestOperationID(t *testing.T) {
	id := NewOperationID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("NewOperationID() = %q is not a uuid: %v", id, err)
	}

	ctx := context.Background()
	if got := OperationIDFromContext(ctx); got != "" {
		t.Errorf("OperationIDFromContext(empty) = %q, want empty", got)
	}

	ctx = WithOperationID(ctx, id)
	if got := OperationIDFromContext(ctx); got != id {
		t.Errorf("OperationIDFromContext() = %q, want %q", got, id)
	}
}
