package offer

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(KindStore, "submit", "persist offer", cause)
	wrapped := fmt.Errorf("handler: %w", err)

	if !IsKind(wrapped, KindStore) {
		t.Fatalf("expected KindStore through wrapping")
	}
	if KindOf(wrapped) != KindStore {
		t.Fatalf("KindOf = %q", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("cause not reachable with errors.Is")
	}
	if got, want := err.Error(), "submit: persist offer: disk full"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if KindOf(cause) != "" {
		t.Fatalf("plain errors have no kind")
	}
}

func TestKindRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindDecode:       true,
		KindStore:        true,
		KindEncode:       true,
		KindUnauthorized: false,
		KindCollision:    false,
		KindInvalid:      false,
	}
	for k, want := range retryable {
		if got := k.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", k, got, want)
		}
	}
}
