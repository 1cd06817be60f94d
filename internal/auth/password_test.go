package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" || !IsBcryptHash(hash) {
		t.Fatalf("unexpected hash %q", hash)
	}
	if err := ComparePassword(hash, "s3cret"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("expected mismatch, got %v", err)
	}
	again, _ := HashPassword("s3cret", bcrypt.MinCost)
	if again == hash {
		t.Error("hashes are not salted")
	}
}

func TestVerifyStoredPassword(t *testing.T) {
	hash, _ := HashPassword("pw", bcrypt.MinCost)
	cases := []struct {
		name        string
		stored      string
		plain       string
		allowLegacy bool
		rehash      bool
		ok          bool
	}{
		{"bcrypt match", hash, "pw", false, false, true},
		{"bcrypt mismatch", hash, "nope", true, false, false},
		{"legacy disabled", "pw", "pw", false, false, false},
		{"legacy match", "pw", "pw", true, true, true},
		{"legacy mismatch", "pw", "px", true, false, false},
		{"empty stored", "", "", true, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rehash, err := VerifyStoredPassword(tc.stored, tc.plain, tc.allowLegacy)
			if (err == nil) != tc.ok {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
			if rehash != tc.rehash {
				t.Fatalf("needsRehash = %v, want %v", rehash, tc.rehash)
			}
		})
	}
}

func TestHashPasswordCountsBytes(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("a", MaxPasswordBytes), bcrypt.MinCost); err != nil {
		t.Fatalf("72 ascii bytes rejected: %v", err)
	}
	// 72 characters, 144 bytes
	if _, err := HashPassword(strings.Repeat("é", 72), bcrypt.MinCost); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNewDummyHashUsesRequestedCost(t *testing.T) {
	for _, tc := range []struct {
		cost int
		want int
	}{
		{cost: bcrypt.MinCost + 1, want: bcrypt.MinCost + 1},
		{cost: bcrypt.MinCost, want: bcrypt.MinCost},
	} {
		got, err := bcrypt.Cost(NewDummyHash(tc.cost))
		if err != nil {
			t.Fatalf("cost(%d): %v", tc.cost, err)
		}
		if got != tc.want {
			t.Errorf("NewDummyHash(%d) cost = %d, want %d", tc.cost, got, tc.want)
		}
	}
	if NormalizeCost(0) != bcrypt.DefaultCost || NormalizeCost(bcrypt.MaxCost+1) != bcrypt.DefaultCost {
		t.Error("out-of-range cost not normalized")
	}
}
