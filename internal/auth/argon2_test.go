package auth

import (
	"errors"
	"strings"
	"testing"
)

// cheapParams keeps hashing fast in tests that do not check the defaults.
var cheapParams = Params{Memory: 1024, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 8}

func TestHashPassword_EncodesDefaultParams(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	fields := strings.Split(hash, "$")
	if len(fields) != 6 {
		t.Fatalf("hash has %d fields, want 6: %s", len(fields), hash)
	}
	if fields[1] != "argon2id" || fields[2] != "v=19" {
		t.Errorf("hash header = %q %q", fields[1], fields[2])
	}
	if fields[3] != "m=65536,t=3,p=4" {
		t.Errorf("cost = %q, want m=65536,t=3,p=4", fields[3])
	}
	if NeedsRehash(hash) {
		t.Error("fresh hash reported as needing rehash")
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	const password = "s3cret-candidate-pass"
	hash, err := hashWith(password, cheapParams)
	if err != nil {
		t.Fatalf("hashWith() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"match", password, true},
		{"wrong password", "s3cret-candidate-pasS", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	t.Parallel()

	a, _ := hashWith("same", cheapParams)
	b, _ := hashWith("same", cheapParams)
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
	for _, h := range []string{a, b} {
		if ok, err := VerifyPassword("same", h); err != nil || !ok {
			t.Errorf("VerifyPassword(%s) = %v, %v", h, ok, err)
		}
	}
}

func TestVerifyPassword_RejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"plain text", "hunter2", ErrInvalidHash},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv", ErrInvalidHash},
		{"other algorithm", "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5", ErrInvalidHash},
		{"truncated", "$argon2id$v=19$m=1024,t=1,p=1", ErrInvalidHash},
		{"bad cost", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", ErrInvalidHash},
		{"zero time", "$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$a2V5", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5", ErrInvalidHash},
		{"old version", "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := VerifyPassword("password", tt.hash)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyPassword() error = %v, want %v", err, tt.wantErr)
			}
			if ok {
				t.Error("malformed hash verified")
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	weak, err := hashWith("password", cheapParams)
	if err != nil {
		t.Fatalf("hashWith() error = %v", err)
	}
	if !NeedsRehash(weak) {
		t.Error("hash with cheap params should need rehash")
	}
	if !NeedsRehash("garbage") {
		t.Error("unparseable hash should need rehash")
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	key := "hl_live_k7m2q9_" + strings.Repeat("a", 32)
	if QuickHash(key) != QuickHash(key) {
		t.Error("QuickHash is not deterministic")
	}
	if QuickHash(key) == QuickHash(key+"b") {
		t.Error("distinct inputs share a QuickHash")
	}
	for _, in := range []string{"", "x", strings.Repeat("z", 4096)} {
		if got := len(QuickHash(in)); got != 32 {
			t.Errorf("len(QuickHash(%d bytes)) = %d, want 32", len(in), got)
		}
	}
}
