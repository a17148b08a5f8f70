package repository

import (
	"context"
	"testing"
	"time"
)

func TestDriverURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url with pool settings",
			in:   "postgres://hireline:secret@db:5432/hireline?sslmode=disable&pool_max_conns=20&pool_min_conns=2",
			want: "postgres://hireline:secret@db:5432/hireline?sslmode=disable",
		},
		{
			name: "url with only pool settings",
			in:   "postgresql://db/hireline?pool_max_conn_lifetime=1h",
			want: "postgresql://db/hireline",
		},
		{
			name: "url untouched",
			in:   "postgres://hireline:secret@db:5432/hireline",
			want: "postgres://hireline:secret@db:5432/hireline",
		},
		{
			name: "keyword form",
			in:   "host=db pool_max_conns=20 dbname=hireline sslmode=disable",
			want: "host=db dbname=hireline sslmode=disable",
		},
		{
			name: "keyword form leading pool setting",
			in:   "pool_min_conns=1 host=db",
			want: "host=db",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DriverURL(tt.in)
			if err != nil {
				t.Fatalf("DriverURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DriverURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDriverURL_RejectsMalformedURL(t *testing.T) {
	t.Parallel()

	if _, err := DriverURL("postgres://db:notaport/hireline?pool_max_conns=5"); err == nil {
		t.Fatal("expected an error for an invalid port")
	}
}

func TestNew_StopsRetryingAfterMaxWait(t *testing.T) {
	t.Parallel()

	// Nothing listens on port 1, so every ping is refused immediately.
	start := time.Now()
	repo, err := New(context.Background(), "postgres://hireline@127.0.0.1:1/hireline?connect_timeout=1", 300*time.Millisecond)
	if err == nil {
		repo.Close()
		t.Fatal("expected an error from an unreachable database")
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Errorf("New gave up after %v, want about 300ms", took)
	}
}
