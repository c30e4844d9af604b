package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 123456000, time.UTC),
		ID:        uuid.New(),
	}
	encoded, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(encoded, "{}\" ") {
		t.Errorf("cursor leaks structure: %q", encoded)
	}

	got, err := DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) || got.ID != c.ID {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}
}

func TestDecodeCursor_Malformed(t *testing.T) {
	cases := []string{
		"not base64!!",
		"aGVsbG8",     // valid base64, not JSON
		"bm90LWpzb24", // likewise
		"eyJjcmVhdGVkX2F0Ijoibm90LWEtdGltZSIsImlkIjoieCJ9", // JSON with bad field values
	}
	for _, s := range cases {
		if _, err := DecodeCursor(s); err == nil {
			t.Errorf("DecodeCursor(%q) accepted garbage", s)
		}
	}
}
