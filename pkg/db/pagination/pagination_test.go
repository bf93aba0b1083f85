package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

func TestLimitClamping(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{25, 25},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tc := range cases {
		if got := (Pagination{PageSize: tc.size}).Limit(); got != tc.want {
			t.Errorf("Limit() with page_size=%d = %d, want %d", tc.size, got, tc.want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{ID: 12345, CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	decoded, err := Decode(cursor.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != cursor.ID || !decoded.CreatedAt.Equal(cursor.CreatedAt) {
		t.Fatalf("round trip produced %+v, want %+v", decoded, cursor)
	}
}

func TestDecodeEmptyToken(t *testing.T) {
	cursor, err := Decode("")
	if err != nil || cursor != nil {
		t.Fatalf("Decode(\"\") = %v, %v, want nil, nil", cursor, err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := Decode("not-a-token!"); err == nil {
		t.Fatal("expected an error for a malformed token")
	}
}

func TestTrim(t *testing.T) {
	cursorOf := func(n int) Cursor { return Cursor{ID: snowflake.ID(n)} }

	rows, info := Trim([]int{3, 2, 1}, 2, cursorOf)
	if len(rows) != 2 || !info.HasMore || info.NextPageToken == "" {
		t.Fatalf("over-full fetch: rows=%v info=%+v", rows, info)
	}

	rows, info = Trim([]int{3, 2}, 2, cursorOf)
	if len(rows) != 2 || info.HasMore || info.NextPageToken != "" {
		t.Fatalf("exact fetch: rows=%v info=%+v", rows, info)
	}
}
