package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowloom/rivulet/model"
)

func TestSaveGetIdempotence(t *testing.T) {
	s := New()
	ctx := context.Background()
	blob := []byte("hello artifact")

	a, err := s.Save(ctx, blob, "misc", "")
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)

	got, ok, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blob, got.Blob)
}

func TestSaveRejectsEmptyBlob(t *testing.T) {
	s := New()
	_, err := s.Save(context.Background(), nil, "misc", "")
	require.Error(t, err)
	require.True(t, model.IsType(err, model.ErrInvalidInput))
}

func TestMimeSniffing(t *testing.T) {
	cases := []struct {
		name string
		blob []byte
		hint string
		want string
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 1, 2}, "", "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 1, 2}, "", "image/jpeg"},
		{"gif", []byte("GIF89a...."), "", "image/gif"},
		{"pdf", []byte("%PDF-1.4 ..."), "", "application/pdf"},
		{"wav", append([]byte("RIFF****WAVEfmt "), 0), "", "audio/wav"},
		{"webp", append([]byte("RIFF****WEBPVP8 "), 0), "", "image/webp"},
		{"unknown with extension hint", []byte{1, 2, 3}, "output.txt", "text/plain"},
		{"unknown no hint", []byte{1, 2, 3}, "", "application/octet-stream"},
		{"trusted explicit hint wins", []byte{0x89, 0x50, 0x4E, 0x47}, "application/custom", "application/custom"},
	}
	s := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := s.Save(context.Background(), tc.blob, "misc", tc.hint)
			require.NoError(t, err)
			require.Equal(t, tc.want, a.MimeType)
		})
	}
}

func TestListFiltersByCategory(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Save(ctx, []byte("a"), "cat1", "")
	_, _ = s.Save(ctx, []byte("b"), "cat2", "")

	cat1 := s.List(ctx, "cat1")
	require.Len(t, cat1, 1)
	require.NotEmpty(t, cat1[0].ID)

	all := s.List(ctx, "")
	require.Len(t, all, 2)
	for _, m := range all {
		require.NotZero(t, m.Size)
	}
}

func TestDeleteAndStats(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.Save(ctx, []byte("xyz"), "misc", "")

	stats := s.Stats(ctx)
	require.Equal(t, 1, stats.Count)
	require.Equal(t, 3, stats.TotalSize)

	require.True(t, s.Delete(ctx, a.ID))
	require.False(t, s.Delete(ctx, a.ID))

	stats = s.Stats(ctx)
	require.Equal(t, 0, stats.Count)
}

func TestClearAll(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Save(ctx, []byte("a"), "cat", "")
	s.ClearAll(ctx)
	require.Empty(t, s.List(ctx, ""))
}
