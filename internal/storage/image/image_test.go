package image

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jgivc/emojifetch/internal/common"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("connection reset")
	}
	r.done = true

	return copy(p, r.data), nil
}

func newTestStorage(t *testing.T, fs afero.Fs, dir string) *imageStorage {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	return NewImageStorageWithFS(fs, dir, log)
}

func TestEnsureDir(t *testing.T) {
	testCases := []struct {
		name        string
		prepare     func(fs afero.Fs)
		expectError error
	}{
		{
			name: "creates missing parents",
		},
		{
			name: "existing dir",
			prepare: func(fs afero.Fs) {
				fs.MkdirAll("/out/emoji_images", 0755)
			},
		},
		{
			name: "path is a file",
			prepare: func(fs afero.Fs) {
				fs.MkdirAll("/out", 0755)
				afero.WriteFile(fs, "/out/emoji_images", []byte("x"), 0644)
			},
			expectError: common.ErrNotADirectory,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tc.prepare != nil {
				tc.prepare(fs)
			}

			s := newTestStorage(t, fs, "/out/emoji_images")
			err := s.EnsureDir()
			if tc.expectError != nil {
				require.ErrorIs(t, err, tc.expectError)

				return
			}

			require.NoError(t, err)

			ok, err := afero.IsDir(fs, "/out/emoji_images")
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStorage(t, fs, "/images")
	require.NoError(t, s.EnsureDir())

	ok, err := s.Exists("smile.png")
	require.NoError(t, err)
	require.False(t, ok)

	n, err := s.Write("smile.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.EqualValues(t, 9, n)

	ok, err = s.Exists("smile.png")
	require.NoError(t, err)
	require.True(t, ok)

	content, err := afero.ReadFile(fs, "/images/smile.png")
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(content))

	_, err = s.Write("smile.png", strings.NewReader("other"))
	require.Error(t, err)

	content, err = afero.ReadFile(fs, "/images/smile.png")
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(content))
}

func TestWriteRemovesPartialFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStorage(t, fs, "/images")
	require.NoError(t, s.EnsureDir())

	_, err := s.Write("broken.png", &failingReader{data: "half"})
	require.Error(t, err)

	ok, err := s.Exists("broken.png")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidFileName(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := newTestStorage(t, fs, "/images")
	require.NoError(t, s.EnsureDir())

	for _, name := range []string{"", "..", "../escape.png", "sub/dir.png"} {
		_, err := s.Exists(name)
		require.ErrorIs(t, err, common.ErrInvalidFileName, name)

		_, err = s.Write(name, strings.NewReader("x"))
		require.ErrorIs(t, err, common.ErrInvalidFileName, name)
	}

	ok, err := afero.Exists(fs, "/escape.png")
	require.NoError(t, err)
	require.False(t, ok)
}
