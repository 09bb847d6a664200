package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrokenFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.storage.AddImageFromBlob(ctx, pngBlob(t, gradient(10, 10)), "brand", GenerateOptions{Pattern: "known"})
	require.NoError(t, err)

	root := filepath.Join(env.root, "brand")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "stray"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray", "orphan.png"), pngBlob(t, gradient(7, 5)), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "junk.txt"), []byte("hello world"), 0o600))

	files, err := env.storage.ListBrokenFiles(ctx, "brand")
	require.NoError(t, err)
	require.Equal(t, []string{"junk.txt", "stray/orphan.png"}, files)

	fixed, err := env.storage.FixBrokenFiles(ctx, "brand")
	require.NoError(t, err)
	require.Equal(t, 1, fixed)

	files, err = env.storage.ListBrokenFiles(ctx, "brand")
	require.NoError(t, err)
	require.Equal(t, []string{"junk.txt"}, files)

	paths, err := env.store.ImageFilepaths(ctx, "brand")
	require.NoError(t, err)
	require.Contains(t, paths, "stray/orphan.png")

	deleted, err := env.storage.DeleteBrokenFiles(ctx, "brand")
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
	require.NoFileExists(t, filepath.Join(root, "junk.txt"))
	require.FileExists(t, filepath.Join(root, "known.png"))

	files, err = env.storage.ListBrokenFiles(ctx, "brand")
	require.NoError(t, err)
	require.Empty(t, files)

	_, err = env.storage.ListBrokenFiles(ctx, "unknown")
	require.ErrorIs(t, err, ErrDirNotFound)
}

func TestBrokenFilesOfMissingRoot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	files, err := env.storage.ListBrokenFiles(context.Background(), "picture")
	require.NoError(t, err)
	require.Empty(t, files)

	removed, err := env.storage.ClearEmptyDirs(context.Background(), "picture")
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestClearEmptyDirs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.storage.AddImageFromBlob(ctx, pngBlob(t, gradient(10, 10)), "brand", GenerateOptions{Pattern: "kept/file"})
	require.NoError(t, err)

	root := filepath.Join(env.root, "brand")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "kept", "empty"), 0o755))

	removed, err := env.storage.ClearEmptyDirs(ctx, "brand")
	require.NoError(t, err)
	require.Equal(t, 4, removed)

	require.NoDirExists(t, filepath.Join(root, "a"))
	require.NoDirExists(t, filepath.Join(root, "kept", "empty"))
	require.DirExists(t, filepath.Join(root, "kept"))
	require.DirExists(t, root)
}
