package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
)

type reported struct {
	class lib.Classification
	text  string
}

func recorder() (*[]reported, Reporter) {
	var lines []reported
	return &lines, func(class lib.Classification, text string) {
		lines = append(lines, reported{class, text})
	}
}

func TestEnsureArtifact_ExistingFileIsUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.jar")
	require.NoError(t, os.WriteFile(path, []byte("jar"), 0o600))

	lines, report := recorder()
	err := New().EnsureArtifact(context.Background(), Artifact{Path: path, DownloadURL: "http://unused.invalid"}, report)
	require.NoError(t, err)
	assert.Empty(t, *lines)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jar", string(data))
}

func TestEnsureArtifact_MissingWithoutSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.jar")

	err := New().EnsureArtifact(context.Background(), Artifact{Path: path}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lib.ErrPrerequisiteMissing))
}

func TestEnsureArtifact_DownloadsFollowingRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/server", http.StatusFound)
	})
	mux.HandleFunc("/v1/server", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#!/bin/sh\necho Done\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "bin", "server")
	lines, report := recorder()

	err := New().EnsureArtifact(context.Background(), Artifact{
		Path:        path,
		DownloadURL: srv.URL + "/latest",
		Executable:  true,
	}, report)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.Len(t, *lines, 2)
	assert.Equal(t, lib.ClassSystem, (*lines)[0].class)
	assert.Equal(t, lib.ClassSuccess, (*lines)[1].class)
	assert.Contains(t, (*lines)[1].text, "Download complete")
}

func TestEnsureArtifact_TooManyRedirects(t *testing.T) {
	hops := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop%d", hops), http.StatusFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "server.jar")
	err := New(WithMaxRedirects(2)).EnsureArtifact(context.Background(), Artifact{Path: path, DownloadURL: srv.URL}, nil)

	var dlErr *lib.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Zero(t, dlErr.StatusCode)
	assert.Equal(t, 3, hops)
	assert.NoFileExists(t, path)
}

func TestEnsureArtifact_BadStatusLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.jar")
	err := New().EnsureArtifact(context.Background(), Artifact{Path: path, DownloadURL: srv.URL}, nil)

	var dlErr *lib.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, http.StatusNotFound, dlErr.StatusCode)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temporary file may remain")
}

func TestEnsureArtifact_TruncatedBodyLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "short")
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "server.jar")
	err := New().EnsureArtifact(context.Background(), Artifact{Path: path, DownloadURL: srv.URL}, nil)

	var dlErr *lib.DownloadError
	require.True(t, errors.As(err, &dlErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckRuntime(t *testing.T) {
	p := New(WithLookPath(func(name string) (string, error) {
		if name == "java" {
			return "/usr/bin/java", nil
		}
		return "", errors.New("not found")
	}))

	assert.NoError(t, p.CheckRuntime(Artifact{Runtime: "java"}))
	assert.NoError(t, p.CheckRuntime(Artifact{}))

	err := p.CheckRuntime(Artifact{Runtime: "java17"})
	assert.True(t, errors.Is(err, lib.ErrPrerequisiteMissing))
}
