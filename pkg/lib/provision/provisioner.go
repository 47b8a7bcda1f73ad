// Package provision makes sure the server artifact and its runtime are
// present before a launch.
package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"

	"github.com/SanjoDeundiak/server-supervisor/pkg/lib"
	"github.com/SanjoDeundiak/server-supervisor/pkg/lib/logging"
)

const (
	DefaultMaxRedirects = 5
	DefaultTimeout      = 10 * time.Minute
)

// Artifact describes what has to exist locally before a launch.
type Artifact struct {
	Path        string
	DownloadURL string
	// Executable requests the execute bit on a freshly downloaded file.
	Executable bool
	// Runtime is the interpreter the artifact needs, empty for native binaries.
	Runtime string
}

// Reporter receives operator-facing progress lines.
type Reporter func(class lib.Classification, text string)

// Provisioner fetches missing artifacts over HTTP(S).
type Provisioner struct {
	client       *http.Client
	maxRedirects int
	logger       *slog.Logger
	lookPath     func(string) (string, error)
}

type Option func(*Provisioner)

// WithHTTPClient replaces the HTTP client. Its CheckRedirect is overwritten
// to enforce the redirect bound.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provisioner) {
		clone := *client
		p.client = &clone
	}
}

func WithMaxRedirects(n int) Option {
	return func(p *Provisioner) {
		p.maxRedirects = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Provisioner) {
		p.client.Timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// WithLookPath replaces exec.LookPath for the runtime check.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(p *Provisioner) {
		p.lookPath = lookPath
	}
}

func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRedirects: DefaultMaxRedirects,
		logger:       logging.Discard(),
		lookPath:     exec.LookPath,
	}
	for _, opt := range opts {
		opt(p)
	}

	maxRedirects := p.maxRedirects
	p.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return p
}

// CheckRuntime verifies the interpreter is installed. It touches nothing.
func (p *Provisioner) CheckRuntime(artifact Artifact) error {
	if artifact.Runtime == "" {
		return nil
	}
	if _, err := p.lookPath(artifact.Runtime); err != nil {
		return &lib.PrerequisiteError{What: "runtime", Detail: fmt.Sprintf("%s not found: %v", artifact.Runtime, err)}
	}
	return nil
}

// EnsureArtifact returns immediately when the artifact exists. Otherwise it
// downloads it from artifact.DownloadURL. The file only appears at its final
// path once the download completed, so a failure never leaves a partial file.
func (p *Provisioner) EnsureArtifact(ctx context.Context, artifact Artifact, report Reporter) error {
	if report == nil {
		report = func(lib.Classification, string) {}
	}

	if _, err := os.Stat(artifact.Path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &lib.PrerequisiteError{What: "artifact", Detail: err.Error()}
	}

	if artifact.DownloadURL == "" {
		return &lib.PrerequisiteError{
			What:   "artifact",
			Detail: fmt.Sprintf("%s does not exist and no download source is configured", artifact.Path),
		}
	}

	report(lib.ClassSystem, fmt.Sprintf("Artifact %s not found, downloading from %s", filepath.Base(artifact.Path), artifact.DownloadURL))
	p.logger.Info("downloading artifact", "url", artifact.DownloadURL, "path", artifact.Path)

	size, err := p.download(ctx, artifact)
	if err != nil {
		p.logger.Error("artifact download failed", "url", artifact.DownloadURL, "error", err)
		return err
	}

	p.logger.Info("artifact downloaded", "path", artifact.Path, "bytes", size)
	report(lib.ClassSuccess, fmt.Sprintf("Download complete (%s)", humanize.IBytes(uint64(size))))

	return nil
}

func (p *Provisioner) download(ctx context.Context, artifact Artifact) (int64, error) {
	downloadErr := func(status int, err error) error {
		return &lib.DownloadError{URL: artifact.DownloadURL, StatusCode: status, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifact.DownloadURL, nil)
	if err != nil {
		return 0, downloadErr(0, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, downloadErr(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, downloadErr(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	if dir := filepath.Dir(artifact.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, downloadErr(0, err)
		}
	}

	pending, err := renameio.TempFile("", artifact.Path)
	if err != nil {
		return 0, downloadErr(0, err)
	}
	defer pending.Cleanup()

	size, err := io.Copy(pending, resp.Body)
	if err != nil {
		return 0, downloadErr(0, err)
	}

	perm := os.FileMode(0o644)
	if artifact.Executable {
		perm = 0o755
	}
	if err := pending.Chmod(perm); err != nil {
		return 0, downloadErr(0, err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, downloadErr(0, err)
	}

	return size, nil
}
