// Package ghregistry stores backup artifacts as GitHub release assets.
// Each version maps to one release tag with a single zip asset; the
// payload checksum lives in the release body so a download can be
// verified without trusting the asset bytes.
package ghregistry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/maic-lab/ragcore/internal/archive"
	rcerrors "github.com/maic-lab/ragcore/internal/errors"
)

const (
	// AssetName is the single payload asset attached to each release.
	AssetName = "index.zip"

	// checksumPrefix tags the checksum line in the release body.
	checksumPrefix = "sha256:"

	// tagPrefix namespaces backup releases away from code releases that
	// may live in the same repository.
	tagPrefix = "index-backup-"

	// defaultTimeout bounds each API call when Options does not set one.
	defaultTimeout = 30 * time.Second

	// proactiveRate throttles below GitHub's secondary limits.
	proactiveRate = 1.2
)

// Options configures a Client.
type Options struct {
	Owner   string
	Repo    string
	Token   string
	Timeout time.Duration
}

// Client implements archive.Registry on GitHub releases.
type Client struct {
	gh      *gh.Client
	http    *http.Client
	owner   string
	repo    string
	limiter *rate.Limiter
}

// interface check
var _ archive.Registry = (*Client)(nil)

// New creates a registry client. The token comes from Options or, when
// empty, the RAGCORE_REGISTRY_TOKEN environment variable.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, rcerrors.InputError("registry owner and repo are required")
	}
	token := opts.Token
	if token == "" {
		token = os.Getenv("RAGCORE_REGISTRY_TOKEN")
	}
	if token == "" {
		return nil, rcerrors.New(rcerrors.ErrCodeConfigInvalid, "registry token is not configured", nil).
			WithSuggestion("set RAGCORE_REGISTRY_TOKEN or registry.token in the config file")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout

	return &Client{
		gh:      gh.NewClient(tc),
		http:    tc,
		owner:   opts.Owner,
		repo:    opts.Repo,
		limiter: rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}, nil
}

func tagFor(version string) string {
	return tagPrefix + version
}

func versionFor(tag string) (string, bool) {
	return strings.CutPrefix(tag, tagPrefix)
}

// Upload implements archive.Registry. Re-uploading a version replaces the
// existing asset, so a retried backup converges on the new payload.
func (c *Client) Upload(ctx context.Context, version string, payload []byte, checksum string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	release, err := c.ensureRelease(ctx, version, checksum)
	if err != nil {
		return err
	}

	for _, asset := range release.Assets {
		if asset.GetName() != AssetName {
			continue
		}
		if _, err := c.gh.Repositories.DeleteReleaseAsset(ctx, c.owner, c.repo, asset.GetID()); err != nil {
			return c.wrapError("delete stale asset", err)
		}
	}

	tmp, err := os.CreateTemp("", "ragcore-upload-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()
	if _, err := tmp.Write(payload); err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return err
	}

	uploadOpts := &gh.UploadOptions{Name: AssetName, MediaType: "application/zip"}
	if _, _, err := c.gh.Repositories.UploadReleaseAsset(ctx, c.owner, c.repo, release.GetID(), uploadOpts, tmp); err != nil {
		return c.wrapError("upload asset", err)
	}
	return nil
}

// ensureRelease finds or creates the release for a version and makes sure
// its body carries the current checksum.
func (c *Client) ensureRelease(ctx context.Context, version, checksum string) (*gh.RepositoryRelease, error) {
	tag := tagFor(version)
	body := checksumPrefix + checksum

	release, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, tag)
	switch {
	case err == nil:
		if release.GetBody() != body {
			release.Body = gh.Ptr(body)
			release, _, err = c.gh.Repositories.EditRelease(ctx, c.owner, c.repo, release.GetID(), release)
			if err != nil {
				return nil, c.wrapError("update release checksum", err)
			}
		}
		return release, nil
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		release, _, err = c.gh.Repositories.CreateRelease(ctx, c.owner, c.repo, &gh.RepositoryRelease{
			TagName: gh.Ptr(tag),
			Name:    gh.Ptr("Index backup " + version),
			Body:    gh.Ptr(body),
		})
		if err != nil {
			return nil, c.wrapError("create release", err)
		}
		return release, nil
	default:
		return nil, c.wrapError("get release", err)
	}
}

// Download implements archive.Registry.
func (c *Client) Download(ctx context.Context, version string) ([]byte, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	release, err := c.resolveRelease(ctx, version)
	if err != nil {
		return nil, "", err
	}

	var assetID int64
	for _, asset := range release.Assets {
		if asset.GetName() == AssetName {
			assetID = asset.GetID()
			break
		}
	}
	if assetID == 0 {
		return nil, "", rcerrors.New(rcerrors.ErrCodeCorruptArchive,
			fmt.Sprintf("release %s has no %s asset", release.GetTagName(), AssetName), nil)
	}

	rc, _, err := c.gh.Repositories.DownloadReleaseAsset(ctx, c.owner, c.repo, assetID, c.http)
	if err != nil {
		return nil, "", c.wrapError("download asset", err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", c.wrapError("read asset", err)
	}
	return payload, checksumFromBody(release.GetBody()), nil
}

// resolveRelease maps a version selector to a release, honoring Latest.
func (c *Client) resolveRelease(ctx context.Context, version string) (*gh.RepositoryRelease, error) {
	if version == archive.Latest {
		releases, err := c.listBackupReleases(ctx)
		if err != nil {
			return nil, err
		}
		if len(releases) == 0 {
			return nil, rcerrors.New(rcerrors.ErrCodeVersionNotFound, "no backups in registry", nil)
		}
		return releases[0], nil
	}

	release, resp, err := c.gh.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, tagFor(version))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, rcerrors.New(rcerrors.ErrCodeVersionNotFound, "version "+version+" not found", err)
		}
		return nil, c.wrapError("get release", err)
	}
	return release, nil
}

// listBackupReleases returns backup releases newest-first.
func (c *Client) listBackupReleases(ctx context.Context) ([]*gh.RepositoryRelease, error) {
	var all []*gh.RepositoryRelease
	opts := &gh.ListOptions{PerPage: 100}
	for {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, c.wrapError("list releases", err)
		}
		for _, r := range releases {
			if _, ok := versionFor(r.GetTagName()); ok {
				all = append(all, r)
			}
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// List implements archive.Registry. Artifacts come back oldest-first to
// match upload order.
func (c *Client) List(ctx context.Context) ([]archive.Artifact, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	releases, err := c.listBackupReleases(ctx)
	if err != nil {
		return nil, err
	}

	artifacts := make([]archive.Artifact, 0, len(releases))
	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		version, _ := versionFor(r.GetTagName())
		art := archive.Artifact{
			Version:   version,
			Checksum:  checksumFromBody(r.GetBody()),
			CreatedAt: r.GetCreatedAt().Time,
		}
		for _, asset := range r.Assets {
			if asset.GetName() == AssetName {
				art.Size = int64(asset.GetSize())
			}
		}
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// checksumFromBody extracts the sha256 line from a release body.
func checksumFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if sum, ok := strings.CutPrefix(line, checksumPrefix); ok {
			return sum
		}
	}
	return ""
}

// wrapError maps go-github failures onto the registry error taxonomy.
// Anything that is plausibly transient comes back retryable.
func (c *Client) wrapError(op string, err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return rcerrors.RegistryUnavailable(op+": rate limited until "+rateErr.Rate.Reset.Format(time.RFC3339), err)
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		code := ghErr.Response.StatusCode
		if code == http.StatusNotFound {
			return rcerrors.New(rcerrors.ErrCodeVersionNotFound, op+": not found", err)
		}
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			return rcerrors.New(rcerrors.ErrCodeConfigInvalid, op+": registry rejected credentials", err).
				WithSuggestion("check RAGCORE_REGISTRY_TOKEN permissions")
		}
	}
	return rcerrors.RegistryUnavailable(op+" failed", err)
}
