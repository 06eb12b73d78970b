package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dfryer1193/blogsync/blog/domain"
	"github.com/google/go-github/v75/github"
	"golang.org/x/time/rate"
)

var _ domain.SourceRepository = (*GithubSourceRepository)(nil)

// GithubSourceRepository is an implementation of domain.SourceRepository that uses the GitHub API.
type GithubSourceRepository struct {
	client  *github.Client
	owner   string
	gitRepo string
	ref     string
	limiter *rate.Limiter
}

// Option configures a GithubSourceRepository.
type Option func(*GithubSourceRepository)

// WithRef reads files at ref (branch, tag, or commit SHA) instead of the default branch.
func WithRef(ref string) Option {
	return func(g *GithubSourceRepository) {
		g.ref = ref
	}
}

// WithRateLimit caps API calls at perSecond. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(g *GithubSourceRepository) {
		if perSecond <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewGithubSourceRepository creates a new GithubSourceRepository.
func NewGithubSourceRepository(client *github.Client, owner string, gitRepo string, opts ...Option) *GithubSourceRepository {
	g := &GithubSourceRepository{
		client:  client,
		owner:   owner,
		gitRepo: gitRepo,
		limiter: rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewClient returns a go-github client authenticated with token.
func NewClient(token string) *github.Client {
	return github.NewClient(nil).WithAuthToken(token)
}

// ListFiles lists the file entries directly under dir.
func (g *GithubSourceRepository) ListFiles(ctx context.Context, dir string) ([]string, error) {
	op := fmt.Sprintf("listing directory %s", dir)
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	_, entries, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, dir, g.contentOptions())
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.GetType() != "file" {
			continue
		}
		paths = append(paths, entry.GetPath())
	}
	return paths, nil
}

// GetFileContents fetches the contents of a file.
func (g *GithubSourceRepository) GetFileContents(ctx context.Context, path string) ([]byte, error) {
	op := fmt.Sprintf("getting file %s", path)
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.gitRepo, path, g.contentOptions())
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	if fileContent == nil {
		return nil, &domain.FetchError{Op: "github: " + op, Err: errors.New("path is not a file")}
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, &domain.FetchError{Op: "github: " + op, Err: fmt.Errorf("failed to decode content: %w", err)}
	}

	return []byte(content), nil
}

// GetFileCommitDates returns the committer dates of the latest commits touching path.
func (g *GithubSourceRepository) GetFileCommitDates(ctx context.Context, path string, limit int) ([]time.Time, error) {
	op := fmt.Sprintf("listing commits for %s", path)
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, g.gitRepo, &github.CommitsListOptions{
		SHA:         g.ref,
		Path:        path,
		ListOptions: github.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, handleGithubError(op, err)
	}

	dates := make([]time.Time, 0, len(commits))
	for _, c := range commits {
		dates = append(dates, c.GetCommit().GetCommitter().GetDate().Time)
	}
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

// GetRepoFullName returns the repository's full name (e.g., "owner/repo").
func (g *GithubSourceRepository) GetRepoFullName() string {
	return fmt.Sprintf("%s/%s", g.owner, g.gitRepo)
}

func (g *GithubSourceRepository) contentOptions() *github.RepositoryContentGetOptions {
	if g.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: g.ref}
}

// handleGithubError converts an error from the go-github client into a *domain.FetchError
// carrying the response status.
func handleGithubError(op string, err error) error {
	if err == nil {
		return nil
	}

	fetchErr := &domain.FetchError{Op: "github: " + op, Err: err}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		fetchErr.StatusCode = errResp.Response.StatusCode
		fetchErr.Err = errors.New(errResp.Message)
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		fetchErr.StatusCode = rateErr.Response.StatusCode
	}

	if fetchErr.StatusCode == 0 {
		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &abuseErr) {
			fetchErr.StatusCode = http.StatusForbidden
		}
	}

	return fetchErr
}
