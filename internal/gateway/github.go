package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/okabe-dev/repo-activity/internal/domain"
)

// Strategy selects how the API gateway lists records.
type Strategy string

const (
	// StrategySearch drives the GraphQL search endpoint with the same
	// qualifiers the gh source uses. One request per page of results, but
	// the platform stops serving past the first thousand matches.
	StrategySearch Strategy = "search"

	// StrategyList walks the full REST pulls and issues listings with
	// state=all and leaves all filtering to the caller. Heavier, but it
	// has no result ceiling, so it serves wide windows on big
	// repositories where search truncates.
	StrategyList Strategy = "list"
)

// ParseStrategy validates a strategy name from a flag.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySearch, StrategyList:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q, want search or list", s)
}

// searchResultCeiling is the hard cap of the search API: past the first
// thousand matches it serves nothing, whatever the page cursor says.
const searchResultCeiling = 1000

// listPageConcurrency caps the parallel page fetches of the list strategy,
// keeping a big repository walk under the secondary rate limits.
const listPageConcurrency = 4

// Gateway is the direct-API source. One authenticated http.Client feeds
// both a REST client (full listings) and a GraphQL client (search).
type Gateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	strategy      Strategy
	limit         int
	logger        logrus.FieldLogger

	// listings deduplicates the full REST walks: the two PR categories
	// run concurrently and share one pulls listing, the two issue
	// categories one issues listing.
	listings singleflight.Group
}

// Config carries the gateway's construction parameters.
type Config struct {
	// Token authenticates every request.
	Token string
	// APIAddress points at a GitHub Enterprise REST base URL. Empty means
	// github.com.
	APIAddress string
	// Strategy picks the fetch strategy, StrategySearch when empty.
	Strategy Strategy
	// Limit caps search results per category, DefaultLimit when
	// non-positive. The list strategy ignores it.
	Limit int
}

// NewGateway wires the REST and GraphQL clients over a shared transport
// that injects the token and sleeps through secondary rate limits.
func NewGateway(cfg Config, logger logrus.FieldLogger) (*Gateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if cfg.APIAddress != "" {
		restClient, err = restClient.WithEnterpriseURLs(cfg.APIAddress, cfg.APIAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to apply enterprise API address: %w", err)
		}
		graphqlClient = githubv4.NewEnterpriseClient(graphqlEndpoint(cfg.APIAddress), httpClient)
	}

	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategySearch
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Gateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		strategy:      strategy,
		limit:         limit,
		logger:        logger,
	}, nil
}

// graphqlEndpoint derives the GraphQL endpoint from an enterprise REST
// address, following the host layout gh assumes: api/v3 for REST sits
// beside api/graphql.
func graphqlEndpoint(apiAddress string) string {
	trimmed := strings.TrimSuffix(apiAddress, "/")
	if strings.HasSuffix(trimmed, "/api/v3") {
		return strings.TrimSuffix(trimmed, "/v3") + "/graphql"
	}
	return trimmed + "/graphql"
}

// Fetch lists the category's candidate records with the configured
// strategy.
func (g *Gateway) Fetch(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error) {
	if g.strategy == StrategyList {
		return g.list(ctx, repo, category)
	}
	return g.search(ctx, repo, category, window)
}

// searchPRNode and searchIssueNode mirror the fields the report needs from
// the two record types behind the search connection.
type searchPRNode struct {
	Number            int
	Title             string
	URL               string
	Author            struct{ Login string }
	AuthorAssociation string
	CreatedAt         githubv4.DateTime
	ClosedAt          *githubv4.DateTime
	MergedAt          *githubv4.DateTime
}

type searchIssueNode struct {
	Number            int
	Title             string
	URL               string
	Author            struct{ Login string }
	AuthorAssociation string
	CreatedAt         githubv4.DateTime
	ClosedAt          *githubv4.DateTime
}

// activitySearchQuery pages through a search, pulling both record types
// out of the shared connection.
type activitySearchQuery struct {
	Search struct {
		IssueCount int
		PageInfo   struct {
			HasNextPage bool
			EndCursor   githubv4.String
		}
		Edges []struct {
			Node struct {
				Typename    string          `graphql:"__typename"`
				PullRequest searchPRNode    `graphql:"... on PullRequest"`
				Issue       searchIssueNode `graphql:"... on Issue"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 100, after: $cursor)"`
}

func (g *Gateway) search(ctx context.Context, repo domain.Repo, category domain.Category, window domain.TimeWindow) ([]domain.ActivityRecord, error) {
	query := category.SearchQuery(repo, window)
	g.logger.WithField("query", query).Debug("running GraphQL search")

	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}

	var records []domain.ActivityRecord
	firstPage := true
	for {
		var q activitySearchQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query %q: %w", query, err)
		}
		if firstPage && q.Search.IssueCount > searchResultCeiling {
			g.logger.WithFields(logrus.Fields{
				"query":   query,
				"matches": q.Search.IssueCount,
			}).Warn("matches exceed the search result ceiling, counts will be truncated")
		}
		firstPage = false

		for _, edge := range q.Search.Edges {
			switch edge.Node.Typename {
			case "PullRequest":
				records = append(records, prNodeRecord(edge.Node.PullRequest))
			case "Issue":
				records = append(records, issueNodeRecord(edge.Node.Issue))
			}
		}

		if len(records) >= g.limit {
			records = records[:g.limit]
			break
		}
		if !q.Search.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Search.PageInfo.EndCursor)
	}
	return records, nil
}

func prNodeRecord(n searchPRNode) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind:        domain.KindPR,
		Number:      n.Number,
		Title:       n.Title,
		Author:      n.Author.Login,
		Association: domain.Association(n.AuthorAssociation),
		CreatedAt:   n.CreatedAt.Time,
		ClosedAt:    datetimePtr(n.ClosedAt),
		MergedAt:    datetimePtr(n.MergedAt),
		URL:         n.URL,
	}
}

func issueNodeRecord(n searchIssueNode) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind:        domain.KindIssue,
		Number:      n.Number,
		Title:       n.Title,
		Author:      n.Author.Login,
		Association: domain.Association(n.AuthorAssociation),
		CreatedAt:   n.CreatedAt.Time,
		ClosedAt:    datetimePtr(n.ClosedAt),
		URL:         n.URL,
	}
}

func datetimePtr(dt *githubv4.DateTime) *time.Time {
	if dt == nil || dt.Time.IsZero() {
		return nil
	}
	t := dt.Time
	return &t
}

func (g *Gateway) list(ctx context.Context, repo domain.Repo, category domain.Category) ([]domain.ActivityRecord, error) {
	if category.Kind() == domain.KindPR {
		prs, err := g.listPRs(ctx, repo)
		if err != nil {
			return nil, err
		}
		records := make([]domain.ActivityRecord, 0, len(prs))
		for _, pr := range prs {
			records = append(records, prRecord(pr))
		}
		return records, nil
	}

	issues, err := g.listIssues(ctx, repo)
	if err != nil {
		return nil, err
	}
	records := make([]domain.ActivityRecord, 0, len(issues))
	for _, issue := range issues {
		// The REST issues listing includes pull requests; those are
		// already served by the pulls listing.
		if issue.IsPullRequest() {
			continue
		}
		records = append(records, issueRecord(issue))
	}
	return records, nil
}

func (g *Gateway) listPRs(ctx context.Context, repo domain.Repo) ([]*github.PullRequest, error) {
	v, err, _ := g.listings.Do("pulls:"+repo.String(), func() (interface{}, error) {
		return g.fetchAllPRs(ctx, repo)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*github.PullRequest), nil
}

func (g *Gateway) listIssues(ctx context.Context, repo domain.Repo) ([]*github.Issue, error) {
	v, err, _ := g.listings.Do("issues:"+repo.String(), func() (interface{}, error) {
		return g.fetchAllIssues(ctx, repo)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*github.Issue), nil
}

func (g *Gateway) fetchAllPRs(ctx context.Context, repo domain.Repo) ([]*github.PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	firstPage, resp, err := g.restClient.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests with REST API: %w", err)
	}
	if resp.LastPage <= 1 {
		return firstPage, nil
	}

	// The Link header names the last page, so the remaining pages can be
	// fetched concurrently and stitched back in order.
	g.logger.WithField("pages", resp.LastPage).Debug("fetching remaining pull request pages")
	pages := make([][]*github.PullRequest, resp.LastPage+1)
	pages[1] = firstPage
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(listPageConcurrency)
	for page := 2; page <= resp.LastPage; page++ {
		eg.Go(func() error {
			pageOpts := *opts
			pageOpts.Page = page
			prs, _, err := g.restClient.PullRequests.List(egCtx, repo.Owner, repo.Name, &pageOpts)
			if err != nil {
				return fmt.Errorf("failed to list pull requests page %d: %w", page, err)
			}
			pages[page] = prs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*github.PullRequest
	for _, page := range pages {
		all = append(all, page...)
	}
	return all, nil
}

func (g *Gateway) fetchAllIssues(ctx context.Context, repo domain.Repo) ([]*github.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	firstPage, resp, err := g.restClient.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues with REST API: %w", err)
	}
	if resp.LastPage <= 1 {
		return firstPage, nil
	}

	g.logger.WithField("pages", resp.LastPage).Debug("fetching remaining issue pages")
	pages := make([][]*github.Issue, resp.LastPage+1)
	pages[1] = firstPage
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(listPageConcurrency)
	for page := 2; page <= resp.LastPage; page++ {
		eg.Go(func() error {
			pageOpts := *opts
			pageOpts.Page = page
			issues, _, err := g.restClient.Issues.ListByRepo(egCtx, repo.Owner, repo.Name, &pageOpts)
			if err != nil {
				return fmt.Errorf("failed to list issues page %d: %w", page, err)
			}
			pages[page] = issues
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*github.Issue
	for _, page := range pages {
		all = append(all, page...)
	}
	return all, nil
}

func prRecord(pr *github.PullRequest) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind:        domain.KindPR,
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Author:      pr.GetUser().GetLogin(),
		Association: domain.Association(pr.GetAuthorAssociation()),
		CreatedAt:   pr.GetCreatedAt().Time,
		ClosedAt:    timestampPtr(pr.ClosedAt),
		MergedAt:    timestampPtr(pr.MergedAt),
		URL:         pr.GetHTMLURL(),
	}
}

func issueRecord(issue *github.Issue) domain.ActivityRecord {
	return domain.ActivityRecord{
		Kind:        domain.KindIssue,
		Number:      issue.GetNumber(),
		Title:       issue.GetTitle(),
		Author:      issue.GetUser().GetLogin(),
		Association: domain.Association(issue.GetAuthorAssociation()),
		CreatedAt:   issue.GetCreatedAt().Time,
		ClosedAt:    timestampPtr(issue.ClosedAt),
		URL:         issue.GetHTMLURL(),
	}
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
