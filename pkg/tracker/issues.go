package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"kanbansync/pkg/protocol"
)

// Client reads and writes the issues of one repository.
type Client struct {
	runner Runner
	owner  string
	repo   string
	logger *slog.Logger

	milestones map[string]int
}

// NewClient returns a Client for owner/repo.
func NewClient(runner Runner, owner, repo string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{runner: runner, owner: owner, repo: repo, logger: logger}
}

// ghIssue mirrors the REST issue payload.
type ghIssue struct {
	Number      int              `json:"number"`
	NodeID      string           `json:"node_id"`
	Title       string           `json:"title"`
	Body        *string          `json:"body"`
	State       string           `json:"state"`
	Labels      []ghLabel        `json:"labels"`
	Milestone   *ghMilestone     `json:"milestone"`
	HTMLURL     string           `json:"html_url"`
	ClosedAt    *string          `json:"closed_at"`
	UpdatedAt   string           `json:"updated_at"`
	PullRequest *json.RawMessage `json:"pull_request,omitempty"`
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghMilestone struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

func (g *ghIssue) toIssue() protocol.Issue {
	issue := protocol.Issue{
		Number:    g.Number,
		NodeID:    g.NodeID,
		Title:     g.Title,
		State:     g.State,
		URL:       g.HTMLURL,
		UpdatedAt: g.UpdatedAt,
		Labels:    make([]string, 0, len(g.Labels)),
	}
	if g.Body != nil {
		issue.Body = *g.Body
	}
	if g.ClosedAt != nil {
		issue.ClosedAt = *g.ClosedAt
	}
	if g.Milestone != nil {
		issue.Milestone = g.Milestone.Title
	}
	for _, l := range g.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	return issue
}

func (c *Client) path(suffix string) string {
	return fmt.Sprintf("repos/%s/%s/%s", c.owner, c.repo, suffix)
}

// ListIssues returns every issue of the repository, open and closed,
// following pagination. Pull requests are excluded.
func (c *Client) ListIssues(ctx context.Context) ([]protocol.Issue, error) {
	out, err := c.runner.Run(ctx, nil, "api", "--paginate",
		c.path("issues?state=all&per_page=100"), "--jq", ".[]")
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	var issues []protocol.Issue
	err = decodeStream(out, func(g *ghIssue) {
		if g.PullRequest != nil {
			return
		}
		issues = append(issues, g.toIssue())
	})
	if err != nil {
		return nil, fmt.Errorf("parse issue list: %w", err)
	}
	c.logger.Debug("listed issues", "count", len(issues))
	return issues, nil
}

// CreateIssue creates an issue. An unknown milestone title is dropped with a warning.
func (c *Client) CreateIssue(ctx context.Context, in protocol.IssueInput) (*protocol.Issue, error) {
	payload := map[string]any{"title": in.Title, "body": in.Body}
	if in.Labels != nil {
		payload["labels"] = in.Labels
	}
	if in.Milestone != "" {
		n, err := c.milestoneNumber(ctx, in.Milestone)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			payload["milestone"] = n
		}
	}

	issue, err := c.send(ctx, "POST", c.path("issues"), payload)
	if err != nil {
		return nil, fmt.Errorf("create issue %q: %w", in.Title, err)
	}
	return issue, nil
}

// UpdateIssue applies patch to an issue. Nil fields are left unchanged on
// the remote; an empty label list clears the labels and an empty milestone
// removes it.
func (c *Client) UpdateIssue(ctx context.Context, number int, patch protocol.IssuePatch) (*protocol.Issue, error) {
	payload := map[string]any{}
	if patch.Title != nil {
		payload["title"] = *patch.Title
	}
	if patch.Body != nil {
		payload["body"] = *patch.Body
	}
	if patch.State != nil {
		payload["state"] = *patch.State
	}
	if patch.Labels != nil {
		labels := *patch.Labels
		if labels == nil {
			labels = []string{}
		}
		payload["labels"] = labels
	}
	if patch.Milestone != nil {
		if *patch.Milestone == "" {
			payload["milestone"] = nil
		} else {
			n, err := c.milestoneNumber(ctx, *patch.Milestone)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				payload["milestone"] = n
			}
		}
	}

	issue, err := c.send(ctx, "PATCH", c.path("issues/"+strconv.Itoa(number)), payload)
	if err != nil {
		return nil, fmt.Errorf("update issue #%d: %w", number, err)
	}
	return issue, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload map[string]any) (*protocol.Issue, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	out, err := c.runner.Run(ctx, body, "api", "-X", method, path, "--input", "-")
	if err != nil {
		return nil, err
	}
	var g ghIssue
	if err := json.Unmarshal(out, &g); err != nil {
		return nil, fmt.Errorf("parse issue: %w", err)
	}
	issue := g.toIssue()
	return &issue, nil
}

// milestoneNumber resolves a milestone title, loading the repository's
// milestones once per Client. It returns 0 for unknown titles.
func (c *Client) milestoneNumber(ctx context.Context, title string) (int, error) {
	if c.milestones == nil {
		out, err := c.runner.Run(ctx, nil, "api", "--paginate",
			c.path("milestones?state=all&per_page=100"), "--jq", ".[]")
		if err != nil {
			return 0, fmt.Errorf("list milestones: %w", err)
		}
		c.milestones = map[string]int{}
		err = decodeStream(out, func(m *ghMilestone) { c.milestones[m.Title] = m.Number })
		if err != nil {
			return 0, fmt.Errorf("parse milestones: %w", err)
		}
	}
	n, ok := c.milestones[title]
	if !ok {
		c.logger.Warn("milestone not found on remote, leaving it unset", "milestone", title)
	}
	return n, nil
}

// decodeStream decodes a sequence of concatenated JSON values, as printed by
// gh --jq '.[]'.
func decodeStream[T any](data []byte, fn func(*T)) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var v T
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fn(&v)
	}
}
