package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"kanbansync/pkg/protocol"
)

// ProjectFields identifies a Projects v2 board and its fields.
type ProjectFields struct {
	ProjectID        string
	StatusFieldID    string
	StartFieldID     string
	DueFieldID       string
	CompletedFieldID string
}

func (f ProjectFields) dateField(id string) (protocol.DateField, bool) {
	switch {
	case id == "":
		return "", false
	case id == f.StartFieldID:
		return protocol.DateStart, true
	case id == f.DueFieldID:
		return protocol.DateDue, true
	case id == f.CompletedFieldID:
		return protocol.DateCompleted, true
	default:
		return "", false
	}
}

func (f ProjectFields) fieldID(d protocol.DateField) string {
	switch d {
	case protocol.DateStart:
		return f.StartFieldID
	case protocol.DateDue:
		return f.DueFieldID
	case protocol.DateCompleted:
		return f.CompletedFieldID
	default:
		return ""
	}
}

// Project reads and writes board items of one repository's issues. The
// item scan is cached until the next mutation.
type Project struct {
	runner Runner
	owner  string
	repo   string
	fields ProjectFields
	logger *slog.Logger

	mu     sync.Mutex
	cached []boardItem
}

// NewProject returns a Project client.
func NewProject(runner Runner, owner, repo string, fields ProjectFields, logger *slog.Logger) *Project {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Project{runner: runner, owner: owner, repo: repo, fields: fields, logger: logger}
}

const itemsQuery = `query($projectId: ID!, $cursor: String) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: 100, after: $cursor) {
        pageInfo { hasNextPage endCursor }
        nodes {
          id
          content {
            ... on Issue {
              number
              repository { name owner { login } }
            }
          }
          fieldValues(first: 50) {
            nodes {
              ... on ProjectV2ItemFieldSingleSelectValue {
                name
                field { ... on ProjectV2SingleSelectField { id } }
              }
              ... on ProjectV2ItemFieldDateValue {
                date
                field { ... on ProjectV2Field { id } }
              }
            }
          }
        }
      }
    }
  }
}`

const fieldsQuery = `query($projectId: ID!) {
  node(id: $projectId) {
    ... on ProjectV2 {
      fields(first: 50) {
        nodes {
          ... on ProjectV2SingleSelectField { id name options { id name } }
        }
      }
    }
  }
}`

const addItemMutation = `mutation($projectId: ID!, $contentId: ID!) {
  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) { item { id } }
}`

const setStatusMutation = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $optionId: String!) {
  updateProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId,
    value: {singleSelectOptionId: $optionId}}) { projectV2Item { id } }
}`

const setDateMutation = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $date: Date!) {
  updateProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId,
    value: {date: $date}}) { projectV2Item { id } }
}`

const clearFieldMutation = `mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!) {
  clearProjectV2ItemFieldValue(input: {projectId: $projectId, itemId: $itemId, fieldId: $fieldId}) {
    projectV2Item { id }
  }
}`

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse[T any] struct {
	Data   T          `json:"data"`
	Errors []gqlError `json:"errors"`
}

type fieldRef struct {
	ID string `json:"id"`
}

type itemsData struct {
	Node struct {
		Items struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				ID      string `json:"id"`
				Content *struct {
					Number     int `json:"number"`
					Repository struct {
						Name  string `json:"name"`
						Owner struct {
							Login string `json:"login"`
						} `json:"owner"`
					} `json:"repository"`
				} `json:"content"`
				FieldValues struct {
					Nodes []struct {
						Name  *string   `json:"name"`
						Date  *string   `json:"date"`
						Field *fieldRef `json:"field"`
					} `json:"nodes"`
				} `json:"fieldValues"`
			} `json:"nodes"`
		} `json:"items"`
	} `json:"node"`
}

type fieldsData struct {
	Node struct {
		Fields struct {
			Nodes []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Options []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"options"`
			} `json:"nodes"`
		} `json:"fields"`
	} `json:"node"`
}

type addItemData struct {
	AddProjectV2ItemByID struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	} `json:"addProjectV2ItemById"`
}

// graphql posts a query through gh api graphql and decodes data into T.
func graphql[T any](ctx context.Context, r Runner, query string, vars map[string]any) (T, error) {
	var zero T
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return zero, fmt.Errorf("marshal graphql request: %w", err)
	}
	out, err := r.Run(ctx, payload, "api", "graphql", "--input", "-")
	if err != nil {
		return zero, err
	}
	var resp gqlResponse[T]
	if err := json.Unmarshal(out, &resp); err != nil {
		return zero, fmt.Errorf("parse graphql response: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return zero, errors.New("graphql: " + strings.Join(msgs, "; "))
	}
	return resp.Data, nil
}

type boardItem struct {
	protocol.BoardStatus
	dates protocol.BoardDates
}

// items returns the board items of this repository, scanning the board on
// first use and after a mutation.
func (p *Project) items(ctx context.Context) ([]boardItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return p.cached, nil
	}
	items, err := p.scanItems(ctx)
	if err != nil {
		return nil, err
	}
	p.cached = items
	return items, nil
}

func (p *Project) forget() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

// scanItems lists every board item that belongs to an issue of this
// repository, following pagination.
func (p *Project) scanItems(ctx context.Context) ([]boardItem, error) {
	out := []boardItem{}
	var cursor *string
	for {
		data, err := graphql[itemsData](ctx, p.runner, itemsQuery,
			map[string]any{"projectId": p.fields.ProjectID, "cursor": cursor})
		if err != nil {
			return nil, fmt.Errorf("list board items: %w", err)
		}
		items := data.Node.Items
		for _, n := range items.Nodes {
			c := n.Content
			if c == nil || c.Number == 0 || c.Repository.Name != p.repo || c.Repository.Owner.Login != p.owner {
				continue
			}
			it := boardItem{
				BoardStatus: protocol.BoardStatus{IssueNumber: c.Number, ItemID: n.ID},
				dates:       protocol.BoardDates{IssueNumber: c.Number, ItemID: n.ID},
			}
			for _, fv := range n.FieldValues.Nodes {
				if fv.Field == nil {
					continue
				}
				if fv.Name != nil && fv.Field.ID == p.fields.StatusFieldID && p.fields.StatusFieldID != "" {
					it.StatusName = *fv.Name
				}
				if fv.Date == nil {
					continue
				}
				switch f, _ := p.fields.dateField(fv.Field.ID); f {
				case protocol.DateStart:
					it.dates.Start = *fv.Date
				case protocol.DateDue:
					it.dates.Due = *fv.Date
				case protocol.DateCompleted:
					it.dates.Completed = *fv.Date
				}
			}
			out = append(out, it)
		}
		if !items.PageInfo.HasNextPage || items.PageInfo.EndCursor == "" {
			break
		}
		next := items.PageInfo.EndCursor
		cursor = &next
	}
	p.logger.Debug("listed board items", "count", len(out))
	return out, nil
}

// BoardStatuses returns one entry per board item of this repository.
// StatusName is empty for items without a status value.
func (p *Project) BoardStatuses(ctx context.Context) ([]protocol.BoardStatus, error) {
	items, err := p.items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.BoardStatus, 0, len(items))
	for _, it := range items {
		out = append(out, it.BoardStatus)
	}
	return out, nil
}

// BoardDates returns the configured date field values per board item.
func (p *Project) BoardDates(ctx context.Context) ([]protocol.BoardDates, error) {
	items, err := p.items(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.BoardDates, 0, len(items))
	for _, it := range items {
		out = append(out, it.dates)
	}
	return out, nil
}

// StatusOptionIDs maps status option names of the status field to option ids.
func (p *Project) StatusOptionIDs(ctx context.Context) (map[string]string, error) {
	data, err := graphql[fieldsData](ctx, p.runner, fieldsQuery, map[string]any{"projectId": p.fields.ProjectID})
	if err != nil {
		return nil, fmt.Errorf("list status options: %w", err)
	}
	out := map[string]string{}
	for _, f := range data.Node.Fields.Nodes {
		if f.ID != p.fields.StatusFieldID {
			continue
		}
		for _, o := range f.Options {
			out[o.Name] = o.ID
		}
	}
	return out, nil
}

// AddToBoard attaches an issue to the board and returns the item id. Adding
// an issue that is already on the board returns its existing item.
func (p *Project) AddToBoard(ctx context.Context, issueNodeID string) (string, error) {
	data, err := graphql[addItemData](ctx, p.runner, addItemMutation,
		map[string]any{"projectId": p.fields.ProjectID, "contentId": issueNodeID})
	if err != nil {
		return "", fmt.Errorf("add issue to board: %w", err)
	}
	id := data.AddProjectV2ItemByID.Item.ID
	if id == "" {
		return "", errors.New("add issue to board: empty item id")
	}
	p.forget()
	return id, nil
}

// SetBoardStatus sets the status option of a board item.
func (p *Project) SetBoardStatus(ctx context.Context, itemID, optionID string) error {
	_, err := graphql[json.RawMessage](ctx, p.runner, setStatusMutation, map[string]any{
		"projectId": p.fields.ProjectID, "itemId": itemID,
		"fieldId": p.fields.StatusFieldID, "optionId": optionID,
	})
	if err != nil {
		return fmt.Errorf("set board status: %w", err)
	}
	p.forget()
	return nil
}

// SetBoardDate sets a configured date field of a board item.
func (p *Project) SetBoardDate(ctx context.Context, itemID string, field protocol.DateField, date string) error {
	fieldID := p.fields.fieldID(field)
	if fieldID == "" {
		return nil
	}
	_, err := graphql[json.RawMessage](ctx, p.runner, setDateMutation, map[string]any{
		"projectId": p.fields.ProjectID, "itemId": itemID, "fieldId": fieldID, "date": date,
	})
	if err != nil {
		return fmt.Errorf("set board %s date: %w", field, err)
	}
	p.forget()
	return nil
}

// ClearBoardDate clears a configured date field of a board item.
func (p *Project) ClearBoardDate(ctx context.Context, itemID string, field protocol.DateField) error {
	fieldID := p.fields.fieldID(field)
	if fieldID == "" {
		return nil
	}
	_, err := graphql[json.RawMessage](ctx, p.runner, clearFieldMutation, map[string]any{
		"projectId": p.fields.ProjectID, "itemId": itemID, "fieldId": fieldID,
	})
	if err != nil {
		return fmt.Errorf("clear board %s date: %w", field, err)
	}
	p.forget()
	return nil
}

// DateEnabled reports whether field is configured on this board.
func (p *Project) DateEnabled(field protocol.DateField) bool {
	return p.fields.fieldID(field) != ""
}
