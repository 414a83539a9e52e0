package marvin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Upstream endpoints.
const (
	EndpointAddTask    = "/addTask"
	EndpointTodayItems = "/todayItems"
	EndpointDueItems   = "/dueItems"
	EndpointMarkDone   = "/markDone"
	EndpointCategories = "/categories"
	EndpointLabels     = "/labels"
	EndpointChildren   = "/children"
	EndpointTrack      = "/track"
)

const (
	trackStart = "START"
	trackStop  = "STOP"
)

type itemRef struct {
	ItemID string `json:"itemId"`
}

type trackBody struct {
	ItemID string `json:"itemId,omitempty"`
	Action string `json:"action"`
}

// AddTask creates a task and returns the upstream's view of it.
func (c *Client) AddTask(ctx context.Context, task NewTask) (*Task, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: EndpointAddTask,
		Body:     task.body(),
	})
	if err != nil {
		return nil, err
	}

	created := &Task{}
	if err := json.Unmarshal(body, created); err != nil {
		// The task exists upstream; fall back to what was sent.
		c.logger.Warn("failed to decode created task", "endpoint", EndpointAddTask, "error", err)
		created = &Task{}
	}
	if created.Title == "" {
		created.Title = task.Title
	}
	if created.Day == "" {
		created.Day = task.Day
	}
	if created.DueDate.IsZero() && task.DueDate != "" {
		created.DueDate = parseDateString(task.DueDate)
	}
	if created.TimeEstimate == 0 {
		created.TimeEstimate = Millis(task.TimeEstimate)
	}
	return created, nil
}

// TodayItems returns tasks scheduled for date (YYYY-MM-DD).
func (c *Client) TodayItems(ctx context.Context, date string) ([]Task, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: EndpointTodayItems,
		Query:    url.Values{"date": {date}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Task](body, EndpointTodayItems)
}

// DueItems returns tasks due on or before date (YYYY-MM-DD).
func (c *Client) DueItems(ctx context.Context, date string) ([]Task, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: EndpointDueItems,
		Query:    url.Values{"by": {date}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Task](body, EndpointDueItems)
}

// MarkDone completes a task. Completing an already completed task succeeds.
func (c *Client) MarkDone(ctx context.Context, itemID string) error {
	_, err := c.Execute(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: EndpointMarkDone,
		Body:     itemRef{ItemID: itemID},
	})
	if err != nil && !IsAlreadyInState(err) {
		return err
	}
	return nil
}

// Categories returns all categories and projects.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: EndpointCategories,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Category](body, EndpointCategories)
}

// Labels returns all labels.
func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: EndpointLabels,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Label](body, EndpointLabels)
}

// Children returns the direct children of a category or project.
// Pass UnassignedParentID for items without a parent.
func (c *Client) Children(ctx context.Context, parentID string) ([]Task, error) {
	body, err := c.Execute(ctx, Request{
		Method:   http.MethodGet,
		Endpoint: EndpointChildren,
		Query:    url.Values{"parentId": {parentID}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Task](body, EndpointChildren)
}

// StartTracking starts the timer on itemID. The upstream stops any other
// running timer first, so at most one item is ever tracked.
func (c *Client) StartTracking(ctx context.Context, itemID string) error {
	_, err := c.Execute(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: EndpointTrack,
		Body:     trackBody{ItemID: itemID, Action: trackStart},
	})
	if err != nil && !IsAlreadyInState(err) {
		return err
	}
	return nil
}

// StopTracking stops the running timer. Stopping with no timer running succeeds.
func (c *Client) StopTracking(ctx context.Context) error {
	_, err := c.Execute(ctx, Request{
		Method:   http.MethodPost,
		Endpoint: EndpointTrack,
		Body:     trackBody{Action: trackStop},
	})
	if err != nil && !IsAlreadyInState(err) {
		return err
	}
	return nil
}

func decodeList[T any](body []byte, endpoint string) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
