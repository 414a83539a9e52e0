// Package marvin_tools provides MCP tools for the Amazing Marvin task manager.
//
// Every tool makes exactly one upstream request and renders the result as
// markdown (the default) or JSON, selected by the response_format argument.
// Listings are bounded by the server's response limit.
//
// # Available Tools
//
// Task Management:
//   - marvin_add_task: Create a task (title shortcuts are passed through)
//   - marvin_get_todays_tasks: Tasks scheduled for a date (default today)
//   - marvin_get_due_tasks: Tasks due on or before a date, with overdue markers
//   - marvin_mark_done: Complete a task
//
// Organization:
//   - marvin_get_categories: All categories and projects
//   - marvin_get_labels: All labels
//   - marvin_get_children: Items inside a category or project, or "unassigned"
//
// Time Tracking:
//   - marvin_start_tracking: Start the timer on a task
//   - marvin_stop_tracking: Stop the running timer
//
// # Errors
//
// Invalid arguments and upstream failures are returned as tool results with
// IsError set, never as protocol errors. Completing a completed task and
// stopping a stopped timer succeed.
//
// # Authentication
//
// The API token is taken from the request context. It is attached per HTTP
// request by the streamable-http transport, or once per process for stdio.
package marvin_tools
