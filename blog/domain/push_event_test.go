package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePushEvent(t *testing.T) {
	body := `{
		"ref": "refs/heads/main",
		"commits": [
			{"id": "abc", "added": ["posts/1-hello.md"], "removed": [], "modified": []}
		]
	}`

	evt, err := ParsePushEvent([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "refs/heads/main", evt.GetRef())
	require.Len(t, evt.Commits, 1)
	assert.Equal(t, "abc", *evt.Commits[0].ID)
	assert.Equal(t, []string{"posts/1-hello.md"}, evt.Commits[0].Added)
	assert.Empty(t, evt.Commits[0].Removed)
}

func TestParsePushEvent_EmptyCommits(t *testing.T) {
	evt, err := ParsePushEvent([]byte(`{"ref": "", "commits": []}`))
	require.NoError(t, err)
	assert.Empty(t, evt.Commits)
}

func TestParsePushEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not JSON", body: `not json`},
		{name: "empty body", body: ``},
		{name: "null", body: `null`},
		{name: "array", body: `[]`},
		{name: "missing ref", body: `{"commits": []}`},
		{name: "missing commits", body: `{"ref": "refs/heads/main"}`},
		{name: "ref wrong type", body: `{"ref": 1, "commits": []}`},
		{name: "commit missing id", body: `{"ref": "r", "commits": [{"added": [], "removed": [], "modified": []}]}`},
		{name: "commit missing added", body: `{"ref": "r", "commits": [{"id": "a", "removed": [], "modified": []}]}`},
		{name: "commit null removed", body: `{"ref": "r", "commits": [{"id": "a", "added": [], "removed": null, "modified": []}]}`},
		{name: "paths not strings", body: `{"ref": "r", "commits": [{"id": "a", "added": [1], "removed": [], "modified": []}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePushEvent([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}
