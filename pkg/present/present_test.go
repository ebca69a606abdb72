package present

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/player"
)

func TestCompileRendersSnapshot(t *testing.T) {
	presenter, err := Compile("g", "story: {{.Snapshot.story}}")
	require.NoError(t, err)

	conv, ctx, err := presenter(map[string]string{"story": "once upon a time"}, nil, player.Metadata{}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ctx)
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, "story: once upon a time", conv.LastPrompt())
}

func TestCompileRangesOverSinceEvents(t *testing.T) {
	presenter, err := Compile("g", `{{range .Since}}{{.Kind}}:{{.ResponseText}} {{end}}`)
	require.NoError(t, err)

	since := event.Log{
		event.ElicitResponse{Var: "x", ResponseText: "hello"},
	}
	conv, _, err := presenter(nil, since, player.Metadata{Game: "g"}, since, nil)
	require.NoError(t, err)
	assert.Contains(t, conv.LastPrompt(), "elicit_response:hello")
}

func TestCompileInvalidTemplate(t *testing.T) {
	_, err := Compile("bad", "{{.Nope")
	assert.Error(t, err)
}

func TestCompileExecutionError(t *testing.T) {
	presenter, err := Compile("g", "{{.Snapshot.missing.deeper}}")
	require.NoError(t, err)

	_, _, err = presenter(map[string]string{}, nil, player.Metadata{}, nil, nil)
	assert.Error(t, err)
}
