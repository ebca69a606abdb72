// Package present compiles a game's user-authored presentation source
// into a player.Presenter. Presentation sources are text/template
// templates rendered against the round's event-log view; the rendered
// text becomes the single user turn the player back-end sees.
//
// XDL's own grammar (pkg/xdl) is deliberately tiny and has no notion of
// chat turns or roles, so the presentation function is compiled
// separately from the game program, exactly as spec.md describes it: an
// opaque callable the runtime invokes but does not interpret.
package present

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/xentlabs/xent/pkg/chat"
	"github.com/xentlabs/xent/pkg/event"
	"github.com/xentlabs/xent/pkg/player"
)

// EventView flattens an event.Event into the fields a presentation
// template can range over; templates never see the sealed Event
// interface or its concrete payload types directly.
type EventView struct {
	Kind         string
	Line         int
	Var          string
	ResponseText string
	Values       []event.RevealValue
}

func flatten(log event.Log) []EventView {
	views := make([]EventView, 0, len(log))
	for _, e := range log {
		v := EventView{Kind: string(e.Kind()), Line: e.Line()}
		switch ev := e.(type) {
		case event.ElicitRequest:
			v.Var = ev.Var
		case event.ElicitResponse:
			v.Var = ev.Var
			v.ResponseText = ev.ResponseText
		case event.Reveal:
			v.Values = ev.Values
		}
		views = append(views, v)
	}
	return views
}

// Data is the value a presentation template executes against.
type Data struct {
	Snapshot map[string]string
	Since    []EventView
	Full     []EventView
	Meta     player.Metadata
}

// Compile parses source as a text/template template and returns a
// Presenter that renders it into a single user turn. The returned
// context is always nil: these presenters are stateless, since every
// call is reconstructed from the full event log anyway.
func Compile(name, source string) (player.Presenter, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("present: compiling %q: %w", name, err)
	}

	return func(snapshot map[string]string, since event.Log, meta player.Metadata, full event.Log, _ any) (chat.Conversation, any, error) {
		data := Data{
			Snapshot: snapshot,
			Since:    flatten(since),
			Full:     flatten(full),
			Meta:     meta,
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return chat.Conversation{}, nil, fmt.Errorf("present: rendering %q: %w", name, err)
		}

		conv := chat.Conversation{}
		conv.AddPrompt(buf.String())
		return conv, nil, nil
	}, nil
}
