package protocol

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// TestMarshal_RoundTrip verifies every variant survives a Marshal/Parse
// cycle unchanged. The closing check against Kinds() keeps the table
// exhaustive as variants are added.
func TestMarshal_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "arg with choices",
			msg: &Arg{
				prompt:      prompt{ID: "p1"},
				Placeholder: "Pick a fruit",
				Hint:        "one of these",
				Choices: []Choice{
					{Name: "Apple", Value: "apple"},
					{Name: "Pear", Value: "pear", Description: "the green one"},
				},
			},
		},
		{
			name: "select multi",
			msg: &Select{
				prompt:      prompt{ID: "p2"},
				Placeholder: "Pick toppings",
				Choices:     []Choice{{Name: "Cheese"}, {Name: "Basil"}},
				Multi:       true,
			},
		},
		{
			name: "div",
			msg:  &Div{prompt: prompt{ID: "p3"}, HTML: "<h1>hi</h1>"},
		},
		{
			name: "editor",
			msg:  &Editor{prompt: prompt{ID: "p4"}, Value: "package main", Language: "go"},
		},
		{
			name: "fields",
			msg: &Fields{
				prompt: prompt{ID: "p5"},
				Fields: []Field{{Name: "user", Label: "Username"}, {Name: "email"}},
			},
		},
		{
			name: "textarea",
			msg:  &Textarea{prompt: prompt{ID: "p6"}, Placeholder: "notes", Value: "draft one"},
		},
		{
			name: "form",
			msg:  &Form{prompt: prompt{ID: "p7"}, HTML: `<form><input name="q"></form>`},
		},
		{
			name: "path",
			msg:  &Path{prompt: prompt{ID: "p8"}, StartPath: "/tmp"},
		},
		{
			name: "drop",
			msg:  &Drop{prompt: prompt{ID: "p9"}, Placeholder: "drop files here"},
		},
		{
			name: "hotkey",
			msg:  &Hotkey{prompt: prompt{ID: "p10"}, Placeholder: "press a key"},
		},
		{
			name: "env",
			msg:  &Env{prompt: prompt{ID: "p11"}, Key: "OPENAI_API_KEY"},
		},
		{
			name: "chat",
			msg:  &Chat{prompt: prompt{ID: "p12"}, Placeholder: "ask away"},
		},
		{
			name: "term",
			msg:  &Term{prompt: prompt{ID: "p13"}, Command: "htop"},
		},
		{
			name: "confirm",
			msg:  &Confirm{prompt: prompt{ID: "p7"}, Question: "Delete everything?"},
		},
		{
			name: "submit with string value",
			msg:  &Submit{prompt: prompt{ID: "p1"}, Value: "apple"},
		},
		{
			name: "beep",
			msg:  &Beep{},
		},
		{
			name: "say",
			msg:  &Say{Text: "done", Voice: "Daniel"},
		},
		{
			name: "notify",
			msg:  &Notify{Title: "Build finished", Body: "0 failures"},
		},
		{
			name: "toast",
			msg:  &Toast{Text: "saved", Duration: 1500},
		},
		{
			name: "log",
			msg:  &Log{Level: "warn", Message: "low disk"},
		},
		{
			name: "show",
			msg:  &Show{},
		},
		{
			name: "hide",
			msg:  &Hide{},
		},
		{
			name: "blur",
			msg:  &Blur{},
		},
		{
			name: "focus",
			msg:  &Focus{},
		},
		{
			name: "exit with code",
			msg:  &Exit{Code: 3},
		},
		{
			name: "set placeholder",
			msg:  &SetPlaceholder{Text: "Searching..."},
		},
		{
			name: "set hint",
			msg:  &SetHint{Text: "tab completes"},
		},
		{
			name: "set panel",
			msg:  &SetPanel{HTML: "<p>details</p>"},
		},
		{
			name: "set preview",
			msg:  &SetPreview{HTML: "<pre>preview</pre>"},
		},
		{
			name: "set progress zero",
			msg:  &SetProgress{Percent: 0},
		},
		{
			name: "set input",
			msg:  &SetInput{Text: "prefill"},
		},
		{
			name: "set choices",
			msg:  &SetChoices{Choices: []Choice{{Name: "a"}, {Name: "b"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			got, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse() error: %v (wire: %s)", err, data)
			}
			if got.Kind() != tt.msg.Kind() {
				t.Errorf("Kind() = %q, want %q", got.Kind(), tt.msg.Kind())
			}
			if !reflect.DeepEqual(got, tt.msg) {
				t.Errorf("round trip mismatch:\n got: %#v\nwant: %#v", got, tt.msg)
			}
		})
	}

	covered := make(map[Kind]bool, len(tests))
	for _, tt := range tests {
		covered[tt.msg.Kind()] = true
	}
	for _, k := range Kinds() {
		if !covered[k] {
			t.Errorf("variant %q has no round-trip case", k)
		}
	}
}

// TestMarshal_WireShape pins down the wire layout: single JSON object with
// the discriminant first and no trailing newline.
func TestMarshal_WireShape(t *testing.T) {
	data, err := Marshal(&Notify{Title: "hi"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"type":"notify"`) {
		t.Errorf("wire form should start with the discriminant, got %s", data)
	}
	if strings.ContainsAny(string(data), "\n") {
		t.Errorf("wire form should not contain newlines, got %q", data)
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("wire form is not valid JSON: %v", err)
	}
	if obj["type"] != "notify" || obj["title"] != "hi" {
		t.Errorf("unexpected wire object: %v", obj)
	}
}

// TestMarshal_EmptyVariant verifies field-less variants still serialize to
// a well-formed object.
func TestMarshal_EmptyVariant(t *testing.T) {
	data, err := Marshal(&Show{})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != `{"type":"show"}` {
		t.Errorf("Marshal(Show) = %s, want {\"type\":\"show\"}", data)
	}
}

// TestRequestID verifies id-bearing and id-less variants report correctly.
func TestRequestID(t *testing.T) {
	id, ok := (&Arg{prompt: prompt{ID: "42"}, Placeholder: "x"}).RequestID()
	if !ok || id != "42" {
		t.Errorf("Arg.RequestID() = (%q, %v), want (\"42\", true)", id, ok)
	}

	id, ok = (&Submit{prompt: prompt{ID: "42"}, Value: "y"}).RequestID()
	if !ok || id != "42" {
		t.Errorf("Submit.RequestID() = (%q, %v), want (\"42\", true)", id, ok)
	}

	for _, msg := range []Message{&Beep{}, &Show{}, &Exit{Code: 1}, &SetInput{Text: "z"}} {
		if id, ok := msg.RequestID(); ok || id != "" {
			t.Errorf("%s.RequestID() = (%q, %v), want (\"\", false)", msg.Kind(), id, ok)
		}
	}
}

// TestKinds_RegistryComplete verifies every declared kind resolves to a
// variant whose Kind() round-trips to the same discriminant.
func TestKinds_RegistryComplete(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 32 {
		t.Fatalf("registry holds %d kinds, want 32", len(kinds))
	}
	for _, k := range kinds {
		msg := registry[k]()
		if msg.Kind() != k {
			t.Errorf("registry[%q] builds a message reporting Kind() = %q", k, msg.Kind())
		}
	}
}
