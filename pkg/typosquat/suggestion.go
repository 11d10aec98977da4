package typosquat

import (
	"bytes"
	"context"
	"encoding/json"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// Suggestion is a package name that looks like a typosquat of the queried
// name. Score is nil when the source only returned names.
type Suggestion struct {
	Name  string   `json:"name" yaml:"name"`
	Score *float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// Finder looks up typosquat candidates for a package name.
type Finder interface {
	Find(ctx context.Context, name string) ([]Suggestion, error)
}

// FinderFunc adapts a function to [Finder].
type FinderFunc func(ctx context.Context, name string) ([]Suggestion, error)

func (f FinderFunc) Find(ctx context.Context, name string) ([]Suggestion, error) {
	return f(ctx, name)
}

// Names returns the suggestion names in order.
func Names(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, sg := range s {
		out[i] = sg.Name
	}
	return out
}

// DecodeSuggestions parses a typosquat response body. Accepted shapes:
//
//	["reakt", "raect"]
//	[{"name": "reakt", "score": 0.8}]
//	{"similar_names": [...]}
//	{"suggestions": [...]}
//
// Anything else fails with errors.ErrCodeLookupFailed.
func DecodeSuggestions(data []byte) ([]Suggestion, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errs.New(errs.ErrCodeLookupFailed, "empty typosquat response")
	}

	var list []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "decode typosquat list")
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "decode typosquat object")
		}
		raw, ok := obj["similar_names"]
		if !ok {
			raw, ok = obj["suggestions"]
		}
		if !ok {
			return nil, errs.New(errs.ErrCodeLookupFailed, "typosquat response has no suggestion list")
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return []Suggestion{}, nil
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "decode typosquat list")
		}
	default:
		return nil, errs.New(errs.ErrCodeLookupFailed, "unexpected typosquat response")
	}

	out := make([]Suggestion, 0, len(list))
	for i, item := range list {
		s, err := decodeSuggestion(item)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "suggestion %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeSuggestion(raw json.RawMessage) (Suggestion, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "" {
			return Suggestion{}, errs.New(errs.ErrCodeLookupFailed, "empty name")
		}
		return Suggestion{Name: name}, nil
	}

	var obj struct {
		Name  string   `json:"name"`
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Suggestion{}, err
	}
	if obj.Name == "" {
		return Suggestion{}, errs.New(errs.ErrCodeLookupFailed, "suggestion without a name")
	}
	return Suggestion{Name: obj.Name, Score: obj.Score}, nil
}
