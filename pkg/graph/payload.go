package graph

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
)

// record is a single node or edge object from a payload, already unwrapped
// from its {"data": {...}} envelope when the producer used one.
type record map[string]json.RawMessage

var errNoID = errors.New("missing string id")

// unwrap detects the two record shapes seen across payload producers: flat
// records, and records nested under a "data" key. A record is treated as
// wrapped only when none of the identity keys are present at the top level.
func unwrap(raw json.RawMessage, identity ...string) (record, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	for _, k := range identity {
		if _, ok := rec[k]; ok {
			return rec, nil
		}
	}
	if data, ok := rec["data"]; ok {
		var inner record
		if err := json.Unmarshal(data, &inner); err == nil && inner != nil {
			return inner, nil
		}
	}
	return rec, nil
}

func decodeNode(raw json.RawMessage) (*Node, error) {
	rec, err := unwrap(raw, "id")
	if err != nil {
		return nil, err
	}
	id, ok := rec.str("id")
	if !ok || strings.TrimSpace(id) == "" {
		return nil, errNoID
	}

	n := &Node{
		ID:              id,
		Label:           rec.firstStr("label", "name"),
		Version:         rec.firstStr("version"),
		Maintainers:     rec.maintainers(),
		Vulnerabilities: rec.vulnerabilities(),
		Repository:      rec.repository(),
	}
	if n.Label == "" {
		n.Label = id
	}

	n.MaintainerCount = len(n.Maintainers)
	if c, ok := rec.firstInt("maintainer_count", "maintainerCount"); ok {
		n.MaintainerCount = max(c, 0)
	}
	n.VulnerabilityCount = len(n.Vulnerabilities)
	if c, ok := rec.firstInt("vulnerability_count", "vulnerabilityCount"); ok {
		n.VulnerabilityCount = max(c, 0)
	}
	if d, ok := rec.firstInt("depth"); ok && d >= 0 {
		n.Depth = &d
	}
	return n, nil
}

func decodeEdge(raw json.RawMessage) (Edge, bool) {
	rec, err := unwrap(raw, "source", "target", "from", "to")
	if err != nil {
		return Edge{}, false
	}
	src := rec.firstStr("source", "from")
	tgt := rec.firstStr("target", "to")
	if src == "" || tgt == "" {
		return Edge{}, false
	}
	return Edge{Source: src, Target: tgt}, true
}

// =============================================================================
// Lenient field access
// =============================================================================

// Optional fields with an unexpected JSON type are treated as absent; only
// the node id is mandatory.

func (r record) str(key string) (string, bool) {
	raw, ok := r[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (r record) firstStr(keys ...string) string {
	for _, k := range keys {
		if s, ok := r.str(k); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstInt reads the first numeric key, truncated and saturated to the int
// range.
func (r record) firstInt(keys ...string) (int, bool) {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		switch {
		case f >= math.MaxInt:
			return math.MaxInt, true
		case f <= math.MinInt:
			return math.MinInt, true
		}
		return int(f), true
	}
	return 0, false
}

func (r record) sub(keys ...string) record {
	for _, k := range keys {
		raw, ok := r[k]
		if !ok {
			continue
		}
		var inner record
		if err := json.Unmarshal(raw, &inner); err == nil && inner != nil {
			return inner
		}
	}
	return nil
}

func (r record) list(key string) []json.RawMessage {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// maintainers accepts plain names and npm-style {"name": ..., "email": ...}
// objects.
func (r record) maintainers() []string {
	var out []string
	for _, item := range r.list("maintainers") {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if name != "" {
				out = append(out, name)
			}
			continue
		}
		var obj record
		if err := json.Unmarshal(item, &obj); err == nil {
			if name := obj.firstStr("name", "username", "email"); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func (r record) vulnerabilities() []Vulnerability {
	var out []Vulnerability
	for _, item := range r.list("vulnerabilities") {
		var obj record
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		id := obj.firstStr("id")
		if id == "" {
			continue
		}
		out = append(out, Vulnerability{ID: id, Summary: obj.firstStr("summary", "details")})
	}
	return out
}

// repository reads either the engine's "repository" object or the original
// backend's "repo" object with GitHub field names.
func (r record) repository() *Repository {
	obj := r.sub("repository", "repo")
	if obj == nil {
		return nil
	}
	repo := &Repository{
		Name: obj.firstStr("name", "full_name"),
		URL:  obj.firstStr("url", "html_url"),
	}
	stars, _ := obj.firstInt("stars", "stargazers_count")
	forks, _ := obj.firstInt("forks", "forks_count")
	repo.Stars, repo.Forks = max(stars, 0), max(forks, 0)
	for _, item := range obj.list("contributors") {
		var c record
		if err := json.Unmarshal(item, &c); err != nil || c == nil {
			continue
		}
		login := c.firstStr("login")
		if login == "" {
			continue
		}
		commits, _ := c.firstInt("commit_count", "commitCount", "contributions")
		repo.Contributors = append(repo.Contributors, Contributor{
			Login:       login,
			AvatarURL:   c.firstStr("avatar_url", "avatarUrl"),
			ProfileURL:  c.firstStr("profile_url", "profileUrl", "html_url"),
			CommitCount: max(commits, 0),
		})
	}
	if repo.Name == "" && repo.URL == "" && len(repo.Contributors) == 0 {
		return nil
	}
	return repo
}
