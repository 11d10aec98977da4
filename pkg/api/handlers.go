package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nodemedic/nodemedic/pkg/deps"
	errs "github.com/nodemedic/nodemedic/pkg/errors"
	"github.com/nodemedic/nodemedic/pkg/graph"
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// packageParam reads the package name from the wildcard segment. Scoped
// names arrive either escaped (@types%2Fnode) or as two segments.
func packageParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidPackage, err, "bad package name %q", raw)
	}
	name = strings.Trim(name, "/")
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) depthParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("depth")
	if v == "" {
		return s.opts.DefaultDepth, nil
	}
	depth, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.New(errs.ErrCodeInvalidInput, "depth must be an integer, got %q", v)
	}
	if depth < 1 {
		return 0, errs.New(errs.ErrCodeInvalidInput, "depth must be at least 1, got %d", depth)
	}
	if err := errs.ValidateDepth(depth, s.opts.MaxDepth); err != nil {
		return 0, err
	}
	return depth, nil
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, err := packageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	depth, err := s.depthParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	key := s.opts.Keyer.GraphKey(name, depth)
	if !refresh {
		if data, ok, err := s.opts.Cache.Get(ctx, key); err == nil && ok {
			s.logger.Debug("graph cache hit", "key", key)
			writeRaw(w, data)
			return
		} else if err != nil {
			s.logger.Warn("graph cache read failed", "key", key, "err", err)
		}
	}

	if s.opts.Resolver == nil {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "dependency resolution is not configured"))
		return
	}

	opts := s.opts.Resolve
	opts.MaxDepth = depth
	opts.Refresh = refresh
	if opts.Logger == nil {
		opts.Logger = s.logger.With("package", name, "request", RequestID(ctx))
	}
	g, err := s.opts.Resolver.Resolve(ctx, name, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := json.Marshal(g)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "encode graph"))
		return
	}
	if err := s.opts.Cache.Set(ctx, key, data, s.opts.GraphTTL); err != nil {
		s.logger.Warn("graph cache write failed", "key", key, "err", err)
	}
	writeRaw(w, data)
}

// handleUpload normalizes an uploaded graph payload or `npm ls --json`
// tree and answers with the canonical graph.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "expected a multipart upload"))
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "missing form field \"file\""))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "read %s", hdr.Filename))
		return
	}

	var g *graph.Graph
	if deps.IsTree(data) {
		g, err = deps.FromTree(data)
	} else {
		g, err = graph.Normalize(data)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("normalized upload", "file", hdr.Filename, "nodes", g.NodeCount(), "edges", g.EdgeCount(), "dropped", g.DroppedEdges())
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleTyposquats(w http.ResponseWriter, r *http.Request) {
	name, err := packageParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.opts.Finder == nil {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "typosquat index is not configured"))
		return
	}
	suggestions, err := s.opts.Finder.Find(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}
