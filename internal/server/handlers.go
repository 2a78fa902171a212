package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/crop-editor-mcp/internal/imaging"
	"github.com/ironsheep/crop-editor-mcp/internal/patchlog"
	"github.com/ironsheep/crop-editor-mcp/internal/rectedit"
)

// Tool errors that callers can match with errors.Is.
var (
	ErrNoSession   = errors.New("no open session, call session_open first")
	ErrUnknownTool = errors.New("unknown tool")
	ErrBadMethod   = errors.New("method index out of range")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "session_open", "rect_move_corner1").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// argsError marks a tool failure caused by malformed arguments.
type argsError struct{ err error }

func (e *argsError) Error() string { return "invalid arguments: " + e.err.Error() }
func (e *argsError) Unwrap() error { return e.err }

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Arguments that do not decode return -32602; every other tool failure,
// including calls made before session_open, returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("tool call rejected")
		var ae *argsError
		if errors.As(err, &ae) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	log.Debug("tool call")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches a tool call. Calls are serialised so each one sees
// and commits a consistent rectangle.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	// Session
	case "session_open":
		return s.handleSessionOpen(args)
	case "session_state":
		return s.withSession(func() (interface{}, error) { return s.state(), nil })

	// Pointer edits
	case "rect_move_corner1":
		return s.handleMoveCorner(args, s.moveCorner1)
	case "rect_move_corner2":
		return s.handleMoveCorner(args, s.moveCorner2)

	// Field edits
	case "rect_set_corner1_x":
		return s.handleTextEdit(args, func(e *rectedit.Engine, text string) bool { _, ok := e.SetCorner1X(text); return ok })
	case "rect_set_corner1_y":
		return s.handleTextEdit(args, func(e *rectedit.Engine, text string) bool { _, ok := e.SetCorner1Y(text); return ok })
	case "rect_set_height":
		return s.handleTextEdit(args, func(e *rectedit.Engine, text string) bool { _, ok := e.SetHeight(text); return ok })
	case "rect_set_width":
		return s.handleTextEdit(args, func(e *rectedit.Engine, text string) bool { _, ok := e.SetWidth(text); return ok })
	case "rect_set_ratio":
		return s.handleTextEdit(args, func(e *rectedit.Engine, text string) bool { _, ok := e.SetRatio(text); return ok })

	// Locks
	case "rect_lock_ratio":
		return s.handleLock(args, (*rectedit.Engine).SetRatioLock)
	case "rect_lock_dimensions":
		return s.handleLock(args, (*rectedit.Engine).SetDimensionsLock)

	// Rendering
	case "rect_preview":
		return s.handlePreview(args)
	case "rect_overlay":
		return s.handleOverlay(args)

	// Patch log
	case "patch_save":
		return s.handlePatchSave()
	case "patch_list":
		return s.handlePatchList(args)

	default:
		return nil, errors.Wrap(ErrUnknownTool, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	resp := &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
		},
	}
	if data != "" {
		resp.Error.Data = data
	}
	return resp
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating missing arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &argsError{err: err}
	}
	return nil
}

func (s *Server) withSession(fn func() (interface{}, error)) (interface{}, error) {
	if s.engine == nil {
		return nil, ErrNoSession
	}
	return fn()
}

// === Session Handlers ===

type sessionOpenArgs struct {
	FrameID    int      `json:"frame_id"`
	ImagePaths []string `json:"image_paths"`
	KeepMode   *bool    `json:"keep_mode"`
}

type sessionOpenResult struct {
	*sessionState
	Images []*imaging.ImageInfo `json:"images"`
}

func (s *Server) handleSessionOpen(args json.RawMessage) (interface{}, error) {
	var a sessionOpenArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.FrameID < 0 {
		return nil, &argsError{err: errors.Errorf("frame_id must be >= 0, got %d", a.FrameID)}
	}
	if len(a.ImagePaths) == 0 {
		return nil, &argsError{err: errors.New("image_paths must name at least one image")}
	}
	keep := s.cfg.KeepMode
	if a.KeepMode != nil {
		keep = *a.KeepMode
	}

	// A rejected frame must not leave its images cached; the open session's
	// images stay.
	fail := func(err error) (interface{}, error) {
		s.evictStale(a.ImagePaths)
		return nil, errors.Wrapf(err, "open frame %d", a.FrameID)
	}

	dims, err := imaging.FrameDimensions(s.cache, a.ImagePaths)
	if err != nil {
		return fail(err)
	}
	images := make([]*imaging.ImageInfo, 0, len(a.ImagePaths))
	for _, p := range a.ImagePaths {
		info, err := imaging.LoadImageInfo(s.cache, p)
		if err != nil {
			return fail(err)
		}
		images = append(images, info)
	}

	bounds := rectedit.Bounds{Width: dims.Width, Height: dims.Height}
	prevFrame, prevPaths := s.frame, s.paths
	s.frame = a.FrameID
	s.paths = append([]string(nil), a.ImagePaths...)
	if err := s.resetEngine(bounds, keep); err != nil {
		s.frame, s.paths = prevFrame, prevPaths
		return fail(err)
	}
	s.evictStale(prevPaths)

	s.log.WithFields(logrus.Fields{
		"frame":     s.frame,
		"images":    len(s.paths),
		"width":     bounds.Width,
		"height":    bounds.Height,
		"keep_mode": keep,
	}).Info("session opened")

	return &sessionOpenResult{sessionState: s.state(), Images: images}, nil
}

func (s *Server) resetEngine(b rectedit.Bounds, keep bool) error {
	if s.engine != nil {
		return s.engine.Reset(b, keep)
	}
	engine, err := rectedit.New(b)
	if err != nil {
		return err
	}
	engine.OnChange(s.onCommit)
	s.engine = engine
	return nil
}

// evictStale drops the cached images in paths that the open frame does not
// use.
func (s *Server) evictStale(paths []string) {
	inUse := make(map[string]bool, len(s.paths))
	for _, p := range s.paths {
		inUse[p] = true
	}
	for _, p := range paths {
		if !inUse[p] {
			s.cache.Evict(p)
		}
	}
}

// === Rectangle Handlers ===

type pointArgs struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (s *Server) moveCorner1(p image.Point) { s.engine.MoveCorner1(p) }
func (s *Server) moveCorner2(p image.Point) { s.engine.MoveCorner2(p) }

func (s *Server) handleMoveCorner(args json.RawMessage, move func(image.Point)) (interface{}, error) {
	var a pointArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.X == nil || a.Y == nil {
		return nil, &argsError{err: errors.New("x and y are required")}
	}
	return s.withSession(func() (interface{}, error) {
		p := image.Pt(*a.X, *a.Y)
		if err := s.engine.CheckPoint(p); err != nil {
			return nil, err
		}
		move(p)
		return s.state(), nil
	})
}

type textArgs struct {
	Text string `json:"text"`
}

func (s *Server) handleTextEdit(args json.RawMessage, edit func(*rectedit.Engine, string) bool) (interface{}, error) {
	var a textArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(func() (interface{}, error) {
		applied := edit(s.engine, a.Text)
		if !applied {
			s.log.WithField("text", a.Text).Debug("field edit ignored")
		}
		st := s.state()
		st.Applied = &applied
		return st, nil
	})
}

type lockArgs struct {
	Locked *bool `json:"locked"`
}

func (s *Server) handleLock(args json.RawMessage, set func(*rectedit.Engine, bool)) (interface{}, error) {
	var a lockArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Locked == nil {
		return nil, &argsError{err: errors.New("locked is required")}
	}
	return s.withSession(func() (interface{}, error) {
		set(s.engine, *a.Locked)
		return s.state(), nil
	})
}

// === Rendering Handlers ===

// maxPreviewScale bounds rect_preview's scale argument.
const maxPreviewScale = 8.0

type previewArgs struct {
	MethodIndex int     `json:"method_index"`
	Scale       float64 `json:"scale"`
}

type previewResult struct {
	MethodIndex int    `json:"method_index"`
	Path        string `json:"path"`
	Box         [4]int `json:"box"`
	BorderColor string `json:"border_color"`
	*imaging.CropResult
}

// methodImage returns the decoded image for method i of the open frame.
func (s *Server) methodImage(i int) (image.Image, string, error) {
	if i < 0 || i >= len(s.paths) {
		return nil, "", errors.Wrapf(ErrBadMethod, "method_index %d, frame has %d images", i, len(s.paths))
	}
	img, err := s.cache.Load(s.paths[i])
	if err != nil {
		return nil, "", err
	}
	return img, s.paths[i], nil
}

// liveColor is the colour of the rectangle being edited: the palette entry
// the next saved patch of the frame will get. Previews and overlays of every
// method use it, so one rectangle always has one colour.
func (s *Server) liveColor() (color.Color, error) {
	return imaging.PaletteColor(s.cfg.BoxColors, len(s.patches.ByFrame(s.frame)))
}

func (s *Server) handlePreview(args json.RawMessage) (interface{}, error) {
	var a previewArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	if a.Scale < 0 || a.Scale > maxPreviewScale {
		return nil, &argsError{err: errors.Errorf("scale must be in (0, %g], got %g", maxPreviewScale, a.Scale)}
	}
	return s.withSession(func() (interface{}, error) {
		img, path, err := s.methodImage(a.MethodIndex)
		if err != nil {
			return nil, err
		}
		border, err := s.liveColor()
		if err != nil {
			return nil, err
		}
		r := s.engine.Rect()
		crop, err := imaging.Crop(img, r.Image(), imaging.PreviewOptions{
			Scale:       a.Scale,
			BorderWidth: s.cfg.PatchBorder,
			BorderColor: border,
		})
		if err != nil {
			return nil, err
		}
		return &previewResult{
			MethodIndex: a.MethodIndex,
			Path:        path,
			Box:         r.Box(),
			BorderColor: imaging.HexString(border),
			CropResult:  crop,
		}, nil
	})
}

type overlayArgs struct {
	MethodIndex int `json:"method_index"`
}

type overlayResult struct {
	MethodIndex int    `json:"method_index"`
	Path        string `json:"path"`
	Saved       int    `json:"saved_patches"`
	LiveColor   string `json:"live_color"`
	*imaging.OverlayResult
}

// handleOverlay outlines the frame's saved patches in palette order, then the
// live rectangle in the next palette colour.
func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.withSession(func() (interface{}, error) {
		img, path, err := s.methodImage(a.MethodIndex)
		if err != nil {
			return nil, err
		}

		saved := s.patches.ByFrame(s.frame)
		boxes := make([]imaging.Box, 0, len(saved)+1)
		for i, p := range saved {
			c, err := imaging.PaletteColor(s.cfg.BoxColors, i)
			if err != nil {
				return nil, err
			}
			boxes = append(boxes, imaging.Box{Rect: image.Rect(p.Box[0], p.Box[1], p.Box[2], p.Box[3]), Color: c})
		}
		live, err := s.liveColor()
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, imaging.Box{Rect: s.engine.Rect().Image(), Color: live})

		ov, err := imaging.Overlay(img, boxes, s.cfg.BoxWidth)
		if err != nil {
			return nil, err
		}
		return &overlayResult{
			MethodIndex:   a.MethodIndex,
			Path:          path,
			Saved:         len(saved),
			LiveColor:     imaging.HexString(live),
			OverlayResult: ov,
		}, nil
	})
}

// === Patch Log Handlers ===

type patchSaveResult struct {
	Patch      patchlog.Patch `json:"patch"`
	FrameCount int            `json:"frame_patches"`
	Total      int            `json:"total_patches"`
	LogPath    string         `json:"log_path"`
}

func (s *Server) handlePatchSave() (interface{}, error) {
	return s.withSession(func() (interface{}, error) {
		p := patchlog.Patch{
			Frame: s.frame,
			Paths: append([]string(nil), s.paths...),
			Box:   s.engine.Rect().Box(),
		}
		if err := s.patches.Append(p); err != nil {
			return nil, errors.Wrap(err, "save patch")
		}
		s.log.WithFields(logrus.Fields{
			"frame": p.Frame,
			"box":   p.Box,
		}).Info("patch saved")

		return &patchSaveResult{
			Patch:      p,
			FrameCount: len(s.patches.ByFrame(s.frame)),
			Total:      s.patches.Len(),
			LogPath:    s.patches.Path(),
		}, nil
	})
}

type patchListArgs struct {
	FrameID *int `json:"frame_id"`
}

type patchListResult struct {
	Frames  []int            `json:"frames"`
	Patches []patchlog.Patch `json:"patches"`
	Count   int              `json:"count"`
}

func (s *Server) handlePatchList(args json.RawMessage) (interface{}, error) {
	var a patchListArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var patches []patchlog.Patch
	if a.FrameID != nil {
		patches = s.patches.ByFrame(*a.FrameID)
	} else {
		patches = s.patches.All()
	}
	if patches == nil {
		patches = []patchlog.Patch{}
	}
	frames := s.patches.Frames()
	if frames == nil {
		frames = []int{}
	}
	return &patchListResult{
		Frames:  frames,
		Patches: patches,
		Count:   len(patches),
	}, nil
}
