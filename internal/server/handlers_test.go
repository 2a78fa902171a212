package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/ironsheep/crop-editor-mcp/internal/rectedit"
)

// writeImage writes a mid-grey PNG into dir and returns its path.
func writeImage(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// decodeContent unpacks the JSON text of a tools/call result into v.
func decodeContent(t *testing.T, result interface{}, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var wrapped struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		t.Fatalf("result is not MCP content: %v", err)
	}
	if len(wrapped.Content) != 1 || wrapped.Content[0].Type != "text" {
		t.Fatalf("unexpected content: %s", raw)
	}
	if err := json.Unmarshal([]byte(wrapped.Content[0].Text), v); err != nil {
		t.Fatalf("failed to decode content text: %v", err)
	}
}

// callTool sends a tools/call request through handleRequest.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// mustTool calls executeTool directly and fails the test on error.
func mustTool(t *testing.T, s *Server, name string, args string) interface{} {
	t.Helper()
	result, err := s.executeTool(name, json.RawMessage(args))
	if err != nil {
		t.Fatalf("%s(%s) failed: %v", name, args, err)
	}
	return result
}

func isUnknownTool(err error) bool {
	return errors.Is(err, ErrUnknownTool)
}

// openFrame opens a frame with n method images of the given size.
func openFrame(t *testing.T, s *Server, frame, n, width, height int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = writeImage(t, dir, "m"+string(rune('0'+i))+".png", width, height)
	}
	args, _ := json.Marshal(map[string]interface{}{"frame_id": frame, "image_paths": paths})
	mustTool(t, s, "session_open", string(args))
	return paths
}

func TestSessionOpen(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	m0 := writeImage(t, dir, "m0.png", 200, 100)
	m1 := writeImage(t, dir, "m1.png", 200, 100)

	resp := callTool(t, s, "session_open", map[string]interface{}{
		"frame_id":    12,
		"image_paths": []string{m0, m1},
	})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	var got struct {
		sessionState
		Images []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"images"`
	}
	decodeContent(t, resp.Result, &got)

	if got.FrameID != 12 {
		t.Errorf("FrameID: got %d, want 12", got.FrameID)
	}
	if got.Bounds != (point{200, 100}) {
		t.Errorf("Bounds: got %+v, want 200x100", got.Bounds)
	}
	if got.Box != [4]int{0, 0, 25, 25} {
		t.Errorf("Box: got %v, want [0 0 25 25]", got.Box)
	}
	if got.Readout.Ratio != "1.0000" {
		t.Errorf("Readout.Ratio: got %s, want 1.0000", got.Readout.Ratio)
	}
	if len(got.Images) != 2 || got.Images[1].Width != 200 {
		t.Errorf("Images: got %+v", got.Images)
	}
}

func TestSessionOpen_Errors(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	wide := writeImage(t, dir, "wide.png", 200, 100)
	tall := writeImage(t, dir, "tall.png", 100, 200)

	tests := []struct {
		name     string
		args     interface{}
		wantCode int
	}{
		{"no images", map[string]interface{}{"frame_id": 0, "image_paths": []string{}}, -32602},
		{"negative frame", map[string]interface{}{"frame_id": -1, "image_paths": []string{wide}}, -32602},
		{"wrong type", map[string]interface{}{"frame_id": "one", "image_paths": []string{wide}}, -32602},
		{"size mismatch", map[string]interface{}{"frame_id": 0, "image_paths": []string{wide, tall}}, -32000},
		{"missing file", map[string]interface{}{"frame_id": 0, "image_paths": []string{filepath.Join(dir, "nope.png")}}, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "session_open", tt.args)
			if resp.Error == nil {
				t.Fatal("expected error")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code: got %d, want %d (%v)", resp.Error.Code, tt.wantCode, resp.Error.Data)
			}
		})
	}

	if s.engine != nil {
		t.Error("failed opens must not start a session")
	}
}

func TestTools_RequireSession(t *testing.T) {
	s := newTestServer(t)

	tools := map[string]string{
		"session_state":        `{}`,
		"rect_move_corner1":    `{"x":1,"y":1}`,
		"rect_move_corner2":    `{"x":1,"y":1}`,
		"rect_set_corner1_x":   `{"text":"1"}`,
		"rect_set_corner1_y":   `{"text":"1"}`,
		"rect_set_height":      `{"text":"1"}`,
		"rect_set_width":       `{"text":"1"}`,
		"rect_set_ratio":       `{"text":"1"}`,
		"rect_lock_ratio":      `{"locked":true}`,
		"rect_lock_dimensions": `{"locked":true}`,
		"rect_preview":         `{}`,
		"rect_overlay":         `{}`,
		"patch_save":           `{}`,
	}
	for name, args := range tools {
		t.Run(name, func(t *testing.T) {
			_, err := s.executeTool(name, json.RawMessage(args))
			if !errors.Is(err, ErrNoSession) {
				t.Errorf("got %v, want ErrNoSession", err)
			}
		})
	}
}

func TestExecuteTool_Unknown(t *testing.T) {
	s := newTestServer(t)
	_, err := s.executeTool("image_load", nil)
	if !isUnknownTool(err) {
		t.Errorf("got %v, want ErrUnknownTool", err)
	}

	resp := callTool(t, s, "image_load", nil)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v, want -32000", resp.Error)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("got %+v, want -32602", resp.Error)
	}
}

func TestMoveCorner(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 100, 100)

	st := mustTool(t, s, "rect_move_corner2", `{"x":80,"y":60}`).(*sessionState)
	if st.Box != [4]int{0, 0, 80, 60} {
		t.Errorf("after corner2: got %v, want [0 0 80 60]", st.Box)
	}
	if st.Revision != 1 {
		t.Errorf("Revision: got %d, want 1", st.Revision)
	}

	st = mustTool(t, s, "rect_move_corner1", `{"x":10,"y":20}`).(*sessionState)
	if st.Box != [4]int{10, 20, 80, 60} {
		t.Errorf("after corner1: got %v, want [10 20 80 60]", st.Box)
	}

	// The far edge is a valid corner position.
	st = mustTool(t, s, "rect_move_corner2", `{"x":100,"y":100}`).(*sessionState)
	if st.Corner2 != (point{100, 100}) {
		t.Errorf("Corner2: got %+v, want (100,100)", st.Corner2)
	}

	// Unchanged rectangle does not bump the revision.
	before := st.Revision
	st = mustTool(t, s, "rect_move_corner2", `{"x":100,"y":100}`).(*sessionState)
	if st.Revision != before {
		t.Errorf("Revision: got %d, want %d", st.Revision, before)
	}
}

func TestMoveCorner_OutOfBounds(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 100, 100)
	before := s.engine.Rect()

	for _, args := range []string{`{"x":150,"y":150}`, `{"x":-1,"y":0}`, `{"x":0,"y":101}`} {
		_, err := s.executeTool("rect_move_corner2", json.RawMessage(args))
		if !errors.Is(err, rectedit.ErrOutOfBounds) {
			t.Errorf("%s: got %v, want ErrOutOfBounds", args, err)
		}
	}
	if s.engine.Rect() != before {
		t.Errorf("rejected clicks changed the rectangle to %+v", s.engine.Rect())
	}

	resp := callTool(t, s, "rect_move_corner1", map[string]interface{}{"x": 1})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("missing y: got %+v, want -32602", resp.Error)
	}
}

func TestTextEdits(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 100, 100)

	tests := []struct {
		tool        string
		text        string
		wantApplied bool
		wantBox     [4]int
	}{
		{"rect_set_width", "50", true, [4]int{0, 0, 50, 25}},
		{"rect_set_height", "40", true, [4]int{0, 0, 50, 40}},
		{"rect_set_width", "abc", false, [4]int{0, 0, 50, 40}},
		{"rect_set_corner1_x", "10", true, [4]int{10, 0, 50, 40}},
		{"rect_set_corner1_y", "5", true, [4]int{10, 5, 50, 40}},
		{"rect_set_ratio", "0.5", true, [4]int{10, 5, 50, 25}},
		{"rect_set_ratio", "-2", false, [4]int{10, 5, 50, 25}},
	}

	for _, tt := range tests {
		args, _ := json.Marshal(map[string]string{"text": tt.text})
		st := mustTool(t, s, tt.tool, string(args)).(*sessionState)
		if st.Applied == nil || *st.Applied != tt.wantApplied {
			t.Errorf("%s(%q) applied: got %v, want %v", tt.tool, tt.text, st.Applied, tt.wantApplied)
		}
		if st.Box != tt.wantBox {
			t.Errorf("%s(%q) box: got %v, want %v", tt.tool, tt.text, st.Box, tt.wantBox)
		}
	}
}

func TestLocks(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 100, 100)

	st := mustTool(t, s, "rect_lock_dimensions", `{"locked":true}`).(*sessionState)
	if !st.Mode.DimensionsLocked {
		t.Fatal("dimensions should be locked")
	}
	rev := st.Revision

	st = mustTool(t, s, "rect_set_width", `{"text":"60"}`).(*sessionState)
	if *st.Applied {
		t.Error("width edit should be ignored while dimensions are locked")
	}

	// A locked size moves instead of resizing.
	st = mustTool(t, s, "rect_move_corner1", `{"x":30,"y":30}`).(*sessionState)
	if st.Box != [4]int{30, 30, 55, 55} {
		t.Errorf("locked move: got %v, want [30 30 55 55]", st.Box)
	}
	if st.Revision != rev+1 {
		t.Errorf("Revision: got %d, want %d", st.Revision, rev+1)
	}

	mustTool(t, s, "rect_lock_dimensions", `{"locked":false}`)
	st = mustTool(t, s, "rect_lock_ratio", `{"locked":true}`).(*sessionState)
	if !st.Mode.RatioLocked || st.Mode.Ratio != 1 {
		t.Errorf("Mode: got %+v, want ratio 1 locked", st.Mode)
	}

	st = mustTool(t, s, "rect_set_ratio", `{"text":"2"}`).(*sessionState)
	if *st.Applied {
		t.Error("ratio edit should be ignored while the ratio is locked")
	}

	if _, err := s.executeTool("rect_lock_ratio", json.RawMessage(`{}`)); err == nil {
		t.Error("missing locked should fail")
	}
}

func TestSessionOpen_KeepMode(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 400, 400)

	mustTool(t, s, "rect_set_ratio", `{"text":"2"}`)
	mustTool(t, s, "rect_lock_ratio", `{"locked":true}`)

	dir := t.TempDir()
	next := writeImage(t, dir, "next.png", 400, 400)
	args, _ := json.Marshal(map[string]interface{}{"frame_id": 1, "image_paths": []string{next}, "keep_mode": true})
	st := mustTool(t, s, "session_open", string(args)).(*sessionOpenResult)
	if !st.Mode.RatioLocked || st.Box != [4]int{0, 0, 100, 200} {
		t.Errorf("keep_mode: got mode %+v box %v", st.Mode, st.Box)
	}

	args, _ = json.Marshal(map[string]interface{}{"frame_id": 2, "image_paths": []string{next}})
	st = mustTool(t, s, "session_open", string(args)).(*sessionOpenResult)
	if st.Mode.RatioLocked || st.Box != [4]int{0, 0, 100, 100} {
		t.Errorf("default mode: got mode %+v box %v", st.Mode, st.Box)
	}
}

func TestSessionOpen_EvictsPreviousFrame(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 3, 20, 20)
	if s.cache.Len() != 3 {
		t.Fatalf("cache: got %d images, want 3", s.cache.Len())
	}

	openFrame(t, s, 1, 2, 30, 30)
	if s.cache.Len() != 2 {
		t.Errorf("cache after reopen: got %d images, want 2", s.cache.Len())
	}
	if s.frame != 1 {
		t.Errorf("frame: got %d, want 1", s.frame)
	}
}

func TestPreview(t *testing.T) {
	s := newTestServer(t)
	paths := openFrame(t, s, 0, 2, 200, 100)

	res := mustTool(t, s, "rect_preview", `{"method_index":1}`).(*previewResult)
	// 25x25 default crop plus the default 2px border on each side.
	if res.Width != 29 || res.Height != 29 {
		t.Errorf("dimensions: got %dx%d, want 29x29", res.Width, res.Height)
	}
	if res.Path != paths[1] || res.MethodIndex != 1 {
		t.Errorf("method: got %d %s", res.MethodIndex, res.Path)
	}
	if res.MimeType != "image/png" || res.ImageBase64 == "" {
		t.Error("preview should carry a PNG")
	}

	res = mustTool(t, s, "rect_preview", `{"scale":2}`).(*previewResult)
	if res.Width != 54 {
		t.Errorf("scaled width: got %d, want 54", res.Width)
	}

	for _, args := range []string{`{"method_index":2}`, `{"method_index":-1}`} {
		if _, err := s.executeTool("rect_preview", json.RawMessage(args)); !errors.Is(err, ErrBadMethod) {
			t.Errorf("%s: got %v, want ErrBadMethod", args, err)
		}
	}
}

func TestOverlayAndPatches(t *testing.T) {
	s := newTestServer(t)
	paths := openFrame(t, s, 3, 2, 120, 80)

	mustTool(t, s, "rect_move_corner2", `{"x":60,"y":40}`)
	saved := mustTool(t, s, "patch_save", `{}`).(*patchSaveResult)
	if saved.Patch.Box != [4]int{0, 0, 60, 40} || saved.Patch.Frame != 3 {
		t.Errorf("saved patch: got %+v", saved.Patch)
	}
	if len(saved.Patch.Paths) != 2 || saved.Patch.Paths[0] != paths[0] {
		t.Errorf("saved paths: got %v", saved.Patch.Paths)
	}
	if saved.FrameCount != 1 || saved.Total != 1 {
		t.Errorf("counts: got frame=%d total=%d, want 1 and 1", saved.FrameCount, saved.Total)
	}

	mustTool(t, s, "rect_move_corner1", `{"x":70,"y":50}`)
	ov := mustTool(t, s, "rect_overlay", `{}`).(*overlayResult)
	if ov.Saved != 1 || ov.Boxes != 2 {
		t.Errorf("overlay: got saved=%d boxes=%d, want 1 and 2", ov.Saved, ov.Boxes)
	}
	if ov.Width != 120 || ov.Height != 80 {
		t.Errorf("overlay size: got %dx%d, want 120x80", ov.Width, ov.Height)
	}

	list := mustTool(t, s, "patch_list", `{}`).(*patchListResult)
	if list.Count != 1 || len(list.Frames) != 1 || list.Frames[0] != 3 {
		t.Errorf("patch_list: got %+v", list)
	}
	list = mustTool(t, s, "patch_list", `{"frame_id":4}`).(*patchListResult)
	if list.Count != 0 || list.Patches == nil {
		t.Errorf("patch_list for another frame: got %+v", list)
	}
}

func TestPatchList_WithoutSession(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "patch_list", nil)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	var got patchListResult
	decodeContent(t, resp.Result, &got)
	if got.Count != 0 {
		t.Errorf("Count: got %d, want 0", got.Count)
	}
}

// pixelRGB decodes a base64 PNG result and returns the 8-bit colour at (x, y).
func pixelRGB(t *testing.T, b64 string, x, y int) [3]uint8 {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	n := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return [3]uint8{n.R, n.G, n.B}
}

func TestPreview_BorderMatchesOverlayOutline(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 2, 200, 100)

	check := func(wantHex string, want [3]uint8) {
		t.Helper()
		for _, args := range []string{`{"method_index":0}`, `{"method_index":1}`} {
			pv := mustTool(t, s, "rect_preview", args).(*previewResult)
			ov := mustTool(t, s, "rect_overlay", args).(*overlayResult)

			border := pixelRGB(t, pv.ImageBase64, 0, 0)
			// The live rectangle starts at the origin, so (0,0) is on its outline.
			outline := pixelRGB(t, ov.ImageBase64, 0, 0)
			if border != outline {
				t.Errorf("%s: preview border %v, overlay outline %v", args, border, outline)
			}
			if border != want {
				t.Errorf("%s: border got %v, want %v", args, border, want)
			}
			if pv.BorderColor != wantHex || ov.LiveColor != wantHex {
				t.Errorf("%s: colours got %s and %s, want %s", args, pv.BorderColor, ov.LiveColor, wantHex)
			}
		}
	}

	check("#FF0000", [3]uint8{255, 0, 0})

	// Saving takes the first palette entry; the live rectangle moves on to the next.
	mustTool(t, s, "patch_save", `{}`)
	check("#008000", [3]uint8{0, 128, 0})
}

func TestPreview_ScaleLimit(t *testing.T) {
	s := newTestServer(t)
	openFrame(t, s, 0, 1, 100, 100)

	for _, scale := range []float64{-1, maxPreviewScale + 0.5, 1000} {
		resp := callTool(t, s, "rect_preview", map[string]interface{}{"scale": scale})
		if resp.Error == nil || resp.Error.Code != -32602 {
			t.Errorf("scale %g: got %+v, want -32602", scale, resp.Error)
		}
	}

	res := mustTool(t, s, "rect_preview", `{"scale":8}`).(*previewResult)
	if res.Width != 25*8+4 {
		t.Errorf("width at the largest scale: got %d, want %d", res.Width, 25*8+4)
	}
}

func TestSessionOpen_FailureLeavesCacheClean(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	wide := writeImage(t, dir, "wide.png", 200, 100)
	tall := writeImage(t, dir, "tall.png", 100, 200)

	// Without a session nothing may stay cached.
	resp := callTool(t, s, "session_open", map[string]interface{}{"frame_id": 0, "image_paths": []string{wide, tall}})
	if resp.Error == nil {
		t.Fatal("expected error for images of different sizes")
	}
	if s.cache.Len() != 0 {
		t.Errorf("cache after failed open: got %d images, want 0", s.cache.Len())
	}

	// With a session, its own images stay and the rejected frame's go.
	paths := openFrame(t, s, 1, 2, 200, 100)
	resp = callTool(t, s, "session_open", map[string]interface{}{
		"frame_id":    2,
		"image_paths": []string{paths[0], wide, tall},
	})
	if resp.Error == nil {
		t.Fatal("expected error for images of different sizes")
	}
	if s.cache.Len() != 2 {
		t.Errorf("cache after failed reopen: got %d images, want 2", s.cache.Len())
	}
	if s.frame != 1 {
		t.Errorf("frame: got %d, want 1", s.frame)
	}
}
