// Package server exposes the crop rectangle editor over MCP (Model Context
// Protocol).
//
// The server holds one editing session: a frame, the images the compared
// methods produced for it, and a rectedit.Engine bounded by their common
// size. Tools move and resize the rectangle the way the editor's mouse clicks
// and text fields do, render it, and append it to the patch log.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Session:
//   - session_open: Load a frame's method images and reset the rectangle
//   - session_state: Current rectangle, locks and field text
//
// Pointer edits:
//   - rect_move_corner1, rect_move_corner2: Click equivalents
//
// Field edits (return "applied": false when the text was ignored):
//   - rect_set_corner1_x, rect_set_corner1_y
//   - rect_set_height, rect_set_width, rect_set_ratio
//
// Locks:
//   - rect_lock_ratio, rect_lock_dimensions
//
// Rendering:
//   - rect_preview: Cropped preview bordered in the live rectangle's colour
//   - rect_overlay: Full image with saved and live rectangles outlined
//
// Saved patch i of a frame is drawn in palette entry i; the live rectangle
// uses the entry the next saved patch will get, in previews and overlays of
// every method alike.
//
// Patch log:
//   - patch_save: Append the committed rectangle
//   - patch_list: Saved rectangles, optionally for one frame
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses:
//   - -32700: the request line is not JSON
//   - -32601: unknown method
//   - -32602: tools/call params or tool arguments do not decode
//   - -32000: the tool failed, including calls made before session_open and
//     clicks outside the image
//
// Ignored field text is not an error; the editor silently keeps its state in
// that case and so does the server.
//
// # Usage
//
//	srv := server.New(cfg, patches, logger)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal(err)
//	}
package server
