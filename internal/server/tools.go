package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// textInput is the schema shared by the tools that mirror the editor's text
// fields. The text is parsed exactly as typed; unparseable text is ignored.
func textInput(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"text"},
	}
}

func pointInput(corner string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{
				"type":        "integer",
				"description": "X coordinate of " + corner + " in image pixels",
			},
			"y": map[string]interface{}{
				"type":        "integer",
				"description": "Y coordinate of " + corner + " in image pixels",
			},
		},
		"required": []string{"x", "y"},
	}
}

func lockInput(what string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"locked": map[string]interface{}{
				"type":        "boolean",
				"description": "true to lock the " + what + ", false to unlock it",
			},
		},
		"required": []string{"locked"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Session
		{
			Name:        "session_open",
			Description: "Open a frame for editing. Every path is one method's output for the same frame and all images must have the same size. The rectangle resets to a square in the top-left corner.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": map[string]interface{}{
						"type":        "integer",
						"description": "Frame index written to the patch log as img_idx",
					},
					"image_paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the method images, in method order",
					},
					"keep_mode": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep the current locks and ratio. Defaults to the server setting.",
					},
				},
				"required": []string{"frame_id", "image_paths"},
			},
		},
		{
			Name:        "session_state",
			Description: "Return the committed rectangle, its locks and the text shown in the editor fields.",
			InputSchema: noArgs(),
		},

		// Pointer edits
		{
			Name:        "rect_move_corner1",
			Description: "Move the top-left corner, as a left click on the image would. Points off the image are rejected.",
			InputSchema: pointInput("the top-left corner"),
		},
		{
			Name:        "rect_move_corner2",
			Description: "Move the bottom-right corner, as a right click on the image would. Points off the image are rejected.",
			InputSchema: pointInput("the bottom-right corner"),
		},

		// Field edits
		{
			Name:        "rect_set_corner1_x",
			Description: "Type a new left edge. The rectangle keeps its size when the new edge would cross the right edge.",
			InputSchema: textInput("Integer X coordinate, e.g. \"120\""),
		},
		{
			Name:        "rect_set_corner1_y",
			Description: "Type a new top edge. The rectangle keeps its size when the new edge would cross the bottom edge.",
			InputSchema: textInput("Integer Y coordinate, e.g. \"48\""),
		},
		{
			Name:        "rect_set_height",
			Description: "Type a new height. Ignored while dimensions are locked. With the ratio locked the width follows.",
			InputSchema: textInput("Integer height in pixels"),
		},
		{
			Name:        "rect_set_width",
			Description: "Type a new width. Ignored while dimensions are locked. With the ratio locked the height follows.",
			InputSchema: textInput("Integer width in pixels"),
		},
		{
			Name:        "rect_set_ratio",
			Description: "Type a new height/width ratio and resize the rectangle to it. Ignored while the ratio is locked.",
			InputSchema: textInput("Positive decimal ratio, e.g. \"0.75\""),
		},

		// Locks
		{
			Name:        "rect_lock_ratio",
			Description: "Lock or unlock the height/width ratio. Locking uses the current ratio.",
			InputSchema: lockInput("ratio"),
		},
		{
			Name:        "rect_lock_dimensions",
			Description: "Lock or unlock width and height. While locked, corner edits move the rectangle instead of resizing it.",
			InputSchema: lockInput("dimensions"),
		},

		// Rendering
		{
			Name:        "rect_preview",
			Description: "Crop the committed rectangle out of one method's image and return it as base64-encoded PNG, bordered in the rectangle's outline colour.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"method_index": map[string]interface{}{
						"type":        "integer",
						"description": "Index into image_paths. Default 0",
						"default":     0,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size), at most 8. Default 1.0",
						"default":     1.0,
						"maximum":     maxPreviewScale,
					},
				},
			},
		},
		{
			Name:        "rect_overlay",
			Description: "Return one method's full image with the frame's saved patches and the live rectangle outlined, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"method_index": map[string]interface{}{
						"type":        "integer",
						"description": "Index into image_paths. Default 0",
						"default":     0,
					},
				},
			},
		},

		// Patch log
		{
			Name:        "patch_save",
			Description: "Append the committed rectangle for the open frame to the patch log.",
			InputSchema: noArgs(),
		},
		{
			Name:        "patch_list",
			Description: "List saved patches, for one frame or for all frames.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame_id": map[string]interface{}{
						"type":        "integer",
						"description": "Only list this frame's patches. Omit for all frames.",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
