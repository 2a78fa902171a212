package server

import (
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/crop-editor-mcp/internal/rectedit"
)

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type modeState struct {
	RatioLocked      bool    `json:"ratio_locked"`
	Ratio            float64 `json:"ratio"`
	DimensionsLocked bool    `json:"dimensions_locked"`
}

type readoutState struct {
	Corner1X string `json:"corner1_x"`
	Corner1Y string `json:"corner1_y"`
	Height   string `json:"height"`
	Width    string `json:"width"`
	Ratio    string `json:"ratio"`
}

// sessionState is returned by every rectangle tool.
type sessionState struct {
	FrameID  int          `json:"frame_id"`
	Paths    []string     `json:"image_paths"`
	Bounds   point        `json:"bounds"` // x is the width, y the height
	Corner1  point        `json:"corner1"`
	Corner2  point        `json:"corner2"`
	Box      [4]int       `json:"box"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Mode     modeState    `json:"mode"`
	Readout  readoutState `json:"readout"`
	Revision int          `json:"revision"`
	// Applied is set by the field edits: false means the input was ignored.
	Applied *bool `json:"applied,omitempty"`
}

// state snapshots the session. Callers hold s.mu and have checked s.engine.
func (s *Server) state() *sessionState {
	r := s.engine.Rect()
	b := s.engine.Bounds()
	m := s.engine.Mode()
	ro := s.engine.Readout()

	return &sessionState{
		FrameID: s.frame,
		Paths:   append([]string(nil), s.paths...),
		Bounds:  point{b.Width, b.Height},
		Corner1: point{r.Corner1.X, r.Corner1.Y},
		Corner2: point{r.Corner2.X, r.Corner2.Y},
		Box:     r.Box(),
		Width:   r.Width(),
		Height:  r.Height(),
		Mode: modeState{
			RatioLocked:      m.RatioLocked,
			Ratio:            m.Ratio,
			DimensionsLocked: m.DimensionsLocked,
		},
		Readout: readoutState{
			Corner1X: ro.Corner1X,
			Corner1Y: ro.Corner1Y,
			Height:   ro.Height,
			Width:    ro.Width,
			Ratio:    ro.Ratio,
		},
		Revision: s.revision,
	}
}

// onCommit is the engine observer. It runs inside a tool call, under s.mu.
func (s *Server) onCommit(r rectedit.Rect) {
	s.revision++
	s.log.WithFields(logrus.Fields{
		"frame":    s.frame,
		"corner1":  r.Corner1.String(),
		"corner2":  r.Corner2.String(),
		"revision": s.revision,
	}).Debug("rectangle committed")
}
