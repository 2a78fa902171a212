// Package config reads the editor's settings from the environment, after
// loading an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/crop-editor-mcp/internal/imaging"
)

// Environment variables read by Load.
const (
	EnvLogLevel    = "CROP_EDITOR_LOG_LEVEL"
	EnvPatchLog    = "CROP_EDITOR_PATCH_LOG"
	EnvBoxColors   = "CROP_EDITOR_BOX_COLORS"
	EnvBoxWidth    = "CROP_EDITOR_BOX_WIDTH"
	EnvPatchBorder = "CROP_EDITOR_PATCH_BORDER"
	EnvKeepMode    = "CROP_EDITOR_KEEP_MODE"
)

// Config holds the editor settings.
type Config struct {
	LogLevel logrus.Level
	// PatchLog is the YAML file committed rectangles are appended to.
	PatchLog string
	// BoxColors is the outline palette; patch i of a frame uses entry i mod len.
	BoxColors []string
	// BoxWidth is the outline width in pixels on the overlay.
	BoxWidth int
	// PatchBorder is the coloured padding around a cropped preview.
	PatchBorder int
	// KeepMode carries the lock mode over when a new frame is opened.
	KeepMode bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:    logrus.InfoLevel,
		PatchLog:    "crop_info.yaml",
		BoxColors:   append([]string(nil), imaging.DefaultPalette...),
		BoxWidth:    2,
		PatchBorder: 2,
		KeepMode:    false,
	}
}

// Load reads envFiles (".env" when none are given) and then the environment.
// A missing env file is not an error. Unparseable values are logged and
// replaced by their defaults.
func Load(log logrus.FieldLogger, envFiles ...string) Config {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not load env file")
	}

	cfg := Default()
	if v, ok := lookup(EnvLogLevel); ok {
		if lvl, err := logrus.ParseLevel(v); err == nil {
			cfg.LogLevel = lvl
		} else {
			log.WithField("value", v).Warnf("invalid %s, using %s", EnvLogLevel, cfg.LogLevel)
		}
	}
	if v, ok := lookup(EnvPatchLog); ok {
		cfg.PatchLog = v
	}
	if v, ok := lookup(EnvBoxColors); ok {
		cfg.BoxColors = splitList(v)
	}
	if v, ok := lookup(EnvBoxWidth); ok {
		cfg.BoxWidth = parseInt(log, EnvBoxWidth, v, cfg.BoxWidth)
	}
	if v, ok := lookup(EnvPatchBorder); ok {
		cfg.PatchBorder = parseInt(log, EnvPatchBorder, v, cfg.PatchBorder)
	}
	if v, ok := lookup(EnvKeepMode); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.KeepMode = b
		} else {
			log.WithField("value", v).Warnf("invalid %s, using %t", EnvKeepMode, cfg.KeepMode)
		}
	}

	for _, problem := range cfg.Validate() {
		log.Warn(problem)
	}
	return cfg
}

// Validate replaces out-of-range values with defaults and reports each
// replacement.
func (c *Config) Validate() []string {
	def := Default()
	var problems []string

	if strings.TrimSpace(c.PatchLog) == "" {
		problems = append(problems, "patch log path is empty, using "+def.PatchLog)
		c.PatchLog = def.PatchLog
	}
	if c.BoxWidth < 0 {
		problems = append(problems, "box width must be >= 0, using "+strconv.Itoa(def.BoxWidth))
		c.BoxWidth = def.BoxWidth
	}
	if c.PatchBorder < 0 {
		problems = append(problems, "patch border must be >= 0, using "+strconv.Itoa(def.PatchBorder))
		c.PatchBorder = def.PatchBorder
	}

	var colors []string
	for _, name := range c.BoxColors {
		if _, err := imaging.ParseColor(name); err != nil {
			problems = append(problems, "dropping box color: "+err.Error())
			continue
		}
		colors = append(colors, name)
	}
	if len(colors) == 0 {
		if len(c.BoxColors) > 0 {
			problems = append(problems, "no usable box colors, using the default palette")
		}
		colors = def.BoxColors
	}
	c.BoxColors = colors

	return problems
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(log logrus.FieldLogger, key, v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithField("value", v).Warnf("invalid %s, using %d", key, def)
		return def
	}
	return n
}
