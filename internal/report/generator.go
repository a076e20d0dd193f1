// Package report serializes analytics results for export.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fjacquet/fin-insights/internal/logging"
	"fjacquet/fin-insights/internal/models"

	"gopkg.in/yaml.v3"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Generator renders run reports and module outputs in various formats.
type Generator struct {
	logger logging.Logger
}

// NewGenerator creates a new instance of Generator.
func NewGenerator(logger logging.Logger) *Generator {
	return &Generator{logger: logging.OrNop(logger).WithField("component", "report")}
}

// Generate renders v in the given format (json or yaml).
func (g *Generator) Generate(v interface{}, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return g.generateJSON(v)
	case FormatYAML, "yml":
		return g.generateYAML(v)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// Write renders v to w.
func (g *Generator) Write(w io.Writer, v interface{}, format string) error {
	data, err := g.Generate(v, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteFile renders v to path. The format is taken from the file extension
// and defaults to json.
func (g *Generator) WriteFile(path string, v interface{}) error {
	format := FormatForPath(path)
	data, err := g.Generate(v, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, models.PermissionDirectory); err != nil {
			return fmt.Errorf("error creating directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, models.PermissionReportFile); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	g.logger.Info("Report written", logging.F(logging.FieldFile, path), logging.F("format", format))
	return nil
}

// FormatForPath maps a file extension to an output format.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func (g *Generator) generateJSON(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return append(data, '\n'), nil
}

func (g *Generator) generateYAML(v interface{}) ([]byte, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return nil, fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return data, nil
}
