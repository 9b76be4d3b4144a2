// Package filesystem provides a Connector that extracts file content from
// the local filesystem, rooted at a configured directory and matching a glob
// pattern, for use as a leaf artifact source in a runbook.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

// SchemaName identifies the output schema this connector produces.
const SchemaName = "filesystem.files"

var outputSchema = message.Schema{Name: SchemaName, Major: 1, Minor: 0, Patch: 0}

// File is one extracted file's path (relative to Root) and content.
type File struct {
	Path    string
	Content string
}

// Content is the payload carried by Messages this connector produces.
type Content struct {
	Files []File
}

// Config is the declarative configuration for one filesystem connector
// instance, decoded from an artifact's source.properties.
type Config struct {
	// Root is the directory to walk. Required.
	Root string
	// Pattern is a filepath.Match glob applied to each file's base name.
	// Empty means match every file.
	Pattern string
}

// Connector implements component.Connector by walking Root and reading every
// file whose base name matches Pattern.
type Connector struct {
	cfg Config
}

// Name implements component.Connector.
func (c *Connector) Name() string { return "filesystem" }

// SupportedOutputSchemas implements component.Connector.
func (c *Connector) SupportedOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// Extract implements component.Connector: it walks c.cfg.Root and reads every
// matching file into memory.
func (c *Connector) Extract(ctx context.Context, outputSchema message.Schema) (message.Message, error) {
	var files []File
	err := filepath.WalkDir(c.cfg.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if c.cfg.Pattern != "" {
			matched, err := filepath.Match(c.cfg.Pattern, d.Name())
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}
		data, err := readFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.cfg.Root, path)
		if err != nil {
			rel = path
		}
		files = append(files, File{Path: rel, Content: data})
		return nil
	})
	if err != nil {
		kind := rerrors.ConnectorExtractionError
		if errors.Is(err, fs.ErrNotExist) {
			kind = rerrors.ConnectorConfigError
		}
		return message.Message{}, rerrors.Wrap(kind, "walk filesystem root "+c.cfg.Root, err)
	}

	return message.Message{
		Schema:  outputSchema,
		Content: Content{Files: files},
		Source:  c.cfg.Root,
	}, nil
}

// Factory implements component.ConnectorFactory for Connector.
type Factory struct{}

// ComponentName implements component.ConnectorFactory.
func (Factory) ComponentName() string { return "filesystem" }

// GetOutputSchemas implements component.ConnectorFactory.
func (Factory) GetOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// CanCreate implements component.ConnectorFactory.
func (Factory) CanCreate(cfg component.Config) bool {
	root, ok := cfg["root"].(string)
	return ok && root != ""
}

// Create implements component.ConnectorFactory.
func (Factory) Create(cfg component.Config) (component.Connector, error) {
	root, ok := cfg["root"].(string)
	if !ok || root == "" {
		return nil, rerrors.New(rerrors.ConnectorConfigError, "filesystem connector requires a non-empty \"root\" property")
	}
	pattern, _ := cfg["pattern"].(string)
	return &Connector{cfg: Config{Root: root, Pattern: pattern}}, nil
}

// GetServiceDependencies implements component.ConnectorFactory.
func (Factory) GetServiceDependencies() map[string]string { return nil }

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
