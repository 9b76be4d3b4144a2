// Package sqlite provides a Connector that extracts rows from a SQLite
// database table, using the pure-Go modernc.org/sqlite driver so the module
// stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"goa.design/compliance-runtime/runtime/component"
	rerrors "goa.design/compliance-runtime/runtime/errors"
	"goa.design/compliance-runtime/runtime/message"
)

// SchemaName identifies the output schema this connector produces.
const SchemaName = "sqlite.rows"

var outputSchema = message.Schema{Name: SchemaName, Major: 1, Minor: 0, Patch: 0}

// Row is one extracted row, column name to value.
type Row map[string]any

// Content is the payload carried by Messages this connector produces.
type Content struct {
	Table string
	Rows  []Row
}

// Config is the declarative configuration for one sqlite connector
// instance, decoded from an artifact's source.properties.
type Config struct {
	// Path is the filesystem path to the SQLite database file. Required.
	Path string
	// Query is the SELECT statement to run. Required.
	Query string
	// Table names the logical source for reporting; defaults to Query when
	// empty.
	Table string
}

// Connector implements component.Connector by running cfg.Query against a
// SQLite database opened at cfg.Path.
type Connector struct {
	cfg Config
}

// Name implements component.Connector.
func (c *Connector) Name() string { return "sqlite" }

// SupportedOutputSchemas implements component.Connector.
func (c *Connector) SupportedOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// Extract implements component.Connector: it opens cfg.Path and runs
// cfg.Query, returning every row as a Content.
func (c *Connector) Extract(ctx context.Context, outputSchema message.Schema) (message.Message, error) {
	db, err := sql.Open("sqlite", c.cfg.Path)
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConnectorExtractionError, "open sqlite database "+c.cfg.Path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, c.cfg.Query)
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConnectorExtractionError, "run sqlite query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConnectorExtractionError, "read sqlite column names", err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return message.Message{}, rerrors.Wrap(rerrors.ConnectorExtractionError, "scan sqlite row", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return message.Message{}, rerrors.Wrap(rerrors.ConnectorExtractionError, "iterate sqlite rows", err)
	}

	table := c.cfg.Table
	if table == "" {
		table = c.cfg.Query
	}

	return message.Message{
		Schema:  outputSchema,
		Content: Content{Table: table, Rows: result},
		Source:  fmt.Sprintf("sqlite(%s)", c.cfg.Path),
	}, nil
}

// Factory implements component.ConnectorFactory for Connector.
type Factory struct{}

// ComponentName implements component.ConnectorFactory.
func (Factory) ComponentName() string { return "sqlite" }

// GetOutputSchemas implements component.ConnectorFactory.
func (Factory) GetOutputSchemas() []message.Schema { return []message.Schema{outputSchema} }

// CanCreate implements component.ConnectorFactory.
func (Factory) CanCreate(cfg component.Config) bool {
	path, ok := cfg["path"].(string)
	if !ok || path == "" {
		return false
	}
	query, ok := cfg["query"].(string)
	return ok && query != ""
}

// Create implements component.ConnectorFactory.
func (Factory) Create(cfg component.Config) (component.Connector, error) {
	path, ok := cfg["path"].(string)
	if !ok || path == "" {
		return nil, rerrors.New(rerrors.ConnectorConfigError, "sqlite connector requires a non-empty \"path\" property")
	}
	query, ok := cfg["query"].(string)
	if !ok || query == "" {
		return nil, rerrors.New(rerrors.ConnectorConfigError, "sqlite connector requires a non-empty \"query\" property")
	}
	table, _ := cfg["table"].(string)
	return &Connector{cfg: Config{Path: path, Query: query, Table: table}}, nil
}

// GetServiceDependencies implements component.ConnectorFactory.
func (Factory) GetServiceDependencies() map[string]string { return nil }
