// Package inspector implements schema exploration: listing namespaces and
// relations, describing tables with cross-referenced constraint markers, and
// mapping foreign key relationships.
package inspector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/txn2/mcp-db-explorer/pkg/adapter"
	"github.com/txn2/mcp-db-explorer/pkg/connection"
	"github.com/txn2/mcp-db-explorer/pkg/dialect"
	"github.com/txn2/mcp-db-explorer/pkg/meta"
)

// Inspector answers catalog questions through the dialect adapter. It owns no
// caches; every call reflects live catalog state.
type Inspector struct {
	mgr *connection.Manager
	ad  adapter.Adapter
	log *slog.Logger
}

// New builds an inspector over an initialized connection manager.
func New(mgr *connection.Manager, ad adapter.Adapter, log *slog.Logger) *Inspector {
	if log == nil {
		log = slog.Default()
	}
	return &Inspector{mgr: mgr, ad: ad, log: log.With("component", "inspector")}
}

// GetSchemas lists user schemas with table and view counts, system schemas
// excluded. Enrichment failures degrade to log warnings.
func (i *Inspector) GetSchemas(ctx context.Context) ([]meta.SchemaInfo, error) {
	var schemas []meta.SchemaInfo
	err := i.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		names, err := i.ad.SchemaNames(ctx, conn)
		if err != nil {
			return fmt.Errorf("listing schemas: %w", err)
		}
		for _, name := range names {
			if dialect.IsSystemSchema(i.ad.Dialect(), name) {
				continue
			}
			info := meta.SchemaInfo{Name: name}

			schemaName := name
			tables, err := i.ad.TableNames(ctx, conn, &schemaName)
			if err != nil {
				i.log.Warn("table count skipped", "schema", name, "error", err)
			} else {
				count := int64(len(tables))
				info.TableCount = &count
			}
			if i.ad.Capabilities().Views {
				views, err := i.ad.ViewNames(ctx, conn, &schemaName)
				if err != nil {
					i.log.Warn("view count skipped", "schema", name, "error", err)
				} else {
					count := int64(len(views))
					info.ViewCount = &count
				}
			}
			i.ad.EnrichSchema(ctx, conn, &info)
			schemas = append(schemas, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if schemas == nil {
		schemas = []meta.SchemaInfo{}
	}
	return schemas, nil
}

// TableListing is the lean result of a table listing: names only, views
// separated from base tables.
type TableListing struct {
	Schema *string  `json:"schema,omitempty"`
	Tables []string `json:"tables"`
	Views  []string `json:"views,omitempty"`
	Count  int      `json:"count"`
}

// GetTables lists table names in a schema, optionally including views. A nil
// schema means the dialect's default namespace.
func (i *Inspector) GetTables(ctx context.Context, schema *string, includeViews bool) (*TableListing, error) {
	listing := &TableListing{Schema: schema, Tables: []string{}}
	err := i.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		tables, err := i.ad.TableNames(ctx, conn, schema)
		if err != nil {
			return fmt.Errorf("listing tables: %w", err)
		}
		listing.Tables = tables
		if includeViews && i.ad.Capabilities().Views {
			views, err := i.ad.ViewNames(ctx, conn, schema)
			if err != nil {
				return fmt.Errorf("listing views: %w", err)
			}
			listing.Views = views
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	listing.Count = len(listing.Tables) + len(listing.Views)
	return listing, nil
}

// DescribeTable builds the full descriptor of one table: columns with
// derived key markers, indexes, constraints, and dialect enrichment.
func (i *Inspector) DescribeTable(ctx context.Context, table string, schema *string) (*meta.TableInfo, error) {
	info := &meta.TableInfo{
		Name:        table,
		Schema:      schema,
		TableType:   "BASE TABLE",
		Columns:     []meta.ColumnInfo{},
		Indexes:     []meta.IndexInfo{},
		Constraints: []meta.ConstraintInfo{},
	}

	err := i.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		columns, err := i.ad.Columns(ctx, conn, table, schema)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			return fmt.Errorf("table %q not found", table)
		}
		info.Columns = columns

		pk, err := i.ad.PrimaryKeyColumns(ctx, conn, table, schema)
		if err != nil {
			return err
		}
		if len(pk) > 0 {
			info.Constraints = append(info.Constraints, meta.ConstraintInfo{
				Name:           "PRIMARY",
				ConstraintType: "PRIMARY KEY",
				Columns:        pk,
			})
		}
		markPrimaryKeys(info, pk)

		if i.ad.Capabilities().Indexes {
			indexes, err := i.ad.Indexes(ctx, conn, table, schema)
			if err != nil {
				return err
			}
			info.Indexes = indexes
			markIndexed(info)
		}

		if i.ad.Capabilities().ForeignKeys {
			fks, err := i.ad.ForeignKeys(ctx, conn, table, schema)
			if err != nil {
				return err
			}
			applyForeignKeys(info, fks)
		}

		unique, err := i.ad.UniqueConstraints(ctx, conn, table, schema)
		if err != nil {
			return err
		}
		info.Constraints = append(info.Constraints, unique...)
		markUnique(info, unique)

		checks, err := i.ad.CheckConstraints(ctx, conn, table, schema)
		if err != nil {
			return err
		}
		info.Constraints = append(info.Constraints, checks...)

		i.ad.EnrichTable(ctx, conn, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// GetRelationships maps the foreign key graph of a schema. Dialects without
// foreign keys short-circuit to an empty list without touching the database.
func (i *Inspector) GetRelationships(ctx context.Context, schema *string) ([]meta.RelationshipInfo, error) {
	if !i.ad.Capabilities().ForeignKeys {
		return []meta.RelationshipInfo{}, nil
	}

	relationships := []meta.RelationshipInfo{}
	err := i.mgr.WithConn(ctx, func(ctx context.Context, conn *sqlx.Conn) error {
		tables, err := i.ad.TableNames(ctx, conn, schema)
		if err != nil {
			return fmt.Errorf("listing tables: %w", err)
		}
		for _, table := range tables {
			fks, err := i.ad.ForeignKeys(ctx, conn, table, schema)
			if err != nil {
				i.log.Warn("foreign keys skipped", "table", table, "error", err)
				continue
			}
			for _, fk := range fks {
				relationships = append(relationships, meta.RelationshipInfo{
					FromTable:      table,
					FromSchema:     schema,
					FromColumns:    fk.Columns,
					ToTable:        fk.ReferredTable,
					ToSchema:       fk.ReferredSchema,
					ToColumns:      fk.ReferredColumns,
					ConstraintName: fk.Name,
					OnDelete:       fk.OnDelete,
					OnUpdate:       fk.OnUpdate,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return relationships, nil
}

func markPrimaryKeys(info *meta.TableInfo, pk []string) {
	for _, name := range pk {
		if col := info.Column(name); col != nil {
			col.PrimaryKey = true
			col.Indexed = true
		}
	}
}

func markIndexed(info *meta.TableInfo) {
	for _, idx := range info.Indexes {
		for _, name := range idx.Columns {
			if col := info.Column(name); col != nil {
				col.Indexed = true
				if idx.Unique && len(idx.Columns) == 1 {
					col.Unique = true
				}
			}
		}
	}
}

func markUnique(info *meta.TableInfo, constraints []meta.ConstraintInfo) {
	for _, uc := range constraints {
		// Only single-column constraints make an individual column unique.
		if len(uc.Columns) != 1 {
			continue
		}
		if col := info.Column(uc.Columns[0]); col != nil {
			col.Unique = true
		}
	}
}

// applyForeignKeys records FK constraints and annotates columns with their
// referenced target in table.column form.
func applyForeignKeys(info *meta.TableInfo, fks []adapter.ForeignKey) {
	for _, fk := range fks {
		constraint := meta.ConstraintInfo{
			Name:              fk.Name,
			ConstraintType:    "FOREIGN KEY",
			Columns:           fk.Columns,
			ReferencedTable:   &fk.ReferredTable,
			ReferencedColumns: fk.ReferredColumns,
		}
		info.Constraints = append(info.Constraints, constraint)

		for n, name := range fk.Columns {
			col := info.Column(name)
			if col == nil || n >= len(fk.ReferredColumns) {
				continue
			}
			target := fmt.Sprintf("%s.%s", fk.ReferredTable, fk.ReferredColumns[n])
			col.ForeignKey = &target
		}
	}
}
