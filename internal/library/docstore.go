package library

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/plugins/postgresql"
)

// Documents table schema, matching db/migrations. The raw SQL in Store
// and the Genkit Postgres plugin configuration both assume it.
const (
	DocumentsTable        = "documents"
	DocumentsSchema       = "public"
	DocumentsIDColumn     = "id"
	DocumentsContentCol   = "content"
	DocumentsEmbeddingCol = "embedding"
	DocumentsMetadataCol  = "metadata"
)

// NewDocStoreConfig builds the Genkit Postgres plugin configuration for
// the documents table. Production setup and tests share it so the
// plugin always writes the migrated schema; source_type is lifted out
// of the metadata JSON into its own column for cheap filtering.
func NewDocStoreConfig(embedder ai.Embedder) *postgresql.Config {
	return &postgresql.Config{
		TableName:          DocumentsTable,
		SchemaName:         DocumentsSchema,
		IDColumn:           DocumentsIDColumn,
		ContentColumn:      DocumentsContentCol,
		EmbeddingColumn:    DocumentsEmbeddingCol,
		MetadataJSONColumn: DocumentsMetadataCol,
		MetadataColumns:    []string{"source_type"},
		Embedder:           embedder,
	}
}
