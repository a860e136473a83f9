package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for book documents.
//
// Titles and authors use the standard analyzer so Bengali names tokenize
// without English stemming getting in the way. Descriptions are long English
// or mixed prose and get the English analyzer. Codes, categories and tags
// are matched exactly.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	// Title - primary search target, stored for hits
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = standard.Name
	authorFieldMapping.Store = true
	authorFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorFieldMapping)

	// Description - searchable but not stored (too large)
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// --- Keyword fields (exact match) ---

	for _, field := range []string{"id", "isbn", "physical_code", "category", "tags"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field == "id"
		docMapping.AddFieldMappingsAt(field, fm)
	}

	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
