package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for photo documents.
//
// Captions get English stemming so "swimming" matches "swim"; IDs and the
// category get exact keyword matching for filtering.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Captions - the primary search targets
	innerFieldMapping := bleve.NewTextFieldMapping()
	innerFieldMapping.Analyzer = en.AnalyzerName
	innerFieldMapping.Store = true
	innerFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("inner_caption", innerFieldMapping)

	outerFieldMapping := bleve.NewTextFieldMapping()
	outerFieldMapping.Analyzer = en.AnalyzerName
	outerFieldMapping.Store = true
	outerFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("outer_caption", outerFieldMapping)

	// Book name - searchable so "summer" finds photos in "Summer 2024"
	bookNameFieldMapping := bleve.NewTextFieldMapping()
	bookNameFieldMapping.Analyzer = en.AnalyzerName
	bookNameFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("book_name", bookNameFieldMapping)

	// --- Keyword fields (exact match, filterable) ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	bookIDFieldMapping := bleve.NewTextFieldMapping()
	bookIDFieldMapping.Analyzer = keyword.Name
	bookIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("book_id", bookIDFieldMapping)

	pageIDFieldMapping := bleve.NewTextFieldMapping()
	pageIDFieldMapping.Analyzer = keyword.Name
	pageIDFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("page_id", pageIDFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
