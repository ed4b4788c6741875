package model

// Document is one source document and its tables, in source order
type Document struct {
	ID     string       `json:"id"`
	Origin string       `json:"origin,omitempty"` // File path or URL the document came from
	Tables []TableEntry `json:"tables"`
}

// TableEntry is one keyed table payload inside a document
type TableEntry struct {
	Key        string `json:"key"`
	Table      string `json:"table,omitempty"`   // Table markup
	Caption    string `json:"caption,omitempty"` // Free-text caption
	HasTable   bool   `json:"has_table"`         // Whether the payload carried a "table" field
	HasCaption bool   `json:"has_caption"`       // Whether the payload carried a "caption" field
}

// MappingKey returns the classification mapping key for a table of doc
func MappingKey(docID, tableKey string) string {
	return docID + "_" + tableKey
}

// Mapping assigns a declared layout to "<document_id>_<table_key>" keys
type Mapping map[string]LayoutType

// Lookup returns the declared layout for a table, LayoutUnknown when absent
func (m Mapping) Lookup(docID, tableKey string) LayoutType {
	if m == nil {
		return LayoutUnknown
	}
	return m[MappingKey(docID, tableKey)]
}
