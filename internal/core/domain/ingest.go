package domain

// IngestRequest is already-extracted text to be indexed.
type IngestRequest struct {
	// Text is the document body.
	Text string

	// Source identifies the document, normally its filename.
	Source string

	// Metadata is merged into every chunk produced from Text.
	Metadata Metadata
}

// Upload is a raw document handed over by an upload collaborator.
type Upload struct {
	Filename string
	MIMEType string
	Content  []byte
}

// IngestReport summarises one ingestion.
type IngestReport struct {
	// Source is the document identifier.
	Source string `json:"source"`

	// Chunks is the number of chunks the chunker produced.
	Chunks int `json:"chunks"`

	// Added is the number of chunks stored.
	Added int `json:"added"`

	// Skipped is the number of chunks dropped as duplicates.
	Skipped int `json:"skipped"`

	// Empty is the number of chunks dropped for having no text.
	Empty int `json:"empty"`
}

// CollectionInfo describes a vector collection.
type CollectionInfo struct {
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Dimension int    `json:"dimension"`
	Model     string `json:"model"`
	Location  string `json:"location"`
}
