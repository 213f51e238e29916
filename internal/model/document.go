package model

// Document is the unit of content moving through the pipeline. A chunk is a
// Document whose page content has been bounded by the chunking engine; both
// share this shape on the wire.
type Document struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}

// CloneMetadata returns a copy of the document metadata so that chunks can
// inherit it without sharing the underlying map.
func (d Document) CloneMetadata() map[string]string {
	out := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		out[k] = v
	}
	return out
}

// ChunkRecord is the decoded body of one chunk message. PageContent is a
// pointer so the consumer can tell "missing" apart from "empty".
type ChunkRecord struct {
	PageContent *string           `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}
