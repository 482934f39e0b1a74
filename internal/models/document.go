// ABOUTME: Document is one eligible text file read from the document root
// ABOUTME: Documents are transient; only their chunks are persisted
package models

// Document is a source file's full text plus its content fingerprint
type Document struct {
	Source      string `json:"source"`
	Text        string `json:"text"`
	Fingerprint string `json:"fingerprint"`
}
