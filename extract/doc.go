// Package extract provides text extraction from uploaded documents.
//
// An Extractor turns a raw byte stream into text segments ready for
// chunking and indexing. The Auto extractor routes by filename extension:
//
//   - plain text (default) via the langchaingo text loader
//   - markdown via goldmark AST flattening
//   - HTML via goquery selection plus html-to-markdown conversion
//
// Blank segments may be returned; the ingestion pipeline discards them.
package extract
