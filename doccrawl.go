// Package doccrawl crawls documentation sites to a bounded depth, extracts
// clean text from every page, splits it into retrieval-sized chunks and
// writes an artifact that can be handed unmodified to a vector store
// ingestion endpoint.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, sqlite/, rod/).
package doccrawl
