// Package domain contains the core business types for the workspace
// runtime: virtual paths, read versions, tool policies, indexed
// documents, and search results. It has no dependencies on adapters.
package domain
