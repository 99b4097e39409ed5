// Package domain holds the employee record model shared by the ingestion
// pipeline, the stores and the HTTP layer.
package domain
