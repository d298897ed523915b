// Package core defines the shared language of the leapmodel system.
//
// This package contains:
//   - Profiling entities (ColumnProfile, TableProfile)
//   - Relationship and star-schema entities (RelationshipEdge, StarFact)
//   - The ModelState threaded through the pipeline
//   - Structured pipeline errors (IngestionError, ProfilingError, ModelingError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
