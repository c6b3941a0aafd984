// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query pipeline runs through the services in order: schema
// inference, chunking, query planning, parallel chunk execution,
// aggregation, and citation extraction. ExplorerService orchestrates
// the pipeline and is the only service most callers need.
package services
