/*
Package types defines the core data structures shared across tablesync.

This package contains the tagged JSON value variant that every shredder,
stitcher, and CSV component pattern-matches on, plus the row/table shapes
that make up the parent/child intermediate form produced by the engine.

# Architecture

Documents arriving from the document store are arbitrary, schema-less JSON.
Since Go has no native sum type for "null | bool | number | string | array |
object", this package models that shape explicitly as Value, and every other
package in the module operates on Value rather than interface{} directly.

	┌──────────────────── DATA MODEL ─────────────────────┐
	│                                                       │
	│  Value (tagged variant)                              │
	│    Null | Bool | Number | String                     │
	│    Array([]Value) | Object(map[string]Value)         │
	│                                                       │
	│  Document = Object                                   │
	│  Row = map[string]Value (flat, one nesting level)    │
	│  Table = name + accumulated []Row                    │
	│                                                       │
	└───────────────────────────────────────────────────────┘

# Core Types

  - Value: tagged union over the document model described in the engine's
    data model (§3): scalars, arrays, and nested objects.
  - Document: an alias for Value restricted to the Object kind at the root.
  - Row: a single flattened record destined for one CSV table.
  - Table: a named, schema-tracking accumulation of Rows.

# Design Patterns

Kind Tag Pattern:

	Value carries an explicit Kind rather than relying on a type switch over
	interface{}, so the Shredder can walk a document iteratively with a work
	queue instead of recursing to the document's nesting depth. The
	Stitcher's path helpers recurse once per dotted path segment.

Conversion Helpers:

	FromInterface/ToInterface bridge to and from encoding/json's native
	interface{} decoding, which is how documents arrive from the DocStore SDK
	and how they are re-serialized for upsert.

# Integration Points

This package integrates with:

  - pkg/shred: walks a Document to produce a ParentRow and child Tables.
  - pkg/stitch: walks Tables to reconstruct Documents.
  - pkg/objectstore/csv: serializes/deserializes Row cells to/from CSV text.
  - pkg/docstore: coerces Value back to JSON-safe interface{} for upsert.
*/
package types
