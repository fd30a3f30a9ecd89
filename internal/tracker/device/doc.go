// Package device provides the execution and buffer-sizing primitives shared
// by every stage of the reconstruction pipeline.
//
// The pipeline is written against a work-group model: each stage splits its
// input into independent groups (a cell partition, a block of middle
// spacepoints) and runs one group per task on a bounded pool. Phases that
// must be separated by a group-wide barrier are written as consecutive loops
// over the group's items inside a single task, which gives the same ordering
// guarantees. Host-side synchronisation between stages is the pool's Wait.
//
// Buffer sizing follows a strict counting-then-filling discipline: a stage
// first counts its output, the caller allocates exactly that much, and the
// fill pass writes at offsets derived from an exclusive prefix sum. Nothing
// in this package grows a buffer.
package device
