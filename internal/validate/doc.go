// Package validate implements the six-stage validation pipeline for
// automation documents.
//
// Stages run in a fixed order:
//
//	1. Syntax      — parse the text into a tree (failure is terminal)
//	2. Structure   — shape checks on the (optionally normalized) tree
//	3. Referential — entity/area references against the live directory
//	4. Services    — service identifiers against the service catalog
//	5. Safety      — risk scoring and risky-pattern detection
//	6. Style       — deprecated keys and template expression checks
//
// A stage-1 failure returns immediately with score 0. Stages 2-6 all
// run and merge their findings; in strict mode the pipeline stops
// after the first stage that records an error. Stages 3 and 4 consult
// external collaborators and degrade gracefully when those are
// unreachable: stage 3 to a single warning, stage 4 to a no-op.
// No error ever crosses a stage boundary as a panic or exception;
// callers always receive a complete Result.
//
// Each call owns its own accumulator, so the pipeline is safe to run
// concurrently for unrelated documents without locking.
package validate
