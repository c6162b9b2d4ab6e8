// Package flowpipe provides a concurrent pipeline engine: composable streams of values that are produced, transformed, and
// consumed over time with bounded parallelism and disciplined backpressure.
//
// Core types
//   - Subject / Emitter: the producer-facing handle. Emit values, Complete,
//     or Error the stream, then derive a Pipeline from it via AsPipeline.
//   - Pipeline: the consumer-facing handle. Continue pulls the next value,
//     Dispose abandons the stream, Pipe applies operators.
//   - Operator: a Pipeline[A] -> Pipeline[B] transform. Map, Filter, Skip,
//     Take and friends are the trivial operators; Concurrent, Merge,
//     Concat, Zip and Share are the non-trivial combinators.
//
// Concurrency model
// Producers, consumers and operator tasks run on ordinary goroutines.
// Every suspension point (Continue, Emit, a Semaphore acquisition) blocks
// on a channel, and each EmitSource guards its own state with a mutex, so
// goroutines on different OS threads can share one safely.
//
// Defaults
// Unless overridden via Option, the following apply:
//   - buffer size: 0 (Emit suspends until Continue takes the value)
//   - metrics provider: metrics.NoopProvider
//   - logger: a no-op plog.Logger
package flowpipe
