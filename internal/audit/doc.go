// Package audit dispatches login audit events asynchronously to a sink.
//
// # Components
//
//   - [Sink] is implemented by [ChannelSink], [JSONWriterSink], [LogSink] and [NoOpSink].
//   - [Dispatcher] is a buffered relay with drop-if-full or block-if-full semantics.
//   - [Event] is the audit record. Every event gets a ULID at dispatch time.
//
// This package does not decide which events to emit; the login flow does.
package audit
