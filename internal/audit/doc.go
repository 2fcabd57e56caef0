// Package audit buffers authentication events and hands them to a sink on a
// background goroutine.
//
// Sinks shipped here: [NoOpSink], [ChannelSink] (tests), [JSONWriterSink]
// (append-only files) and [SlogSink] (the service log). The engine decides
// which events exist; this package only moves them.
package audit
