package goSession

import (
	"context"
	"io"

	"github.com/MrEthical07/goSession/clock"
	"github.com/MrEthical07/goSession/internal/audit"
)

// AuditEvent is one session lifecycle record. Tokens and passwords never
// appear in it.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// AuditTypeCount is the number of accepted audit events of one type.
type AuditTypeCount = audit.TypeCount

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, clk clock.Clock) *audit.Dispatcher {
	var s audit.Sink
	if sink != nil {
		s = sink
	}
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
		Now:        clk.Now,
	}, s)
}
