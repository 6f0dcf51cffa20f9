package chat

import "context"

// HistorySink receives every public ChatRecord for durable storage. The engine
// never reads history back.
type HistorySink interface {
	Store(ctx context.Context, rec ChatRecord) error
}

// HistorySinkFunc adapts a function to HistorySink.
type HistorySinkFunc func(ctx context.Context, rec ChatRecord) error

// Store calls f.
func (f HistorySinkFunc) Store(ctx context.Context, rec ChatRecord) error {
	return f(ctx, rec)
}

type discardHistory struct{}

func (discardHistory) Store(context.Context, ChatRecord) error { return nil }
