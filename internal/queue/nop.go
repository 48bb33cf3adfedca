package queue

import "context"

var _ ImportQueue = Nop{}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishImport(context.Context, *ImportEvent) error {
	return nil
}

func (Nop) SubscribeImports(ctx context.Context) (<-chan *ImportEvent, error) {
	ch := make(chan *ImportEvent)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (Nop) Close() error {
	return nil
}
