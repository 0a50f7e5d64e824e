package machine

import (
	"context"

	"github.com/coactor/machine/pkg/concurrency"
)

// senderEntry binds one typed Sender to one queued value. Methods on a
// generic type can't themselves take new type parameters, so Enqueue is a
// free function that constructs the type-erased entry on the caller's
// behalf.
type senderEntry[I any] struct {
	sender concurrency.Sender[I]
	value  I
}

func (e senderEntry[I]) flush(ctx context.Context) error {
	return e.sender.Send(ctx, e.value)
}

// Enqueue records a deferred send of value to sender, to be dispatched by
// the adapter after the current Receive call returns.
func Enqueue[I any](outbound *OutboundBuffer, sender concurrency.Sender[I], value I) {
	outbound.append(senderEntry[I]{sender: sender, value: value})
}
