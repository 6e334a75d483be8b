package app

import (
	"context"
)

// startBackground launches the connectivity monitor and the periodic sync
// loop. It returns immediately; both stop when ctx is cancelled.
func startBackground(ctx context.Context, svc *services) {
	if svc.monitor != nil {
		svc.monitor.Start(ctx)
	}
	go svc.engine.Run(ctx)
}
