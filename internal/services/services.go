// Package services holds the stateful workflows: visitor pre-approval and
// gate traffic, payments and media uploads. Handlers stay thin and
// translate HTTP to these calls.
package services

import (
	"context"
	"time"

	"github.com/societyhub/society_backend/internal/ws"
)

// Notifier receives realtime events. *ws.Hubs implements it.
type Notifier interface {
	Publish(ctx context.Context, ev ws.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, ws.Event) {}

// Clock returns the current time; tests replace it.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
