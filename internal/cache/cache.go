package cache

import (
	"context"
	"time"
)

// ReceiptCache records delivery confirmations for quick lookup by the
// console UI. Best-effort: losing a receipt never affects message state.
type ReceiptCache interface {
	StoreSent(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error
}
