// Package history models conversation messages and reconstructs the full
// ordered history from the turn store's serialized payloads.
package history

import (
	"context"
	"fmt"

	"github.com/auccello/amanda-go/internal/store"
)

// PayloadSource yields serialized payloads in storage insertion order.
// *store.Store satisfies it.
type PayloadSource interface {
	ReadAll(ctx context.Context) ([]store.StoredPayload, error)
}

// Reconstructor turns stored payloads back into a flat, chronologically
// ordered message sequence suitable as model context.
type Reconstructor struct {
	src PayloadSource
}

// NewReconstructor creates a Reconstructor reading from src.
func NewReconstructor(src PayloadSource) *Reconstructor {
	return &Reconstructor{src: src}
}

// Reconstruct decodes every stored payload in store order and concatenates
// the results, preserving order within each payload. A decode failure on
// any payload fails the whole reconstruction: history must be complete and
// ordered to serve as correct model context, so there is no best-effort
// skipping. Against an unchanged store the result is deterministic.
func (r *Reconstructor) Reconstruct(ctx context.Context) ([]Message, error) {
	payloads, err := r.src.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Message
	for i, p := range payloads {
		msgs, err := Decode(p.Version, p.Data)
		if err != nil {
			return nil, fmt.Errorf("history: payload %d: %w", i, err)
		}
		out = append(out, msgs...)
	}
	return out, nil
}
