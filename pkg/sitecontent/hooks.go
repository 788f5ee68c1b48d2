package sitecontent

import (
	"context"
	"log/slog"
)

// Hooks extend the write path without modifying the service. Each slice runs
// in order until a hook fails or sets StopChain.
type Hooks struct {
	BeforeSave []BeforeSaveHook
	AfterSave  []AfterSaveHook
	OnError    []ErrorHook
}

// HookContext carries information through the hook chain
type HookContext struct {
	Context   context.Context
	Metadata  map[string]interface{}
	StopChain bool
}

// NewHookContext creates a new hook context
func NewHookContext(ctx context.Context) *HookContext {
	return &HookContext{
		Context:  ctx,
		Metadata: make(map[string]interface{}),
	}
}

// BeforeSaveHook may reject a write or return a replacement payload. A nil
// payload keeps the current one.
type BeforeSaveHook func(hctx *HookContext, key string, payload map[string]any) (map[string]any, error)

// AfterSaveHook runs after a write has been persisted and published
type AfterSaveHook func(hctx *HookContext, result *SaveResult) error

// ErrorHook is called when an operation fails
type ErrorHook func(hctx *HookContext, operation string, err error)

func (h *Hooks) merge(other *Hooks) {
	if other == nil {
		return
	}
	h.BeforeSave = append(h.BeforeSave, other.BeforeSave...)
	h.AfterSave = append(h.AfterSave, other.AfterSave...)
	h.OnError = append(h.OnError, other.OnError...)
}

func (h *Hooks) executeBeforeSave(ctx context.Context, key string, payload map[string]any) (map[string]any, error) {
	if len(h.BeforeSave) == 0 {
		return payload, nil
	}

	hctx := NewHookContext(ctx)
	current := payload
	for _, hook := range h.BeforeSave {
		next, err := hook(hctx, key, current)
		if err != nil {
			return nil, err
		}
		if next != nil {
			current = next
		}
		if hctx.StopChain {
			break
		}
	}
	return current, nil
}

func (h *Hooks) executeAfterSave(ctx context.Context, result *SaveResult) error {
	if len(h.AfterSave) == 0 {
		return nil
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.AfterSave {
		if err := hook(hctx, result); err != nil {
			return err
		}
		if hctx.StopChain {
			break
		}
	}
	return nil
}

func (h *Hooks) executeOnError(ctx context.Context, operation string, err error) {
	if len(h.OnError) == 0 {
		return
	}

	hctx := NewHookContext(ctx)
	for _, hook := range h.OnError {
		hook(hctx, operation, err)
		if hctx.StopChain {
			break
		}
	}
}

// LoggingHooks logs writes and failures.
func LoggingHooks(logger *slog.Logger) *Hooks {
	return &Hooks{
		AfterSave: []AfterSaveHook{
			func(hctx *HookContext, result *SaveResult) error {
				logger.Info("Document saved", "document", result.Key, "store_key", result.StoreKey)
				return nil
			},
		},
		OnError: []ErrorHook{
			func(hctx *HookContext, operation string, err error) {
				logger.Error("Content operation failed", "op", operation, "err", err)
			},
		},
	}
}
