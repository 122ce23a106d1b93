package main

import (
	"context"
	"encoding/json"
	"fmt"
)

// readList decodes the JSON array stored under key. found is false when the
// key holds nothing, which callers treat as "first run".
func readList[T any](ctx context.Context, docs DocumentStore, key string) ([]T, bool, error) {
	raw, found, err := docs.GetDocument(ctx, key)
	if err != nil || !found {
		return nil, found, err
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, true, fmt.Errorf("error decoding %s: %w", key, err)
	}
	return items, true, nil
}

func writeList[T any](ctx context.Context, docs DocumentStore, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}
	return docs.PutDocument(ctx, key, raw)
}
