// Package watcher watches a knowledge base for changes and reports them as
// debounced batches.
//
// A batch carries every relevant change seen during the debounce window.
// Consumers treat a batch as a signal to rebuild the whole index; the events
// inside are informational.
//
// Usage:
//
//	w, err := watcher.New(watcher.Options{Debounce: cfg.WatchDebounce()})
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, root) }()
//	for batch := range w.Events() {
//	    // rebuild
//	}
package watcher
