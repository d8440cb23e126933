package main

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watch calls fn each time path is written until ctx is done. The directory
// is watched rather than the file so editors that replace the file on save
// keep triggering.
func watch(ctx context.Context, path string, fn func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}
	log.Printf("watching %s", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Printf("%s changed, replaying", path)
			if err := fn(); err != nil {
				log.Print(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Print(err)
		}
	}
}
