// Copyright 2016 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package rego

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// WatchPolicyDir watches dir for .rego file changes and reloads each
// changed file via AddPolicyFromFile, so a long-lived Engine picks up edits
// without a restart. The cmd package does not call it. It replaces the teacher's internal bundle-reader
// file-watch loop with a direct fsnotify.Watcher, since this Engine has no
// bundle/signing layer to front (spec.md Non-goals exclude bundle signing).
// Returns a stop function that closes the watcher and ends the goroutine.
func (e *Engine) WatchPolicyDir(dir string) (stop func() error, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create policy watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "watch policy dir %q", dir)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(ev.Name, ".rego") {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := e.AddPolicyFromFile(ev.Name); err != nil {
					e.log.Warn("rego: reload %s: %v", filepath.Base(ev.Name), err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				e.log.Warn("rego: policy watcher: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return w.Close()
	}, nil
}
