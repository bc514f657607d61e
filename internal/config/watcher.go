package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes and passes the result
// to fn. Invalid edits are reported through onError and otherwise ignored.
// Watching does nothing when no config file was found.
func (l *Loader) Watch(fn func(*Config), onError func(error)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}

	var mu sync.Mutex
	l.v.OnConfigChange(func(fsnotify.Event) {
		mu.Lock()
		defer mu.Unlock()

		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
	return true
}
