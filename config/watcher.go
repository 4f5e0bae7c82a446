package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	gLock     sync.RWMutex
	gConfig   = Default()
	listeners []func(*Config)
)

// FromFile decodes path over the defaults. Files ending in .yaml or .yml are
// parsed as YAML, anything else as JSON.
func FromFile(path string) (*Config, error) {
	config := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, config)
	default:
		err = json.Unmarshal(b, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %v: %w", path, err)
	}
	log.Debugf("Loaded configuration: %v", spew.Sdump(config))
	return config, nil
}

func Get() *Config {
	gLock.RLock()
	defer gLock.RUnlock()
	return gConfig
}

// OnChange registers f to be called with every configuration reloaded from
// disk after Load.
func OnChange(f func(*Config)) {
	gLock.Lock()
	defer gLock.Unlock()
	listeners = append(listeners, f)
}

func set(c *Config) {
	gLock.Lock()
	gConfig = c
	ls := append([]func(*Config){}, listeners...)
	gLock.Unlock()
	for _, l := range ls {
		l(c)
	}
}

func waitForChange(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-watcher.Events:
	}
	// Editors tend to write in bursts.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second / 10):
	}
	return ctx.Err()
}

// Load reads the configuration at path and keeps it current until ctx is
// done. An empty path leaves the defaults in place.
func Load(ctx context.Context, path string) (*Config, error) {
	if path == "" {
		log.Infof("No configuration file given, using defaults")
		return Get(), nil
	}
	config, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded configuration from %v", path)
	gLock.Lock()
	gConfig = config
	gLock.Unlock()
	go func() {
		for ctx.Err() == nil {
			if err := waitForChange(ctx, path); err != nil {
				if ctx.Err() == nil {
					log.Errorf("Error waiting for file change: %v", err)
					time.Sleep(time.Second)
				}
				continue
			}

			config, err := FromFile(path)
			if err != nil {
				log.Errorf("Failed to load new config: %v", err)
				continue
			}
			log.Infof("Reloaded configuration from %v", path)
			set(config)
		}
	}()
	return config, nil
}
