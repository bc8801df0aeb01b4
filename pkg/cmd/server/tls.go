package server

import (
	"context"
	"crypto/tls"
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/racelink/log"
)

// certReloader serves the key pair from disk and picks up renewed files
type certReloader struct {
	certFile string
	keyFile  string
	log      *log.Logger
	mu       sync.RWMutex
	cert     *tls.Certificate
}

// newTLSConfig returns nil if no key pair is configured
func newTLSConfig(ctx context.Context, certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" && keyFile == "" {
		return nil, nil
	}
	if certFile == "" || keyFile == "" {
		return nil, errors.New("tls needs both cert and key file")
	}
	c := &certReloader{
		certFile: certFile,
		keyFile:  keyFile,
		log:      log.Default().Named("tls"),
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	go c.watch(ctx)
	return &tls.Config{
		GetCertificate: c.getCertificate,
		MinVersion:     tls.VersionTLS13,
	}, nil
}

func (c *certReloader) getCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

func (c *certReloader) load() error {
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cert = &cert
	return nil
}

//nolint:cyclop // event loop
func (c *certReloader) watch(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Error("could not create fsnotify watcher", log.ErrorField(err))
		return
	}
	defer watcher.Close()
	// renewals usually replace the files, watch the directories
	dirs := map[string]bool{filepath.Dir(c.certFile): true, filepath.Dir(c.keyFile): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			c.log.Error("could not watch cert dir", log.String("dir", dir), log.ErrorField(err))
			return
		}
	}
	relevant := func(name string) bool {
		name = filepath.Clean(name)
		return name == filepath.Clean(c.certFile) || name == filepath.Clean(c.keyFile)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			changed := event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Chmod)
			if !changed || !relevant(event.Name) {
				continue
			}
			// cert and key may be written one after the other, keep the old pair until both match
			if err := c.load(); err != nil {
				c.log.Debug("key pair not loadable yet", log.ErrorField(err))
				continue
			}
			c.log.Info("key pair reloaded", log.String("file", event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.log.Error("watcher error", log.ErrorField(err))
		}
	}
}
