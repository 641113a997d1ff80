package ffibridge

import (
	"errors"
	"sync"

	"github.com/meridianchain/preflight/host"
)

var (
	factoryMu   sync.RWMutex
	hostFactory host.Factory
)

// SetHostFactory installs the virtual-machine backend boundary calls run
// against. The embedding process registers its machine once at startup; tests
// register fakes. Passing nil uninstalls the backend.
func SetHostFactory(f host.Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	hostFactory = f
}

// currentFactory returns the registered backend, or an error if none is
// installed.
func currentFactory() (host.Factory, error) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	if hostFactory == nil {
		return nil, errors.New("no virtual machine backend registered")
	}
	return hostFactory, nil
}
