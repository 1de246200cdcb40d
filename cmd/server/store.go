package main

import (
	"fmt"

	"github.com/dkeye/Rota/internal/config"
	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/storage/etcd"
	"github.com/dkeye/Rota/internal/storage/file"
	"github.com/dkeye/Rota/internal/storage/memory"
	"github.com/dkeye/Rota/internal/storage/sqlite"
)

func openStore(sc config.StoreConfig) (core.RosterStore, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverFile:
		return file.Open(sc.Path)
	case config.DriverSQLite:
		return sqlite.Open(sc.Path)
	case config.DriverEtcd:
		return etcd.Dial(sc.Etcd.Endpoints, sc.Etcd.DialTimeout, sc.Etcd.Prefix)
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}
