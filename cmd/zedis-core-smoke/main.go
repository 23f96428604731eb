// Command zedis-core-smoke wires every package in the module together and
// exercises one end-to-end path (connect, scan keys, load a value) against
// a real Redis server. It is not a CLI for end users; the GUI this core is
// built for is the real consumer. This exists purely so the wiring itself
// can be checked by hand without a GUI attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bigtree-zedis/zedis-core/clientmanager"
	"github.com/bigtree-zedis/zedis-core/command"
	"github.com/bigtree-zedis/zedis-core/configstore"
	"github.com/bigtree-zedis/zedis-core/connfactory"
	"github.com/bigtree-zedis/zedis-core/events"
	"github.com/bigtree-zedis/zedis-core/keyspace"
	"github.com/bigtree-zedis/zedis-core/kvstore"
	"github.com/bigtree-zedis/zedis-core/model"
	"github.com/bigtree-zedis/zedis-core/sshtunnel"
	"github.com/bigtree-zedis/zedis-core/sweeper"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:6379", "host:port of the Redis server to probe")
	dataDir := flag.String("data-dir", "", "directory for the config/kv stores (defaults to a temp dir)")
	keyword := flag.String("keyword", "", "optional SCAN keyword filter")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	dir := *dataDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "zedis-core-smoke-")
		if err != nil {
			log.WithError(err).Fatal("creating scratch data dir")
		}
		defer os.RemoveAll(dir)
	}

	ctx := context.Background()

	store, err := configstore.Open(filepath.Join(dir, "servers.toml"))
	if err != nil {
		log.WithError(err).Fatal("opening config store")
	}

	cfg := model.ServerConfig{ID: "smoke", Name: "smoke", Host: hostOf(*addr), Port: portOf(*addr)}
	if err := store.Save(append(store.List(), cfg)); err != nil {
		log.WithError(err).Fatal("saving server config")
	}

	kv, err := kvstore.Open(filepath.Join(dir, "zedis.db"))
	if err != nil {
		log.WithError(err).Fatal("opening kv store")
	}
	defer kv.Close()

	factory := connfactory.New()
	defer factory.Close()
	sshMgr := sshtunnel.NewManager()
	clients := clientmanager.New(factory, sshMgr)

	sw := sweeper.New(factory, clients, sshMgr).WithInterval(time.Minute)
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	go sw.Run(sweepCtx)
	defer func() {
		cancelSweep()
		sw.Stop()
	}()

	bus := events.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()
	go func() {
		for ev := range sub.Events() {
			log.WithField("event", fmt.Sprintf("%T", ev)).Debug("event received")
		}
	}()

	client, err := clients.GetClient(ctx, cfg.ID, cfg, 0)
	if err != nil {
		log.WithError(err).Fatal("connecting to server")
	}
	log.WithFields(log.Fields{"type": client.Type, "access_mode": client.AccessMode, "version": client.Version}).Info("connected")

	if err := command.Ping(ctx, client); err != nil {
		log.WithError(err).Fatal("ping")
	}

	size, err := command.DBSize(ctx, client)
	if err != nil {
		log.WithError(err).Fatal("dbsize")
	}
	log.WithField("dbsize", size).Info("db size")

	list, err := keyspace.Scan(ctx, bus, client, cfg.ID, *keyword)
	if err != nil {
		log.WithError(err).Fatal("scan")
	}
	log.WithField("keys", len(list.Keys)).Info("scan complete")

	if len(list.Keys) > 0 {
		key := list.Keys[0]
		value, err := keyspace.LoadValue(ctx, bus, kv.MatchSchema, client, cfg.ID, key, 500)
		if err != nil {
			log.WithError(err).Fatal("load value")
		}
		log.WithFields(log.Fields{"key": key, "type": value.Type, "size_bytes": value.SizeBytes}).Info("loaded value")
		if value.Bytes != nil {
			log.WithField("format", value.Bytes.Format).Info("string decoded")
		}
	}
}

func hostOf(addr string) string {
	host, _, err := splitAddr(addr)
	if err != nil {
		return addr
	}
	return host
}

func portOf(addr string) int {
	_, port, err := splitAddr(addr)
	if err != nil {
		return 6379
	}
	return port
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q", addr)
	}
	return host, port, nil
}
