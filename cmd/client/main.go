package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dattu/commitlog_store/pkg/backend"
	"github.com/dattu/commitlog_store/pkg/logstore"
	"github.com/dattu/commitlog_store/pkg/remote"
)

func dialOpts() grpc.DialOption {
	return grpc.WithTransportCredentials(insecure.NewCredentials())
}

func main() {
	mode := flag.String("mode", "read", "write | read | list")
	kind := flag.String("backend", "local", "local | bolt | remote")
	target := flag.String("path", "", "commit file path (backend-relative)")
	file := flag.String("file", "", "lines input for write; stdin if empty")
	overwrite := flag.Bool("overwrite", false, "replace the target instead of create-if-absent")
	addr := flag.String("addr", "localhost:50051", "remote backend address")
	datadir := flag.String("datadir", "data", "local backend root")
	dbPath := flag.String("db", "commitlog.db", "bolt backend database")
	flag.Parse()

	if *target == "" {
		logrus.Fatal("flag -path is mandatory")
	}

	fs, closeFS := openBackend(*kind, *addr, *datadir, *dbPath)
	defer closeFS()
	store := logstore.New(fs)

	switch *mode {
	case "write":
		lines, err := readLines(*file)
		if err != nil {
			logrus.Fatalf("read input: %v", err)
		}
		if err := store.Write(*target, lines, *overwrite); err != nil {
			logrus.Fatalf("write: %v", err)
		}
		fmt.Printf("Committed %d lines to %q\n", len(lines), *target)

	case "read":
		it, err := store.ReadLines(*target)
		if err != nil {
			logrus.Fatalf("read: %v", err)
		}
		defer it.Close()
		for it.Next() {
			fmt.Println(it.Line())
		}
		if err := it.Err(); err != nil {
			logrus.Fatalf("read: %v", err)
		}

	case "list":
		listing, err := store.ListFrom(*target)
		if err != nil {
			logrus.Fatalf("list: %v", err)
		}
		for listing.Next() {
			e := listing.Entry()
			fmt.Printf("%s\t%d\t%s\n", e.Name, e.Size, e.ModTime.Format(time.RFC3339))
		}

	default:
		logrus.Fatalf("unknown mode %q; must be write, read or list", *mode)
	}
}

func openBackend(kind, addr, datadir, dbPath string) (backend.FileSystem, func()) {
	switch kind {
	case "local":
		return backend.NewLocal(datadir), func() {}
	case "bolt":
		db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
		if err != nil {
			logrus.Fatalf("bolt.Open: %v", err)
		}
		fs, err := backend.NewBolt(db)
		if err != nil {
			logrus.Fatalf("bolt backend: %v", err)
		}
		return fs, func() { db.Close() }
	case "remote":
		conn, err := grpc.NewClient(addr, dialOpts())
		if err != nil {
			logrus.Fatalf("dial %s: %v", addr, err)
		}
		return remote.NewClient(conn), func() { conn.Close() }
	default:
		logrus.Fatalf("unknown backend %q", kind)
		return nil, nil
	}
}

func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
