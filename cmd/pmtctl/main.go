// pmtctl is a small operator CLI over a single on-disk trie, modeled
// on vechain-thor/cmd/disco's flag/log/error-wrapping layout (ported
// to urfave/cli/v2's subcommand form since pmtctl needs several
// distinct operations rather than disco's one).
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/go-pmt/pmt/kv/leveldb"
	"github.com/go-pmt/pmt/trie"
)

var dbFlag = &cli.StringFlag{
	Name:  "db",
	Usage: "path to the on-disk trie store",
	Value: "./pmt-data",
}

var verbosityFlag = &cli.IntFlag{
	Name:  "verbosity",
	Usage: "log verbosity (0-5)",
	Value: int(log.LvlInfo),
}

func openStore(c *cli.Context) (*leveldb.Database, error) {
	return leveldb.Open(c.String(dbFlag.Name))
}

func cmdPut(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: pmtctl put <key> <value>", 1)
	}
	store, err := openStore(c)
	if err != nil {
		return errors.Wrap(err, "put")
	}
	defer store.Close()

	tr, err := trie.New(store)
	if err != nil {
		return errors.Wrap(err, "put: open trie")
	}
	if err := tr.Insert([]byte(c.Args().Get(0)), []byte(c.Args().Get(1))); err != nil {
		return errors.Wrap(err, "put: insert")
	}
	batch := store.NewBatch()
	root, err := tr.Commit(batch)
	if err != nil {
		return errors.Wrap(err, "put: commit")
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "put: write batch")
	}
	fmt.Printf("%x\n", root)
	return nil
}

func cmdGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: pmtctl get <key>", 1)
	}
	store, err := openStore(c)
	if err != nil {
		return errors.Wrap(err, "get")
	}
	defer store.Close()

	tr, err := trie.New(store)
	if err != nil {
		return errors.Wrap(err, "get: open trie")
	}
	value, err := tr.Get([]byte(c.Args().Get(0)))
	if err != nil {
		return errors.Wrap(err, "get")
	}
	if value == nil {
		return cli.Exit("key not found", 1)
	}
	fmt.Println(string(value))
	return nil
}

func cmdRoot(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return errors.Wrap(err, "root")
	}
	defer store.Close()

	tr, err := trie.New(store)
	if err != nil {
		return errors.Wrap(err, "root: open trie")
	}
	fmt.Printf("%x\n", tr.RootHash())
	return nil
}

func cmdProve(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: pmtctl prove <key>", 1)
	}
	store, err := openStore(c)
	if err != nil {
		return errors.Wrap(err, "prove")
	}
	defer store.Close()

	tr, err := trie.New(store)
	if err != nil {
		return errors.Wrap(err, "prove: open trie")
	}
	proof, err := tr.Prove([]byte(c.Args().Get(0)))
	if err != nil {
		return errors.Wrap(err, "prove")
	}
	for _, enc := range proof {
		fmt.Println(hex.EncodeToString(enc))
	}
	return nil
}

func cmdVerify(c *cli.Context) error {
	if c.NArg() != 3 {
		return cli.Exit("usage: pmtctl verify <root-hex> <key> <proof-file>", 1)
	}
	rootHex, key, proofPath := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2)
	root, err := hex.DecodeString(rootHex)
	if err != nil {
		return errors.Wrap(err, "verify: decode root")
	}
	f, err := os.Open(proofPath)
	if err != nil {
		return errors.Wrap(err, "verify: open proof file")
	}
	defer f.Close()

	var proof [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		enc, err := hex.DecodeString(line)
		if err != nil {
			return errors.Wrap(err, "verify: decode proof line")
		}
		proof = append(proof, enc)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "verify: read proof file")
	}

	value, err := trie.VerifyProof(trie.KeccakHasher{}, root, []byte(key), proof)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	if value == nil {
		fmt.Println("absent")
		return nil
	}
	fmt.Println(string(value))
	return nil
}

func cmdIterate(c *cli.Context) error {
	store, err := openStore(c)
	if err != nil {
		return errors.Wrap(err, "iterate")
	}
	defer store.Close()

	tr, err := trie.New(store)
	if err != nil {
		return errors.Wrap(err, "iterate: open trie")
	}
	it := tr.Iterator()
	for it.Next() {
		fmt.Printf("%s = %s\n", it.Key(), it.Value())
	}
	if err := it.Err(); err != nil {
		return errors.Wrap(err, "iterate")
	}
	return nil
}

func main() {
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat(true))))

	app := &cli.App{
		Name:  "pmtctl",
		Usage: "inspect and mutate a Patricia Merkle Trie store",
		Flags: []cli.Flag{dbFlag, verbosityFlag},
		Before: func(c *cli.Context) error {
			log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(c.Int(verbosityFlag.Name)), log.StreamHandler(os.Stderr, log.TerminalFormat(true))))
			return nil
		},
		Commands: []*cli.Command{
			{Name: "put", Usage: "insert a key/value pair and commit", Action: cmdPut},
			{Name: "get", Usage: "look up a key", Action: cmdGet},
			{Name: "root", Usage: "print the current root digest", Action: cmdRoot},
			{Name: "prove", Usage: "build a membership/exclusion proof for a key", Action: cmdProve},
			{Name: "verify", Usage: "verify a proof produced by prove", Action: cmdVerify},
			{Name: "iterate", Usage: "list every key/value pair in order", Action: cmdIterate},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
