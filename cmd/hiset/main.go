// Package main provides hiset, an interactive explorer for hibitset sets.
//
// Usage:
//
//	hiset
//
// Commands (in REPL):
//
//	new <name>                     Create an empty set
//	ins <name> <idx>...            Insert indices
//	del <name> <idx>...            Remove indices
//	has <name> <idx>               Membership test
//	ls <name> [limit]              List indices (default limit 64)
//	blocks <name>                  List populated data blocks
//	op <and|or|xor|andnot> <a> <b> [limit]
//	                               Evaluate a lazy operation and list it
//	len <name>                     Count indices
//	stats <name>                   Pool occupancy and allocation counters
//	clear <name>                   Remove all indices
//	sets                           List known sets
//	help                           Show this help
//	exit / quit / q                Exit
//
// All sets use the 256-bit configuration, so indices up to 16_777_215 are
// accepted.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/hibitset/pkg/hibitset"
)

var (
	errUnknownSet     = errors.New("unknown set")
	errUnknownOp      = errors.New("unknown operation")
	errNeedArgs       = errors.New("missing arguments")
	errSetExists      = errors.New("set already exists")
	errIndexTooLarge  = errors.New("index out of range for the 256-bit configuration")
	errUnknownCommand = errors.New("unknown command (try 'help')")
)

const defaultListLimit = 64

type repl struct {
	sets  map[string]*hibitset.Set256
	liner *liner.State
	out   io.Writer
}

func main() {
	r := &repl{
		sets: map[string]*hibitset.Set256{},
		out:  os.Stdout,
	}

	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	historyPath := filepath.Join(os.TempDir(), ".hiset_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = r.liner.ReadHistory(f)
		_ = f.Close()
	}

	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = r.liner.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintln(r.out, "hiset - hierarchical sparse bitset explorer ('help' for commands)")

	for {
		line, err := r.liner.Prompt("hiset> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return
			}

			fmt.Fprintln(os.Stderr, "error:", err)

			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		if line == "exit" || line == "quit" || line == "q" {
			return
		}

		if err := r.dispatch(strings.Fields(line)); err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
	}
}

func (r *repl) completer(line string) []string {
	commands := []string{
		"new ", "ins ", "del ", "has ", "ls ", "blocks ", "op ",
		"len ", "stats ", "clear ", "sets", "help", "exit",
	}

	var out []string

	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}

	return out
}

func (r *repl) dispatch(args []string) error {
	switch args[0] {
	case "new":
		return r.cmdNew(args[1:])
	case "ins":
		return r.cmdInsert(args[1:])
	case "del":
		return r.cmdDelete(args[1:])
	case "has":
		return r.cmdHas(args[1:])
	case "ls":
		return r.cmdList(args[1:])
	case "blocks":
		return r.cmdBlocks(args[1:])
	case "op":
		return r.cmdOp(args[1:])
	case "len":
		return r.cmdLen(args[1:])
	case "stats":
		return r.cmdStats(args[1:])
	case "clear":
		return r.cmdClear(args[1:])
	case "sets":
		return r.cmdSets()
	case "help":
		r.printHelp()

		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
	}
}

func (r *repl) lookup(name string) (*hibitset.Set256, error) {
	s, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownSet, name)
	}

	return s, nil
}

func parseIndices(s *hibitset.Set256, args []string) ([]uint, error) {
	if len(args) == 0 {
		return nil, errNeedArgs
	}

	out := make([]uint, 0, len(args))

	for _, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad index %q: %w", a, err)
		}

		if uint(v) > s.MaxIndex() {
			return nil, fmt.Errorf("%w: %d > %d", errIndexTooLarge, v, s.MaxIndex())
		}

		out = append(out, uint(v))
	}

	return out, nil
}

func (r *repl) cmdNew(args []string) error {
	if len(args) != 1 {
		return errNeedArgs
	}

	name := args[0]
	if _, exists := r.sets[name]; exists {
		return fmt.Errorf("%w: %s", errSetExists, name)
	}

	r.sets[name] = hibitset.New256()
	fmt.Fprintf(r.out, "created %s (max index %d)\n", name, r.sets[name].MaxIndex())

	return nil
}

func (r *repl) cmdInsert(args []string) error {
	if len(args) < 2 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	xs, err := parseIndices(s, args[1:])
	if err != nil {
		return err
	}

	added := 0

	for _, x := range xs {
		if s.Insert(x) {
			added++
		}
	}

	fmt.Fprintf(r.out, "inserted %d new of %d\n", added, len(xs))

	return nil
}

func (r *repl) cmdDelete(args []string) error {
	if len(args) < 2 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	xs, err := parseIndices(s, args[1:])
	if err != nil {
		return err
	}

	removed := 0

	for _, x := range xs {
		if s.Remove(x) {
			removed++
		}
	}

	fmt.Fprintf(r.out, "removed %d of %d\n", removed, len(xs))

	return nil
}

func (r *repl) cmdHas(args []string) error {
	if len(args) != 2 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	xs, err := parseIndices(s, args[1:])
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, s.Contains(xs[0]))

	return nil
}

func (r *repl) listView(v hibitset.View256, limit int) {
	n := 0
	it := hibitset.NewIndexIter(v, hibitset.NoCache)

	it.Traverse(func(x uint) bool {
		fmt.Fprintf(r.out, "%d ", x)
		n++

		return n < limit
	})

	if n == 0 {
		fmt.Fprint(r.out, "(empty)")
	} else if n == limit {
		fmt.Fprint(r.out, "...")
	}

	fmt.Fprintln(r.out)
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return defaultListLimit, nil
	}

	v, err := strconv.Atoi(args[0])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("bad limit %q", args[0])
	}

	return v, nil
}

func (r *repl) cmdList(args []string) error {
	if len(args) < 1 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	limit, err := parseLimit(args[1:])
	if err != nil {
		return err
	}

	r.listView(s, limit)

	return nil
}

func (r *repl) cmdBlocks(args []string) error {
	if len(args) != 1 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	it := s.Blocks()
	count := 0

	for {
		blk, ok := it.Next()
		if !ok {
			break
		}

		fmt.Fprintf(r.out, "  [%8d, %8d)  pop=%d\n",
			blk.Start, blk.Start+blk.Bits.Bits(), blk.Bits.OnesCount())

		count++
	}

	fmt.Fprintf(r.out, "%d data block(s)\n", count)

	return nil
}

func (r *repl) cmdOp(args []string) error {
	if len(args) < 3 {
		return errNeedArgs
	}

	a, err := r.lookup(args[1])
	if err != nil {
		return err
	}

	b, err := r.lookup(args[2])
	if err != nil {
		return err
	}

	limit, err := parseLimit(args[3:])
	if err != nil {
		return err
	}

	var v hibitset.Operation[hibitset.Block256, hibitset.Block256, hibitset.Block256]

	switch args[0] {
	case "and":
		v = a.And(b)
	case "or":
		v = a.Or(b)
	case "xor":
		v = a.Xor(b)
	case "andnot":
		v = a.AndNot(b)
	default:
		return fmt.Errorf("%w: %s", errUnknownOp, args[0])
	}

	r.listView(v, limit)

	return nil
}

func (r *repl) cmdLen(args []string) error {
	if len(args) != 1 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(r.out, s.Len())

	return nil
}

func (r *repl) cmdStats(args []string) error {
	if len(args) != 1 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	st := s.Stats()
	fmt.Fprintf(r.out, "level1: slots=%d free=%d grown=%d reused=%d\n",
		st.Level1.Slots, st.Level1.Free, st.Level1.Grown, st.Level1.Reused)
	fmt.Fprintf(r.out, "data:   slots=%d free=%d grown=%d reused=%d\n",
		st.Data.Slots, st.Data.Free, st.Data.Grown, st.Data.Reused)

	return nil
}

func (r *repl) cmdClear(args []string) error {
	if len(args) != 1 {
		return errNeedArgs
	}

	s, err := r.lookup(args[0])
	if err != nil {
		return err
	}

	s.Clear()
	fmt.Fprintln(r.out, "cleared")

	return nil
}

func (r *repl) cmdSets() error {
	if len(r.sets) == 0 {
		fmt.Fprintln(r.out, "(no sets; 'new <name>' to create one)")

		return nil
	}

	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(r.out, "%-12s len=%d\n", name, r.sets[name].Len())
	}

	return nil
}

func (r *repl) printHelp() {
	fmt.Fprint(r.out, `Commands:
  new <name>                     Create an empty set
  ins <name> <idx>...            Insert indices
  del <name> <idx>...            Remove indices
  has <name> <idx>               Membership test
  ls <name> [limit]              List indices (default limit 64)
  blocks <name>                  List populated data blocks
  op <and|or|xor|andnot> <a> <b> [limit]
                                 Evaluate a lazy operation and list it
  len <name>                     Count indices
  stats <name>                   Pool occupancy and allocation counters
  clear <name>                   Remove all indices
  sets                           List known sets
  exit                           Exit
`)
}
