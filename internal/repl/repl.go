// Package repl implements the interactive front end described in spec §6:
// a line-oriented loop accepting meta-commands (prefixed with '.') and the
// two supported statements, insert and select.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"bptreedb/internal/btree"
	"bptreedb/internal/node"
	"bptreedb/internal/pager"
	"bptreedb/internal/row"
)

// ExitRequested is returned by execute when the user asked to leave the REPL.
var ExitRequested = fmt.Errorf("repl: exit requested")

// REPL drives one table over a prompt/input/output triple.
type REPL struct {
	tree   *btree.Tree
	in     *bufio.Scanner
	out    io.Writer
	logger *zap.SugaredLogger
}

// New builds a REPL reading from in and writing to out.
func New(tree *btree.Tree, in io.Reader, out io.Writer, logger *zap.SugaredLogger) *REPL {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &REPL{tree: tree, in: bufio.NewScanner(in), out: out, logger: logger}
}

// Run reads lines from in and executes them until EOF, `.exit`, or a fatal
// condition. Fatal conditions (spec §7: page I/O failure, page bounds,
// internal-node overflow) are returned rather than handled here: library code never calls os.Exit, so it is up to
// cmd/bptreedb/main.go to turn the returned error into a process exit.
func (r *REPL) Run() error {
	for {
		fmt.Fprint(r.out, "db > ")
		if !r.in.Scan() {
			return nil
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		err := r.execute(line)
		if err == ExitRequested {
			return nil
		}
		if isFatal(err) {
			r.logger.Errorw("fatal condition during execute", "error", err)
			return err
		}
		if err != nil {
			fmt.Fprintln(r.out, err)
		}
	}
}

// isFatal reports whether err represents one of the conditions spec §7
// designates as fatal (internal-node overflow, page bounds, page I/O
// failure), as opposed to a recoverable duplicate key. Parse errors never
// reach here: the statement handlers print them and return nil.
func isFatal(err error) bool {
	if errors.Is(err, btree.ErrInternalNodeFull) || errors.Is(err, pager.ErrPageOutOfBounds) {
		return true
	}
	return err != nil && err != ExitRequested && !errors.Is(err, btree.ErrDuplicateKey)
}

func (r *REPL) execute(line string) error {
	if strings.HasPrefix(line, ".") {
		return r.executeMeta(line)
	}
	return r.executeStatement(line)
}

func (r *REPL) executeMeta(line string) error {
	switch line {
	case ".exit":
		return ExitRequested
	case ".btree":
		fmt.Fprintln(r.out, "Tree:")
		return r.tree.RenderTree(r.out, r.tree.RootPageNum(), 0)
	case ".constants":
		r.printConstants()
		return nil
	default:
		fmt.Fprintf(r.out, "Unrecognized command %s\n", line)
		return nil
	}
}

func (r *REPL) printConstants() {
	fmt.Fprintln(r.out, "Constants:")
	fmt.Fprintf(r.out, "ROW_SIZE: %d\n", row.Size)
	fmt.Fprintf(r.out, "COMMON_NODE_METADATA_SIZE: %d\n", node.CommonHeaderSize)
	fmt.Fprintf(r.out, "LEAF_NODE_METADATA_SIZE: %d\n", node.LeafHeaderSize)
	fmt.Fprintf(r.out, "LEAF_NODE_CELL_SIZE: %d\n", node.LeafCellSize)
	fmt.Fprintf(r.out, "LEAF_NODE_SPACE_FOR_CELLS: %d\n", node.LeafSpaceForCells)
	fmt.Fprintf(r.out, "LEAF_NODE_MAX_CELLS: %d\n", node.LeafMaxCells)
}

func (r *REPL) executeStatement(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "insert":
		return r.executeInsert(fields)
	case "select":
		return r.executeSelect()
	default:
		fmt.Fprintf(r.out, "Unrecognized keyword at start of '%s'.\n", line)
		return nil
	}
}

func (r *REPL) executeInsert(fields []string) error {
	if len(fields) != 4 {
		fmt.Fprintln(r.out, "Syntax error. Could not parse statement.")
		return nil
	}

	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Fprintln(r.out, "Syntax error. Could not parse statement.")
		return nil
	}

	rowVal, err := row.New(id, fields[2], fields[3])
	if err != nil {
		fmt.Fprintln(r.out, err)
		return nil
	}

	if err := r.tree.Insert(rowVal); err != nil {
		// Fatal conditions are returned as-is so Run can propagate
		// them; a duplicate key is ordinary REPL output.
		if isFatal(err) {
			return err
		}
		fmt.Fprintln(r.out, err)
		return nil
	}

	fmt.Fprintln(r.out, "Executed")
	return nil
}

func (r *REPL) executeSelect() error {
	cur, err := r.tree.ScanStart()
	if err != nil {
		r.logger.Errorw("scan start failed", "error", err)
		return err
	}

	for cur.Valid() {
		rowVal, err := cur.Row()
		if err != nil {
			r.logger.Errorw("row decode failed", "error", err)
			return err
		}
		fmt.Fprintf(r.out, "(%d, %s, %s)\n", rowVal.ID, rowVal.Username, rowVal.Email)
		if err := cur.Advance(); err != nil {
			r.logger.Errorw("cursor advance failed", "error", err)
			return err
		}
	}

	fmt.Fprintln(r.out, "Executed")
	return nil
}
