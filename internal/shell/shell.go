package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/garethgeorge/hybridspace/internal/logger"
	"github.com/garethgeorge/hybridspace/internal/render"
	"github.com/garethgeorge/hybridspace/internal/report"
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const helpText = `commands:
  alloc <start> <count>     allocate count blocks at start (also: allocate)
  free <start> <count>      deallocate count blocks at start (also: dealloc, deallocate)
  reset [capacity]          free every block, optionally resizing the device
  status                    print the free space report
  map                       draw the block map
  list                      print the free extent chain
  groups                    print the free groups
  fits <count>              count the free groups that can hold count blocks
  verify                    check the manager's invariants
  help                      show this text
  quit                      end the session (also: exit)
`

var errInvalidNumbers = errors.New("enter valid numbers")

type Options struct {
	GridCols int
	// Quiet suppresses the map and status redraw after each change.
	Quiet bool
	// Prompt is written before each line is read.
	Prompt string
}

// Session interprets commands against a single manager.
type Session struct {
	ID      uuid.UUID
	manager *spacemgr.Manager
	out     io.Writer
	opts    Options
	log     *zap.SugaredLogger
}

func NewSession(m *spacemgr.Manager, out io.Writer, opts Options) *Session {
	if opts.GridCols < 1 {
		opts.GridCols = 10
	}
	id := uuid.New()
	return &Session{
		ID:      id,
		manager: m,
		out:     out,
		opts:    opts,
		log:     logger.WithFields(map[string]interface{}{"session": id.String()}),
	}
}

func (s *Session) Manager() *spacemgr.Manager {
	return s.manager
}

// Run reads commands from in until it is exhausted, a quit command is read,
// or ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	s.log.Infow("session started", "capacity", s.manager.Capacity(), "strict", s.manager.Strict())
	defer s.log.Infow("session ended")

	scanner := bufio.NewScanner(in)
	for {
		if s.opts.Prompt != "" {
			if _, err := io.WriteString(s.out, s.opts.Prompt); err != nil {
				return err
			}
		}
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.Exec(scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// Exec runs one command line. Rejected requests are reported to the output,
// not returned; the error is only set when writing the output fails.
func (s *Session) Exec(line string) (quit bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	s.log.Debugw("command", "cmd", cmd, "args", args)

	switch cmd {
	case "alloc", "allocate":
		return false, s.allocate(args)
	case "free", "dealloc", "deallocate":
		return false, s.deallocate(args)
	case "reset":
		return false, s.reset(args)
	case "status":
		return false, render.Status(s.out, report.Build(s.manager))
	case "map":
		return false, render.Grid(s.out, s.manager, s.opts.GridCols)
	case "list":
		return false, s.printf("%s\n", render.Chain(s.manager.FreeExtents()))
	case "groups":
		return false, s.groups()
	case "fits":
		return false, s.fits(args)
	case "verify":
		return false, s.verify()
	case "help", "?":
		return false, s.printf("%s", helpText)
	case "quit", "exit":
		return true, nil
	default:
		return false, s.printf("error: unknown command %q (try help)\n", cmd)
	}
}

func (s *Session) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s.out, format, args...)
	return err
}

// parseInts converts exactly n integer arguments.
func parseInts(args []string, n int) ([]int, error) {
	if len(args) != n {
		return nil, errInvalidNumbers
	}
	vals := make([]int, n)
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errInvalidNumbers
		}
		vals[i] = v
	}
	return vals, nil
}

func (s *Session) allocate(args []string) error {
	vals, err := parseInts(args, 2)
	if err != nil {
		return s.printf("error: %v\n", err)
	}
	start, n := vals[0], vals[1]
	if _, err := s.manager.Allocate(start, n); err != nil {
		s.reject("allocate", start, n, err)
		return s.printf("error: cannot allocate %d blocks at position %d: %v (%s)\n", n, start, err, spacemgr.KindOf(err))
	}
	if err := s.printf("Allocated %d blocks starting at %d\n", n, start); err != nil {
		return err
	}
	return s.redraw()
}

func (s *Session) deallocate(args []string) error {
	vals, err := parseInts(args, 2)
	if err != nil {
		return s.printf("error: %v\n", err)
	}
	start, n := vals[0], vals[1]
	if err := s.manager.Deallocate(start, n); err != nil {
		s.reject("deallocate", start, n, err)
		return s.printf("error: invalid deallocation parameters: %v (%s)\n", err, spacemgr.KindOf(err))
	}
	if err := s.printf("Deallocated %d blocks from %d\n", n, start); err != nil {
		return err
	}
	return s.redraw()
}

func (s *Session) reset(args []string) error {
	capacity := s.manager.Capacity()
	if len(args) > 0 {
		vals, err := parseInts(args, 1)
		if err != nil {
			return s.printf("error: %v\n", err)
		}
		capacity = vals[0]
	}
	if err := s.manager.Reset(capacity); err != nil {
		s.reject("reset", 0, capacity, err)
		return s.printf("error: cannot reset: %v (%s)\n", err, spacemgr.KindOf(err))
	}
	s.log.Infow("device reset", "capacity", capacity)
	if err := s.printf("Reset device to %d blocks\n", capacity); err != nil {
		return err
	}
	return s.redraw()
}

func (s *Session) groups() error {
	groups := s.manager.Groups()
	if len(groups) == 0 {
		return s.printf("No free space available\n")
	}
	for i, g := range groups {
		if err := s.printf("Group %d: Start=%d, Size=%d blocks\n", i+1, g.Start, g.Length); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) fits(args []string) error {
	vals, err := parseInts(args, 1)
	if err != nil || vals[0] < 1 {
		return s.printf("error: %v\n", errInvalidNumbers)
	}
	idx := report.NewSizeIndex(s.manager.Groups())
	return s.printf("%d of %d free groups can hold %d blocks\n", idx.CountAtLeast(vals[0]), idx.Len(), vals[0])
}

func (s *Session) verify() error {
	if err := s.manager.Verify(); err != nil {
		s.log.Errorw("invariant check failed", "error", err.Error())
		return s.printf("%v\n", err)
	}
	return s.printf("ok\n")
}

func (s *Session) reject(op string, start, n int, err error) {
	s.log.Infow("request rejected", "op", op, "start", start, "count", n, "kind", spacemgr.KindOf(err).String())
}

func (s *Session) redraw() error {
	if s.opts.Quiet {
		return nil
	}
	if err := render.Grid(s.out, s.manager, s.opts.GridCols); err != nil {
		return err
	}
	return render.Status(s.out, report.Build(s.manager))
}
