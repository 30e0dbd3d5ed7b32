package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode"
)

// Board is what the keyboard controls
type Board interface {
	RefreshIncidents() error
	RefreshPredictors() error
	Redraw()
}

// NewKeySet returns the single key commands of the board:
// i refreshes incidents, r refreshes predictors, d redraws and q quits.
func NewKeySet(board Board) *Set {
	s, err := NewSet(
		Command{
			Name: "i",
			Help: "refresh incidents",
			Run: func(context.Context, []string) error {
				return board.RefreshIncidents()
			},
		},
		Command{
			Name: "r",
			Help: "refresh predictors",
			Run: func(context.Context, []string) error {
				return board.RefreshPredictors()
			},
		},
		Command{
			Name: "d",
			Help: "redraw",
			Run: func(context.Context, []string) error {
				board.Redraw()
				return nil
			},
		},
		Command{
			Name: "q",
			Help: "quit",
			Run: func(context.Context, []string) error {
				return ErrQuit
			},
		},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid key commands: %s", err))
	}
	return s
}

// ReadKeys dispatches every key read from r until r is exhausted, ctx is done
// or a command quits. Unbound keys are ignored.
//
// Returns ErrQuit when a command quit.
func ReadKeys(ctx context.Context, r io.Reader, keys *Set, logger *slog.Logger) error {
	reader := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		key, _, err := reader.ReadRune()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		if unicode.IsSpace(key) {
			continue
		}

		err = keys.Dispatch(ctx, string(key))
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return ErrQuit
		case errors.Is(err, ErrUnknownCommand):
			logger.Debug("Ignoring unbound key", "key", string(key))
		default:
			logger.Error("Key command failed", "key", string(key), "error", err)
		}
	}
}
