// Package statement turns REPL input lines into typed commands for the
// storage engine. The grammar is deliberately tiny: "insert <id>
// <username> <email>" and "select", nothing else.
package statement

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-minidb/minidb/internal/minidb"
)

type Kind int

const (
	Insert Kind = iota + 1
	Select
)

type Statement struct {
	Kind Kind
	// Row to insert, only set for insert statements
	Row minidb.Row
}

var (
	ErrSyntax        = errors.New("syntax error, could not parse statement")
	ErrNegativeID    = errors.New("id must be positive")
	ErrStringTooLong = errors.New("string is too long")
	ErrUnrecognized  = errors.New("unrecognised keyword at start of statement")
)

// Prepare parses a single statement. The returned row is already
// validated against the fixed column capacities, the storage engine
// performs no text handling of its own.
func Prepare(input string) (Statement, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Statement{}, ErrSyntax
	}

	switch strings.ToLower(fields[0]) {
	case "insert":
		return prepareInsert(fields)
	case "select":
		if len(fields) > 1 {
			return Statement{}, ErrSyntax
		}
		return Statement{Kind: Select}, nil
	default:
		return Statement{}, fmt.Errorf("%q: %w", fields[0], ErrUnrecognized)
	}
}

func prepareInsert(fields []string) (Statement, error) {
	if len(fields) != 4 {
		return Statement{}, ErrSyntax
	}

	// Ids are unsigned 32 bit, anything wider must not wrap around
	id, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		if v, verr := strconv.ParseInt(fields[1], 10, 64); verr == nil && v < 0 {
			return Statement{}, ErrNegativeID
		}
		return Statement{}, ErrSyntax
	}

	var (
		username = fields[2]
		email    = fields[3]
	)
	if len(username) > minidb.UsernameSize {
		return Statement{}, fmt.Errorf("username: %w", ErrStringTooLong)
	}
	if len(email) > minidb.EmailSize {
		return Statement{}, fmt.Errorf("email: %w", ErrStringTooLong)
	}

	return Statement{
		Kind: Insert,
		Row: minidb.Row{
			ID:       uint32(id),
			Username: username,
			Email:    email,
		},
	}, nil
}
