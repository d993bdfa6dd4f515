package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/go-minidb/minidb/internal/minidb"
	"github.com/go-minidb/minidb/internal/pkg/logging"
	"github.com/go-minidb/minidb/internal/statement"
)

const cliName string = "minidb"

var cli struct {
	File     string `arg:"" optional:"" default:"minidb.db" type:"path" help:"Path to the database file."`
	LogLevel string `default:"info" help:"Log level (debug, info, warn, error)."`
}

func printPrompt() {
	fmt.Print(cliName, "> ")
}

type metaCommand int

const (
	Unknown metaCommand = iota + 1
	Help
	Exit
	Btree
	Constants
)

func isMetaCommand(inputBuffer string) bool {
	return len(inputBuffer) > 0 && inputBuffer[:1] == "."
}

func doMetaCommand(inputBuffer string) metaCommand {
	switch inputBuffer {
	case "help":
		return Help
	case "exit":
		return Exit
	case "btree":
		return Btree
	case "constants":
		return Constants
	default:
		return Unknown
	}
}

func printConstants() {
	fmt.Println("Constants:")
	fmt.Println("PAGE_SIZE:", minidb.PageSize)
	fmt.Println("ROW_SIZE:", minidb.RowSize)
	fmt.Println("LEAF_NODE_CELL_SIZE:", minidb.LeafNodeCellSize)
	fmt.Println("LEAF_NODE_MAX_CELLS:", minidb.LeafNodeMaxCells)
	fmt.Println("INTERNAL_NODE_MAX_CELLS:", minidb.InternalNodeMaxCells)
}

func executeStatement(ctx context.Context, aTable *minidb.Table, stmt statement.Statement) {
	switch stmt.Kind {
	case statement.Insert:
		if err := aTable.Insert(ctx, stmt.Row); err != nil {
			if errors.Is(err, minidb.ErrDuplicateKey) {
				fmt.Println("Error: Duplicate Key.")
			} else {
				fmt.Printf("Error executing statement: %s\n", err)
			}
			return
		}
		fmt.Println("Executed.")
	case statement.Select:
		nextRow, err := aTable.Select(ctx)
		if err != nil {
			fmt.Printf("Error executing statement: %s\n", err)
			return
		}
		aRow, err := nextRow(ctx)
		for ; err == nil; aRow, err = nextRow(ctx) {
			fmt.Printf("(%d, %s, %s)\n", aRow.ID, aRow.Username, aRow.Email)
		}
		if !errors.Is(err, minidb.ErrNoMoreRows) {
			fmt.Printf("Error executing statement: %s\n", err)
			return
		}
		fmt.Println("Executed.")
	}
}

func main() {
	kong.Parse(&cli,
		kong.Name(cliName),
		kong.Description("A single table persistent data store with a B-tree storage engine."),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := logging.NewLogger(cli.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // flushes buffer, if any

	aDatabase, err := minidb.OpenDatabase(ctx, logger, cli.File)
	if err != nil {
		fmt.Printf("error opening database: %s\n", err)
		os.Exit(1)
	}
	aTable := aDatabase.Table()

	replDone := make(chan struct{})

	go func() {
		defer close(replDone)
		reader := bufio.NewScanner(os.Stdin)
		printPrompt()

		// REPL (Read-eval-print loop) start
		for reader.Scan() {
			if ctx.Err() != nil {
				break
			}

			inputBuffer := strings.TrimSpace(reader.Text())
			if isMetaCommand(inputBuffer) {
				switch doMetaCommand(inputBuffer[1:]) {
				case Help:
					fmt.Println(".help       - Show available commands")
					fmt.Println(".exit       - Closes program")
					fmt.Println(".btree      - Print the tree shape")
					fmt.Println(".constants  - Print layout constants")
				case Exit:
					// Return exits with code 0 by default, os.Exit(0)
					// would exit immediately without any defers
					return
				case Btree:
					fmt.Println("Tree:")
					if err := aTable.PrintTree(ctx, os.Stdout); err != nil {
						fmt.Printf("Error printing tree: %s\n", err)
					}
				case Constants:
					printConstants()
				case Unknown:
					fmt.Printf("Unrecognized command '%s'\n", inputBuffer)
				}
			} else {
				stmt, err := statement.Prepare(inputBuffer)
				if err != nil {
					fmt.Println(err)
				} else {
					executeStatement(ctx, aTable, stmt)
				}
			}
			printPrompt()
		}
		// Print an additional line if we encountered an EOF character
		fmt.Println()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-replDone:
	}

	cancel()

	if err := aDatabase.Close(context.Background()); err != nil {
		fmt.Printf("error closing database: %s\n", err)
		os.Exit(1)
	}
}
