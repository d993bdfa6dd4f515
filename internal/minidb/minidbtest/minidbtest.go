package minidbtest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/go-minidb/minidb/internal/minidb"
)

type DataGen struct {
	*gofakeit.Faker
}

func NewDataGen(seed int64) *DataGen {
	g := DataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

func (g *DataGen) Row() minidb.Row {
	return minidb.Row{
		ID:       uint32(g.IntRange(1, 1<<30)),
		Username: g.Username(),
		Email:    g.Email(),
	}
}

// Rows generates the requested number of rows, all with a unique ID.
func (g *DataGen) Rows(number int) []minidb.Row {
	idMap := map[uint32]struct{}{}
	rows := make([]minidb.Row, 0, number)
	for i := 0; i < number; i++ {
		aRow := g.Row()
		_, ok := idMap[aRow.ID]
		for ok {
			aRow = g.Row()
			_, ok = idMap[aRow.ID]
		}
		rows = append(rows, aRow)
		idMap[aRow.ID] = struct{}{}
	}
	return rows
}

// SequentialRows generates rows with IDs 1..number in ascending order.
func (g *DataGen) SequentialRows(number int) []minidb.Row {
	rows := make([]minidb.Row, 0, number)
	for i := 1; i <= number; i++ {
		rows = append(rows, minidb.Row{
			ID:       uint32(i),
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("person%d@example.com", i),
		})
	}
	return rows
}

func (g *DataGen) NewRootLeafPageWithCells(cells int) *minidb.Page {
	aRootLeaf := minidb.NewLeafNode()
	aRootLeaf.Header.IsRoot = true
	aRootLeaf.Header.Cells = uint32(cells)

	for i := 0; i < cells; i++ {
		aRow := minidb.Row{
			ID:       uint32(i),
			Username: fmt.Sprintf("user%d", i),
			Email:    fmt.Sprintf("person%d@example.com", i),
		}
		buf, err := aRow.Marshal(nil)
		if err != nil {
			panic(err)
		}
		aCell := minidb.Cell{Key: uint64(i)}
		copy(aCell.Value[:], buf)
		aRootLeaf.Cells[i] = aCell
	}

	return &minidb.Page{Index: 1, LeafNode: aRootLeaf}
}
