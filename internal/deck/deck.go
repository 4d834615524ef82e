package deck

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

var ErrTicketNotFound = errors.New("ticket not found")

const (
	// NumberMax is the highest callable number; tickets draw from 1..NumberMax.
	NumberMax = 90

	blocksPerTicket = 3
	numbersPerBlock = 15
	numbersPerRow   = 5
	ticketsPerDeck  = 10
)

type Variant string

const (
	VariantPrimary    Variant = "A"
	VariantComplement Variant = "B"
)

// Ticket is one immutable card from the deck. Blocks holds 3 groups of 15
// distinct numbers, each sorted ascending; no number repeats anywhere on the
// ticket.
type Ticket struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Color      string  `json:"color"`
	ColorLabel string  `json:"colorLabel"`
	Variant    Variant `json:"variant"`
	Blocks     [][]int `json:"blocks"`
}

// Numbers returns every number on the ticket, block by block.
func (t Ticket) Numbers() []int {
	out := make([]int, 0, blocksPerTicket*numbersPerBlock)
	for _, b := range t.Blocks {
		out = append(out, b...)
	}
	return out
}

// Rows splits each block into its three 5-number rows.
func (t Ticket) Rows() [][]int {
	rows := make([][]int, 0, blocksPerTicket*numbersPerBlock/numbersPerRow)
	for _, b := range t.Blocks {
		for i := 0; i+numbersPerRow <= len(b); i += numbersPerRow {
			rows = append(rows, b[i:i+numbersPerRow])
		}
	}
	return rows
}

type pair struct {
	color      string
	colorLabel string
	title      string
}

// Five color pairs, two variants each.
var pairs = []pair{
	{color: "red", colorLabel: "Đỏ", title: "RỰC RỠ"},
	{color: "blue", colorLabel: "Xanh dương", title: "THÀNH CÔNG"},
	{color: "green", colorLabel: "Xanh lá", title: "THÀNH CÔNG"},
	{color: "purple", colorLabel: "Tím", title: "HUY HOÀNG"},
	{color: "orange", colorLabel: "Cam", title: "HUY HOÀNG"},
}

// Deck is the fixed catalog of 10 tickets. Built once at startup, read-only
// afterwards.
type Deck struct {
	tickets []Ticket
	byID    map[string]Ticket
}

// Build generates the full catalog: for each color pair, a primary ticket
// with fresh random numbers and a complement ticket mirrored within each
// decade so the two cards in a pair never look alike.
func Build(rng *rand.Rand) *Deck {
	d := &Deck{byID: make(map[string]Ticket, ticketsPerDeck)}
	for _, p := range pairs {
		blocksA := generateBlocks(rng)
		blocksB := complementBlocks(blocksA, rng)

		a := Ticket{
			ID:         fmt.Sprintf("%s-A", p.color),
			Title:      p.title,
			Color:      p.color,
			ColorLabel: p.colorLabel,
			Variant:    VariantPrimary,
			Blocks:     blocksA,
		}
		b := Ticket{
			ID:         fmt.Sprintf("%s-B", p.color),
			Title:      p.title,
			Color:      p.color,
			ColorLabel: p.colorLabel,
			Variant:    VariantComplement,
			Blocks:     blocksB,
		}
		d.tickets = append(d.tickets, a, b)
		d.byID[a.ID] = a
		d.byID[b.ID] = b
	}
	return d
}

// Tickets returns the catalog in stable pair order.
func (d *Deck) Tickets() []Ticket {
	return d.tickets
}

// TicketByID looks up a ticket or reports ErrTicketNotFound.
func (d *Deck) TicketByID(id string) (Ticket, error) {
	t, ok := d.byID[id]
	if !ok {
		return Ticket{}, fmt.Errorf("%w: %q", ErrTicketNotFound, id)
	}
	return t, nil
}

// generateBlocks draws 3 blocks of 15 distinct numbers from 1..90, distinct
// across the whole ticket, each block sorted.
func generateBlocks(rng *rand.Rand) [][]int {
	used := make(map[int]bool, blocksPerTicket*numbersPerBlock)
	blocks := make([][]int, 0, blocksPerTicket)
	for b := 0; b < blocksPerTicket; b++ {
		block := make([]int, 0, numbersPerBlock)
		for len(block) < numbersPerBlock {
			n := 1 + rng.Intn(NumberMax)
			if used[n] {
				continue
			}
			used[n] = true
			block = append(block, n)
		}
		sort.Ints(block)
		blocks = append(blocks, block)
	}
	return blocks
}

// decadeOf maps a number to its column band: 1-9, 10-19, ..., 80-90.
func decadeOf(n int) int {
	if n == NumberMax {
		return 8
	}
	return n / 10
}

// mirrorInDecade reflects a number within its own decade band, so the
// complement card fills the opposite end of each column.
func mirrorInDecade(n int) int {
	if n == NumberMax {
		return 80
	}
	d := decadeOf(n)
	lo := d * 10
	hi := d*10 + 9
	if d == 0 {
		lo = 1
	}
	if d == 8 {
		hi = NumberMax
	}
	return lo + (hi - n)
}

// complementBlocks builds variant B from variant A by decade mirroring.
// Mirrored numbers that collide walk forward to a free neighbour; any block
// still short after that is topped up with fresh random numbers.
func complementBlocks(blocksA [][]int, rng *rand.Rand) [][]int {
	used := make(map[int]bool, blocksPerTicket*numbersPerBlock)
	blocksB := make([][]int, 0, blocksPerTicket)

	for _, block := range blocksA {
		set := make(map[int]bool, numbersPerBlock)
		for _, n := range block {
			m := mirrorInDecade(n)
			for guard := 0; used[m] && guard < 40; guard++ {
				if m == NumberMax {
					m = NumberMax - 1
				} else {
					m++
				}
				if m > NumberMax {
					m = 1
				}
			}
			if !used[m] {
				used[m] = true
				set[m] = true
			}
		}
		for len(set) < numbersPerBlock {
			n := 1 + rng.Intn(NumberMax)
			if used[n] {
				continue
			}
			used[n] = true
			set[n] = true
		}

		out := make([]int, 0, numbersPerBlock)
		for n := range set {
			out = append(out, n)
		}
		sort.Ints(out)
		blocksB = append(blocksB, out)
	}
	return blocksB
}
