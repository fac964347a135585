package tui

import "github.com/h0rv/kanban/internal/drag"

// Layout constants
const (
	minColumnWidth = 20
	maxColumnWidth = 35
	headerLines    = 2 // Title line + hints line
	indicatorWidth = 2 // Carousel arrow beside hidden columns
)

// boardLayout is the horizontal and vertical arrangement of the visible columns.
type boardLayout struct {
	startCol, endCol int // Visible column range [startCol, endCol)
	colWidth         int // Outer width including border
	innerWidth       int // Text width inside border and padding
	contentHeight    int // Lines inside the border
	leftIndicator    bool
	rightIndicator   bool
}

// computeLayout fits numCols columns into totalWidth x totalHeight, starting
// at columnOffset when not all columns fit.
func computeLayout(numCols, columnOffset, totalWidth, totalHeight int) boardLayout {
	var l boardLayout
	if numCols == 0 {
		return l
	}

	// Border adds 2 lines to the content height
	l.contentHeight = totalHeight - 2
	if l.contentHeight < 3 {
		l.contentHeight = 3
	}

	visibleCols := totalWidth / minColumnWidth
	if visibleCols < 1 {
		visibleCols = 1
	}
	if visibleCols > numCols {
		visibleCols = numCols
	}

	l.colWidth = totalWidth / visibleCols
	if l.colWidth > maxColumnWidth {
		l.colWidth = maxColumnWidth
	}
	if l.colWidth < minColumnWidth {
		l.colWidth = minColumnWidth
	}

	// 2 border + 2 padding
	l.innerWidth = l.colWidth - 4
	if l.innerWidth < 10 {
		l.innerWidth = 10
	}

	l.startCol = columnOffset
	l.endCol = l.startCol + visibleCols
	if l.endCol > numCols {
		l.endCol = numCols
		l.startCol = l.endCol - visibleCols
		if l.startCol < 0 {
			l.startCol = 0
		}
	}
	l.leftIndicator = l.startCol > 0
	l.rightIndicator = l.endCol < numCols
	return l
}

// columnX returns the left edge of visible column i.
func (l boardLayout) columnX(i int) int {
	x := (i - l.startCol) * l.colWidth
	if l.leftIndicator {
		x += indicatorWidth
	}
	return x
}

// cardSlots returns the number of lines available for cards and indicators.
func (l boardLayout) cardSlots() int {
	slots := l.contentHeight - 1 // Column header
	if slots < 1 {
		slots = 1
	}
	return slots
}

// cardWindow returns the end of the visible range of n rows starting at
// offset within slots lines, and whether scroll indicators are shown.
func cardWindow(n, offset, slots int) (end int, up, down bool) {
	avail := slots
	if offset > 0 {
		up = true
		avail--
	}
	if avail < 1 {
		avail = 1
	}
	end = min(offset+avail, n)
	if end < n {
		down = true
		if avail > 1 {
			avail--
		}
		end = min(offset+avail, n)
	}
	return end, up, down
}

// columnGeometry is the screen rectangle of one rendered column.
type columnGeometry struct {
	listID         string
	x0, x1, y0, y1 int // [x0, x1) x [y0, y1)
	headerY        int
	cardY          int      // Line of the first visible card
	cardIDs        []string // Visible cards, top to bottom
}

// geometry maps terminal cells to lists and cards. It is rebuilt after every
// layout change and implements drag.HitTester.
type geometry struct {
	columns []columnGeometry
}

// HitTest returns the card under (x, y), or the list whose column contains it.
func (g *geometry) HitTest(x, y int) (drag.Target, bool) {
	for _, col := range g.columns {
		if x < col.x0 || x >= col.x1 || y < col.y0 || y >= col.y1 {
			continue
		}
		if i := y - col.cardY; y != col.headerY && i >= 0 && i < len(col.cardIDs) {
			return drag.Target{Kind: drag.KindCard, ID: col.cardIDs[i], Container: col.listID}, true
		}
		return drag.Target{Kind: drag.KindList, ID: col.listID}, true
	}
	return drag.Target{}, false
}

// cardAt returns the screen position of a visible card, for tests and tooling.
func (g *geometry) cardAt(cardID string) (x, y int, ok bool) {
	for _, col := range g.columns {
		for i, id := range col.cardIDs {
			if id == cardID {
				return col.x0 + 2, col.cardY + i, true
			}
		}
	}
	return 0, 0, false
}

// headerAt returns the screen position of a visible list header.
func (g *geometry) headerAt(listID string) (x, y int, ok bool) {
	for _, col := range g.columns {
		if col.listID == listID {
			return col.x0 + 2, col.headerY, true
		}
	}
	return 0, 0, false
}
