package editor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/nsf/termbox-go"
)

// statusTimeout is how long a status message stays on screen.
const statusTimeout = 5 * time.Second

// Editor is the terminal view of a document's text. Lines are separated by
// '\n' and Cursor is an index into Text.
type Editor struct {
	Text   []rune
	Cursor int
	Width  int
	Height int

	// RowOff is the first line shown on screen.
	RowOff int

	// Title is shown on the left of the status bar, Users on the right.
	Title string
	Users []string

	mu        sync.Mutex
	statusMsg string
	statusAt  time.Time
}

func NewEditor() *Editor {
	return &Editor{}
}

func (e *Editor) SetText(text string) {
	e.Text = []rune(text)
	e.clampCursor()
}

func (e *Editor) SetSize(w, h int) {
	e.Width = w
	e.Height = h
}

// SetStatus shows msg on the status bar for a few seconds.
func (e *Editor) SetStatus(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusMsg = msg
	e.statusAt = time.Now()
}

func (e *Editor) status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.statusMsg == "" || time.Since(e.statusAt) > statusTimeout {
		return ""
	}
	return e.statusMsg
}

// MoveCursor moves the cursor x runes sideways, or one line up or down
// when y is negative or positive.
func (e *Editor) MoveCursor(x, y int) {
	if len(e.Text) == 0 {
		return
	}

	cursor := e.Cursor + x
	if y > 0 {
		cursor = e.cursorDown()
	}
	if y < 0 {
		cursor = e.cursorUp()
	}

	e.Cursor = cursor
	e.clampCursor()
}

// Home moves the cursor to the start of its line.
func (e *Editor) Home() {
	start, _ := e.lineBounds(e.Cursor)
	e.Cursor = start
}

// End moves the cursor to the end of its line.
func (e *Editor) End() {
	_, end := e.lineBounds(e.Cursor)
	e.Cursor = end
}

func (e *Editor) clampCursor() {
	if e.Cursor > len(e.Text) {
		e.Cursor = len(e.Text)
	}
	if e.Cursor < 0 {
		e.Cursor = 0
	}
}

// lineBounds returns the start of the line holding index and the position
// of the newline that ends it (or len(Text) on the last line).
func (e *Editor) lineBounds(index int) (int, int) {
	start := index
	for start > 0 && e.Text[start-1] != '\n' {
		start--
	}
	end := index
	for end < len(e.Text) && e.Text[end] != '\n' {
		end++
	}
	return start, end
}

// cursorUp keeps the column when the previous line is long enough, and
// otherwise lands at its end. On the first line it moves to the start.
func (e *Editor) cursorUp() int {
	start, _ := e.lineBounds(e.Cursor)
	if start == 0 {
		return 0
	}
	col := e.Cursor - start
	prevStart, prevEnd := e.lineBounds(start - 1)
	if col > prevEnd-prevStart {
		return prevEnd
	}
	return prevStart + col
}

// cursorDown mirrors cursorUp. On the last line it moves to the end.
func (e *Editor) cursorDown() int {
	start, end := e.lineBounds(e.Cursor)
	if end == len(e.Text) {
		return len(e.Text)
	}
	col := e.Cursor - start
	nextStart, nextEnd := e.lineBounds(end + 1)
	if col > nextEnd-nextStart {
		return nextEnd
	}
	return nextStart + col
}

// calcCursorXY returns the 1-based screen column and line of index.
func (e *Editor) calcCursorXY(index int) (int, int) {
	x, y := 1, 1

	if index < 0 {
		return x, y
	}
	if index > len(e.Text) {
		index = len(e.Text)
	}

	for i := 0; i < index; i++ {
		if e.Text[i] == '\n' {
			x = 1
			y++
		} else {
			x += runewidth.RuneWidth(e.Text[i])
		}
	}
	return x, y
}

// scroll adjusts RowOff so the cursor's line is on screen. The last screen
// line is the status bar.
func (e *Editor) scroll() {
	rows := e.Height - 1
	if rows < 1 {
		rows = 1
	}
	_, y := e.calcCursorXY(e.Cursor)
	line := y - 1
	if line < e.RowOff {
		e.RowOff = line
	}
	if line >= e.RowOff+rows {
		e.RowOff = line - rows + 1
	}
}

// Draw renders the visible lines and the status bar.
func (e *Editor) Draw() {
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	e.scroll()
	cx, cy := e.calcCursorXY(e.Cursor)
	termbox.SetCursor(cx-1, cy-1-e.RowOff)

	x, y := 0, 0
	for _, r := range e.Text {
		if r == '\n' {
			x = 0
			y++
			continue
		}
		row := y - e.RowOff
		if row >= 0 && row < e.Height-1 && x < e.Width {
			termbox.SetCell(x, row, r, termbox.ColorDefault, termbox.ColorDefault)
		}
		x += runewidth.RuneWidth(r)
	}

	e.drawStatusBar()
	termbox.Flush()
}

func (e *Editor) drawStatusBar() {
	left := e.status()
	if left == "" {
		x, y := e.calcCursorXY(e.Cursor)
		left = fmt.Sprintf("%s  %d:%d", e.Title, y, x)
	}
	right := strings.Join(e.Users, ", ")

	row := e.Height - 1
	for i := 0; i < e.Width; i++ {
		termbox.SetCell(i, row, ' ', termbox.ColorBlack, termbox.ColorWhite)
	}
	x := 0
	for _, r := range left {
		termbox.SetCell(x, row, r, termbox.ColorBlack, termbox.ColorWhite)
		x += runewidth.RuneWidth(r)
	}
	x = e.Width - runewidth.StringWidth(right)
	for _, r := range right {
		if x >= 0 {
			termbox.SetCell(x, row, r, termbox.ColorBlack, termbox.ColorWhite)
		}
		x += runewidth.RuneWidth(r)
	}
}
