package main

import (
	"errors"
	"os"
	"strings"

	"github.com/burntcarrot/wavepad/commons"
	"github.com/burntcarrot/wavepad/docop"
	"github.com/burntcarrot/wavepad/wavelet"
	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"
	"github.com/sirupsen/logrus"
)

// errExit is returned by the key handler when the user quits.
var errExit = errors.New("wavepad: exiting")

// ConnWriter is the sending half of the server connection.
type ConnWriter interface {
	WriteJSON(v interface{}) error
}

// handleTermboxEvent handles key input by editing the local document and
// sending the edit to the server.
func handleTermboxEvent(ev termbox.Event, conn ConnWriter) error {
	if ev.Type != termbox.EventKey {
		if ev.Type == termbox.EventResize {
			e.SetSize(ev.Width, ev.Height)
		}
		return nil
	}

	switch ev.Key {

	// The default keys for exiting a session are Esc and Ctrl+C.
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return errExit

	// The default key for saving the document's text is Ctrl+S.
	case termbox.KeyCtrlS:
		saveText()

	case termbox.KeyArrowLeft, termbox.KeyCtrlB:
		e.MoveCursor(-1, 0)
	case termbox.KeyArrowRight, termbox.KeyCtrlF:
		e.MoveCursor(1, 0)
	case termbox.KeyArrowUp, termbox.KeyCtrlP:
		e.MoveCursor(0, -1)
	case termbox.KeyArrowDown, termbox.KeyCtrlN:
		e.MoveCursor(0, 1)
	case termbox.KeyHome:
		e.Home()
	case termbox.KeyEnd:
		e.End()

	case termbox.KeyBackspace, termbox.KeyBackspace2:
		if e.Cursor > 0 {
			e.Cursor--
			performDelete(conn)
		}
	case termbox.KeyDelete:
		performDelete(conn)

	// The Tab key inserts 4 spaces to simulate a "tab".
	case termbox.KeyTab:
		performInsert(conn, "    ")
	case termbox.KeyEnter:
		performLineBreak(conn)
	case termbox.KeySpace:
		performInsert(conn, " ")

	// Every other key is eligible to be a candidate for insertion.
	default:
		if ev.Ch != 0 {
			performInsert(conn, string(ev.Ch))
		}
	}

	return nil
}

func performInsert(conn ConnWriter, s string) {
	if ch == nil {
		return
	}
	op, err := insertText(ch.Document(), e.Cursor, s)
	if applyLocal(conn, op, err) {
		e.Cursor += len([]rune(s))
	}
}

func performLineBreak(conn ConnWriter) {
	if ch == nil {
		return
	}
	op, err := insertLine(ch.Document(), e.Cursor)
	if applyLocal(conn, op, err) {
		e.Cursor++
	}
}

// performDelete removes what is shown at the cursor.
func performDelete(conn ConnWriter) {
	if ch == nil {
		return
	}
	op, ok, err := deleteAt(ch.Document(), e.Cursor)
	if !ok && err == nil {
		return
	}
	applyLocal(conn, op, err)
}

// applyLocal applies a local edit and sends it when nothing is in flight.
func applyLocal(conn ConnWriter, op docop.DocOp, err error) bool {
	if err == nil {
		var doc *docop.Document
		doc, err = ch.Local(op)
		if err == nil {
			logger.WithField("op", op.String()).Debug("local edit")
			e.SetText(flatten(doc))
			flush(conn)
			return true
		}
	}
	logger.WithError(err).Error("local edit")
	e.SetStatus("edit failed: " + err.Error())
	return false
}

// flush sends the pending edits, if the server has acknowledged the last ones.
func flush(conn ConnWriter) {
	op, base, ok := ch.Flush()
	if !ok {
		return
	}
	msg := commons.Message{
		Type:      commons.DeltaMessage,
		Version:   base,
		Operation: commons.FromDocOp(op),
	}
	if err := conn.WriteJSON(msg); err != nil {
		logger.WithError(err).Error("send delta")
		e.SetStatus("lost connection!")
	}
}

// resync asks the server for a fresh snapshot.
func resync(conn ConnWriter, cause error) {
	logger.WithError(cause).Warn("out of sync, requesting a snapshot")
	e.SetStatus("resynchronizing")
	if err := conn.WriteJSON(commons.Message{Type: commons.SnapshotMessage}); err != nil {
		logger.WithError(err).Error("request snapshot")
	}
}

// saveText writes the document's text to the file given by -file, or to
// wavepad-content.txt.
func saveText() {
	if flags.File == "" {
		flags.File = "wavepad-content.txt"
	}
	if err := os.WriteFile(flags.File, []byte(string(e.Text)), 0644); err != nil { // skipcq: GSC-G306
		logger.WithError(err).Errorf("failed to save to %s", flags.File)
		e.SetStatus("Failed to save to " + flags.File)
		return
	}
	e.SetStatus("Saved document to " + flags.File)
}

// getTermboxChan returns a channel of termbox Events repeatedly waiting on user input.
func getTermboxChan() chan termbox.Event {
	termboxChan := make(chan termbox.Event)

	go func() {
		for {
			termboxChan <- termbox.PollEvent()
		}
	}()

	return termboxChan
}

// handleMsg updates the local document with a message from the server.
func handleMsg(msg commons.Message, conn ConnWriter) {
	switch msg.Type {
	case commons.SnapshotMessage:
		doc, err := docop.ParseXML(msg.Document)
		if err != nil {
			logger.WithError(err).Error("parse snapshot")
			return
		}
		if ch == nil {
			ch = wavelet.NewChannel(doc, msg.Version)
		} else {
			ch.Reset(doc, msg.Version)
		}
		e.SetText(flatten(doc))
		logger.WithField("version", msg.Version).Info("snapshot received")

	case commons.DeltaMessage:
		if ch == nil {
			return
		}
		op, err := msg.Operation.DocOp()
		if err != nil {
			resync(conn, err)
			return
		}
		before := ch.Document()
		caret, err := docPos(before, e.Cursor)
		if err != nil {
			caret = 0
		}
		applied, err := ch.Remote(op, msg.Version)
		if err != nil {
			resync(conn, err)
			return
		}
		doc := ch.Document()
		e.SetText(flatten(doc))
		e.Cursor = cursorAt(doc, transformPos(applied, caret))
		logger.WithFields(logrus.Fields{"version": msg.Version, "author": msg.Username}).Debug("remote edit")

	case commons.AckMessage:
		if ch == nil {
			return
		}
		if err := ch.Ack(msg.Version); err != nil {
			resync(conn, err)
			return
		}
		flush(conn)

	case commons.ErrorMessage:
		logger.WithField("error", msg.Text).Warn("edit rejected by server")
		e.SetStatus("rejected: " + msg.Text)

	case commons.UsersMessage:
		if msg.Text == "" {
			e.Users = nil
		} else {
			e.Users = strings.Split(msg.Text, ",")
		}
	}

	if ch != nil {
		printDoc(ch.Document(), ch.Version())
	}
}

// getMsgChan returns a message channel that repeatedly reads from a websocket connection.
// The channel is closed when the connection ends.
func getMsgChan(conn *websocket.Conn) chan commons.Message {
	messageChan := make(chan commons.Message)
	go func() {
		defer close(messageChan)
		for {
			var msg commons.Message

			err := conn.ReadJSON(&msg)
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Errorf("websocket error: %v", err)
				}
				return
			}

			logger.WithField("type", msg.Type).Debug("message received")
			messageChan <- msg
		}
	}()
	return messageChan
}
