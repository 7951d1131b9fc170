package main

import (
	"errors"

	"github.com/burntcarrot/wavepad/client/editor"
	"github.com/gorilla/websocket"
	"github.com/nsf/termbox-go"
)

// UI creates a new editor view and runs the main loop.
func UI(conn *websocket.Conn) error {
	err := termbox.Init()
	if err != nil {
		return err
	}
	defer termbox.Close()

	e = editor.NewEditor()
	e.Title = flags.Name + "@" + flags.Doc
	e.SetSize(termbox.Size())
	e.Draw()

	err = mainLoop(conn)
	if errors.Is(err, errExit) {
		return nil
	}
	return err
}

// errDisconnected is returned when the server closes the connection.
var errDisconnected = errors.New("disconnected from server")

// mainLoop is the main update loop for the UI.
func mainLoop(conn *websocket.Conn) error {
	termboxChan := getTermboxChan()
	msgChan := getMsgChan(conn)

	for {
		select {
		case termboxEvent := <-termboxChan:
			if err := handleTermboxEvent(termboxEvent, conn); err != nil {
				return err
			}
		case msg, ok := <-msgChan:
			if !ok {
				return errDisconnected
			}
			handleMsg(msg, conn)
		}
		e.Draw()
	}
}
