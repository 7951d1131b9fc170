package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/burntcarrot/wavepad/client/editor"
	"github.com/burntcarrot/wavepad/commons"
	"github.com/burntcarrot/wavepad/tui"
	"github.com/burntcarrot/wavepad/wavelet"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	// flags are the parsed command-line flags.
	flags Flags

	// logger writes to the log files under ~/.wavepad.
	logger = logrus.New()

	// e is the editor view.
	e *editor.Editor

	// ch holds the local document and the edits the server has not
	// acknowledged. It is nil until the first snapshot arrives.
	ch *wavelet.Channel
)

func main() {
	flags = parseFlags()

	if flags.Login || flags.Name == "" {
		creds, err := tui.Login(flags.Name, flags.Doc)
		if err != nil {
			if errors.Is(err, tui.ErrCancelled) {
				return
			}
			color.Red("Login error, exiting: %s", err)
			os.Exit(1)
		}
		flags.Name, flags.Doc = creds.Username, creds.Document
	}

	logFile, debugLogFile, err := setupLogger(logger)
	if err != nil {
		color.Red("Logger error, exiting: %s", err)
		os.Exit(1)
	}
	defer closeLogFiles(logFile, debugLogFile)

	conn, _, err := createConn(flags)
	if err != nil {
		color.Red("Connection error, exiting: %s", err)
		return
	}
	defer conn.Close()

	msg := commons.Message{Username: flags.Name, Type: commons.JoinMessage}
	if err := conn.WriteJSON(msg); err != nil {
		color.Red("Join error, exiting: %s", err)
		return
	}

	if err := UI(conn); err != nil {
		logger.WithError(err).Error("editor stopped")
		color.Red("%s", err)
		return
	}

	fmt.Println("Goodbye!")
}
