package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/burntcarrot/wavepad/docop"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/writer"
)

// Flags represents the command-line flags that are passed to wavepad's client.
type Flags struct {
	Server string
	Secure bool
	Login  bool
	Name   string
	Doc    string
	File   string
	Debug  bool
}

// parseFlags parses command-line flags.
func parseFlags() Flags {
	serverAddr := flag.String("server", "localhost:9000", "The network address of the server")
	useSecureConn := flag.Bool("secure", false, "Enable a secure WebSocket connection (wss://)")
	enableDebug := flag.Bool("debug", false, "Enable debugging mode to show more verbose logs")
	enableLogin := flag.Bool("login", false, "Enable the login prompt for the server")
	name := flag.String("name", "", "The username shown to other editors")
	docID := flag.String("doc", "default", "The document to edit")
	file := flag.String("file", "", "The file to save the document's text to")

	flag.Parse()

	return Flags{
		Server: *serverAddr,
		Secure: *useSecureConn,
		Debug:  *enableDebug,
		Login:  *enableLogin,
		Name:   *name,
		Doc:    *docID,
		File:   *file,
	}
}

// createConn creates a WebSocket connection to the document named by flags.Doc.
func createConn(flags Flags) (*websocket.Conn, *http.Response, error) {
	scheme := "ws"
	if flags.Secure {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     flags.Server,
		Path:     "/",
		RawQuery: url.Values{"doc": {flags.Doc}}.Encode(),
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 2 * time.Minute,
	}

	return dialer.Dial(u.String(), nil)
}

// ensureDirExists ensures that a directory exists, and if it isn't present, it tries to create a new one.
func ensureDirExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}

	err := os.Mkdir(path, 0700)
	if err != nil {
		return false, err
	}

	return true, nil
}

// setupLogger sends warnings and errors to wavepad.log and everything else
// to wavepad-debug.log, both under ~/.wavepad. The terminal belongs to the
// editor, so nothing is logged there.
func setupLogger(logger *logrus.Logger) (*os.File, *os.File, error) {
	logPath := "wavepad.log"
	debugLogPath := "wavepad-debug.log"

	homeDir, err := os.UserHomeDir()
	if err == nil {
		dir := filepath.Join(homeDir, ".wavepad")
		if ok, err := ensureDirExists(dir); err != nil {
			return nil, nil, err
		} else if ok {
			logPath = filepath.Join(dir, logPath)
			debugLogPath = filepath.Join(dir, debugLogPath)
		}
	}

	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	debugLogFile, err := os.OpenFile(debugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // skipcq: GSC-G302
	if err != nil {
		logFile.Close()
		return nil, nil, fmt.Errorf("open debug log file: %w", err)
	}

	logger.SetOutput(io.Discard)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if flags.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.AddHook(&writer.Hook{
		Writer: logFile,
		LogLevels: []logrus.Level{
			logrus.WarnLevel,
			logrus.ErrorLevel,
			logrus.FatalLevel,
			logrus.PanicLevel,
		},
	})
	logger.AddHook(&writer.Hook{
		Writer: debugLogFile,
		LogLevels: []logrus.Level{
			logrus.TraceLevel,
			logrus.DebugLevel,
			logrus.InfoLevel,
		},
	})

	return logFile, debugLogFile, nil
}

// closeLogFiles closes the log files created by the client.
// closeLogFiles is meant to be used for defer calls.
func closeLogFiles(logFile, debugLogFile *os.File) {
	if err := logFile.Close(); err != nil {
		fmt.Printf("Failed to close log file: %s", err)
		return
	}

	if err := debugLogFile.Close(); err != nil {
		fmt.Printf("Failed to close debug log file: %s", err)
		return
	}
}

// printDoc logs the document state when debugging is enabled.
func printDoc(doc *docop.Document, version int) {
	if flags.Debug {
		logger.WithField("version", version).Debugf("document: %s", doc.XML())
	}
}
