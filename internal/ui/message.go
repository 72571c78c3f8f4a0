package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tapedeck/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgProgressClosed
	MsgDownloadComplete
)

type downloadComplete struct {
	result *tasks.RunResult
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// progressClosedMsg is the constructor for [MsgProgressClosed]
func progressClosedMsg() Msg {
	return Msg{kind: MsgProgressClosed}
}

// Finished is the constructor for [MsgDownloadComplete], sent by the caller once the engine returns.
func Finished(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgDownloadComplete, data: downloadComplete{result: result, err: err}}
}
