package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

type WorkerStats struct {
	Name        string  `json:"name"`
	Worker      int     `json:"worker"`
	Frames      int     `json:"frames"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	FPS         int     `json:"fps"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type SessionSummary struct {
	ID            string `json:"id"`
	WatchFolder   string `json:"watchFolder"`
	Discovered    int    `json:"discovered"`
	Notified      int    `json:"notified"`
	Poisoned      int    `json:"poisoned"`
	Measurements  int    `json:"measurements"`
	ExportFile    string `json:"exportFile"`
	Exported      bool   `json:"exported"`
	Aborted       bool   `json:"aborted"`
	Uptime        int64  `json:"uptime"`
	Timestamp     int64  `json:"timestamp"`
	StaleAdmitted int    `json:"staleAdmissions"`
}
