// Copyright 2026 BHIV Core
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured logging keyed by task_id, the correlation key
// that threads a single query through classification, selection, dispatch
// and reward computation.
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// LogEntry is one JSON line on stdout. task_id is empty for lifecycle
// events that are not tied to a specific query.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	TaskID     string                 `json:"task_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new Logger for the specified component
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

// Log creates a structured log entry and writes it to stdout
func (l *Logger) Log(level LogLevel, taskID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		TaskID:     taskID,
		Message:    message,
		Fields:     fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: Failed to marshal log entry: %v", err)
		return
	}

	log.Println(string(jsonBytes))
}

// Info logs an informational message
func (l *Logger) Info(taskID, message string, fields map[string]interface{}) {
	l.Log(INFO, taskID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(taskID, message string, fields map[string]interface{}) {
	l.Log(ERROR, taskID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(taskID, message string, fields map[string]interface{}) {
	l.Log(WARN, taskID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(taskID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, taskID, message, fields)
}

// ErrorWithErr logs an error message carrying the error string as a field
func (l *Logger) ErrorWithErr(taskID, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(taskID, message, fields)
}

// InfoWithDuration logs an info message with a duration field
func (l *Logger) InfoWithDuration(taskID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(taskID, message, fields)
}
