package errors

import (
	"fmt"
	"sync"
	"time"
)

// CompileError is a stylesheet compilation failure with its source location.
type CompileError struct {
	File      string
	Line      int
	Column    int
	Message   string
	Timestamp time.Time
}

// Error implements the error interface
func (ce *CompileError) Error() string {
	if ce.Line == 0 {
		return fmt.Sprintf("%s: %s", ce.File, ce.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", ce.File, ce.Line, ce.Column, ce.Message)
}

// Collector gathers errors that are reported but do not stop a task
type Collector struct {
	errors []*CompileError
	mutex  sync.RWMutex
}

// NewCollector creates a new error collector
func NewCollector() *Collector {
	return &Collector{errors: make([]*CompileError, 0)}
}

// Add records a compile error
func (c *Collector) Add(err *CompileError) {
	if err == nil {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	c.errors = append(c.errors, err)
}

// Errors returns a copy of the collected errors
func (c *Collector) Errors() []*CompileError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]*CompileError, len(c.errors))
	copy(result, c.errors)
	return result
}

// HasErrors returns true if anything was collected
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.errors) > 0
}

// ForFile returns errors for a specific file
func (c *Collector) ForFile(file string) []*CompileError {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var out []*CompileError
	for _, err := range c.errors {
		if err.File == file {
			out = append(out, err)
		}
	}
	return out
}

// Clear drops all collected errors
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = c.errors[:0]
}
