package main

import (
	"fmt"
	"strconv"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// EmployeePrefix is prepended to every generated employee ID.
const EmployeePrefix = "emp_"

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength   = 10
)

func NewEmployeeID() (string, error) {
	id, err := nanoid.Generate(idAlphabet, idLength)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return EmployeePrefix + id, nil
}

// seedEmployeeID names the records of the bundled first-run roster.
func seedEmployeeID(idx int) string {
	return EmployeePrefix + strconv.Itoa(idx)
}

// JournalEntryID derives an entry id from its creation timestamp (unix millis).
func JournalEntryID(timestamp int64) string {
	return strconv.FormatInt(timestamp, 10)
}
