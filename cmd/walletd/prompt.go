package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errNoTerminal = errors.New("no terminal to read the password from; set WALLET_PASSWORD")

// promptPassword returns preset when set and otherwise reads a password from
// the terminal without echo. confirm asks a second time and compares.
func promptPassword(w io.Writer, preset string, confirm bool) (string, error) {
	if preset != "" {
		return preset, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}

	first, err := readLine(w, fd, "Enter password: ")
	if err != nil {
		return "", err
	}
	if !confirm {
		return first, nil
	}
	second, err := readLine(w, fd, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func readLine(w io.Writer, fd int, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}
