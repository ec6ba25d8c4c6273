package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/MrEthical07/ledger/screens"
)

// ask returns value, or reads a line from the app's input when it is empty.
func (a *app) ask(value, label string) (string, error) {
	if value != "" {
		return value, nil
	}
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	fmt.Fprintf(a.errOut, "%s: ", label)
	line, err := a.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// show prints m. Error messages become the command's error so the exit
// status reflects them.
func (a *app) show(m screens.Message) error {
	if m.IsZero() {
		return nil
	}
	if m.Error {
		return fmt.Errorf("%s: %s", m.Header, m.Body)
	}
	a.printf("%s\n%s\n", m.Header, m.Body)
	return nil
}
