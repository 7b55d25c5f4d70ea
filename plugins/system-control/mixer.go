package main

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// runFunc executes a command and returns its combined output.
type runFunc func(name string, args ...string) (string, error)

func runCommand(name string, args ...string) (string, error) {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// osascriptMixer controls the macOS output volume through AppleScript.
type osascriptMixer struct {
	run runFunc
}

func (m osascriptMixer) Level() (int, error) {
	out, err := m.run("osascript", "-e", "output volume of (get volume settings)")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(out))
}

func (m osascriptMixer) SetLevel(level int) error {
	_, err := m.run("osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
	return err
}

func (m osascriptMixer) ToggleMute() error {
	_, err := m.run("osascript", "-e", "set volume output muted (not (output muted of (get volume settings)))")
	return err
}

// amixerMixer controls the ALSA Master control.
type amixerMixer struct {
	run runFunc
}

var amixerPercent = regexp.MustCompile(`\[(\d{1,3})%\]`)

func (m amixerMixer) Level() (int, error) {
	out, err := m.run("amixer", "get", "Master")
	if err != nil {
		return 0, err
	}
	match := amixerPercent.FindStringSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("no level in amixer output")
	}
	return strconv.Atoi(match[1])
}

func (m amixerMixer) SetLevel(level int) error {
	_, err := m.run("amixer", "-q", "sset", "Master", fmt.Sprintf("%d%%", level))
	return err
}

func (m amixerMixer) ToggleMute() error {
	_, err := m.run("amixer", "-q", "sset", "Master", "toggle")
	return err
}
