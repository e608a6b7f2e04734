// Package prompt provides interactive terminal prompts.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted indicates the user interrupted the prompt.
var ErrAborted = errors.New("aborted")

// Password prompts for a masked password.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}
