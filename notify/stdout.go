package notify

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// Stdout writes each message as a single line of JSON to an io.Writer,
// defaulting to os.Stdout.
type Stdout struct {
	Out io.Writer
}

func (s Stdout) Notify(m Message) error {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	payload, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	_, err = fmt.Fprintln(out, string(payload))
	return err
}
