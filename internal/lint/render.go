// SPDX-License-Identifier: MIT

package lint

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteText renders findings one per line in the conventional
// path:line: severity rule: message form, closing with a count summary.
func WriteText(w io.Writer, res *Result) error {
	path := res.Manifest
	if path == "" {
		path = "<manifest>"
	}
	for _, f := range res.Findings {
		var err error
		if f.Line > 0 {
			_, err = fmt.Fprintf(w, "%s:%d: %s %s: %s\n", path, f.Line, f.Severity, f.Rule, f.Message)
		} else {
			_, err = fmt.Fprintf(w, "%s: %s %s: %s\n", path, f.Severity, f.Rule, f.Message)
		}
		if err != nil {
			return err
		}
	}
	if len(res.Findings) == 0 {
		_, err := fmt.Fprintln(w, "OK")
		return err
	}
	_, err := fmt.Fprintf(w, "%d error(s), %d warning(s), %d info(s)\n", res.Errors, res.Warnings, res.Infos)
	return err
}

// WriteJSON renders the full result as indented JSON.
func WriteJSON(w io.Writer, res *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
