package build

import (
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Verify runs text through an independent CSS parser and returns the first
// grammar error it reports.
func Verify(text string) error {
	p := css.NewParser(parse.NewInput(strings.NewReader(text)), false)
	for {
		gt, _, _ := p.Next()
		if gt != css.ErrorGrammar {
			continue
		}
		if p.HasParseError() {
			return p.Err()
		}
		if err := p.Err(); err != io.EOF {
			return err
		}
		return nil
	}
}
