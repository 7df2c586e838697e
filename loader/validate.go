package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/netquest/corpus"
)

// checkDocument reports definitions that cannot be indexed at all. Everything
// else is left to the corpus validator, which sees the whole corpus.
func checkDocument(file string, doc *Document, ve *corpus.ValidationError) {
	for i, q := range doc.Quests {
		if strings.TrimSpace(q.ID) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: quest #%d has no id", file, i+1))
		}
	}
	for i, m := range doc.Mail {
		if strings.TrimSpace(m.ID) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s: mail #%d has no id", file, i+1))
		}
	}
}
