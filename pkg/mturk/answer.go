package mturk

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Answer is one question/answer pair of a QuestionFormAnswers document.
type Answer struct {
	QuestionIdentifier string
	FreeText           string
}

// ParseAnswers extracts the answers of a QuestionFormAnswers payload. Element
// names are matched case-insensitively and namespaces are ignored.
func ParseAnswers(payload string) ([]Answer, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))
	dec.Strict = false
	// payloads are declared as ASCII, which is a subset of UTF-8
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		answers []Answer
		current *Answer
		field   string
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse answer payload: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			switch {
			case name == "answer":
				current = &Answer{}
			case current != nil && (name == "questionidentifier" || name == "freetext"):
				field = name
				text.Reset()
			}
		case xml.CharData:
			if field != "" {
				text.Write(t)
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			switch {
			case current != nil && name == field:
				if field == "questionidentifier" {
					current.QuestionIdentifier = strings.TrimSpace(text.String())
				} else {
					current.FreeText = text.String()
				}
				field = ""
			case current != nil && name == "answer":
				if current.QuestionIdentifier != "" {
					answers = append(answers, *current)
				}
				current = nil
			}
		}
	}
	return answers, nil
}
