package services

import (
	"testing"

	"semantic-qa-platform/utils"
)

func TestExtractPagesRejectsGarbage(t *testing.T) {
	extractor := NewPDFExtractor()

	cases := []struct {
		name string
		data []byte
	}{
		{"empty input", nil},
		{"not a pdf", []byte("just some plain text")},
		{"truncated header", []byte("%PDF-1.7")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := extractor.ExtractPages(tc.data)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !utils.IsKind(err, utils.KindParsing) {
				t.Errorf("expected a parsing failure, got %v", err)
			}
		})
	}
}
