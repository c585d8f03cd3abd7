package search

import (
	"strings"

	"golang.org/x/net/html"
)

var punctuationReplacer = strings.NewReplacer(".", "", ",", "", "?", "", "!", "")

// StripText removes markup, lowercases and drops the punctuation characters
// . , ? and ! from text. Every tag is replaced by a single space. Script and
// style bodies are dropped only once their end tag is seen, and an unfinished
// tag at the end of text is kept as written.
func StripText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	// body of an open script or style element, written out if it never closes
	var rawTag string
	var rawText []byte

loop:
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// a strings.Reader only ever ends with io.EOF
			b.Write(rawText)
			b.Write(tokenizer.Raw())
			break loop

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); rawTag == "" && (tag == "script" || tag == "style") {
				rawTag = tag
				rawText = rawText[:0]
			}
			b.WriteByte(' ')

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if rawTag != "" && string(name) == rawTag {
				rawTag = ""
				rawText = rawText[:0]
			}
			b.WriteByte(' ')

		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
			b.WriteByte(' ')

		case html.TextToken:
			if rawTag != "" {
				rawText = append(rawText, tokenizer.Text()...)
			} else {
				b.Write(tokenizer.Text())
			}
		}
	}

	out := strings.ToLower(b.String())
	out = punctuationReplacer.Replace(out)
	return strings.TrimSpace(out)
}

// TokenizeText splits text on runs of whitespace. Empty segments are never returned.
func TokenizeText(text string) []string {
	fields := strings.Fields(text)
	if fields == nil {
		return []string{}
	}
	return fields
}

// Normalize runs the full pipeline used for both queries and candidate
// fields: strip, tokenize, then remove stop words.
func Normalize(text string, stopWords StopWords) []string {
	return stopWords.Remove(TokenizeText(StripText(text)))
}
