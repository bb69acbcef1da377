package keyword

import (
	"errors"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

const lexicalAnalyzer = "hyoka_lexical"

// Features are the lexical match counts of one (query, title) pair.
type Features struct {
	// TitleTF sums, over the title tokens, how often each occurs in the query.
	TitleTF  int
	QueryLen int
	TitleLen int
}

// Analyzer splits text into lowercased unicode word tokens.
type Analyzer struct {
	analyzer analysis.Analyzer
}

// NewAnalyzer builds the analyzer from Bleve's unicode tokenizer and lowercase filter.
func NewAnalyzer() (*Analyzer, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(lexicalAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	a := im.AnalyzerNamed(lexicalAnalyzer)
	if a == nil {
		return nil, errors.New("lexical analyzer not registered")
	}
	return &Analyzer{analyzer: a}, nil
}

// Tokens returns the analyzed terms of text in order.
func (a *Analyzer) Tokens(text string) []string {
	stream := a.analyzer.Analyze([]byte(text))
	out := make([]string, len(stream))
	for i, tok := range stream {
		out[i] = string(tok.Term)
	}
	return out
}

// Features counts how the query's tokens occur in title.
func (a *Analyzer) Features(query, title string) Features {
	queryTokens := a.Tokens(query)
	counts := make(map[string]int, len(queryTokens))
	for _, t := range queryTokens {
		counts[t]++
	}
	titleTokens := a.Tokens(title)
	f := Features{QueryLen: len(queryTokens), TitleLen: len(titleTokens)}
	for _, t := range titleTokens {
		f.TitleTF += counts[t]
	}
	return f
}
