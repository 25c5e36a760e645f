package selector

import (
	"strings"
)

// canonicalNames are base names commonly used for the root document
var canonicalNames = map[string]bool{
	"main.tex":    true,
	"paper.tex":   true,
	"article.tex": true,
}

// markers adding a fixed bonus when any of their patterns is present
var markers = []struct {
	patterns []string
	points   int
}{
	{patterns: []string{`\documentclass`}, points: 30},
	{patterns: []string{`\begin{document}`}, points: 25},
	{patterns: []string{`\end{document}`}, points: 25},
	{patterns: []string{`\title{`, `\title[`}, points: 20},
	{patterns: []string{`\author{`, `\author[`}, points: 15},
	{patterns: []string{`\date{`}, points: 10},
	{patterns: []string{`\maketitle`}, points: 15},
	{patterns: []string{`\begin{abstract}`}, points: 20},
	{patterns: []string{`\bibliography{`, `\bibliographystyle{`}, points: 10},
}

// sectioning commands, matched against lowercased content
var sectioning = []string{`\section{`, `\subsection{`, `\chapter{`, `\introduction{`, `\conclusion{`}

const (
	canonicalBonus   = 50
	includePoints    = 5
	includeCap       = 20
	sectionPoints    = 3
	prefixPenalty    = 10
	includedPenalty  = 15
	shortPenalty     = 20
	shortThreshold   = 200
	includedComment  = "% This file is included"
	appendixPrefix   = "appendix"
	supplementPrefix = "supplement"
)

// Score rates how likely a file with the given base name and content is the root
// document. the result depends only on its arguments.
func Score(name, content string) int {
	score := 0
	lname := strings.ToLower(name)

	if canonicalNames[lname] {
		score += canonicalBonus
	}

	for _, m := range markers {
		for _, p := range m.patterns {
			if strings.Contains(content, p) {
				score += m.points
				break
			}
		}
	}

	includes := strings.Count(content, `\input{`) + strings.Count(content, `\include{`)
	score += min(includes*includePoints, includeCap)

	lower := strings.ToLower(content)
	for _, s := range sectioning {
		score += strings.Count(lower, s) * sectionPoints
	}

	if strings.HasPrefix(lname, appendixPrefix) {
		score -= prefixPenalty
	}
	if strings.HasPrefix(lname, supplementPrefix) {
		score -= prefixPenalty
	}
	if strings.Contains(content, includedComment) {
		score -= includedPenalty
	}

	if len(strings.TrimSpace(content)) < shortThreshold {
		score -= shortPenalty
	}

	return score
}
