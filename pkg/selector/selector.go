// Package selector picks the root TeX file of an extracted source tree.
//
// Every *.tex file under the tree is scored by Score and the highest score wins.
// Files are enumerated in lexical path order, and ties keep that order, so the
// first enumerated file wins a tie. The winner is also copied to main.tex at the
// tree root when possible; this alias is optional and its failure is reported in
// Result.Alias, never as an error.
package selector

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// AliasName is the canonical file name created at the tree root for the winner
const AliasName = "main.tex"

// Candidate is a scored source file
type Candidate struct {
	Path  string
	Score int
}

// Result of the selection
type Result struct {
	Path       string      // winner's original path
	Score      int         // winner's score
	Alias      string      // path of materialized alias, empty if not created
	Candidates []Candidate // all scored candidates, best first
}

// Enumerate returns all *.tex files under root in lexical order
func Enumerate(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".tex") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	// WalkDir orders names per directory only, so a/x.tex would precede a-b.tex
	sort.Slice(files, func(i, j int) bool { return filepath.ToSlash(files[i]) < filepath.ToSlash(files[j]) })
	return files, nil
}

// Select scores all candidates under root and returns the best one
func Select(root string) (*Result, error) {
	files, err := Enumerate(root)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNotFound, "enumerate candidates", err)
	}

	candidates := make([]Candidate, 0, len(files))
	for _, path := range files {
		content, err := readText(path)
		if err != nil {
			log.Printf("[WARN] skip %s: %v", path, err)
			continue
		}
		candidates = append(candidates, Candidate{Path: path, Score: Score(filepath.Base(path), content)})
	}

	if len(candidates) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, fmt.Sprintf("no tex files in %s", root), nil)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	best := candidates[0]
	res := &Result{Path: best.Path, Score: best.Score, Candidates: candidates}
	res.Alias = materializeAlias(root, best.Path)

	log.Printf("[DEBUG] selected %s (score %d) out of %d candidates", best.Path, best.Score, len(candidates))
	return res, nil
}

// readText reads a file, replacing invalid UTF-8 sequences
func readText(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the walked tree
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// materializeAlias copies the winner to root/main.tex unless it already exists.
// returns the alias path, or empty string if no alias was created.
func materializeAlias(root, winner string) string {
	alias := filepath.Join(root, AliasName)
	if filepath.Clean(winner) == filepath.Clean(alias) {
		return ""
	}
	if _, err := os.Stat(alias); err == nil {
		return ""
	}

	data, err := os.ReadFile(winner) //nolint:gosec // path comes from the walked tree
	if err != nil {
		log.Printf("[DEBUG] can't read %s for alias: %v", winner, err)
		return ""
	}
	if err := os.WriteFile(alias, data, 0o644); err != nil { //nolint:gosec // alias is a regular source file
		log.Printf("[DEBUG] can't write alias %s: %v", alias, err)
		return ""
	}
	return alias
}
