/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package image

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestions caps the "did you mean" list.
const maxSuggestions = 3

// Suggest returns up to three candidates that resemble input, closest first.
// A candidate matches when input's characters appear in it in order or when
// the two are within a small edit distance of each other.
func Suggest(input string, candidates []string) []string {
	if input == "" || len(candidates) == 0 {
		return nil
	}

	type scored struct {
		name     string
		distance int
	}

	lowerInput := strings.ToLower(input)
	seen := map[string]bool{}
	var matches []scored

	ranks := fuzzy.RankFindFold(input, candidates)
	sort.Sort(ranks)
	for _, r := range ranks {
		seen[r.Target] = true
		matches = append(matches, scored{r.Target, r.Distance})
	}

	threshold := max(2, len(input)/3)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		if d := fuzzy.LevenshteinDistance(lowerInput, strings.ToLower(c)); d <= threshold {
			seen[c] = true
			matches = append(matches, scored{c, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.name)
	}
	return out
}

// didYouMean formats suggestions as a message suffix.
func didYouMean(input string, candidates []string) string {
	s := Suggest(input, candidates)
	if len(s) == 0 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
}
