package scraper

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	reviewClassHint string = "review"
	menuClassHint   string = "menu"

	minReviewLength int = 11
	minMenuLength   int = 2
	maxMenuLength   int = 50
)

// Extraction is the text pulled from a store detail page.
type Extraction struct {
	Reviews []string `json:"reviews"`
	Menus   []string `json:"menus"`
}

func (e Extraction) Empty() bool {
	return len(e.Reviews) == 0 && len(e.Menus) == 0
}

// Matches reports whether any term appears in the combined review and menu
// text, ignoring case.
func (e Extraction) Matches(terms []string) bool {
	haystack := strings.ToLower(strings.Join(e.Reviews, " ") + " " + strings.Join(e.Menus, " "))

	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(haystack, term) {
			return true
		}
	}

	return false
}

func Extract(r io.Reader, maxReviews int) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Extraction{}, fmt.Errorf("could not parse detail page: %w", err)
	}

	return ExtractDocument(doc, maxReviews), nil
}

// ExtractDocument finds review and menu fragments by looking for class
// names that mention them. Only the innermost matching elements are used
// so a list container does not swallow its entries.
func ExtractDocument(doc *goquery.Document, maxReviews int) Extraction {
	out := Extraction{
		Reviews: []string{},
		Menus:   []string{},
	}

	for _, text := range innermostTexts(doc.Selection, reviewClassHint) {
		if len(out.Reviews) >= maxReviews {
			break
		}

		if utf8.RuneCountInString(text) >= minReviewLength {
			out.Reviews = append(out.Reviews, text)
		}
	}

	for _, text := range innermostTexts(doc.Selection, menuClassHint) {
		n := utf8.RuneCountInString(text)
		if n >= minMenuLength && n <= maxMenuLength {
			out.Menus = append(out.Menus, text)
		}
	}

	return out
}

func innermostTexts(root *goquery.Selection, hint string) []string {
	seen := sets.NewString()
	out := []string{}

	root.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		if !hasClassHint(sel, hint) {
			return
		}

		nested := sel.Find("[class]").FilterFunction(func(_ int, child *goquery.Selection) bool {
			return hasClassHint(child, hint)
		})
		if nested.Length() > 0 {
			return
		}

		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" || seen.Has(text) {
			return
		}

		seen.Insert(text)
		out = append(out, text)
	})

	return out
}

func hasClassHint(sel *goquery.Selection, hint string) bool {
	class, _ := sel.Attr("class")
	return strings.Contains(strings.ToLower(class), hint)
}
