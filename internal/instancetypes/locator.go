package instancetypes

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	familySelector  = ".instance-family"
	typeSelector    = ".instance-type"
	headingSelector = "h3"
	fallbackHeading = "h4"
	badgeSelector   = ".badge, .ebs-only, code"
	notesSelector   = ".notes"
	ebsOnlySelector = ".ebs-only"
)

var (
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	alphanumeric  = regexp.MustCompile(`[[:alnum:]]`)
)

// block is the markup of one instance type together with the labeled rows
// found inside it.
type block struct {
	sel     *goquery.Selection
	family  string
	heading string
	rows    map[string]*goquery.Selection
}

// locateBlocks returns one block per instance type in document order. Blocks
// outside a family container, or without heading text, are not instance types.
func locateBlocks(doc *goquery.Document) []*block {
	var blocks []*block
	if doc == nil {
		return blocks
	}
	doc.Find(typeSelector).Each(func(_ int, s *goquery.Selection) {
		family := s.Closest(familySelector)
		if family.Length() == 0 {
			return
		}
		familyName := collapse(family.Find("h2").First().Text())
		heading := headingText(s)
		if !alphanumeric.MatchString(heading) {
			logrus.WithField("family", familyName).Debug("skipping instance type block without heading")
			return
		}
		blocks = append(blocks, &block{
			sel:     s,
			family:  familyName,
			heading: heading,
			rows:    labeledRows(s),
		})
	})
	return blocks
}

func headingSelection(s *goquery.Selection) *goquery.Selection {
	h := s.Find(headingSelector).First()
	if h.Length() == 0 {
		h = s.Find(fallbackHeading).First()
	}
	return h
}

// headingText is the heading without badges or code-styled labels.
func headingText(s *goquery.Selection) string {
	h := headingSelection(s)
	if h.Length() == 0 {
		return ""
	}
	h = h.Clone()
	h.Find(badgeSelector).Remove()
	return collapse(h.Text())
}

// labeledRows maps normalized labels to value cells. The first cell of a
// row is its label and the last its value; the first row with a label wins.
func labeledRows(s *goquery.Selection) map[string]*goquery.Selection {
	rows := make(map[string]*goquery.Selection)
	s.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() < 2 {
			return
		}
		label := normalizeLabel(cells.First().Text())
		if label == "" {
			return
		}
		if _, ok := rows[label]; !ok {
			rows[label] = cells.Last()
		}
	})
	return rows
}

// row returns the collapsed text of the first row matching one of the labels.
func (b *block) row(labels ...string) (string, bool) {
	sel, ok := b.rowSelection(labels...)
	if !ok {
		return "", false
	}
	return collapse(sel.Text()), true
}

func (b *block) rowSelection(labels ...string) (*goquery.Selection, bool) {
	for _, label := range labels {
		if sel, ok := b.rows[label]; ok {
			return sel, true
		}
	}
	return nil, false
}

func normalizeLabel(label string) string {
	label = parenthetical.ReplaceAllString(label, " ")
	label = strings.ToLower(collapse(label))
	return strings.TrimSpace(strings.TrimSuffix(label, ":"))
}

// collapse trims s and folds every whitespace run, including non-breaking
// spaces, into a single space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
