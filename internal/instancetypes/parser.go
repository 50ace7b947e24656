// Package instancetypes extracts instance type metadata from the vendor's
// instance-types HTML document.
//
// The document groups instance types into family containers
// (".instance-family") holding one ".instance-type" block per type. Each block
// has a heading, a table of labeled rows and an optional ".notes" area.
// Parsing never fails: fields that cannot be read are left absent and the
// remaining blocks are still extracted.
package instancetypes

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"ec2-pricing/pkg/models"
)

// Parser turns an instance-types document into records. A Parser is not
// modified after NewParser returns and may be shared between goroutines.
type Parser struct {
	families map[string]FamilyRule
}

type Option func(*Parser)

// WithFamilyRules adds or replaces the corrections of the given families,
// keyed by family prefix ("cc", "hs").
func WithFamilyRules(rules map[string]FamilyRule) Option {
	return func(p *Parser) {
		for family, rule := range rules {
			p.families[normalizeFamily(family)] = rule
		}
	}
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{families: DefaultFamilyRules()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse extracts records with the default family rules.
func Parse(doc *goquery.Document) []models.InstanceType {
	return defaultParser.Parse(doc)
}

// Parse returns one record per instance-type block, in document order. A
// document without recognizable blocks yields an empty slice.
func (p *Parser) Parse(doc *goquery.Document) []models.InstanceType {
	blocks := locateBlocks(doc)
	records := make([]models.InstanceType, 0, len(blocks))
	for _, b := range blocks {
		records = append(records, p.assemble(b))
	}
	logrus.Debugf("extracted %d instance types", len(records))
	return records
}

func (p *Parser) assemble(b *block) models.InstanceType {
	apiName, name := identify(b)
	c := &fieldContext{
		block:   b,
		apiName: apiName,
		rule:    p.families[familyOf(apiName)],
	}
	t := models.InstanceType{APIName: apiName, Name: name}
	for _, f := range fieldExtractors {
		runExtractor(c, f, &t)
	}

	// Storage is either instance store or EBS, never both. A disk that could
	// not be read stays absent without making the type EBS-only.
	if t.EBSOnly {
		t.Disk = nil
		t.SSD = false
	}
	if len(t.Architectures) == 0 {
		t.Architectures = []int{64}
	}
	return t
}

// runExtractor confines a failing extractor to its own field.
func runExtractor(c *fieldContext, f fieldExtractor, t *models.InstanceType) {
	defer func() {
		if r := recover(); r != nil {
			c.absent(f.field, fmt.Sprintf("extractor failed: %v", r))
		}
	}()
	f.extract(c, t)
}
