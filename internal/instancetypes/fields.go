package instancetypes

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"ec2-pricing/pkg/models"
)

var (
	coresLabels    = []string{"cores", "virtual cores", "physical cores", "cpu cores", "vcpus"}
	ecuLabels      = []string{"ec2 compute units", "compute units", "ecus", "ecu"}
	memoryLabels   = []string{"memory", "ram"}
	storageLabels  = []string{"instance storage", "storage", "disk"}
	platformLabels = []string{"platform", "architecture", "architectures"}
	ioLabels       = []string{"i/o performance", "io performance", "network performance"}
	ebsOptLabels   = []string{"ebs-optimized available", "ebs-optimized", "ebs optimized"}
)

// ioVocabulary is ordered so that "very high" is tried before "high".
var ioVocabulary = []string{"very high", "moderate", "high", "low"}

var (
	number       = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	integer      = regexp.MustCompile(`\d[\d,]*`)
	burstECU     = regexp.MustCompile(`(?i)^(?:variable|burst|up to)\b`)
	ebsOnlyText  = regexp.MustCompile(`(?i)\bebs[\s-]*only\b`)
	ssdText      = regexp.MustCompile(`(?i)\bssd`)
	perUnitSize  = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\s+(?:per|each|for each)\s+(?:[a-z-]+\s+)*?(?:drive|disk|volume)s?\b`)
	eachWithSize = regexp.MustCompile(`(?i)(\d+)\b[^\d]*?\beach with\s+(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\b`)
	sizeEach     = regexp.MustCompile(`(?i)(\d+)\b[^\d]*?(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\s+each\b`)
	leadingSize  = regexp.MustCompile(`(?i)^(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\b`)
	timesSize    = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\b`)
	anySize      = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(gb|tb)\b`)
	wordSize     = regexp.MustCompile(`\b(32|64)(?:-bit)?\b`)
	noEBSOpt     = regexp.MustCompile(`(?i)^(?:no|none|n/a)\b|^-$|not available|unavailable`)
	mbps         = regexp.MustCompile(`(?i)(\d[\d,]*)\s*mbps`)
	gbps         = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*gbps`)
)

// fieldContext is what every extractor sees: the block, its API name and the
// corrections of its family.
type fieldContext struct {
	block   *block
	apiName string
	rule    FamilyRule
}

func (c *fieldContext) absent(field, reason string) {
	logrus.WithFields(logrus.Fields{
		"api_name": c.apiName,
		"family":   c.block.family,
		"field":    field,
	}).Debug(reason)
}

type fieldExtractor struct {
	field   string
	extract func(c *fieldContext, t *models.InstanceType)
}

// fieldExtractors run in order. ebs_only reads the storage row independently
// of disk, so the order only matters for readability of debug logs.
var fieldExtractors = []fieldExtractor{
	{field: "cores", extract: func(c *fieldContext, t *models.InstanceType) { t.Cores = extractCores(c) }},
	{field: "ecus", extract: func(c *fieldContext, t *models.InstanceType) { t.ECUs = extractECUs(c) }},
	{field: "ram", extract: func(c *fieldContext, t *models.InstanceType) { t.RAM = extractRAM(c) }},
	{field: "disk", extract: func(c *fieldContext, t *models.InstanceType) { t.Disk, t.SSD = extractDisk(c) }},
	{field: "architectures", extract: func(c *fieldContext, t *models.InstanceType) { t.Architectures = extractArchitectures(c) }},
	{field: "io_performance", extract: func(c *fieldContext, t *models.InstanceType) { t.IOPerformance = extractIOPerformance(c) }},
	{field: "ebs_optimized", extract: func(c *fieldContext, t *models.InstanceType) { t.EBSOptimized = extractEBSOptimized(c) }},
	{field: "ebs_only", extract: func(c *fieldContext, t *models.InstanceType) { t.EBSOnly = extractEBSOnly(c) }},
	{field: "notes", extract: func(c *fieldContext, t *models.InstanceType) { t.Notes = extractNotes(c) }},
}

func extractCores(c *fieldContext) int {
	text, ok := c.block.row(coresLabels...)
	if !ok {
		c.absent("cores", "no cores row")
		return 0
	}
	raw := integer.FindString(text)
	if raw == "" {
		c.absent("cores", "no integer in cores row")
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		c.absent("cores", err.Error())
		return 0
	}
	return n * c.rule.coreFactor()
}

// extractECUs maps burstable ratings to 0.
func extractECUs(c *fieldContext) float64 {
	text, ok := c.block.row(ecuLabels...)
	if !ok {
		c.absent("ecus", "no ECU row")
		return 0
	}
	if burstECU.MatchString(text) {
		return 0
	}
	v, ok := parseNumber(text)
	if !ok {
		c.absent("ecus", "no number in ECU row")
		return 0
	}
	return v
}

func extractRAM(c *fieldContext) string {
	text, ok := c.block.row(memoryLabels...)
	if !ok {
		c.absent("ram", "no memory row")
	}
	return text
}

// extractDisk returns the total instance storage in GB and whether it is SSD.
func extractDisk(c *fieldContext) (*int, bool) {
	text, ok := c.block.row(storageLabels...)
	if !ok {
		c.absent("disk", "no storage row")
		return nil, false
	}
	if ebsOnlyText.MatchString(text) {
		return nil, false
	}
	ssd := ssdText.MatchString(text)

	var gb float64
	switch {
	case eachWithSize.MatchString(text):
		m := eachWithSize.FindStringSubmatch(text)
		gb = float64(mustAtoi(m[1])) * toGB(m[2], m[3])
	case perUnitSize.MatchString(text):
		// An explicit count wins over the family's drive count.
		if m := timesSize.FindStringSubmatch(text); m != nil {
			gb = float64(mustAtoi(m[1])) * toGB(m[2], m[3])
			break
		}
		m := perUnitSize.FindStringSubmatch(text)
		gb = toGB(m[1], m[2]) * float64(c.rule.driveCount())
	case leadingSize.MatchString(text):
		m := leadingSize.FindStringSubmatch(text)
		gb = toGB(m[1], m[2])
	case sizeEach.MatchString(text):
		m := sizeEach.FindStringSubmatch(text)
		gb = float64(mustAtoi(m[1])) * toGB(m[2], m[3])
	case timesSize.MatchString(text):
		m := timesSize.FindStringSubmatch(text)
		gb = float64(mustAtoi(m[1])) * toGB(m[2], m[3])
	case anySize.MatchString(text):
		m := anySize.FindStringSubmatch(text)
		gb = toGB(m[1], m[2])
	default:
		c.absent("disk", fmt.Sprintf("unrecognized storage %q", text))
		return nil, ssd
	}
	disk := int(math.Round(gb))
	return &disk, ssd
}

// extractArchitectures never returns an empty slice; 64-bit is assumed when
// the platform row says nothing usable.
func extractArchitectures(c *fieldContext) []int {
	text, ok := c.block.row(platformLabels...)
	if !ok {
		c.absent("architectures", "no platform row, assuming 64-bit")
		return []int{64}
	}
	seen := make(map[int]bool)
	var archs []int
	for _, m := range wordSize.FindAllStringSubmatch(text, -1) {
		bits := mustAtoi(m[1])
		if !seen[bits] {
			seen[bits] = true
			archs = append(archs, bits)
		}
	}
	if len(archs) == 0 {
		c.absent("architectures", fmt.Sprintf("unrecognized platform %q, assuming 64-bit", text))
		return []int{64}
	}
	sort.Ints(archs)
	return archs
}

func extractIOPerformance(c *fieldContext) string {
	text, ok := c.block.row(ioLabels...)
	if !ok {
		c.absent("io_performance", "no I/O performance row")
		return ""
	}
	lower := strings.ToLower(text)
	for _, level := range ioVocabulary {
		if strings.HasPrefix(lower, level) {
			return level
		}
	}
	c.absent("io_performance", fmt.Sprintf("unrecognized I/O performance %q", text))
	return ""
}

// extractEBSOptimized returns the dedicated EBS bandwidth in Mbps.
func extractEBSOptimized(c *fieldContext) string {
	text, ok := c.block.row(ebsOptLabels...)
	if !ok {
		return ""
	}
	if noEBSOpt.MatchString(text) {
		return ""
	}
	if m := mbps.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%d Mbps", mustAtoi(m[1]))
	}
	if m := gbps.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return fmt.Sprintf("%d Mbps", int(math.Round(v*1000)))
	}
	c.absent("ebs_optimized", fmt.Sprintf("no bandwidth in %q", text))
	return ""
}

func extractEBSOnly(c *fieldContext) bool {
	if c.block.sel.Is(ebsOnlySelector) || c.block.sel.Find(ebsOnlySelector).Length() > 0 {
		return true
	}
	text, ok := c.block.row(storageLabels...)
	return ok && ebsOnlyText.MatchString(text)
}

// extractNotes reads list items from the notes area, or its paragraphs when
// it has no list. The result is nil rather than empty.
func extractNotes(c *fieldContext) []string {
	area := c.block.sel.Find(notesSelector)
	if area.Length() == 0 {
		return nil
	}
	items := area.Find("li").Not("li li")
	if items.Length() == 0 {
		items = area.Find("p")
	}
	if items.Length() == 0 {
		if text := collapse(area.Text()); text != "" {
			return []string{text}
		}
		return nil
	}
	var notes []string
	for _, text := range items.Map(func(_ int, s *goquery.Selection) string { return itemText(s) }) {
		if text != "" {
			notes = append(notes, text)
		}
	}
	return notes
}

// itemText is the text of a list item without its nested lists, or all of
// its text when the nested lists are everything it holds.
func itemText(s *goquery.Selection) string {
	own := s.Clone()
	own.Find("ul, ol").Remove()
	if text := collapse(own.Text()); text != "" {
		return text
	}
	return collapse(s.Text())
}

func parseNumber(text string) (float64, bool) {
	raw := number.FindString(text)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func toGB(amount, unit string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64)
	if strings.EqualFold(unit, "tb") {
		return v * 1024
	}
	return v
}

// mustAtoi is only called on strings the patterns above matched as digits.
func mustAtoi(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}
